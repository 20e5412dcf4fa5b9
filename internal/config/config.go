// Package config provides configuration management for grievance using Viper
// for loading from files, environment variables, and command-line flags.
//
// Values are resolved in the usual Viper order: flags, GRIEVANCE_* environment
// variables (a .env file is loaded into the environment first), the
// .grievance.yml file, then the defaults registered by SetDefaults.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full grievance configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Delivery    DeliveryConfig    `mapstructure:"delivery" yaml:"delivery"`
	Celebration CelebrationConfig `mapstructure:"celebration" yaml:"celebration"`
	Sessions    SessionsConfig    `mapstructure:"sessions" yaml:"sessions"`
	Development DevelopmentConfig `mapstructure:"development" yaml:"development"`
	Page        PageConfig        `mapstructure:"page" yaml:"page"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	Host           string   `mapstructure:"host" yaml:"host"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	Environment    string   `mapstructure:"environment" yaml:"environment"`
}

// DeliveryConfig points at the Mail Delivery Endpoint. An empty Endpoint means
// the server's own /api/send. A zero Timeout means requests are never cut off.
type DeliveryConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type CelebrationConfig struct {
	ParticleCount int      `mapstructure:"particle_count" yaml:"particle_count"`
	Spread        int      `mapstructure:"spread" yaml:"spread"`
	OriginX       float64  `mapstructure:"origin_x" yaml:"origin_x"`
	OriginY       float64  `mapstructure:"origin_y" yaml:"origin_y"`
	Colors        []string `mapstructure:"colors" yaml:"colors"`
}

type SessionsConfig struct {
	TTL             time.Duration `mapstructure:"ttl" yaml:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

// DevelopmentConfig controls the local conveniences of `grievance serve`.
// AssetsDir serves /static from disk instead of the embedded copy; with
// HotReload the directory is watched and open pages reload on change.
// StubDelivery mounts a stand-in /api/send that answers every submission
// with StubStatus and StubMessage.
type DevelopmentConfig struct {
	HotReload    bool   `mapstructure:"hot_reload" yaml:"hot_reload"`
	AssetsDir    string `mapstructure:"assets_dir" yaml:"assets_dir"`
	StubDelivery bool   `mapstructure:"stub_delivery" yaml:"stub_delivery"`
	StubStatus   int    `mapstructure:"stub_status" yaml:"stub_status"`
	StubMessage  string `mapstructure:"stub_message" yaml:"stub_message"`
}

type PageConfig struct {
	Title    string `mapstructure:"title" yaml:"title"`
	Subtitle string `mapstructure:"subtitle" yaml:"subtitle"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.environment", "development")

	v.SetDefault("delivery.endpoint", "")
	v.SetDefault("delivery.timeout", time.Duration(0))

	v.SetDefault("celebration.particle_count", 150)
	v.SetDefault("celebration.spread", 80)
	v.SetDefault("celebration.origin_x", 0.5)
	v.SetDefault("celebration.origin_y", 0.6)
	v.SetDefault("celebration.colors", []string{"#ff66cc", "#cc33ff", "#ff99cc", "#cc66ff"})

	v.SetDefault("sessions.ttl", 2*time.Hour)
	v.SetDefault("sessions.cleanup_interval", 10*time.Minute)

	v.SetDefault("development.hot_reload", false)
	v.SetDefault("development.assets_dir", "")
	v.SetDefault("development.stub_delivery", false)
	v.SetDefault("development.stub_status", 200)
	v.SetDefault("development.stub_message", "Email sent successfully!")

	v.SetDefault("page.title", "✉️ Send Your Grievance")
	v.SetDefault("page.subtitle", "Feel free to share any problems or feedback you have!")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Env values arrive as "a, b"; drop blanks left by the split.
	config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins)
	config.Celebration.Colors = splitList(config.Celebration.Colors)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DeliveryEndpoint returns the absolute URL submissions are posted to.
func (c *Config) DeliveryEndpoint() string {
	if c.Delivery.Endpoint != "" {
		return c.Delivery.Endpoint
	}
	return fmt.Sprintf("http://%s/api/send", c.Address())
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateDeliveryConfig(&config.Delivery); err != nil {
		return fmt.Errorf("delivery config: %w", err)
	}

	if err := validateCelebrationConfig(&config.Celebration); err != nil {
		return fmt.Errorf("celebration config: %w", err)
	}

	if config.Sessions.TTL <= 0 {
		return fmt.Errorf("sessions config: ttl must be positive, got %s", config.Sessions.TTL)
	}
	if config.Sessions.CleanupInterval <= 0 {
		return fmt.Errorf("sessions config: cleanup_interval must be positive, got %s", config.Sessions.CleanupInterval)
	}

	if config.Development.HotReload && config.Development.AssetsDir == "" {
		return fmt.Errorf("development config: hot_reload needs assets_dir")
	}
	if config.Development.AssetsDir != "" {
		if err := validatePath(config.Development.AssetsDir); err != nil {
			return fmt.Errorf("development config: assets_dir: %w", err)
		}
	}

	if config.Development.StubDelivery {
		if config.Development.StubStatus < 100 || config.Development.StubStatus > 599 {
			return fmt.Errorf("development config: stub_status %d is not an HTTP status", config.Development.StubStatus)
		}
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", " "}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	for _, origin := range config.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("allowed origin %q must be an http(s) origin", origin)
		}
	}

	return nil
}

func validateDeliveryConfig(config *DeliveryConfig) error {
	if config.Endpoint != "" {
		u, err := url.Parse(config.Endpoint)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("endpoint %q must be an absolute http(s) URL", config.Endpoint)
		}
	}

	if config.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", config.Timeout)
	}

	return nil
}

func validateCelebrationConfig(config *CelebrationConfig) error {
	if config.ParticleCount <= 0 {
		return fmt.Errorf("particle_count must be positive, got %d", config.ParticleCount)
	}
	if config.Spread <= 0 || config.Spread > 360 {
		return fmt.Errorf("spread %d is not in range 1-360", config.Spread)
	}
	if config.OriginX < 0 || config.OriginX > 1 || config.OriginY < 0 || config.OriginY > 1 {
		return fmt.Errorf("origin (%v, %v) must lie within the unit square", config.OriginX, config.OriginY)
	}
	if len(config.Colors) == 0 {
		return fmt.Errorf("at least one color is required")
	}
	for _, color := range config.Colors {
		if !hexColor.MatchString(color) {
			return fmt.Errorf("color %q is not a hex color", color)
		}
	}
	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
