//go:build property
// +build property

package config

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, Host: "localhost"},
		Celebration: CelebrationConfig{
			ParticleCount: 150,
			Spread:        80,
			OriginX:       0.5,
			OriginY:       0.6,
			Colors:        []string{"#ff66cc"},
		},
		Sessions: SessionsConfig{TTL: 1, CleanupInterval: 1},
	}
}

var shellChars = []string{";", "&", "|", "$", "`", "<", ">"}

// TestConfigurationProperties tests configuration validation properties
func TestConfigurationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("ports inside 0-65535 validate", prop.ForAll(
		func(port int) bool {
			cfg := validConfig()
			cfg.Server.Port = port
			err := validateConfig(cfg)
			return (port >= 0 && port <= 65535) == (err == nil)
		},
		gen.IntRange(-1000, 70000),
	))

	properties.Property("six digit hex colors always validate", prop.ForAll(
		func(r, g, b uint8) bool {
			cfg := validConfig()
			cfg.Celebration.Colors = []string{fmt.Sprintf("#%02x%02x%02x", r, g, b)}
			return validateConfig(cfg) == nil
		},
		gen.UInt8(),
		gen.UInt8(),
		gen.UInt8(),
	))

	properties.Property("colors without a leading hash never validate", prop.ForAll(
		func(color string) bool {
			if strings.HasPrefix(color, "#") {
				return true
			}
			cfg := validConfig()
			cfg.Celebration.Colors = []string{color}
			return validateConfig(cfg) != nil
		},
		gen.AlphaString(),
	))

	properties.Property("origin is accepted only inside the unit square", prop.ForAll(
		func(x, y float64) bool {
			cfg := validConfig()
			cfg.Celebration.OriginX = x
			cfg.Celebration.OriginY = y
			inside := x >= 0 && x <= 1 && y >= 0 && y <= 1
			return inside == (validateConfig(cfg) == nil)
		},
		gen.Float64Range(-1, 2),
		gen.Float64Range(-1, 2),
	))

	properties.Property("hosts with shell metacharacters are rejected", prop.ForAll(
		func(prefix string, char string) bool {
			cfg := validConfig()
			cfg.Server.Host = prefix + char
			return validateConfig(cfg) != nil
		},
		gen.AlphaString(),
		gen.IntRange(0, len(shellChars)-1).Map(func(i int) string { return shellChars[i] }),
	))

	properties.TestingRun(t)
}
