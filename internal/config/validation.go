package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("❌ Validation Errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("⚠️  Validation Warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

var knownEnvironments = []string{"development", "staging", "production", "test"}

// ValidateConfigWithDetails validates config and adds warnings for settings
// that load fine but are probably not what a deployment wants.
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	if err := validateConfig(config); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "config",
			Message: err.Error(),
		})
	}

	validateServerConfigDetails(config, result)
	validateDeliveryConfigDetails(config, result)
	validateDevelopmentConfigDetails(config, result)

	result.Valid = !result.HasErrors()
	return result
}

func validateServerConfigDetails(config *Config, result *ValidationResult) {
	env := config.Server.Environment
	if !contains(knownEnvironments, env) {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "server.environment",
			Value:   env,
			Message: fmt.Sprintf("unknown environment %q is treated like staging", env),
			Suggestions: []string{
				"Use one of: " + strings.Join(knownEnvironments, ", "),
			},
		})
	}

	if ip := net.ParseIP(config.Server.Host); ip != nil && ip.IsUnspecified() && env == "development" {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "server.host",
			Value:   config.Server.Host,
			Message: "the development server listens on every interface",
			Suggestions: []string{
				"Bind to localhost unless other machines need the page",
			},
		})
	}
}

func validateDeliveryConfigDetails(config *Config, result *ValidationResult) {
	if config.Delivery.Endpoint == "" && !config.Development.StubDelivery {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "delivery.endpoint",
			Message: "submissions go to this server's /api/send, which only exists with the stub on",
			Suggestions: []string{
				"Set delivery.endpoint to your mail service",
				"Or enable development.stub_delivery while trying things out",
			},
		})
	}

	if config.Server.Environment == "production" && config.Delivery.Endpoint != "" {
		if u, err := url.Parse(config.Delivery.Endpoint); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   "delivery.endpoint",
				Value:   config.Delivery.Endpoint,
				Message: "submissions travel to the endpoint over plain http",
				Suggestions: []string{
					"Use an https endpoint",
				},
			})
		}
	}
}

func validateDevelopmentConfigDetails(config *Config, result *ValidationResult) {
	if config.Server.Environment != "production" {
		return
	}

	if config.Development.StubDelivery {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "development.stub_delivery",
			Value:   true,
			Message: "the stub answers every submission, so nothing reaches a mailbox",
			Suggestions: []string{
				"Disable development.stub_delivery in production",
			},
		})
	}

	if config.Development.HotReload {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "development.hot_reload",
			Value:   true,
			Message: "hot reload watches the filesystem in production",
		})
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
