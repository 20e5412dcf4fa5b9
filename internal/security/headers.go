// Package security sets the browser security policy for the grievance page:
// Content Security Policy with a per-request script nonce, HSTS over TLS and
// the usual hardening headers. CSP violations reported by browsers are logged.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/grievance/internal/logging"
)

// ReportPath is where browsers post CSP violation reports.
const ReportPath = "/csp-report"

// ConfettiOrigin serves the particle animation script.
const ConfettiOrigin = "https://cdn.jsdelivr.net"

// SecurityConfig holds the headers applied to every response.
type SecurityConfig struct {
	// CSP configures Content Security Policy headers and nonce generation
	CSP *CSPConfig
	// HSTS is only sent on TLS connections
	HSTS *HSTSConfig
	// XFrameOptions sets X-Frame-Options header (DENY, SAMEORIGIN)
	XFrameOptions string
	// XContentTypeNoSniff enables X-Content-Type-Options: nosniff header
	XContentTypeNoSniff bool
	// ReferrerPolicy sets Referrer-Policy header for referrer information control
	ReferrerPolicy string
	// PermissionsPolicy lists the browser features the page may use
	PermissionsPolicy *PermissionsPolicyConfig
	// EnableNonce adds a fresh nonce to script-src on every request
	EnableNonce bool
}

// CSPConfig holds Content Security Policy configuration
type CSPConfig struct {
	DefaultSrc              []string
	ScriptSrc               []string
	StyleSrc                []string
	ImgSrc                  []string
	ConnectSrc              []string
	WorkerSrc               []string
	ObjectSrc               []string
	FrameAncestors          []string
	BaseURI                 []string
	FormAction              []string
	UpgradeInsecureRequests bool
	ReportURI               string
}

// HSTSConfig holds HTTP Strict Transport Security configuration
type HSTSConfig struct {
	MaxAge            int
	IncludeSubDomains bool
	Preload           bool
}

// PermissionsPolicyConfig holds Permissions Policy configuration. An empty
// list disables the feature.
type PermissionsPolicyConfig struct {
	Geolocation []string
	Camera      []string
	Microphone  []string
	Payment     []string
	Fullscreen  []string
}

// DefaultSecurityConfig returns the policy the page needs: its own scripts,
// the confetti script, inline star styles, the websocket and the confetti
// worker, which runs from a blob URL.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		CSP: &CSPConfig{
			DefaultSrc:     []string{"'self'"},
			ScriptSrc:      []string{"'self'", ConfettiOrigin},
			StyleSrc:       []string{"'self'", "'unsafe-inline'"},
			ImgSrc:         []string{"'self'", "data:"},
			ConnectSrc:     []string{"'self'", "ws:", "wss:"},
			WorkerSrc:      []string{"'self'", "blob:"},
			ObjectSrc:      []string{"'none'"},
			FrameAncestors: []string{"'none'"},
			BaseURI:        []string{"'self'"},
			FormAction:     []string{"'self'"},
			ReportURI:      ReportPath,
		},
		HSTS: &HSTSConfig{
			MaxAge:            31536000, // 1 year
			IncludeSubDomains: true,
		},
		XFrameOptions:       "DENY",
		XContentTypeNoSniff: true,
		ReferrerPolicy:      "strict-origin-when-cross-origin",
		PermissionsPolicy: &PermissionsPolicyConfig{
			Fullscreen: []string{"self"},
		},
		EnableNonce: true,
	}
}

// DevelopmentSecurityConfig drops HSTS so plain-http localhost keeps working.
func DevelopmentSecurityConfig() *SecurityConfig {
	config := DefaultSecurityConfig()
	config.HSTS = nil
	return config
}

// ProductionSecurityConfig upgrades mixed content and only allows secure
// websockets.
func ProductionSecurityConfig() *SecurityConfig {
	config := DefaultSecurityConfig()
	config.CSP.ConnectSrc = []string{"'self'", "wss:"}
	config.CSP.UpgradeInsecureRequests = true
	config.HSTS.Preload = true
	return config
}

// ForEnvironment picks the policy for server.environment.
func ForEnvironment(environment string) *SecurityConfig {
	switch environment {
	case "production":
		return ProductionSecurityConfig()
	case "development":
		return DevelopmentSecurityConfig()
	default:
		return DefaultSecurityConfig()
	}
}

func generateNonce() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(bytes), nil
}

// Middleware applies secConfig to every response. The nonce is stored with
// templ.WithNonce so components can stamp it on their script tags.
func Middleware(secConfig *SecurityConfig, logger logging.Logger) func(http.Handler) http.Handler {
	if secConfig == nil {
		secConfig = DefaultSecurityConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var nonce string
			if secConfig.EnableNonce {
				var err error
				nonce, err = generateNonce()
				if err != nil {
					logger.Error(r.Context(), err, "Failed to generate CSP nonce")
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				r = r.WithContext(templ.WithNonce(r.Context(), nonce))
			}

			applySecurityHeaders(w, r, secConfig, nonce)
			next.ServeHTTP(w, r)
		})
	}
}

func applySecurityHeaders(w http.ResponseWriter, r *http.Request, config *SecurityConfig, nonce string) {
	if config.CSP != nil {
		w.Header().Set("Content-Security-Policy", buildCSPHeader(config.CSP, nonce))
	}

	if config.HSTS != nil && r.TLS != nil {
		w.Header().Set("Strict-Transport-Security", buildHSTSHeader(config.HSTS))
	}

	if config.XFrameOptions != "" {
		w.Header().Set("X-Frame-Options", config.XFrameOptions)
	}

	if config.XContentTypeNoSniff {
		w.Header().Set("X-Content-Type-Options", "nosniff")
	}

	if config.ReferrerPolicy != "" {
		w.Header().Set("Referrer-Policy", config.ReferrerPolicy)
	}

	if config.PermissionsPolicy != nil {
		w.Header().Set("Permissions-Policy", buildPermissionsPolicyHeader(config.PermissionsPolicy))
	}

	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
}

// buildCSPHeader constructs the Content-Security-Policy header value. The
// nonce only applies to script-src; inline style attributes cannot carry one.
func buildCSPHeader(csp *CSPConfig, nonce string) string {
	var directives []string

	addDirective := func(name string, values []string) {
		if len(values) == 0 {
			return
		}
		if nonce != "" && name == "script-src" {
			filtered := make([]string, 0, len(values)+1)
			for _, value := range values {
				if value != "'unsafe-inline'" && value != "'unsafe-eval'" {
					filtered = append(filtered, value)
				}
			}
			values = append(filtered, fmt.Sprintf("'nonce-%s'", nonce))
		}
		directives = append(directives, name+" "+strings.Join(values, " "))
	}

	addDirective("default-src", csp.DefaultSrc)
	addDirective("script-src", csp.ScriptSrc)
	addDirective("style-src", csp.StyleSrc)
	addDirective("img-src", csp.ImgSrc)
	addDirective("connect-src", csp.ConnectSrc)
	addDirective("worker-src", csp.WorkerSrc)
	addDirective("object-src", csp.ObjectSrc)
	addDirective("frame-ancestors", csp.FrameAncestors)
	addDirective("base-uri", csp.BaseURI)
	addDirective("form-action", csp.FormAction)

	if csp.UpgradeInsecureRequests {
		directives = append(directives, "upgrade-insecure-requests")
	}

	if csp.ReportURI != "" {
		directives = append(directives, "report-uri "+csp.ReportURI)
	}

	return strings.Join(directives, "; ")
}

func buildHSTSHeader(hsts *HSTSConfig) string {
	header := fmt.Sprintf("max-age=%d", hsts.MaxAge)

	if hsts.IncludeSubDomains {
		header += "; includeSubDomains"
	}

	if hsts.Preload {
		header += "; preload"
	}

	return header
}

func buildPermissionsPolicyHeader(pp *PermissionsPolicyConfig) string {
	var policies []string

	addPolicy := func(name string, values []string) {
		policies = append(policies, fmt.Sprintf("%s=(%s)", name, strings.Join(values, " ")))
	}

	addPolicy("geolocation", pp.Geolocation)
	addPolicy("camera", pp.Camera)
	addPolicy("microphone", pp.Microphone)
	addPolicy("payment", pp.Payment)
	addPolicy("fullscreen", pp.Fullscreen)

	return strings.Join(policies, ", ")
}

// CSPViolationReport represents a CSP violation report
type CSPViolationReport struct {
	CSPReport struct {
		DocumentURI       string `json:"document-uri"`
		ViolatedDirective string `json:"violated-directive"`
		BlockedURI        string `json:"blocked-uri"`
		SourceFile        string `json:"source-file"`
		LineNumber        int    `json:"line-number"`
	} `json:"csp-report"`
}

// CSPViolationHandler logs the violation reports browsers post to ReportPath.
func CSPViolationHandler(logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var report CSPViolationReport
		if err := json.NewDecoder(io.LimitReader(r.Body, 16<<10)).Decode(&report); err != nil {
			logger.Warn(r.Context(), err, "CSP: Failed to parse violation report",
				"ip", clientIP(r))
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		logger.Warn(r.Context(), nil, "CSP: Policy violation detected",
			"document_uri", report.CSPReport.DocumentURI,
			"violated_directive", report.CSPReport.ViolatedDirective,
			"blocked_uri", report.CSPReport.BlockedURI,
			"source_file", report.CSPReport.SourceFile,
			"line_number", report.CSPReport.LineNumber,
			"ip", clientIP(r))

		w.WriteHeader(http.StatusNoContent)
	}
}

// clientIP extracts the client IP address from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	if colonPos := strings.LastIndex(ip, ":"); colonPos != -1 {
		ip = ip[:colonPos]
	}

	return ip
}
