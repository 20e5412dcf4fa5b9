package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Overall   bool             `json:"overall"`
}

// Check represents an individual health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Healthy bool   `json:"healthy"`
}

// serverHealth is the subset of GET /health the command reads.
type serverHealth struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Checks  struct {
		Delivery struct {
			Endpoint string `json:"endpoint"`
			Stub     bool   `json:"stub"`
		} `json:"delivery"`
	} `json:"checks"`
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health status of a running grievance server",
	Long: `Checks a running grievance server:
- the HTTP server answers GET /health
- the delivery endpoint it forwards to accepts connections

This command is used by container health checks and readiness probes.`,
	RunE: runHealthCheck,
}

var (
	healthServer  *StandardFlags
	healthTimeout time.Duration
	healthVerbose bool
)

func init() {
	rootCmd.AddCommand(healthCmd)

	healthServer = AddStandardFlags(healthCmd, "server")
	healthCmd.Flags().
		DurationVarP(&healthTimeout, "timeout", "t", 3*time.Second, "Timeout for health checks")
	healthCmd.Flags().BoolVarP(&healthVerbose, "verbose", "v", false, "Verbose health check output")
}

func runHealthCheck(cmd *cobra.Command, args []string) error {
	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]Check),
		Overall:   true,
	}

	baseURL := fmt.Sprintf("http://%s", net.JoinHostPort(healthServer.Host, fmt.Sprint(healthServer.Port)))
	if health := checkHTTPServer(status, baseURL); health != nil {
		checkDeliveryEndpoint(status, health)
	}

	if !status.Overall {
		status.Status = "unhealthy"
	}

	out := cmd.OutOrStdout()
	if healthVerbose {
		output, _ := json.MarshalIndent(status, "", "  ")
		fmt.Fprintln(out, string(output))
	} else if status.Overall {
		fmt.Fprintln(out, "✅ All health checks passed")
	} else {
		fmt.Fprintln(out, "❌ Health checks failed")
		names := make([]string, 0, len(status.Checks))
		for name := range status.Checks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if check := status.Checks[name]; !check.Healthy {
				fmt.Fprintf(out, "  - %s: %s\n", name, check.Message)
			}
		}
	}

	if !status.Overall {
		return errors.New("health checks failed")
	}

	return nil
}

func fail(status *HealthStatus, name, message string) {
	status.Checks[name] = Check{Status: "unhealthy", Message: message, Healthy: false}
	status.Overall = false
}

// checkHTTPServer verifies the HTTP server is responding.
func checkHTTPServer(status *HealthStatus, baseURL string) *serverHealth {
	client := &http.Client{
		Timeout: healthTimeout,
	}

	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		fail(status, "http_server", fmt.Sprintf("Failed to connect to server: %v", err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fail(status, "http_server", fmt.Sprintf("Server returned status %d", resp.StatusCode))
		return nil
	}

	var health serverHealth
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&health); err != nil {
		fail(status, "http_server", fmt.Sprintf("Unreadable health report: %v", err))
		return nil
	}

	status.Checks["http_server"] = Check{
		Status:  "healthy",
		Message: fmt.Sprintf("HTTP server responding (%s)", health.Version),
		Healthy: true,
	}
	return &health
}

// checkDeliveryEndpoint dials the endpoint the server forwards to. It does
// not post, so no mail is sent.
func checkDeliveryEndpoint(status *HealthStatus, health *serverHealth) {
	delivery := health.Checks.Delivery
	if delivery.Stub {
		status.Checks["delivery"] = Check{
			Status:  "healthy",
			Message: "Stub delivery endpoint mounted",
			Healthy: true,
		}
		return
	}

	u, err := url.Parse(delivery.Endpoint)
	if err != nil || u.Host == "" {
		fail(status, "delivery", fmt.Sprintf("Server reports an unusable endpoint %q", delivery.Endpoint))
		return
	}

	host := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}

	conn, err := net.DialTimeout("tcp", host, healthTimeout)
	if err != nil {
		fail(status, "delivery", fmt.Sprintf("Delivery endpoint %s unreachable: %v", delivery.Endpoint, err))
		return
	}
	conn.Close()

	status.Checks["delivery"] = Check{
		Status:  "healthy",
		Message: "Delivery endpoint accepts connections",
		Healthy: true,
	}
}
