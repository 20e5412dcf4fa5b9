package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/conneroisu/grievance/internal/errors"
	"github.com/conneroisu/grievance/internal/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleInput = widget.FormInput{
	Name:    "Ada Lovelace",
	Email:   "ada@example.com",
	Message: "The analytical engine keeps jamming.",
}

func TestSendRequestShape(t *testing.T) {
	var (
		method      string
		contentType string
		userAgent   string
		body        map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		userAgent = r.Header.Get("User-Agent")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Email sent successfully!"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL + "/api/send").Send(context.Background(), sampleInput)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.True(t, strings.HasPrefix(userAgent, "grievance/"))
	assert.Equal(t, map[string]string{
		"name":    "Ada Lovelace",
		"email":   "ada@example.com",
		"message": "The analytical engine keeps jamming.",
	}, body)
}

func TestSendOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		expectNil   bool
		expectText  string
		expectState int
	}{
		{
			name:      "ok",
			status:    http.StatusOK,
			body:      `{"message":"Email sent successfully!"}`,
			expectNil: true,
		},
		{
			name:      "created without body",
			status:    http.StatusCreated,
			expectNil: true,
		},
		{
			name:        "bad request with reason",
			status:      http.StatusBadRequest,
			body:        `{"message":"Invalid email"}`,
			expectText:  "Invalid email",
			expectState: http.StatusBadRequest,
		},
		{
			name:        "server error without body",
			status:      http.StatusInternalServerError,
			expectText:  "Something went wrong",
			expectState: http.StatusInternalServerError,
		},
		{
			name:        "server error with non-json body",
			status:      http.StatusBadGateway,
			body:        "<html>bad gateway</html>",
			expectText:  "Something went wrong",
			expectState: http.StatusBadGateway,
		},
		{
			name:        "message of the wrong type",
			status:      http.StatusUnprocessableEntity,
			body:        `{"message":42}`,
			expectText:  "Something went wrong",
			expectState: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL).Send(context.Background(), sampleInput)
			if tt.expectNil {
				assert.NoError(t, err)
				return
			}

			var rejection *errors.ServerRejection
			require.ErrorAs(t, err, &rejection)
			assert.Equal(t, tt.expectState, rejection.Status)
			assert.Equal(t, tt.expectText, errors.UserMessage(err))
		})
	}
}

func TestSendNetworkFailures(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		err := NewClient(url).Send(context.Background(), sampleInput)
		assert.True(t, errors.IsNetworkFailure(err))
		assert.Equal(t, "Network error", errors.UserMessage(err))
	})

	t.Run("malformed endpoint", func(t *testing.T) {
		err := NewClient("://nowhere").Send(context.Background(), sampleInput)
		assert.True(t, errors.IsNetworkFailure(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewClient(srv.URL).Send(ctx, sampleInput)
		assert.True(t, errors.IsNetworkFailure(err))
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		err := NewClient(srv.URL, WithTimeout(50*time.Millisecond)).Send(context.Background(), sampleInput)
		assert.True(t, errors.IsNetworkFailure(err))
	})
}

func TestTimeoutLeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{}

	c := NewClient("http://localhost:8080/api/send", WithHTTPClient(shared), WithTimeout(time.Second))
	assert.Equal(t, time.Duration(0), shared.Timeout)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
	assert.NotSame(t, shared, c.httpClient)

	assert.NotPanics(t, func() {
		c = NewClient("http://localhost:8080/api/send", WithHTTPClient(nil), WithTimeout(time.Second))
	})
	assert.Equal(t, time.Second, c.httpClient.Timeout)

	c = NewClient("http://localhost:8080/api/send", WithHTTPClient(shared))
	assert.Same(t, shared, c.httpClient)
}

func TestClientEndpoint(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/api/send", NewClient("http://localhost:8080/api/send").Endpoint())
}
