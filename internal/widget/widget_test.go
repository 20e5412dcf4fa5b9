package widget_test

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/conneroisu/grievance/internal/celebration"
	"github.com/conneroisu/grievance/internal/delivery"
	"github.com/conneroisu/grievance/internal/errors"
	"github.com/conneroisu/grievance/internal/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var grievance = widget.FormInput{
	Name:    "Grace Hopper",
	Email:   "grace@example.com",
	Message: "There is a moth in relay 70.",
}

// mockEndpoint answers every request with status and body and counts calls.
func mockEndpoint(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestInitialState(t *testing.T) {
	w := widget.New(widget.SubmitterFunc(func(context.Context, widget.FormInput) error { return nil }))
	snap := w.Snapshot()

	assert.Equal(t, widget.StateIdle, snap.State)
	assert.Empty(t, snap.ErrorMessage)
	assert.False(t, snap.Disabled())
}

func TestSubmitSuccess(t *testing.T) {
	srv, calls := mockEndpoint(t, http.StatusOK, `{"message":"Email sent successfully!"}`)
	recorder := &celebration.Recorder{}
	w := widget.New(delivery.NewClient(srv.URL), widget.WithCelebrator(recorder, celebration.Default()))

	err := w.Submit(context.Background(), grievance)
	require.NoError(t, err)

	snap := w.Snapshot()
	assert.Equal(t, widget.StateSuccess, snap.State)
	assert.Empty(t, snap.ErrorMessage)
	assert.True(t, snap.Form.IsZero(), "fields are cleared after success")
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))

	require.Equal(t, 1, recorder.Count(), "celebration fires exactly once")
	assert.Equal(t, 150, recorder.Effects()[0].ParticleCount)
}

func TestSubmitErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{"rejection with reason", http.StatusBadRequest, `{"message":"Invalid email"}`, "Invalid email"},
		{"rejection without body", http.StatusInternalServerError, "", "Something went wrong"},
		{"rejection without message field", http.StatusInternalServerError, `{"error":"boom"}`, "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := mockEndpoint(t, tt.status, tt.body)
			recorder := &celebration.Recorder{}
			w := widget.New(delivery.NewClient(srv.URL), widget.WithCelebrator(recorder, celebration.Default()))

			err := w.Submit(context.Background(), grievance)
			assert.True(t, errors.IsRejection(err))

			snap := w.Snapshot()
			assert.Equal(t, widget.StateError, snap.State)
			assert.Equal(t, tt.expected, snap.ErrorMessage)
			assert.Equal(t, grievance, snap.Form, "fields are kept after an error")
			assert.Zero(t, recorder.Count())
		})
	}
}

func TestSubmitNetworkError(t *testing.T) {
	causes := []error{
		stderrors.New("connection reset"),
		context.DeadlineExceeded,
		&customFailure{code: 7},
	}

	for _, cause := range causes {
		t.Run(cause.Error(), func(t *testing.T) {
			w := widget.New(widget.SubmitterFunc(func(context.Context, widget.FormInput) error {
				return errors.NewNetworkFailure(cause)
			}))

			_ = w.Submit(context.Background(), grievance)

			snap := w.Snapshot()
			assert.Equal(t, widget.StateError, snap.State)
			assert.Equal(t, "Network error", snap.ErrorMessage)
		})
	}

	t.Run("unreachable endpoint", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		w := widget.New(delivery.NewClient(url))
		_ = w.Submit(context.Background(), grievance)
		assert.Equal(t, "Network error", w.Snapshot().ErrorMessage)
	})
}

type customFailure struct{ code int }

func (c *customFailure) Error() string { return "custom failure" }

func TestSendingIsObservedBeforeTheCallResolves(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var calls int32

	w := widget.New(widget.SubmitterFunc(func(ctx context.Context, _ widget.FormInput) error {
		atomic.AddInt32(&calls, 1)
		close(entered)
		<-release
		return nil
	}))

	var (
		mu   sync.Mutex
		seen []widget.State
	)
	w.Observe(func(s widget.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.State)
	})

	done := make(chan error, 1)
	go func() { done <- w.Submit(context.Background(), grievance) }()

	<-entered
	snap := w.Snapshot()
	assert.Equal(t, widget.StateSending, snap.State)
	assert.True(t, snap.Disabled(), "inputs and submit control are disabled while sending")

	mu.Lock()
	assert.Equal(t, []widget.State{widget.StateSending}, seen)
	mu.Unlock()

	// A second submission is not dispatched while the first is in flight.
	err := w.Submit(context.Background(), grievance)
	assert.ErrorIs(t, err, widget.ErrSubmissionInFlight)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// Typing is ignored while the inputs are disabled.
	w.SetForm(widget.FormInput{Name: "ignored"})
	assert.Equal(t, grievance, w.Snapshot().Form)

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("submission did not complete")
	}

	mu.Lock()
	assert.Equal(t, []widget.State{widget.StateSending, widget.StateSuccess}, seen)
	mu.Unlock()
	assert.False(t, w.Snapshot().Disabled())
}

func TestConcurrentSubmitsDispatchOnce(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	w := widget.New(widget.SubmitterFunc(func(context.Context, widget.FormInput) error {
		atomic.AddInt32(&calls, 1)
		<-release
		return nil
	}))

	var wg sync.WaitGroup
	var inFlight int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Submit(context.Background(), grievance); stderrors.Is(err, widget.ErrSubmissionInFlight) {
				atomic.AddInt32(&inFlight, 1)
			}
		}()
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&inFlight) == 19
	}, 5*time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Equal(t, widget.StateSuccess, w.Snapshot().State)
}

func TestSequentialSubmissionsAreIndependent(t *testing.T) {
	statuses := []int{http.StatusBadRequest, http.StatusOK}
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.WriteHeader(statuses[n-1])
		if statuses[n-1] != http.StatusOK {
			_, _ = w.Write([]byte(`{"message":"Invalid email"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	recorder := &celebration.Recorder{}
	w := widget.New(delivery.NewClient(srv.URL), widget.WithCelebrator(recorder, celebration.Default()))

	_ = w.Submit(context.Background(), grievance)
	first := w.Snapshot()
	assert.Equal(t, widget.StateError, first.State)
	assert.Equal(t, "Invalid email", first.ErrorMessage)

	require.NoError(t, w.Submit(context.Background(), grievance))
	second := w.Snapshot()
	assert.Equal(t, widget.StateSuccess, second.State)
	assert.Empty(t, second.ErrorMessage, "the earlier error does not leak into the next cycle")

	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.Equal(t, 1, recorder.Count())
}

func TestInstancesAreIsolated(t *testing.T) {
	ok, _ := mockEndpoint(t, http.StatusOK, `{}`)
	bad, _ := mockEndpoint(t, http.StatusBadRequest, `{"message":"Invalid email"}`)

	a := widget.New(delivery.NewClient(ok.URL))
	b := widget.New(delivery.NewClient(bad.URL))

	require.NoError(t, a.Submit(context.Background(), grievance))
	_ = b.Submit(context.Background(), grievance)

	assert.Equal(t, widget.StateSuccess, a.Snapshot().State)
	assert.Equal(t, widget.StateError, b.Snapshot().State)
}

func TestSuccessWithoutCelebrator(t *testing.T) {
	w := widget.New(widget.SubmitterFunc(func(context.Context, widget.FormInput) error { return nil }))
	require.NoError(t, w.Submit(context.Background(), grievance))
	assert.Equal(t, widget.StateSuccess, w.Snapshot().State)
}
