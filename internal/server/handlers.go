package server

import (
	"encoding/json"
	stderrors "errors"
	"mime"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/conneroisu/grievance/internal/page"
	"github.com/conneroisu/grievance/internal/session"
	"github.com/conneroisu/grievance/internal/version"
	"github.com/conneroisu/grievance/internal/widget"
)

const maxFormBytes = 64 << 10

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Create(s.newWidget)
	if err != nil {
		s.logger.Error(r.Context(), err, "Failed to create session")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	templ.Handler(page.Page(s.pageProps(sess))).ServeHTTP(w, r)
}

// handleSubmit drives the session's widget through one submission. Browser
// scripts get the widget fragment back, JSON clients get the model, and
// plain form posts get the whole page.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Touch(r.PathValue("id"))
	if err != nil {
		if stderrors.Is(err, session.ErrNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		s.logger.Error(r.Context(), err, "Failed to load session")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	input, isJSON, err := readFormInput(w, r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The browser has applied the input constraints. The widget has already
	// recorded the outcome when Submit returns, so only the in-flight guard
	// is an HTTP-level failure.
	if err := sess.Widget.Submit(s.baseCtx, input); stderrors.Is(err, widget.ErrSubmissionInFlight) {
		http.Error(w, "Submission already in flight", http.StatusConflict)
		return
	}

	snap := sess.Widget.Snapshot()
	switch {
	case isJSON:
		writeJSON(w, http.StatusOK, snap.Model)
	case r.Header.Get("X-Requested-With") == "fetch":
		templ.Handler(page.Widget(page.WidgetProps{SessionID: sess.ID, Snapshot: snap})).ServeHTTP(w, r)
	default:
		templ.Handler(page.Page(s.pageProps(sess))).ServeHTTP(w, r)
	}
}

func readFormInput(w http.ResponseWriter, r *http.Request) (widget.FormInput, bool, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	var input widget.FormInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return input, true, err
		}
		return input, true, nil
	}

	if err := r.ParseForm(); err != nil {
		return input, false, err
	}
	input.Name = r.PostForm.Get("name")
	input.Email = r.PostForm.Get("email")
	input.Message = r.PostForm.Get("message")
	return input, false, nil
}

// handleHealth returns the server health status for health checks
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.GetShortVersion(),
		"checks": map[string]interface{}{
			"server":   map[string]interface{}{"status": "healthy", "message": "HTTP server operational"},
			"sessions": map[string]interface{}{"status": "healthy", "count": s.store.Len()},
			"delivery": map[string]interface{}{
				"status":   "healthy",
				"endpoint": s.config.DeliveryEndpoint(),
				"stub":     s.stub != nil,
			},
		},
	}

	writeJSON(w, http.StatusOK, health)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
