// Package server serves the grievance page, drives one widget per session and
// pushes widget updates to the browser over a websocket.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/conneroisu/grievance/internal/accessibility"
	"github.com/conneroisu/grievance/internal/celebration"
	"github.com/conneroisu/grievance/internal/config"
	"github.com/conneroisu/grievance/internal/delivery"
	"github.com/conneroisu/grievance/internal/logging"
	"github.com/conneroisu/grievance/internal/page"
	"github.com/conneroisu/grievance/internal/security"
	"github.com/conneroisu/grievance/internal/session"
	"github.com/conneroisu/grievance/internal/watcher"
	"github.com/conneroisu/grievance/internal/widget"
)

// Message is what the browser receives over the websocket.
type Message struct {
	Type      string              `json:"type"`
	State     string              `json:"state,omitempty"`
	HTML      string              `json:"html,omitempty"`
	Effect    *celebration.Effect `json:"effect,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

const (
	MessageState     = "state"
	MessageCelebrate = "celebrate"
	MessageReload    = "reload"
)

// Server is the grievance HTTP server.
type Server struct {
	config    *config.Config
	store     *session.Store
	submitter widget.Submitter
	effect    celebration.Effect
	assets    fs.FS
	stub      http.Handler
	logger    logging.Logger

	// submissions outlive the request that started them and are only
	// cancelled when the server shuts down.
	baseCtx context.Context
	cancel  context.CancelFunc

	httpServer   *http.Server
	serverMutex  sync.RWMutex
	watcher      *watcher.AssetWatcher
	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithSubmitter replaces the delivery client built from the configuration.
func WithSubmitter(submitter widget.Submitter) Option {
	return func(s *Server) {
		s.submitter = submitter
	}
}

// New creates a server for cfg.
func New(cfg *config.Config, logger logging.Logger, opts ...Option) (*Server, error) {
	logger = logger.WithComponent("server")

	store, err := session.NewStore(cfg.Sessions.TTL, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:  cfg,
		store:   store,
		effect:  celebration.FromConfig(cfg.Celebration),
		assets:  page.Assets(cfg.Development.AssetsDir),
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.submitter == nil {
		s.submitter = delivery.NewClient(cfg.DeliveryEndpoint(),
			delivery.WithTimeout(cfg.Delivery.Timeout),
			delivery.WithLogger(logger))
	}

	if cfg.Development.StubDelivery {
		s.stub = delivery.NewStub(delivery.StubConfig{
			Status:  cfg.Development.StubStatus,
			Message: cfg.Development.StubMessage,
		}, logger)
	}

	return s, nil
}

// Sessions exposes the session store.
func (s *Server) Sessions() *session.Store {
	return s.store
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /widget/{id}/submit", s.handleSubmit)
	mux.HandleFunc("GET /widget/{id}/ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST "+security.ReportPath, security.CSPViolationHandler(s.logger))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(s.assets)))
	if s.stub != nil {
		mux.Handle("POST /api/send", s.stub)
	}

	return s.addMiddleware(mux)
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	go s.store.Run(ctx, s.config.Sessions.CleanupInterval)

	if s.config.Development.HotReload {
		if err := s.setupFileWatcher(ctx); err != nil {
			s.logger.Warn(ctx, err, "Hot reload disabled")
		}
	}

	if s.config.Server.Environment == "development" {
		s.auditPage(ctx)
	}

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "Server listening",
		"address", s.config.Address(),
		"delivery_endpoint", s.config.DeliveryEndpoint(),
		"stub_delivery", s.stub != nil)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) setupFileWatcher(ctx context.Context) error {
	w, err := watcher.New(s.config.Development.AssetsDir, 300*time.Millisecond, s.logger)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.config.Development.AssetsDir, err)
	}

	w.OnChange(s.handleAssetChange)
	go w.Run(ctx)

	s.watcher = w
	s.logger.Info(ctx, "Watching assets", "path", w.Root())
	return nil
}

func (s *Server) handleAssetChange(change watcher.Change) {
	s.logger.Debug(context.Background(), "Assets changed", "assets", change.Assets)
	s.Broadcast(Message{Type: MessageReload})
}

// Broadcast sends msg to every open page of every live session.
func (s *Server) Broadcast(msg Message) {
	data, err := s.encode(msg)
	if err != nil {
		return
	}
	s.store.Each(func(sess *session.Session) {
		sess.Feed.Publish(data)
	})
}

func (s *Server) encode(msg Message) ([]byte, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error(context.Background(), err, "Failed to marshal message", "type", msg.Type)
		return nil, err
	}
	return data, nil
}

// newWidget wires a session's widget to its feed: every state change is
// pushed as a rendered fragment and a success plays confetti.
func (s *Server) newWidget(id string, feed *session.Feed) *widget.Widget {
	celebrate := celebration.Func(func(ctx context.Context, effect celebration.Effect) {
		if data, err := s.encode(Message{Type: MessageCelebrate, Effect: &effect}); err == nil {
			feed.Publish(data)
		}
	})

	return widget.New(s.submitter,
		widget.WithCelebrator(celebrate, s.effect),
		widget.WithLogger(s.logger.With("session_id", id)),
		widget.WithObserver(func(snap widget.Snapshot) {
			if data, err := s.stateMessage(id, snap); err == nil {
				feed.Publish(data)
			}
		}))
}

func (s *Server) stateMessage(id string, snap widget.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := page.Widget(page.WidgetProps{SessionID: id, Snapshot: snap}).Render(s.baseCtx, &buf); err != nil {
		s.logger.Error(s.baseCtx, err, "Failed to render widget", "session_id", id)
		return nil, err
	}
	return s.encode(Message{Type: MessageState, State: snap.State.String(), HTML: buf.String()})
}

func (s *Server) pageProps(sess *session.Session) page.Props {
	return page.Props{
		Title:     s.config.Page.Title,
		Subtitle:  s.config.Page.Subtitle,
		SessionID: sess.ID,
		Snapshot:  sess.Widget.Snapshot(),
		Effect:    s.effect,
		HotReload: s.config.Development.HotReload,
	}
}

// auditPage checks the landing page markup and logs what it finds.
func (s *Server) auditPage(ctx context.Context) {
	var buf bytes.Buffer
	props := page.Props{
		Title:    s.config.Page.Title,
		Subtitle: s.config.Page.Subtitle,
		Effect:   s.effect,
	}
	if err := page.Page(props).Render(ctx, &buf); err != nil {
		s.logger.Warn(ctx, err, "Failed to render page for audit")
		return
	}

	report, err := accessibility.NewEngine(s.logger).Analyze(ctx, &buf)
	if err != nil {
		s.logger.Warn(ctx, err, "Accessibility audit failed")
		return
	}
	for _, v := range report.Violations {
		s.logger.Warn(ctx, nil, "Accessibility violation",
			"rule", v.Rule, "impact", string(v.Impact), "selector", v.Selector, "message", v.Message)
	}
}

// Shutdown stops accepting requests, cancels in-flight submissions and
// closes every websocket.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.cancel()

		if s.watcher != nil {
			if err := s.watcher.Close(); err != nil {
				s.logger.Warn(ctx, err, "Failed to stop file watcher")
			}
		}

		s.store.Close()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}
