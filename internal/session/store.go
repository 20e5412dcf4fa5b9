// Package session keeps one widget instance per page load. Sessions live in
// an in-memory go-memdb table and expire after a period of inactivity.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/conneroisu/grievance/internal/logging"
	"github.com/conneroisu/grievance/internal/widget"
	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

const table = "session"

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = stderrors.New("session not found")

// Session is one page load's widget and the feed its open pages listen on.
// Records stored in memdb are never mutated; Touch inserts a copy.
type Session struct {
	ID        string
	Widget    *widget.Widget
	Feed      *Feed
	CreatedAt time.Time
	// Expiry is the unix second after which the session is discarded.
	Expiry int64
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return now.Unix() >= s.Expiry
}

// Builder creates the widget for a new session. The feed belongs to the
// same session so the widget can publish to it.
type Builder func(id string, feed *Feed) *widget.Widget

// Store holds the live sessions.
type Store struct {
	db     *memdb.MemDB
	ttl    time.Duration
	now    func() time.Time
	logger logging.Logger
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			table: {
				Name: table,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:         "id",
						Unique:       true,
						Indexer:      &memdb.StringFieldIndex{Field: "ID"},
						AllowMissing: false,
					},
					"expiry": {
						Name:         "expiry",
						Unique:       false,
						Indexer:      &memdb.IntFieldIndex{Field: "Expiry"},
						AllowMissing: false,
					},
				},
			},
		},
	}
}

// NewStore creates an empty store whose sessions live for ttl after their
// last use.
func NewStore(ttl time.Duration, logger logging.Logger) (*Store, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("failed to create session table: %w", err)
	}
	return &Store{
		db:     db,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.WithComponent("sessions"),
	}, nil
}

// Create registers a new session with a fresh id.
func (s *Store) Create(build Builder) (*Session, error) {
	now := s.now()
	id := uuid.NewString()
	feed := newFeed()
	sess := &Session{
		ID:        id,
		Widget:    build(id, feed),
		Feed:      feed,
		CreatedAt: now,
		Expiry:    now.Add(s.ttl).Unix(),
	}

	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(table, sess); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	txn.Commit()

	s.logger.Debug(context.Background(), "Session created", "session_id", id)
	return sess, nil
}

// Get returns the live session with the given id.
func (s *Store) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(table, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	sess := raw.(*Session)
	if sess.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Touch pushes the expiry of a live session ttl into the future.
func (s *Store) Touch(id string) (*Session, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(table, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	now := s.now()
	current := raw.(*Session)
	if current.Expired(now) {
		return nil, ErrNotFound
	}

	updated := *current
	updated.Expiry = now.Add(s.ttl).Unix()
	if err := txn.Insert(table, &updated); err != nil {
		return nil, fmt.Errorf("failed to extend session: %w", err)
	}
	txn.Commit()
	return &updated, nil
}

// Each calls fn for every live session.
func (s *Store) Each(fn func(*Session)) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(table, "id")
	if err != nil {
		s.logger.Error(context.Background(), err, "Failed to list sessions")
		return
	}
	now := s.now()
	for obj := it.Next(); obj != nil; obj = it.Next() {
		if sess := obj.(*Session); !sess.Expired(now) {
			fn(sess)
		}
	}
}

// Len returns the number of stored sessions, expired or not.
func (s *Store) Len() int {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(table, "id")
	if err != nil {
		return 0
	}
	n := 0
	for obj := it.Next(); obj != nil; obj = it.Next() {
		n++
	}
	return n
}

// Cleanup deletes expired sessions and closes their feeds. It returns the
// number removed.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	now := s.now()

	txn := s.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(table, "expiry")
	if err != nil {
		return 0, fmt.Errorf("failed to scan sessions: %w", err)
	}

	expired := []*Session{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		if sess := obj.(*Session); sess.Expired(now) {
			expired = append(expired, sess)
		}
	}

	for _, sess := range expired {
		if err := txn.Delete(table, sess); err != nil {
			return 0, fmt.Errorf("failed to delete session %s: %w", sess.ID, err)
		}
	}
	txn.Commit()

	for _, sess := range expired {
		sess.Feed.Close()
		s.logger.Debug(ctx, "Deleted expired session", "session_id", sess.ID)
	}
	return len(expired), nil
}

// Run calls Cleanup every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Cleanup(ctx)
			if err != nil {
				s.logger.Error(ctx, err, "Session cleanup failed")
				continue
			}
			if removed > 0 {
				s.logger.Info(ctx, "Expired sessions removed", "count", removed, "remaining", s.Len())
			}
		}
	}
}

// Close closes every session feed so open connections wind down.
func (s *Store) Close() {
	s.Each(func(sess *Session) { sess.Feed.Close() })
}
