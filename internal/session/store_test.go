package session

import (
	"context"
	"testing"
	"time"

	"github.com/conneroisu/grievance/internal/logging"
	"github.com/conneroisu/grievance/internal/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *clock) {
	t.Helper()
	store, err := NewStore(ttl, logging.Discard())
	require.NoError(t, err)
	c := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store.now = c.now
	return store, c
}

func build(string, *Feed) *widget.Widget {
	return widget.New(widget.SubmitterFunc(func(context.Context, widget.FormInput) error { return nil }))
}

func TestNewStoreRejectsZeroTTL(t *testing.T) {
	_, err := NewStore(0, logging.Discard())
	assert.Error(t, err)
}

func TestCreateAndGet(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	var builtFor string
	sess, err := store.Create(func(id string, feed *Feed) *widget.Widget {
		builtFor = id
		assert.NotNil(t, feed)
		return build(id, feed)
	})
	require.NoError(t, err)
	assert.Equal(t, sess.ID, builtFor)
	assert.Len(t, sess.ID, 36)

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess.Widget, got.Widget)
	assert.Equal(t, 1, store.Len())
}

func TestSessionsAreIndependent(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	a, err := store.Create(build)
	require.NoError(t, err)
	b, err := store.Create(build)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotSame(t, a.Widget, b.Widget)
	assert.NotSame(t, a.Feed, b.Feed)
}

func TestGetUnknown(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	_, err := store.Get("not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get("6f1c1d3e-8d7a-4a43-9f57-2f6a3c1b0e11")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiry(t *testing.T) {
	store, c := newTestStore(t, time.Hour)
	sess, err := store.Create(build)
	require.NoError(t, err)

	c.advance(59 * time.Minute)
	_, err = store.Get(sess.ID)
	require.NoError(t, err)

	c.advance(2 * time.Minute)
	_, err = store.Get(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound, "expired sessions are hidden before cleanup runs")
}

func TestTouchExtendsExpiry(t *testing.T) {
	store, c := newTestStore(t, time.Hour)
	sess, err := store.Create(build)
	require.NoError(t, err)

	c.advance(50 * time.Minute)
	touched, err := store.Touch(sess.ID)
	require.NoError(t, err)
	assert.Greater(t, touched.Expiry, sess.Expiry)
	assert.Same(t, sess.Widget, touched.Widget)

	c.advance(50 * time.Minute)
	_, err = store.Get(sess.ID)
	assert.NoError(t, err)

	c.advance(time.Hour)
	_, err = store.Touch(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanup(t *testing.T) {
	store, c := newTestStore(t, time.Hour)

	old, err := store.Create(build)
	require.NoError(t, err)
	sub := old.Feed.Subscribe()

	c.advance(30 * time.Minute)
	fresh, err := store.Create(build)
	require.NoError(t, err)

	c.advance(45 * time.Minute)
	removed, err := store.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	_, open := <-sub
	assert.False(t, open, "feeds of removed sessions are closed")

	_, err = store.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestEach(t *testing.T) {
	store, c := newTestStore(t, time.Hour)
	_, err := store.Create(build)
	require.NoError(t, err)
	c.advance(2 * time.Hour)
	live, err := store.Create(build)
	require.NoError(t, err)

	var seen []string
	store.Each(func(s *Session) { seen = append(seen, s.ID) })
	assert.Equal(t, []string{live.ID}, seen)
}

func TestRunStopsWithContext(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("cleanup routine did not stop")
	}
}
