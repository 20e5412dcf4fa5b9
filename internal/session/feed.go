package session

import "sync"

// feedBuffer is how many undelivered messages a slow subscriber may hold
// before further messages to it are dropped.
const feedBuffer = 32

// Feed fans messages out to every subscriber of one session.
type Feed struct {
	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	closed bool
}

func newFeed() *Feed {
	return &Feed{subs: make(map[chan []byte]struct{})}
}

// Subscribe returns a channel that receives every message published after
// the call. The channel is closed by Unsubscribe or when the feed closes.
func (f *Feed) Subscribe() <-chan []byte {
	ch := make(chan []byte, feedBuffer)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch
	}
	f.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (f *Feed) Unsubscribe(ch <-chan []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		if sub == ch {
			delete(f.subs, sub)
			close(sub)
			return
		}
	}
}

// Publish delivers msg to every subscriber without blocking. It reports how
// many subscribers received it.
func (f *Feed) Publish(msg []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	delivered := 0
	for sub := range f.subs {
		select {
		case sub <- msg:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close closes every subscriber channel. Later subscriptions are closed
// immediately.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for sub := range f.subs {
		close(sub)
		delete(f.subs, sub)
	}
}
