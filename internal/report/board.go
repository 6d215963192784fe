package report

import (
	"context"
	"sync"

	"github.com/loykin/minesim/internal/mining"
)

const subscriberBuffer = 16

// Board is the live display: the latest event with its snapshot and
// scrollback, plus fan-out to streaming subscribers. A subscriber that falls
// behind misses frames rather than stalling the loop.
type Board struct {
	mu     sync.RWMutex
	latest mining.Event
	seen   bool
	subs   map[chan mining.Event]struct{}
}

func NewBoard() *Board {
	return &Board{subs: make(map[chan mining.Event]struct{})}
}

func (b *Board) Name() string { return "board" }

func (b *Board) Send(_ context.Context, e mining.Event) error {
	e.Lines = append([]string(nil), e.Lines...)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = e
	b.seen = true
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

// Latest returns the most recent event and whether any event was received.
func (b *Board) Latest() (mining.Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e := b.latest
	e.Lines = append([]string(nil), b.latest.Lines...)
	return e, b.seen
}

// Lines returns the scrollback as of the latest event, newest last.
func (b *Board) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string{}, b.latest.Lines...)
}

// Subscribe registers a stream of events. The returned cancel function
// unregisters and closes the channel.
func (b *Board) Subscribe() (<-chan mining.Event, func()) {
	ch := make(chan mining.Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers reports the number of active subscriptions.
func (b *Board) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
