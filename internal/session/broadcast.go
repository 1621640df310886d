package session

import (
	"context"
	"sync"
)

// subscriberBuffer is the number of lines a slow subscriber may lag
// behind before it holds up the others.
const subscriberBuffer = 64

type subscriber struct {
	ch   chan string
	done chan struct{}
}

// Broadcast fans a single line source out to every subscribed session.
// A keep-open listener uses it so every connected peer gets the lines
// typed on stdin.
type Broadcast struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	next   int
	closed bool
}

// NewBroadcast returns an empty Broadcast.
func NewBroadcast() *Broadcast {
	return &Broadcast{subs: make(map[int]*subscriber)}
}

// Subscribe returns a channel of future lines and a function that ends
// the subscription.  The channel is closed when the source ends.
func (b *Broadcast) Subscribe() (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &subscriber{ch: make(chan string, subscriberBuffer), done: make(chan struct{})}
	if b.closed {
		close(s.ch)
		return s.ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = s

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(s.done)
		})
	}
}

// Len returns the number of live subscribers.
func (b *Broadcast) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Run copies every line from in to all subscribers until in is closed
// or ctx is done, then closes the subscriber channels.
func (b *Broadcast) Run(ctx context.Context, in <-chan string) {
	defer b.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-in:
			if !ok {
				return
			}
			for _, s := range b.snapshot() {
				select {
				case s.ch <- line:
				case <-s.done:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (b *Broadcast) snapshot() []*subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		out = append(out, s)
	}
	return out
}

// closeAll is the only place subscriber channels are closed; Run is
// their only sender.
func (b *Broadcast) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}
