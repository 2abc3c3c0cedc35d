package feedmock

import (
	"context"
	"sync"

	"zro-loans/internal/domain/feed"
)

var _ feed.Publisher = (*Publisher)(nil)

// Publisher records every event; set Err to make Publish fail.
type Publisher struct {
	mu     sync.Mutex
	Err    error
	events []feed.Event
}

func (p *Publisher) Publish(_ context.Context, e feed.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.Err
}

func (p *Publisher) Events() []feed.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]feed.Event, len(p.events))
	copy(out, p.events)
	return out
}
