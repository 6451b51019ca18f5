// Package events carries moderation outcomes between loosely coupled parts of
// the bot. Detection code publishes what happened; follow-up workflows such as
// the global-ban proposal subscribe without the detector knowing about them.
package events

import (
	"context"
	"sync"
	"time"
)

// Violation describes a finished enforcement action.
type Violation struct {
	RoomID     int64
	UserID     int64
	UserName   string
	FilterName string
	Reason     string
	Action     string
	// ProposeGlobalBan marks automated bans that should be offered to the
	// administrators for promotion to the global registry.
	ProposeGlobalBan bool
	OccurredAt       time.Time
}

type Handler func(ctx context.Context, v Violation)

// Bus is a synchronous in-process publish/subscribe hub. Handlers run on the
// publisher's goroutine in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(ctx context.Context, v Violation) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, v)
	}
}
