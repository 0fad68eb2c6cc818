// Package events is a small in-process pub/sub used to observe state
// changes (claims, syncs, card edits) without coupling the service to its
// observers.
package events

import (
	"context"
	"sync"
	"time"

	"loot-tracker-api/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventOfferClaimed is emitted when the user claims an offer.
	EventOfferClaimed EventType = "offer.claimed"
	// EventOffersSynced is emitted after a successful fetch-and-merge.
	EventOffersSynced EventType = "offers.synced"
	// EventOfferAnalyzed is emitted when a screenshot yields a new offer.
	EventOfferAnalyzed EventType = "offer.analyzed"
	// EventCardAdded is emitted when a card is registered.
	EventCardAdded EventType = "card.added"
	// EventCardRemoved is emitted when a card is deleted.
	EventCardRemoved EventType = "card.removed"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// OfferClaimedData contains data for claim events.
type OfferClaimedData struct {
	Offer models.Offer
}

// OffersSyncedData contains data for sync events.
type OffersSyncedData struct {
	Added int
	Total int
}

// OfferAnalyzedData contains data for screenshot analysis events.
type OfferAnalyzedData struct {
	Offer models.Offer
}

// CardData contains data for card add/remove events.
type CardData struct {
	CardID string
	Bank   models.Bank
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// asynchronously so publishing never blocks the triggering request.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	for _, handler := range handlers {
		go func(h Handler) {
			_ = h(ctx, event)
		}(handler)
	}
}

// Shutdown disables the manager and drops all handlers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
