// Package store holds the session-local collections: the offer store and
// the user's card registry. Both are in-memory only; nothing survives a
// process restart.
package store

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"loot-tracker-api/internal/models"
)

// FallbackDescription is used when a synced offer carries no steps to
// derive a description from.
const FallbackDescription = "点击查看详情"

var (
	// ErrOfferNotFound is returned when no offer has the requested id.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrOfferNotClaimable is returned when claiming an offer whose stored
	// status is not active.
	ErrOfferNotClaimable = errors.New("offer is not active")
)

// OfferStore is an ordered, mutex-guarded collection of offers. Offers are
// never physically deleted; the only in-place mutation is the
// active → claimed status flip.
type OfferStore struct {
	mu     sync.RWMutex
	offers []models.Offer
}

// NewOfferStore creates a store pre-populated with the given seed offers.
func NewOfferStore(seed []models.Offer) *OfferStore {
	s := &OfferStore{offers: make([]models.Offer, len(seed))}
	copy(s.offers, seed)
	return s
}

// Snapshot returns a copy of the collection in insertion order.
func (s *OfferStore) Snapshot() []models.Offer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Offer, len(s.offers))
	copy(out, s.offers)
	return out
}

// Len reports the number of stored offers.
func (s *OfferStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.offers)
}

// Claim flips the offer with the given id from active to claimed and returns
// the updated record. Claiming a non-active offer fails without mutation.
func (s *OfferStore) Claim(id string) (models.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.offers {
		if s.offers[i].ID != id {
			continue
		}
		if s.offers[i].Status != models.StatusActive {
			return models.Offer{}, ErrOfferNotClaimable
		}
		s.offers[i].Status = models.StatusClaimed
		return s.offers[i], nil
	}

	return models.Offer{}, ErrOfferNotFound
}

// Prepend materializes a draft into a full offer and puts it at the front of
// the collection. Used for screenshot-analyzed offers, which skip title
// deduplication.
func (s *OfferStore) Prepend(d models.OfferDraft, description string) models.Offer {
	offer := materialize(d, description)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.offers = append([]models.Offer{offer}, s.offers...)
	return offer
}

// Merge folds a freshly fetched batch into the store. Each draft receives a
// generated id, active status, and a description derived from its first
// participation step. Drafts whose exact title already exists anywhere in
// the collection are dropped; survivors are prepended in arrival order and
// existing records are left untouched. Returns the number of offers added.
func (s *OfferStore) Merge(drafts []models.OfferDraft) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]struct{}, len(s.offers))
	for _, o := range s.offers {
		existing[o.Title] = struct{}{}
	}

	var incoming []models.Offer
	for _, d := range drafts {
		if _, dup := existing[d.Title]; dup {
			continue
		}
		description := FallbackDescription
		if len(d.Steps) > 0 {
			description = d.Steps[0]
		}
		incoming = append(incoming, materialize(d, description))
	}

	if len(incoming) == 0 {
		return 0
	}

	s.offers = append(incoming, s.offers...)
	return len(incoming)
}

func materialize(d models.OfferDraft, description string) models.Offer {
	return models.Offer{
		ID:             uuid.NewString(),
		Bank:           d.Bank,
		Title:          d.Title,
		Description:    description,
		Category:       d.Category,
		Status:         models.StatusActive,
		ExpiryDate:     d.ExpiryDate,
		EstimatedValue: d.EstimatedValue,
		Steps:          d.Steps,
	}
}

// CardRegistry is the mutex-guarded set of cards the user owns.
type CardRegistry struct {
	mu    sync.RWMutex
	cards []models.UserCard
}

// NewCardRegistry creates a registry pre-populated with the given cards.
func NewCardRegistry(seed []models.UserCard) *CardRegistry {
	r := &CardRegistry{cards: make([]models.UserCard, len(seed))}
	copy(r.cards, seed)
	return r
}

// Snapshot returns a copy of the registered cards in insertion order.
func (r *CardRegistry) Snapshot() []models.UserCard {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.UserCard, len(r.cards))
	copy(out, r.cards)
	return out
}

// Add appends a card with a generated id and returns it. Input validation
// happens at the service boundary.
func (r *CardRegistry) Add(bank models.Bank, lastFour, nickname string) models.UserCard {
	card := models.UserCard{
		ID:       uuid.NewString(),
		Bank:     bank,
		LastFour: lastFour,
		Nickname: nickname,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cards = append(r.cards, card)
	return card
}

// Remove deletes the card with the given id. Removing an unknown id is a
// no-op, not an error; the boolean reports whether anything was removed.
func (r *CardRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.cards {
		if r.cards[i].ID == id {
			r.cards = append(r.cards[:i], r.cards[i+1:]...)
			return true
		}
	}
	return false
}
