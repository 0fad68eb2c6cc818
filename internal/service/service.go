// Package service owns the application state and its mutation operations.
// The HTTP layer only ever sees snapshots and well-defined intents: list,
// claim, sync, analyze, strategy, and card edits.
package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"loot-tracker-api/internal/cache"
	"loot-tracker-api/internal/events"
	"loot-tracker-api/internal/features"
	"loot-tracker-api/internal/matching"
	"loot-tracker-api/internal/models"
	"loot-tracker-api/internal/store"
	"loot-tracker-api/internal/validation"
)

// Collaborator is the outbound AI boundary the service depends on.
type Collaborator interface {
	AnalyzeScreenshot(ctx context.Context, image []byte) (models.OfferDraft, error)
	FetchLatestOffers(ctx context.Context, now time.Time) ([]models.OfferDraft, error)
	OptimizationStrategy(ctx context.Context, ownedBanks []models.Bank, offerSummaries string) (string, error)
}

const latestOffersCacheKey = "offers:latest"

// Deps bundles everything the service needs. Cache, Events, Features, and
// Logger are optional; nil means disabled.
type Deps struct {
	Offers   *store.OfferStore
	Cards    *store.CardRegistry
	AI       Collaborator
	Cache    cache.Cache
	CacheTTL time.Duration
	Events   *events.Manager
	Features *features.Manager
	Logger   *zap.SugaredLogger
}

// Service provides the application's business logic.
type Service struct {
	offers   *store.OfferStore
	cards    *store.CardRegistry
	ai       Collaborator
	cache    cache.Cache
	cacheTTL time.Duration
	events   *events.Manager
	features *features.Manager
	logger   *zap.SugaredLogger
}

// NewService creates a service instance from its dependencies.
func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = events.NewManager(false)
	}
	if d.Features == nil {
		d.Features = features.NewManager()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = 10 * time.Minute
	}
	return &Service{
		offers:   d.Offers,
		cards:    d.Cards,
		ai:       d.AI,
		cache:    d.Cache,
		cacheTTL: d.CacheTTL,
		events:   d.Events,
		features: d.Features,
		logger:   d.Logger,
	}
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.features.IsEnabled(features.FeatureCacheEnabled)
}

// ListOffers returns the visible feed for the given filter and day.
func (s *Service) ListOffers(filter matching.Filter, now time.Time) ([]models.Offer, error) {
	owned := matching.OwnedBanks(s.cards.Snapshot())
	return matching.VisibleOffers(s.offers.Snapshot(), owned, filter, now)
}

// Dashboard summarizes the state for the given day: total estimated value
// still claimable on owned cards, completed claims, and the short
// recommended list.
func (s *Service) Dashboard(now time.Time) (models.DashboardResponse, error) {
	offers := s.offers.Snapshot()
	owned := matching.OwnedBanks(s.cards.Snapshot())

	recommended, err := matching.RecommendedOffers(offers, owned, now, matching.RecommendedLimit)
	if err != nil {
		return models.DashboardResponse{}, err
	}

	var matchedValue float64
	var claimedCount int
	for _, o := range offers {
		if o.Status == models.StatusClaimed {
			claimedCount++
			continue
		}
		active, err := matching.IsEffectivelyActive(o, now)
		if err != nil {
			return models.DashboardResponse{}, err
		}
		if !active {
			continue
		}
		if _, ok := owned[o.Bank]; ok {
			matchedValue += o.EstimatedValue
		}
	}

	if recommended == nil {
		recommended = []models.Offer{}
	}

	return models.DashboardResponse{
		MatchedValue: matchedValue,
		ClaimedCount: claimedCount,
		Recommended:  recommended,
	}, nil
}

// Claim marks an offer as collected.
func (s *Service) Claim(ctx context.Context, id string) (models.Offer, error) {
	offer, err := s.offers.Claim(id)
	if err != nil {
		return models.Offer{}, err
	}

	s.logger.Infow("offer claimed", "id", offer.ID, "title", offer.Title)
	s.events.Publish(ctx, events.EventOfferClaimed, events.OfferClaimedData{Offer: offer})
	return offer, nil
}

// Sync fetches the latest promotions from the collaborator and merges them
// into the store. A fetch failure leaves the store completely untouched.
func (s *Service) Sync(ctx context.Context, now time.Time) (models.SyncResponse, error) {
	drafts, err := s.fetchLatest(ctx, now)
	if err != nil {
		return models.SyncResponse{}, err
	}

	added := s.offers.Merge(drafts)
	total := s.offers.Len()

	s.logger.Infow("offers synced", "fetched", len(drafts), "added", added, "total", total)
	s.events.Publish(ctx, events.EventOffersSynced, events.OffersSyncedData{Added: added, Total: total})

	return models.SyncResponse{Added: added, Total: total}, nil
}

// fetchLatest returns the collaborator's discovery batch, served from the
// cache when a recent one exists. Merging a cached batch twice is harmless:
// dedup by title makes the second merge a no-op.
func (s *Service) fetchLatest(ctx context.Context, now time.Time) ([]models.OfferDraft, error) {
	if s.cacheEnabled() {
		var cached []models.OfferDraft
		if err := cache.GetJSON(ctx, s.cache, latestOffersCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	drafts, err := s.ai.FetchLatestOffers(ctx, now)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		if err := cache.SetJSON(ctx, s.cache, latestOffersCacheKey, drafts, s.cacheTTL); err != nil {
			s.logger.Warnw("failed to cache discovery batch", "error", err)
		}
	}

	return drafts, nil
}

// Analyze extracts an offer from a promotion screenshot and prepends it to
// the store. Analyzed offers skip title deduplication, matching the manual
// add flow.
func (s *Service) Analyze(ctx context.Context, image []byte) (models.Offer, error) {
	draft, err := s.ai.AnalyzeScreenshot(ctx, image)
	if err != nil {
		return models.Offer{}, err
	}

	offer := s.offers.Prepend(draft, string(draft.Category)+" 活动")

	s.logger.Infow("screenshot analyzed", "id", offer.ID, "bank", offer.Bank, "title", offer.Title)
	s.events.Publish(ctx, events.EventOfferAnalyzed, events.OfferAnalyzedData{Offer: offer})
	return offer, nil
}

// Strategy asks the collaborator for prioritization advice over the user's
// banks and the current offer list. Identical inputs are served from the
// cache within the TTL.
func (s *Service) Strategy(ctx context.Context) (string, error) {
	banks := uniqueBanks(s.cards.Snapshot())

	summaries := make([]string, 0, s.offers.Len())
	for _, o := range s.offers.Snapshot() {
		summaries = append(summaries, fmt.Sprintf("%s: %s", o.Bank, o.Title))
	}
	offerSummaries := strings.Join(summaries, ", ")

	key := strategyCacheKey(banks, offerSummaries)
	if s.cacheEnabled() {
		if data, err := s.cache.Get(ctx, key); err == nil {
			return string(data), nil
		}
	}

	text, err := s.ai.OptimizationStrategy(ctx, banks, offerSummaries)
	if err != nil {
		return "", err
	}

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, key, []byte(text), s.cacheTTL); err != nil {
			s.logger.Warnw("failed to cache strategy", "error", err)
		}
	}

	return text, nil
}

func strategyCacheKey(banks []models.Bank, offerSummaries string) string {
	h := sha256.New()
	for _, b := range banks {
		h.Write([]byte(b))
		h.Write([]byte{0})
	}
	h.Write([]byte(offerSummaries))
	return fmt.Sprintf("strategy:%x", h.Sum(nil))
}

// uniqueBanks lists the owned banks in card order, without duplicates.
func uniqueBanks(cards []models.UserCard) []models.Bank {
	seen := make(map[models.Bank]struct{}, len(cards))
	banks := make([]models.Bank, 0, len(cards))
	for _, c := range cards {
		if _, ok := seen[c.Bank]; ok {
			continue
		}
		seen[c.Bank] = struct{}{}
		banks = append(banks, c.Bank)
	}
	return banks
}

// Cards returns the registered cards in insertion order.
func (s *Service) Cards() []models.UserCard {
	return s.cards.Snapshot()
}

// AddCard validates and registers a card. An empty nickname defaults to
// "<bank>新卡".
func (s *Service) AddCard(ctx context.Context, bank models.Bank, lastFour, nickname string) (models.UserCard, error) {
	lastFour = validation.SanitizeString(lastFour)
	if err := validation.ValidateCard(bank, lastFour); err != nil {
		return models.UserCard{}, err
	}

	nickname = validation.SanitizeString(nickname)
	if nickname == "" {
		nickname = string(bank) + "新卡"
	}

	card := s.cards.Add(bank, lastFour, nickname)

	s.logger.Infow("card added", "id", card.ID, "bank", card.Bank)
	s.events.Publish(ctx, events.EventCardAdded, events.CardData{CardID: card.ID, Bank: card.Bank})
	return card, nil
}

// RemoveCard deletes a card. Unknown ids are a silent no-op.
func (s *Service) RemoveCard(ctx context.Context, id string) {
	removed := s.cards.Remove(id)
	if removed {
		s.logger.Infow("card removed", "id", id)
		s.events.Publish(ctx, events.EventCardRemoved, events.CardData{CardID: id})
	}
}
