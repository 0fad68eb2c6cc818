// Package matching holds the pure offer filtering and ranking logic. It
// never mutates the collections it is given; callers own the store.
package matching

import (
	"fmt"
	"time"

	"loot-tracker-api/internal/models"
	"loot-tracker-api/internal/validation"
)

// RecommendedLimit is the fixed size of the dashboard's recommended list.
const RecommendedLimit = 4

// Filter selects which offers the feed shows.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterLottery  Filter = "Lottery"
	FilterCashback Filter = "Cashback"
	FilterCoupon   Filter = "Coupon"
	FilterMatched  Filter = "matched"
)

// ParseFilter validates a filter value from the request boundary. An empty
// value means "all".
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return FilterAll, nil
	}
	switch f := Filter(s); f {
	case FilterAll, FilterLottery, FilterCashback, FilterCoupon, FilterMatched:
		return f, nil
	}
	return "", &validation.ValidationError{
		Field:   "filter",
		Message: fmt.Sprintf("unknown filter %q", s),
	}
}

// OwnedBanks derives the set of bank identifiers present in the card
// registry.
func OwnedBanks(cards []models.UserCard) map[models.Bank]struct{} {
	owned := make(map[models.Bank]struct{}, len(cards))
	for _, c := range cards {
		owned[c.Bank] = struct{}{}
	}
	return owned
}

// Midnight truncates t to the start of its day, which is the resolution all
// expiry comparisons use.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// expired reports whether the offer's expiry date falls strictly before the
// given midnight-truncated day.
func expired(o models.Offer, today time.Time) (bool, error) {
	expiry, err := validation.ParseExpiryDate(o.ExpiryDate)
	if err != nil {
		return false, err
	}
	return expiry.Before(today), nil
}

// IsEffectivelyActive reports whether an offer is claimable today: stored
// status active and expiry date not yet passed. Expiry is computed here
// rather than written into the stored status, so the store never drifts.
func IsEffectivelyActive(o models.Offer, today time.Time) (bool, error) {
	if o.Status != models.StatusActive {
		return false, nil
	}
	isExpired, err := expired(o, Midnight(today))
	if err != nil {
		return false, err
	}
	return !isExpired, nil
}

// VisibleOffers produces the feed for the selected filter: offers that are
// not expired (by stored status or by date), pass the category test, and,
// for the matched filter only, belong to a bank the user holds a card for.
// Insertion order is preserved; claimed offers remain visible.
func VisibleOffers(offers []models.Offer, owned map[models.Bank]struct{}, filter Filter, today time.Time) ([]models.Offer, error) {
	day := Midnight(today)

	visible := make([]models.Offer, 0, len(offers))
	for _, o := range offers {
		if o.Status == models.StatusExpired {
			continue
		}
		isExpired, err := expired(o, day)
		if err != nil {
			return nil, err
		}
		if isExpired {
			continue
		}

		categoryOK := filter == FilterAll || filter == FilterMatched || o.Category == models.OfferCategory(filter)
		if !categoryOK {
			continue
		}

		if filter == FilterMatched {
			if _, ok := owned[o.Bank]; !ok {
				continue
			}
		}

		visible = append(visible, o)
	}

	return visible, nil
}

// RecommendedOffers ranks the effectively active offers for the dashboard:
// offers on owned banks first, then the rest, relative order preserved
// within each group. Nothing is dropped before the final truncation to
// limit.
func RecommendedOffers(offers []models.Offer, owned map[models.Bank]struct{}, today time.Time, limit int) ([]models.Offer, error) {
	var matched, unmatched []models.Offer
	for _, o := range offers {
		active, err := IsEffectivelyActive(o, today)
		if err != nil {
			return nil, err
		}
		if !active {
			continue
		}
		if _, ok := owned[o.Bank]; ok {
			matched = append(matched, o)
		} else {
			unmatched = append(unmatched, o)
		}
	}

	ranked := append(matched, unmatched...)
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
