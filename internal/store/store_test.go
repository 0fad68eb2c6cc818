package store

import (
	"testing"

	"loot-tracker-api/internal/models"
)

func activeOffer(id, title string, bank models.Bank) models.Offer {
	return models.Offer{
		ID:         id,
		Bank:       bank,
		Title:      title,
		Category:   models.CategoryLottery,
		Status:     models.StatusActive,
		ExpiryDate: "2099-01-01",
	}
}

func draft(title string, steps ...string) models.OfferDraft {
	return models.OfferDraft{
		Bank:           models.BankICBC,
		Title:          title,
		Category:       models.CategoryCashback,
		Steps:          steps,
		ExpiryDate:     "2099-01-01",
		EstimatedValue: 5,
	}
}

func titles(offers []models.Offer) []string {
	out := make([]string, len(offers))
	for i, o := range offers {
		out[i] = o.Title
	}
	return out
}

func TestMerge_DeduplicatesByTitleAndPrepends(t *testing.T) {
	s := NewOfferStore([]models.Offer{
		activeOffer("a1", "A", models.BankICBC),
		activeOffer("x1", "X", models.BankCCB),
	})

	added := s.Merge([]models.OfferDraft{
		draft("A", "step"),
		draft("B", "step"),
	})

	if added != 1 {
		t.Fatalf("expected 1 added, got %d", added)
	}

	got := titles(s.Snapshot())
	want := []string{"B", "A", "X"}
	if len(got) != len(want) {
		t.Fatalf("expected titles %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected titles %v, got %v", want, got)
		}
	}
}

func TestMerge_Idempotent(t *testing.T) {
	s := NewOfferStore(nil)

	batch := []models.OfferDraft{draft("A", "step"), draft("B", "step")}

	if added := s.Merge(batch); added != 2 {
		t.Fatalf("first merge: expected 2 added, got %d", added)
	}
	if added := s.Merge(batch); added != 0 {
		t.Errorf("second merge: expected 0 added, got %d", added)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 offers after double merge, got %d", s.Len())
	}
}

func TestMerge_TitleMatchIsCaseSensitive(t *testing.T) {
	s := NewOfferStore([]models.Offer{activeOffer("a1", "weekly draw", models.BankICBC)})

	if added := s.Merge([]models.OfferDraft{draft("Weekly Draw", "step")}); added != 1 {
		t.Errorf("expected case-different title to merge, got %d added", added)
	}
}

func TestMerge_AssignsIdentityAndDescription(t *testing.T) {
	s := NewOfferStore(nil)

	s.Merge([]models.OfferDraft{
		draft("with steps", "打开App", "签到"),
		draft("without steps"),
	})

	offers := s.Snapshot()
	if len(offers) != 2 {
		t.Fatalf("expected 2 offers, got %d", len(offers))
	}

	for _, o := range offers {
		if o.ID == "" {
			t.Errorf("offer %q: expected generated id", o.Title)
		}
		if o.Status != models.StatusActive {
			t.Errorf("offer %q: expected active status, got %s", o.Title, o.Status)
		}
	}

	if offers[0].Description != "打开App" {
		t.Errorf("expected first step as description, got %q", offers[0].Description)
	}
	if offers[1].Description != FallbackDescription {
		t.Errorf("expected fallback description, got %q", offers[1].Description)
	}
}

func TestClaim_ActiveToClaimed(t *testing.T) {
	s := NewOfferStore([]models.Offer{activeOffer("a1", "A", models.BankICBC)})

	claimed, err := s.Claim("a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claimed.Status != models.StatusClaimed {
		t.Errorf("expected claimed status, got %s", claimed.Status)
	}

	// The store, not just the returned copy, must reflect the flip.
	if got := s.Snapshot()[0].Status; got != models.StatusClaimed {
		t.Errorf("expected stored status claimed, got %s", got)
	}
}

func TestClaim_RejectsSecondClaim(t *testing.T) {
	s := NewOfferStore([]models.Offer{activeOffer("a1", "A", models.BankICBC)})

	if _, err := s.Claim("a1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Claim("a1"); err != ErrOfferNotClaimable {
		t.Errorf("expected ErrOfferNotClaimable, got %v", err)
	}
}

func TestClaim_UnknownID(t *testing.T) {
	s := NewOfferStore(nil)

	if _, err := s.Claim("nope"); err != ErrOfferNotFound {
		t.Errorf("expected ErrOfferNotFound, got %v", err)
	}
}

func TestPrepend_SkipsDeduplication(t *testing.T) {
	s := NewOfferStore([]models.Offer{activeOffer("a1", "A", models.BankICBC)})

	offer := s.Prepend(draft("A", "step"), "Cashback 活动")

	if offer.ID == "" {
		t.Error("expected generated id")
	}
	if offer.Description != "Cashback 活动" {
		t.Errorf("expected provided description, got %q", offer.Description)
	}
	if s.Len() != 2 {
		t.Errorf("expected duplicate title to be prepended anyway, got %d offers", s.Len())
	}
	if s.Snapshot()[0].ID != offer.ID {
		t.Error("expected analyzed offer at the front of the collection")
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := NewOfferStore([]models.Offer{activeOffer("a1", "A", models.BankICBC)})

	snap := s.Snapshot()
	snap[0].Title = "mutated"

	if s.Snapshot()[0].Title != "A" {
		t.Error("mutating a snapshot must not affect the store")
	}
}

func TestCardRegistry_AddRemoveRoundTrip(t *testing.T) {
	r := NewCardRegistry([]models.UserCard{
		{ID: "c1", Bank: models.BankICBC, LastFour: "8899", Nickname: "工资卡"},
	})

	before := make(map[string]bool)
	for _, c := range r.Snapshot() {
		before[c.ID] = true
	}

	card := r.Add(models.BankCMB, "1234", "羊毛卡")
	if card.ID == "" {
		t.Fatal("expected generated card id")
	}
	if len(r.Snapshot()) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(r.Snapshot()))
	}

	if !r.Remove(card.ID) {
		t.Fatal("expected removal to report true")
	}

	after := make(map[string]bool)
	for _, c := range r.Snapshot() {
		after[c.ID] = true
	}

	if len(after) != len(before) {
		t.Fatalf("expected registry restored, before=%v after=%v", before, after)
	}
	for id := range before {
		if !after[id] {
			t.Errorf("card %s missing after round trip", id)
		}
	}
}

func TestCardRegistry_RemoveUnknownIsNoOp(t *testing.T) {
	r := NewCardRegistry([]models.UserCard{
		{ID: "c1", Bank: models.BankICBC, LastFour: "8899"},
	})

	if r.Remove("ghost") {
		t.Error("expected removal of unknown id to report false")
	}
	if len(r.Snapshot()) != 1 {
		t.Errorf("expected registry unchanged, got %d cards", len(r.Snapshot()))
	}
}

func TestSeedOffers_AllValid(t *testing.T) {
	seen := make(map[string]bool)
	for _, o := range SeedOffers() {
		if seen[o.ID] {
			t.Errorf("duplicate seed offer id %s", o.ID)
		}
		seen[o.ID] = true

		if !models.KnownBank(o.Bank) {
			t.Errorf("seed offer %s: unknown bank %s", o.ID, o.Bank)
		}
		if !models.KnownCategory(o.Category) {
			t.Errorf("seed offer %s: unknown category %s", o.ID, o.Category)
		}
		if o.Status != models.StatusActive {
			t.Errorf("seed offer %s: expected active status", o.ID)
		}
	}
}
