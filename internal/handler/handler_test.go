package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"loot-tracker-api/internal/gemini"
	"loot-tracker-api/internal/models"
	"loot-tracker-api/internal/service"
	"loot-tracker-api/internal/store"
)

type stubCollaborator struct {
	drafts []models.OfferDraft
	draft  models.OfferDraft
	err    error
}

func (s *stubCollaborator) AnalyzeScreenshot(ctx context.Context, image []byte) (models.OfferDraft, error) {
	if s.err != nil {
		return models.OfferDraft{}, s.err
	}
	return s.draft, nil
}

func (s *stubCollaborator) FetchLatestOffers(ctx context.Context, now time.Time) ([]models.OfferDraft, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.drafts, nil
}

func (s *stubCollaborator) OptimizationStrategy(ctx context.Context, banks []models.Bank, summaries string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "先做匹配的活动", nil
}

func testOffer(id, title string, bank models.Bank) models.Offer {
	return models.Offer{
		ID:         id,
		Bank:       bank,
		Title:      title,
		Category:   models.CategoryCashback,
		Status:     models.StatusActive,
		ExpiryDate: "2099-01-01",
	}
}

func newTestRouter(ai service.Collaborator, offers []models.Offer, cards []models.UserCard) *chi.Mux {
	svc := service.NewService(service.Deps{
		Offers: store.NewOfferStore(offers),
		Cards:  store.NewCardRegistry(cards),
		AI:     ai,
	})
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Route("/offers", func(r chi.Router) {
		r.Get("/", h.ListOffers)
		r.Post("/sync", h.SyncOffers)
		r.Post("/analyze", h.AnalyzeScreenshot)
		r.Post("/{id}/claim", h.ClaimOffer)
	})
	r.Route("/cards", func(r chi.Router) {
		r.Get("/", h.ListCards)
		r.Post("/", h.AddCard)
		r.Delete("/{id}", h.RemoveCard)
	})
	r.Get("/dashboard", h.Dashboard)
	r.Get("/strategy", h.Strategy)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListOffers(t *testing.T) {
	offers := []models.Offer{
		testOffer("o1", "A", models.BankICBC),
		testOffer("o2", "B", models.BankCCB),
	}
	cards := []models.UserCard{{ID: "c1", Bank: models.BankICBC, LastFour: "8899"}}
	router := newTestRouter(&stubCollaborator{}, offers, cards)

	rec := doRequest(t, router, http.MethodGet, "/offers?now=2026-01-15", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got []models.Offer
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 offers, got %d", len(got))
	}

	rec = doRequest(t, router, http.MethodGet, "/offers?filter=matched&now=2026-01-15", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(got) != 1 || got[0].ID != "o1" {
		t.Errorf("expected only the owned-bank offer, got %v", got)
	}
}

func TestListOffers_BadFilter(t *testing.T) {
	router := newTestRouter(&stubCollaborator{}, nil, nil)

	rec := doRequest(t, router, http.MethodGet, "/offers?filter=Points", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown filter, got %d", rec.Code)
	}
}

func TestListOffers_BadNow(t *testing.T) {
	router := newTestRouter(&stubCollaborator{}, nil, nil)

	rec := doRequest(t, router, http.MethodGet, "/offers?now=yesterday", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad now param, got %d", rec.Code)
	}
}

func TestClaimOffer(t *testing.T) {
	router := newTestRouter(&stubCollaborator{}, []models.Offer{testOffer("o1", "A", models.BankICBC)}, nil)

	rec := doRequest(t, router, http.MethodPost, "/offers/o1/claim", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got models.Offer
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got.Status != models.StatusClaimed {
		t.Errorf("expected claimed status, got %s", got.Status)
	}

	// Second claim conflicts.
	rec = doRequest(t, router, http.MethodPost, "/offers/o1/claim", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 on second claim, got %d", rec.Code)
	}
}

func TestClaimOffer_NotFound(t *testing.T) {
	router := newTestRouter(&stubCollaborator{}, nil, nil)

	rec := doRequest(t, router, http.MethodPost, "/offers/ghost/claim", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestSyncOffers(t *testing.T) {
	ai := &stubCollaborator{
		drafts: []models.OfferDraft{
			{Bank: models.BankICBC, Title: "新活动", Category: models.CategoryCashback, ExpiryDate: "2099-01-01"},
		},
	}
	router := newTestRouter(ai, []models.Offer{testOffer("o1", "A", models.BankCCB)}, nil)

	rec := doRequest(t, router, http.MethodPost, "/offers/sync", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got models.SyncResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got.Added != 1 || got.Total != 2 {
		t.Errorf("expected added=1 total=2, got %+v", got)
	}
}

func TestSyncOffers_CollaboratorDown(t *testing.T) {
	ai := &stubCollaborator{
		err: &gemini.CollaboratorUnavailableError{Op: "discover offers", Err: errors.New("timeout")},
	}
	router := newTestRouter(ai, nil, nil)

	rec := doRequest(t, router, http.MethodPost, "/offers/sync", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestAnalyzeScreenshot(t *testing.T) {
	ai := &stubCollaborator{
		draft: models.OfferDraft{
			Bank:       models.BankCMB,
			Title:      "扫码立减",
			Category:   models.CategoryCashback,
			ExpiryDate: "2099-01-01",
			Steps:      []string{"打开App"},
		},
	}
	router := newTestRouter(ai, nil, nil)

	payload := base64.StdEncoding.EncodeToString([]byte("fake-jpeg-bytes"))
	body, _ := json.Marshal(models.AnalyzeRequest{ImageBase64: payload})

	rec := doRequest(t, router, http.MethodPost, "/offers/analyze", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var got models.Offer
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got.ID == "" || got.Title != "扫码立减" {
		t.Errorf("unexpected offer in response: %+v", got)
	}
}

func TestAnalyzeScreenshot_DataURLPrefix(t *testing.T) {
	ai := &stubCollaborator{
		draft: models.OfferDraft{
			Bank:       models.BankCMB,
			Title:      "T",
			Category:   models.CategoryLottery,
			ExpiryDate: "2099-01-01",
		},
	}
	router := newTestRouter(ai, nil, nil)

	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("img"))
	body, _ := json.Marshal(models.AnalyzeRequest{ImageBase64: payload})

	rec := doRequest(t, router, http.MethodPost, "/offers/analyze", body)
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201 for data-URL payload, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeScreenshot_BadPayload(t *testing.T) {
	router := newTestRouter(&stubCollaborator{}, nil, nil)

	cases := []struct {
		name string
		body []byte
	}{
		{"empty body", []byte{}},
		{"invalid json", []byte("{not json")},
		{"missing image", []byte(`{}`)},
		{"bad base64", []byte(`{"image_base64":"not-base64!!!"}`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/offers/analyze", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestDashboard(t *testing.T) {
	offers := []models.Offer{testOffer("o1", "A", models.BankICBC)}
	offers[0].EstimatedValue = 25
	cards := []models.UserCard{{ID: "c1", Bank: models.BankICBC, LastFour: "8899"}}
	router := newTestRouter(&stubCollaborator{}, offers, cards)

	rec := doRequest(t, router, http.MethodGet, "/dashboard?now=2026-01-15", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got models.DashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got.MatchedValue != 25 || got.ClaimedCount != 0 {
		t.Errorf("unexpected summary: %+v", got)
	}
	if len(got.Recommended) != 1 {
		t.Errorf("expected 1 recommended offer, got %d", len(got.Recommended))
	}
}

func TestStrategy(t *testing.T) {
	router := newTestRouter(&stubCollaborator{}, nil, nil)

	rec := doRequest(t, router, http.MethodGet, "/strategy", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got models.StrategyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !strings.Contains(got.Strategy, "活动") {
		t.Errorf("unexpected strategy text: %q", got.Strategy)
	}
}

func TestCards_CRUD(t *testing.T) {
	router := newTestRouter(&stubCollaborator{}, nil, nil)

	body, _ := json.Marshal(models.AddCardRequest{Bank: models.BankCMB, LastFour: "1234"})
	rec := doRequest(t, router, http.MethodPost, "/cards", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var card models.UserCard
	if err := json.Unmarshal(rec.Body.Bytes(), &card); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if card.Nickname != "招商银行新卡" {
		t.Errorf("expected default nickname, got %q", card.Nickname)
	}

	rec = doRequest(t, router, http.MethodGet, "/cards", nil)
	var cards []models.UserCard
	if err := json.Unmarshal(rec.Body.Bytes(), &cards); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}

	rec = doRequest(t, router, http.MethodDelete, "/cards/"+card.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/cards", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &cards); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(cards) != 0 {
		t.Errorf("expected empty card list after delete, got %d", len(cards))
	}
}

func TestAddCard_Invalid(t *testing.T) {
	router := newTestRouter(&stubCollaborator{}, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"short suffix", `{"bank":"招商银行","lastFour":"123"}`},
		{"unknown bank", `{"bank":"火星银行","lastFour":"1234"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/cards", []byte(tc.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRemoveCard_UnknownIsNoContent(t *testing.T) {
	router := newTestRouter(&stubCollaborator{}, nil, nil)

	rec := doRequest(t, router, http.MethodDelete, "/cards/ghost", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for unknown id, got %d", rec.Code)
	}
}
