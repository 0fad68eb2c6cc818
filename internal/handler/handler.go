package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"loot-tracker-api/internal/gemini"
	"loot-tracker-api/internal/matching"
	"loot-tracker-api/internal/models"
	"loot-tracker-api/internal/service"
	"loot-tracker-api/internal/store"
	"loot-tracker-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	logger      *zap.SugaredLogger
	maxBodySize int64
}

// Options holds options for creating a handler.
type Options struct {
	MaxBodySize int64
	Logger      *zap.SugaredLogger
}

// DefaultOptions returns default handler options.
func DefaultOptions() Options {
	return Options{
		MaxBodySize: 10 << 20, // 10MB; screenshots arrive base64-encoded
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultOptions().MaxBodySize
	}
	return &Handler{
		service:     svc,
		logger:      opts.Logger,
		maxBodySize: opts.MaxBodySize,
	}
}

// ListOffers handles GET /offers?filter=&now=
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	filter, err := matching.ParseFilter(validation.SanitizeString(r.URL.Query().Get("filter")))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	now, err := parseNow(r)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	offers, err := h.service.ListOffers(filter, now)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if offers == nil {
		offers = []models.Offer{}
	}

	h.respondJSON(w, http.StatusOK, offers)
}

// ClaimOffer handles POST /offers/{id}/claim
func (h *Handler) ClaimOffer(w http.ResponseWriter, r *http.Request) {
	id := validation.SanitizeString(chi.URLParam(r, "id"))
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	offer, err := h.service.Claim(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, offer)
}

// SyncOffers handles POST /offers/sync
func (h *Handler) SyncOffers(w http.ResponseWriter, r *http.Request) {
	now, err := parseNow(r)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	result, err := h.service.Sync(r.Context(), now)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// AnalyzeScreenshot handles POST /offers/analyze
func (h *Handler) AnalyzeScreenshot(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	image, err := decodeImage(req.ImageBase64)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	offer, err := h.service.Analyze(r.Context(), image)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, offer)
}

// Dashboard handles GET /dashboard?now=
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	now, err := parseNow(r)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	summary, err := h.service.Dashboard(now)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, summary)
}

// Strategy handles GET /strategy
func (h *Handler) Strategy(w http.ResponseWriter, r *http.Request) {
	text, err := h.service.Strategy(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.StrategyResponse{Strategy: text})
}

// ListCards handles GET /cards
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards := h.service.Cards()
	if cards == nil {
		cards = []models.UserCard{}
	}
	h.respondJSON(w, http.StatusOK, cards)
}

// AddCard handles POST /cards
func (h *Handler) AddCard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.AddCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	card, err := h.service.AddCard(r.Context(), req.Bank, req.LastFour, req.Nickname)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, card)
}

// RemoveCard handles DELETE /cards/{id}
func (h *Handler) RemoveCard(w http.ResponseWriter, r *http.Request) {
	id := validation.SanitizeString(chi.URLParam(r, "id"))
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	h.service.RemoveCard(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// parseNow reads the optional 'now' query parameter so filtering can be
// tested deterministically. Accepts YYYY-MM-DD or RFC3339.
func parseNow(r *http.Request) (time.Time, error) {
	param := validation.SanitizeString(r.URL.Query().Get("now"))
	if param == "" {
		return time.Now(), nil
	}

	if t, err := time.Parse(validation.ExpiryDateLayout, param); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, param); err == nil {
		return t, nil
	}

	return time.Time{}, &validation.ValidationError{
		Field:   "now",
		Message: "must be YYYY-MM-DD or RFC3339",
	}
}

// decodeImage decodes a base64 screenshot payload, tolerating a data-URL
// prefix from browser capture.
func decodeImage(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, &validation.ValidationError{Field: "image_base64", Message: "is required"}
	}

	if i := strings.Index(payload, ","); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+1:]
	}

	image, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &validation.ValidationError{Field: "image_base64", Message: "must be valid base64"}
	}
	return image, nil
}

// respondServiceError maps domain errors onto HTTP status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var vErr *validation.ValidationError
	var dErr *validation.InvalidDateFormatError
	var cErr *gemini.CollaboratorUnavailableError

	switch {
	case errors.As(err, &vErr):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &cErr):
		h.logger.Errorw("collaborator call failed", "error", err)
		h.respondError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &dErr):
		h.logger.Errorw("stored offer has malformed expiry date", "error", err)
		h.respondError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, store.ErrOfferNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrOfferNotClaimable):
		h.respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Errorw("unexpected error", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
