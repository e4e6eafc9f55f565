package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/roamsim/attribution-service/internal/attribution"
	"github.com/roamsim/attribution-service/internal/models"
)

// ClickStore is what the track endpoints need from the click repository
// (interface to allow mocking).
type ClickStore interface {
	RecordClick(ctx context.Context, event models.ClickEvent) error
	ListClicks(ctx context.Context, identifier string, limit int) ([]models.ClickEvent, error)
}

type TrackRequest struct {
	Identifier  string `json:"identifier"`
	VisitorKey  string `json:"visitor_key,omitempty"`
	LandingPath string `json:"landing_path,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
}

type ClickListResponse struct {
	Clicks []models.ClickEvent `json:"clicks"`
}

type TrackHandler struct {
	clicks ClickStore
}

func NewTrackHandler(clicks ClickStore) *TrackHandler {
	return &TrackHandler{clicks: clicks}
}

// TrackClick handles POST /affiliates/track. Callers fire this without
// awaiting the outcome, so persistence failures are logged here and the event
// is still acknowledged.
func (h *TrackHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if !attribution.ValidAffiliateID(req.Identifier) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_identifier"})
		return
	}

	ev := models.ClickEvent{
		ID:          uuid.NewString(),
		Identifier:  req.Identifier,
		VisitorKey:  req.VisitorKey,
		LandingPath: req.LandingPath,
		Referrer:    req.Referrer,
		ClientIP:    r.RemoteAddr,
		UserAgent:   r.UserAgent(),
		CreatedAtMs: time.Now().UnixMilli(),
	}
	if err := h.clicks.RecordClick(r.Context(), ev); err != nil {
		log.Printf("track: record click %s: %v", req.Identifier, err)
	}

	w.WriteHeader(http.StatusAccepted)
}

// ListClicks handles GET /admin/clicks?identifier=...&limit=N.
func (h *TrackHandler) ListClicks(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")
	if !attribution.ValidAffiliateID(identifier) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_identifier"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	clicks, err := h.clicks.ListClicks(r.Context(), identifier, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}

	writeJSON(w, http.StatusOK, ClickListResponse{Clicks: clicks})
}
