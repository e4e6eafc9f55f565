package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/roamsim/attribution-service/internal/attribution"
	"github.com/roamsim/attribution-service/internal/models"
	"github.com/roamsim/attribution-service/internal/storage"
)

// --- Request / Response DTOs ---

type NavigationRequest struct {
	URL string `json:"url"`
}

type NavigationResponse struct {
	URL       string                    `json:"url"`
	Captured  bool                      `json:"captured"`
	Affiliate *models.AttributionRecord `json:"affiliate,omitempty"`
}

type AttributionResponse struct {
	Active bool                      `json:"active"`
	Record *models.AttributionRecord `json:"record,omitempty"`
}

// --- Handler struct & constructor ---

type AttributionHandler struct {
	engine *attribution.Engine
	stores storage.Provider
}

func NewAttributionHandler(engine *attribution.Engine, stores storage.Provider) *AttributionHandler {
	return &AttributionHandler{engine: engine, stores: stores}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// visitorID resolves the visitor identity from the X-Visitor-ID header,
// minting one for first-time visitors, and echoes it on the response so the
// storefront can persist it.
func visitorID(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get("X-Visitor-ID")
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set("X-Visitor-ID", id)
	return id
}

func parseChannel(raw string) (models.Channel, bool) {
	switch models.Channel(raw) {
	case models.ChannelAffiliate:
		return models.ChannelAffiliate, true
	case models.ChannelReferral:
		return models.ChannelReferral, true
	}
	return "", false
}

// --- Handlers ---

// CaptureNavigation handles POST /attribution/navigation.
// One call per storefront navigation event; the response URL is what the
// client should history-replace to.
func (h *AttributionHandler) CaptureNavigation(w http.ResponseWriter, r *http.Request) {
	var req NavigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url required"})
		return
	}

	visitor := visitorID(w, r)
	store := h.stores.StoreFor(visitor)

	result := h.engine.CaptureNavigation(r.Context(), store, req.URL, attribution.ClickMeta{
		VisitorKey: visitor,
		Referrer:   r.Header.Get("Referer"),
		ClientIP:   r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, NavigationResponse{
		URL:       result.URL,
		Captured:  result.Captured,
		Affiliate: result.Affiliate,
	})
}

// GetAttribution handles GET /attribution/{channel}.
func (h *AttributionHandler) GetAttribution(w http.ResponseWriter, r *http.Request) {
	channel, ok := parseChannel(chi.URLParam(r, "channel"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown_channel"})
		return
	}

	store := h.stores.StoreFor(visitorID(w, r))
	rec := h.engine.ActiveAttribution(r.Context(), store, channel)
	writeJSON(w, http.StatusOK, AttributionResponse{Active: rec != nil, Record: rec})
}

// DiscardAttribution handles DELETE /attribution/{channel}.
func (h *AttributionHandler) DiscardAttribution(w http.ResponseWriter, r *http.Request) {
	channel, ok := parseChannel(chi.URLParam(r, "channel"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown_channel"})
		return
	}

	store := h.stores.StoreFor(visitorID(w, r))
	h.engine.Discard(r.Context(), store, channel)
	w.WriteHeader(http.StatusNoContent)
}
