package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/roamsim/attribution-service/internal/api/middleware"
	"github.com/roamsim/attribution-service/internal/attribution"
	"github.com/roamsim/attribution-service/internal/models"
	"github.com/roamsim/attribution-service/internal/storage"
)

type ResolveReferralRequest struct {
	ReferralCode string `json:"referral_code"`
	// Decision answers a previous awaiting_override_decision response:
	// "use_new" or "keep_existing". Empty on first presentation.
	Decision string `json:"decision,omitempty"`
}

type ResolveReferralResponse struct {
	State        models.ResolutionState `json:"state"`
	ReferralCode string                 `json:"referral_code"`
	Info         *models.ReferralInfo   `json:"info,omitempty"`
}

type ReferralHandler struct {
	engine *attribution.Engine
	stores storage.Provider
}

func NewReferralHandler(engine *attribution.Engine, stores storage.Provider) *ReferralHandler {
	return &ReferralHandler{engine: engine, stores: stores}
}

// ResolveReferral handles POST /referral/resolve, the dedicated landing flow.
// Every terminal rejected state tells the storefront to navigate away.
func (h *ReferralHandler) ResolveReferral(w http.ResponseWriter, r *http.Request) {
	var req ResolveReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if req.ReferralCode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "referral_code required"})
		return
	}

	var decision models.OverrideDecision
	switch req.Decision {
	case "":
	case string(models.DecisionUseNew):
		decision = models.DecisionUseNew
	case string(models.DecisionKeepExisting):
		decision = models.DecisionKeepExisting
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown_decision"})
		return
	}

	claims := middleware.ViewerFromContext(r.Context())
	viewer := attribution.Viewer{
		Authenticated: claims.Authenticated,
		UserID:        claims.UserID,
		ReferralCode:  claims.ReferralCode,
	}

	store := h.stores.StoreFor(visitorID(w, r))
	resolution, err := h.engine.ResolveReferral(r.Context(), store, req.ReferralCode, viewer, decision)
	if err != nil {
		// Lookup transport failure. Storage is already purged; the state is
		// still the answer the landing flow needs.
		log.Printf("referral: resolve %s: %v", req.ReferralCode, err)
	}

	writeJSON(w, http.StatusOK, ResolveReferralResponse{
		State:        resolution.State,
		ReferralCode: resolution.Code,
		Info:         resolution.Info,
	})
}
