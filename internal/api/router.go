package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roamsim/attribution-service/internal/api/handlers"
	"github.com/roamsim/attribution-service/internal/attribution"
	"github.com/roamsim/attribution-service/internal/storage"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Engine *attribution.Engine
	Stores storage.Provider
	Clicks handlers.ClickStore
}

// NewRouter builds the HTTP router for the attribution-service
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	attributionHandler := handlers.NewAttributionHandler(d.Engine, d.Stores)
	referralHandler := handlers.NewReferralHandler(d.Engine, d.Stores)
	trackHandler := handlers.NewTrackHandler(d.Clicks)

	// Storefront-facing attribution endpoints
	r.Route("/attribution", func(r chi.Router) {
		r.Post("/navigation", attributionHandler.CaptureNavigation)
		r.Get("/{channel}", attributionHandler.GetAttribution)
		r.Delete("/{channel}", attributionHandler.DiscardAttribution)
	})

	// Referral landing flow
	r.Post("/referral/resolve", referralHandler.ResolveReferral)

	// Tracking sink
	r.Post("/affiliates/track", trackHandler.TrackClick)

	// Admin endpoints
	r.Route("/admin", func(r chi.Router) {
		r.Get("/clicks", trackHandler.ListClicks)
	})

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
