package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamsim/attribution-service/internal/attribution"
	"github.com/roamsim/attribution-service/internal/models"
	"github.com/roamsim/attribution-service/internal/referral"
	"github.com/roamsim/attribution-service/internal/storage"
)

type stubLookup struct {
	terms map[string]*referral.Terms
}

func (s *stubLookup) Lookup(_ context.Context, code string) (*referral.Terms, error) {
	if t, ok := s.terms[code]; ok {
		return t, nil
	}
	return nil, referral.ErrNotFound
}

func testRouter(lookup attribution.ReferralLookup) (http.Handler, *storage.MemoryProvider) {
	stores := storage.NewMemoryProvider()
	engine := attribution.NewEngine(attribution.EngineConfig{Referrals: lookup})

	r := chi.NewRouter()
	h := NewAttributionHandler(engine, stores)
	rh := NewReferralHandler(engine, stores)
	r.Post("/attribution/navigation", h.CaptureNavigation)
	r.Get("/attribution/{channel}", h.GetAttribution)
	r.Delete("/attribution/{channel}", h.DiscardAttribution)
	r.Post("/referral/resolve", rh.ResolveReferral)
	return r, stores
}

func doJSON(t *testing.T, h http.Handler, method, path, visitor, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if visitor != "" {
		req.Header.Set("X-Visitor-ID", visitor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCaptureNavigation_Endpoint(t *testing.T) {
	router, stores := testRouter(nil)

	rec := doJSON(t, router, http.MethodPost, "/attribution/navigation", "v1",
		`{"url": "https://shop.example/plans?im_ref=PARTNER123&country=jp"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp NavigationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Captured)
	assert.NotContains(t, resp.URL, "im_ref")
	assert.Contains(t, resp.URL, "country=jp")
	require.NotNil(t, resp.Affiliate)
	assert.Equal(t, "PARTNER123", resp.Affiliate.Identifier)

	// Stored under the exact contract keys for this visitor.
	store := stores.StoreFor("v1")
	id, ok, _ := store.Get(context.Background(), models.KeyAffiliateClickID)
	require.True(t, ok)
	assert.Equal(t, "PARTNER123", id)
}

func TestCaptureNavigation_MintsVisitorID(t *testing.T) {
	router, _ := testRouter(nil)

	rec := doJSON(t, router, http.MethodPost, "/attribution/navigation", "",
		`{"url": "https://shop.example/"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Visitor-ID"), "first-time visitors get an id to keep")
}

func TestCaptureNavigation_BadBody(t *testing.T) {
	router, _ := testRouter(nil)
	rec := doJSON(t, router, http.MethodPost, "/attribution/navigation", "v1", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAttribution_Endpoint(t *testing.T) {
	router, _ := testRouter(nil)

	doJSON(t, router, http.MethodPost, "/attribution/navigation", "v1",
		`{"url": "https://shop.example/?im_ref=PARTNER123"}`)

	rec := doJSON(t, router, http.MethodGet, "/attribution/affiliate", "v1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AttributionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Active)
	require.NotNil(t, resp.Record)
	assert.Equal(t, "PARTNER123", resp.Record.Identifier)

	// A different visitor sees nothing.
	rec = doJSON(t, router, http.MethodGet, "/attribution/affiliate", "v2", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Active)
}

func TestGetAttribution_UnknownChannel(t *testing.T) {
	router, _ := testRouter(nil)
	rec := doJSON(t, router, http.MethodGet, "/attribution/bogus", "v1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiscardAttribution_Endpoint(t *testing.T) {
	router, _ := testRouter(nil)

	doJSON(t, router, http.MethodPost, "/attribution/navigation", "v1",
		`{"url": "https://shop.example/?im_ref=PARTNER123"}`)

	rec := doJSON(t, router, http.MethodDelete, "/attribution/affiliate", "v1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/attribution/affiliate", "v1", "")
	var resp AttributionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Active)
}
