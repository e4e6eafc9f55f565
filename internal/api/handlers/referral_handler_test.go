package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamsim/attribution-service/internal/api/middleware"
	"github.com/roamsim/attribution-service/internal/models"
	"github.com/roamsim/attribution-service/internal/referral"
	"github.com/roamsim/attribution-service/internal/storage"
)

func referralStub() *stubLookup {
	return &stubLookup{terms: map[string]*referral.Terms{
		"FRIEND15": {Code: "FRIEND15", Percentage: 15, ReferredBy: "Avery", DiscountType: "percentage"},
		"NEW2":     {Code: "NEW2", Percentage: 10, ReferredBy: "Blair", DiscountType: "percentage"},
	}}
}

func resolveBody(code, decision string) string {
	if decision == "" {
		return `{"referral_code": "` + code + `"}`
	}
	return `{"referral_code": "` + code + `", "decision": "` + decision + `"}`
}

func TestResolveReferral_Success(t *testing.T) {
	router, _ := testRouter(referralStub())

	rec := doJSON(t, router, http.MethodPost, "/referral/resolve", "v1", resolveBody("FRIEND15", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ResolveReferralResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StateResolved, resp.State)
	require.NotNil(t, resp.Info)
	assert.Equal(t, float64(15), resp.Info.DiscountPercentage)
	assert.Equal(t, "Avery", resp.Info.ReferrerName)
}

func TestResolveReferral_OverrideFlow(t *testing.T) {
	router, _ := testRouter(referralStub())

	doJSON(t, router, http.MethodPost, "/referral/resolve", "v1", resolveBody("FRIEND15", ""))

	rec := doJSON(t, router, http.MethodPost, "/referral/resolve", "v1", resolveBody("NEW2", ""))
	var resp ResolveReferralResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StateAwaitingOverride, resp.State)

	rec = doJSON(t, router, http.MethodPost, "/referral/resolve", "v1", resolveBody("NEW2", "use_new"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StateResolved, resp.State)
	assert.Equal(t, "NEW2", resp.ReferralCode)
}

func TestResolveReferral_InvalidCodePurges(t *testing.T) {
	router, stores := testRouter(referralStub())

	doJSON(t, router, http.MethodPost, "/referral/resolve", "v1", resolveBody("FRIEND15", ""))
	rec := doJSON(t, router, http.MethodPost, "/referral/resolve", "v1", resolveBody("GONE404", "use_new"))

	var resp ResolveReferralResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StateRejectedInvalid, resp.State)

	store := stores.StoreFor("v1")
	_, codeOK, _ := store.Get(context.Background(), models.KeyReferredBy)
	_, infoOK, _ := store.Get(context.Background(), models.KeyReferralInfo)
	assert.False(t, codeOK)
	assert.False(t, infoOK)
}

func TestResolveReferral_SelfReferral(t *testing.T) {
	router, stores := testRouter(referralStub())
	secret := []byte("test-secret")

	// Wrap with the auth middleware so claims flow through the real path.
	wrapped := middleware.Auth(secret)(router)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":           "user-1",
		"referral_code": "FRIEND15",
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/referral/resolve", strings.NewReader(resolveBody("FRIEND15", "")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Visitor-ID", "v1")
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	var resp ResolveReferralResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StateRejectedSelf, resp.State)

	visitorStore := stores.StoreFor("v1").(*storage.MemoryStore)
	assert.Equal(t, 0, visitorStore.Len(), "self-referral writes nothing")
}

func TestResolveReferral_Validation(t *testing.T) {
	router, _ := testRouter(referralStub())

	rec := doJSON(t, router, http.MethodPost, "/referral/resolve", "v1", `{"referral_code": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/referral/resolve", "v1", resolveBody("X", "maybe"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
