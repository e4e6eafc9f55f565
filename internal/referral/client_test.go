package referral

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/promotion/referral-info", r.URL.Path)
		assert.Equal(t, "FRIEND15", r.URL.Query().Get("referralCode"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"percentage": 15, "referred_by": "Avery", "currency": "USD", "discount_type": "percentage"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	terms, err := c.Lookup(context.Background(), "FRIEND15")
	require.NoError(t, err)
	assert.Equal(t, "FRIEND15", terms.Code)
	assert.Equal(t, float64(15), terms.Percentage)
	assert.Equal(t, "Avery", terms.ReferredBy)
	assert.Equal(t, "USD", terms.Currency)
	assert.Equal(t, "percentage", terms.DiscountType)
}

func TestClient_LookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Lookup(context.Background(), "CONSUMED")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_LookupServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Lookup(context.Background(), "ANY")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "5xx is not the not-found outcome")
}

func TestClient_LookupEscapesCode(t *testing.T) {
	var gotCode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCode = r.URL.Query().Get("referralCode")
		w.Write([]byte(`{"percentage": 5}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Lookup(context.Background(), "a b&c")
	require.NoError(t, err)
	assert.Equal(t, "a b&c", gotCode)
}
