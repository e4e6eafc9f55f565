package referral

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound means the backend does not honor the code: it is invalid or
// already consumed. Callers must purge any stored state for the code.
var ErrNotFound = errors.New("referral code not found")

// Terms are the discount terms the promotion backend returns for a code.
type Terms struct {
	Code         string
	Percentage   float64
	ReferredBy   string
	Currency     string
	DiscountType string
}

// Client calls the promotion backend's referral-info endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type termsResponse struct {
	Percentage   float64 `json:"percentage"`
	ReferredBy   string  `json:"referred_by"`
	Currency     string  `json:"currency"`
	DiscountType string  `json:"discount_type"`
}

// Lookup fetches terms for a code. 404 maps to ErrNotFound; any other non-2xx
// status is a transport-level failure.
func (c *Client) Lookup(ctx context.Context, code string) (*Terms, error) {
	u := c.baseURL + "/promotion/referral-info?referralCode=" + url.QueryEscape(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build referral-info request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("referral-info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("referral-info status %d", resp.StatusCode)
	}

	var body termsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode referral-info: %w", err)
	}

	return &Terms{
		Code:         code,
		Percentage:   body.Percentage,
		ReferredBy:   body.ReferredBy,
		Currency:     body.Currency,
		DiscountType: body.DiscountType,
	}, nil
}
