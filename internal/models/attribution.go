package models

// Channel identifies an independent attribution channel. Each channel owns
// its own storage slot and its own overwrite policy.
type Channel string

const (
	ChannelAffiliate Channel = "affiliate"
	ChannelReferral  Channel = "referral"
)

// Storage keys are a contract shared with the storefront and the test suite.
// Do not rename.
const (
	KeyAffiliateClickID        = "affiliate_click_id"
	KeyAffiliateClickTimestamp = "affiliate_click_timestamp"
	KeyReferredBy              = "referred_by"
	KeyReferralInfo            = "referral_info"
)

// AttributionRecord is the single active record for a channel. CapturedAtMs is
// set once at write time and never backdated.
type AttributionRecord struct {
	Identifier   string  `json:"identifier"`
	CapturedAtMs int64   `json:"captured_at_ms"`
	Channel      Channel `json:"channel"`
}
