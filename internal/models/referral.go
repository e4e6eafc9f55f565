package models

// ReferralInfo holds the server-validated discount terms for a referral code.
// ValidatedAt is epoch milliseconds of the last successful backend lookup;
// terms older than the freshness window must be re-validated before use.
type ReferralInfo struct {
	DiscountPercentage float64 `json:"discountPercentage"`
	DiscountType       string  `json:"discountType"`
	ReferrerName       string  `json:"referrerName"`
	ValidatedAt        int64   `json:"validatedAt"`
}

// ResolutionState is the outcome of adjudicating an incoming referral code.
type ResolutionState string

const (
	// StateResolved: code accepted, terms persisted (or already stored and fresh).
	StateResolved ResolutionState = "resolved"
	// StateAwaitingOverride: a different code is already stored; an explicit
	// user decision is required before anything is mutated.
	StateAwaitingOverride ResolutionState = "awaiting_override_decision"
	// StateRejectedSelf: the viewer presented their own code. Terminal.
	StateRejectedSelf ResolutionState = "rejected_self"
	// StateRejectedInvalid: the backend rejected the code (404 = invalid or
	// already consumed); any stored referral state has been purged. Terminal.
	StateRejectedInvalid ResolutionState = "rejected_invalid"
	// StateKeptExisting: the user chose to keep the stored code. Terminal,
	// storage untouched.
	StateKeptExisting ResolutionState = "kept_existing"
)

// OverrideDecision is the user's answer when a competing code is present.
type OverrideDecision string

const (
	DecisionUseNew       OverrideDecision = "use_new"
	DecisionKeepExisting OverrideDecision = "keep_existing"
)

// ClickEvent is one recorded affiliate click with its click-time context.
type ClickEvent struct {
	ID          string `json:"id"`
	Identifier  string `json:"identifier"`
	VisitorKey  string `json:"visitor_key"`
	LandingPath string `json:"landing_path,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
	ClientIP    string `json:"client_ip,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	CreatedAtMs int64  `json:"created_at_ms"`
}
