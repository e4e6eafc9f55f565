package attribution

import (
	"context"
	"regexp"
	"time"

	"github.com/roamsim/attribution-service/internal/models"
	"github.com/roamsim/attribution-service/internal/referral"
)

const (
	dayMs = 86_400_000

	// A record written in the same tick as the read must never count as
	// expired, even across slightly skewed clocks.
	skewToleranceMs = 1000

	// Stored referral terms are not trusted locally beyond this age; the
	// backend must re-validate. Intentionally much shorter than the affiliate
	// window: terms can change server-side, affiliate identity cannot.
	referralFreshnessMs = 24 * 60 * 60 * 1000

	defaultWindowDays = 30
)

var affiliateIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// ValidAffiliateID reports whether id has the shape of an affiliate click id.
func ValidAffiliateID(id string) bool {
	return affiliateIDPattern.MatchString(id)
}

// Tracker receives affiliate click events. Track must not block; the engine
// calls it fire-and-forget and never observes an outcome.
type Tracker interface {
	Track(event models.ClickEvent)
}

// ReferralLookup fetches server-validated discount terms for a referral code.
// A lookup must return referral.ErrNotFound for invalid or consumed codes.
type ReferralLookup interface {
	Lookup(ctx context.Context, code string) (*referral.Terms, error)
}

// Engine adjudicates inbound attribution signals against a visitor's stored
// state. It is stateless itself; all state lives in the per-visitor Store
// passed to each call, so one Engine serves every visitor.
type Engine struct {
	windowDays int
	tracker    Tracker
	referrals  ReferralLookup
	now        func() time.Time
}

type EngineConfig struct {
	// AttributionWindowDays bounds the affiliate channel's liveness window.
	// Zero means the default of 30 days.
	AttributionWindowDays int
	Tracker               Tracker
	Referrals             ReferralLookup
	// Now overrides the clock. Tests only; nil means time.Now.
	Now func() time.Time
}

func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		windowDays: cfg.AttributionWindowDays,
		tracker:    cfg.Tracker,
		referrals:  cfg.Referrals,
		now:        cfg.Now,
	}
	if e.windowDays <= 0 {
		e.windowDays = defaultWindowDays
	}
	if e.tracker == nil {
		e.tracker = noopTracker{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

func (e *Engine) nowMs() int64 {
	return e.now().UnixMilli()
}

// windowMs returns the liveness window for a channel. The referral channel has
// no local window; its liveness is delegated to backend validation.
func (e *Engine) windowMs(channel models.Channel) int64 {
	if channel == models.ChannelAffiliate {
		return int64(e.windowDays) * dayMs
	}
	return 0
}

type noopTracker struct{}

func (noopTracker) Track(models.ClickEvent) {}
