package attribution

import (
	"context"
	"log"
	"net/url"

	"github.com/google/uuid"

	"github.com/roamsim/attribution-service/internal/models"
	"github.com/roamsim/attribution-service/internal/storage"
)

// AffiliateParam is the query parameter carrying an inbound affiliate click id.
const AffiliateParam = "im_ref"

// ClickMeta is the click-time context recorded alongside an accepted capture.
type ClickMeta struct {
	VisitorKey string
	Referrer   string
	ClientIP   string
	UserAgent  string
}

// CaptureResult reports what a navigation event did. URL always carries the
// cleaned URL the caller should history-replace to, whether or not anything
// was stored.
type CaptureResult struct {
	URL       string
	Captured  bool
	Affiliate *models.AttributionRecord
}

// CaptureNavigation inspects a navigated URL for an affiliate signal. Valid
// identifiers are resolved last-click-wins into the store and reported to the
// tracker; malformed ones are dropped but still stripped from the returned URL
// so they never leak into history or analytics. This never returns an error:
// validation and storage faults are absorbed here.
func (e *Engine) CaptureNavigation(ctx context.Context, store storage.Store, rawURL string, meta ClickMeta) CaptureResult {
	u, err := url.Parse(rawURL)
	if err != nil {
		log.Printf("capture: unparseable url: %v", err)
		return CaptureResult{URL: rawURL}
	}

	q := u.Query()
	if !q.Has(AffiliateParam) {
		return CaptureResult{URL: rawURL}
	}
	id := q.Get(AffiliateParam)

	// Strip the parameter regardless of outcome, preserving every other
	// parameter and the fragment.
	q.Del(AffiliateParam)
	u.RawQuery = q.Encode()
	cleaned := u.String()

	if id == "" {
		return CaptureResult{URL: cleaned}
	}
	if !affiliateIDPattern.MatchString(id) {
		log.Printf("capture: rejected malformed affiliate id (%d chars)", len(id))
		return CaptureResult{URL: cleaned}
	}

	rec := e.resolveAffiliate(ctx, store, id)

	// Fire-and-forget: the tracker owns the outcome, the capture path never
	// waits on it. Attempted even when the storage write failed.
	e.tracker.Track(models.ClickEvent{
		ID:          uuid.NewString(),
		Identifier:  id,
		VisitorKey:  meta.VisitorKey,
		LandingPath: u.Path,
		Referrer:    meta.Referrer,
		ClientIP:    meta.ClientIP,
		UserAgent:   meta.UserAgent,
		CreatedAtMs: e.nowMs(),
	})

	return CaptureResult{URL: cleaned, Captured: true, Affiliate: rec}
}

// Discard removes the stored record for a channel. Explicit user action, not
// expiry; safe when nothing is stored.
func (e *Engine) Discard(ctx context.Context, store storage.Store, channel models.Channel) {
	purgeChannel(ctx, store, channel)
}

func purgeChannel(ctx context.Context, store storage.Store, channel models.Channel) {
	var keys [2]string
	switch channel {
	case models.ChannelAffiliate:
		keys = [2]string{models.KeyAffiliateClickID, models.KeyAffiliateClickTimestamp}
	case models.ChannelReferral:
		keys = [2]string{models.KeyReferredBy, models.KeyReferralInfo}
	default:
		return
	}
	for _, k := range keys {
		if err := store.Remove(ctx, k); err != nil {
			log.Printf("attribution: remove %s: %v", k, err)
		}
	}
}
