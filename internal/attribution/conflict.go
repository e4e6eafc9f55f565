package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/roamsim/attribution-service/internal/models"
	"github.com/roamsim/attribution-service/internal/referral"
	"github.com/roamsim/attribution-service/internal/storage"
)

// Viewer is the identity presented with a referral resolution. Anonymous
// viewers skip the self-referral check; the backend enforces it again at
// conversion.
type Viewer struct {
	Authenticated bool
	UserID        string
	ReferralCode  string
}

// Resolution is the adjudicated outcome for an incoming referral code.
type Resolution struct {
	State models.ResolutionState
	// Code the resolution applies to. For StateAwaitingOverride this is the
	// incoming code awaiting the decision; for StateKeptExisting the stored one.
	Code string
	// Info is set only for StateResolved.
	Info *models.ReferralInfo
}

// resolveAffiliate applies the affiliate policy: last-click-wins, silent.
// Re-writing an identical live identifier is a harmless refresh, so no read
// is needed before the write. Storage failures degrade to an unstored session
// rather than an error.
func (e *Engine) resolveAffiliate(ctx context.Context, store storage.Store, id string) *models.AttributionRecord {
	now := e.nowMs()
	if err := store.Set(ctx, models.KeyAffiliateClickID, id); err != nil {
		log.Printf("attribution: write %s: %v", models.KeyAffiliateClickID, err)
		return nil
	}
	if err := store.Set(ctx, models.KeyAffiliateClickTimestamp, strconv.FormatInt(now, 10)); err != nil {
		log.Printf("attribution: write %s: %v", models.KeyAffiliateClickTimestamp, err)
		return nil
	}
	return &models.AttributionRecord{
		Identifier:   id,
		CapturedAtMs: now,
		Channel:      models.ChannelAffiliate,
	}
}

// ResolveReferral adjudicates an incoming referral code against the stored
// one. Preconditions run in order, each short-circuiting the rest: self-
// referral block, override gate, then backend fetch. decision is empty unless
// the caller is answering a previously returned StateAwaitingOverride.
//
// The returned error is non-nil only for transport-level lookup failures; the
// Resolution state is authoritative either way (a failed lookup still yields
// StateRejectedInvalid with storage purged).
func (e *Engine) ResolveReferral(ctx context.Context, store storage.Store, code string, viewer Viewer, decision models.OverrideDecision) (Resolution, error) {
	if code == "" {
		return Resolution{State: models.StateRejectedInvalid}, nil
	}

	// 1. Self-referral: terminal, nothing stored, no lookup fired.
	if viewer.Authenticated && viewer.ReferralCode != "" && viewer.ReferralCode == code {
		return Resolution{State: models.StateRejectedSelf, Code: code}, nil
	}

	stored, storedInfo := e.activeReferral(ctx, store)

	// 2. A different code is already stored: nothing moves without an
	// explicit decision.
	if stored != nil && stored.Identifier != code {
		switch decision {
		case models.DecisionKeepExisting:
			return Resolution{State: models.StateKeptExisting, Code: stored.Identifier}, nil
		case models.DecisionUseNew:
			// Cleared to proceed with the incoming code.
		default:
			return Resolution{State: models.StateAwaitingOverride, Code: code}, nil
		}
	}

	// Re-entry: same code, terms still fresh. Already resolved, no re-fetch.
	if stored != nil && stored.Identifier == code && storedInfo != nil {
		if e.nowMs()-storedInfo.ValidatedAt <= referralFreshnessMs {
			return Resolution{State: models.StateResolved, Code: code, Info: storedInfo}, nil
		}
	}

	// 3. Fetch terms. Any failure, 404 included, means the code is not
	// honorable: purge so no dangling code survives.
	if e.referrals == nil {
		purgeChannel(ctx, store, models.ChannelReferral)
		return Resolution{State: models.StateRejectedInvalid, Code: code}, errors.New("no referral lookup configured")
	}
	terms, err := e.referrals.Lookup(ctx, code)
	if err != nil {
		purgeChannel(ctx, store, models.ChannelReferral)
		if errors.Is(err, referral.ErrNotFound) {
			return Resolution{State: models.StateRejectedInvalid, Code: code}, nil
		}
		return Resolution{State: models.StateRejectedInvalid, Code: code}, fmt.Errorf("referral lookup: %w", err)
	}

	// Stale-response guard: apply terms only if they are still keyed to the
	// code being resolved.
	if terms.Code != "" && terms.Code != code {
		return Resolution{State: models.StateRejectedInvalid, Code: code}, nil
	}

	info := models.ReferralInfo{
		DiscountPercentage: terms.Percentage,
		DiscountType:       terms.DiscountType,
		ReferrerName:       terms.ReferredBy,
		ValidatedAt:        e.nowMs(),
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return Resolution{State: models.StateResolved, Code: code, Info: &info}, nil
	}
	if err := store.Set(ctx, models.KeyReferredBy, code); err != nil {
		log.Printf("attribution: write %s: %v", models.KeyReferredBy, err)
	} else if err := store.Set(ctx, models.KeyReferralInfo, string(raw)); err != nil {
		log.Printf("attribution: write %s: %v", models.KeyReferralInfo, err)
		// Half-written record would be purged on the next read anyway; clean
		// up eagerly instead.
		purgeChannel(ctx, store, models.ChannelReferral)
	}

	return Resolution{State: models.StateResolved, Code: code, Info: &info}, nil
}
