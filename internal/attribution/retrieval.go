package attribution

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"github.com/roamsim/attribution-service/internal/models"
	"github.com/roamsim/attribution-service/internal/storage"
)

// ActiveAttribution returns the live record for a channel, or nil. The read is
// self-healing: expired or partially malformed records are purged before nil
// is returned, and repeated calls are safe (a second purge of absent keys is a
// no-op). No network calls happen here.
func (e *Engine) ActiveAttribution(ctx context.Context, store storage.Store, channel models.Channel) *models.AttributionRecord {
	switch channel {
	case models.ChannelAffiliate:
		return e.activeAffiliate(ctx, store)
	case models.ChannelReferral:
		rec, _ := e.activeReferral(ctx, store)
		return rec
	default:
		return nil
	}
}

func (e *Engine) activeAffiliate(ctx context.Context, store storage.Store) *models.AttributionRecord {
	id, idOK, err := store.Get(ctx, models.KeyAffiliateClickID)
	if err != nil {
		log.Printf("attribution: read %s: %v", models.KeyAffiliateClickID, err)
		return nil
	}
	rawTS, tsOK, err := store.Get(ctx, models.KeyAffiliateClickTimestamp)
	if err != nil {
		log.Printf("attribution: read %s: %v", models.KeyAffiliateClickTimestamp, err)
		return nil
	}
	if !idOK && !tsOK {
		return nil
	}
	if !idOK || !tsOK || id == "" {
		// Half a record is corruption; heal it now.
		purgeChannel(ctx, store, models.ChannelAffiliate)
		return nil
	}

	capturedAt, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		purgeChannel(ctx, store, models.ChannelAffiliate)
		return nil
	}

	age := e.nowMs() - capturedAt
	if age < 0 {
		if age < -skewToleranceMs {
			// Timestamp from the future beyond skew tolerance: corrupt.
			purgeChannel(ctx, store, models.ChannelAffiliate)
			return nil
		}
		age = 0
	}
	if age > e.windowMs(models.ChannelAffiliate) {
		purgeChannel(ctx, store, models.ChannelAffiliate)
		return nil
	}

	return &models.AttributionRecord{
		Identifier:   id,
		CapturedAtMs: capturedAt,
		Channel:      models.ChannelAffiliate,
	}
}

// activeReferral returns the stored referral record plus its terms. The code
// itself never expires locally; only the terms carry a freshness bound, which
// conflict resolution consults.
func (e *Engine) activeReferral(ctx context.Context, store storage.Store) (*models.AttributionRecord, *models.ReferralInfo) {
	code, codeOK, err := store.Get(ctx, models.KeyReferredBy)
	if err != nil {
		log.Printf("attribution: read %s: %v", models.KeyReferredBy, err)
		return nil, nil
	}
	rawInfo, infoOK, err := store.Get(ctx, models.KeyReferralInfo)
	if err != nil {
		log.Printf("attribution: read %s: %v", models.KeyReferralInfo, err)
		return nil, nil
	}
	if !codeOK && !infoOK {
		return nil, nil
	}
	if !codeOK || !infoOK || code == "" {
		purgeChannel(ctx, store, models.ChannelReferral)
		return nil, nil
	}

	var info models.ReferralInfo
	if err := json.Unmarshal([]byte(rawInfo), &info); err != nil {
		purgeChannel(ctx, store, models.ChannelReferral)
		return nil, nil
	}

	return &models.AttributionRecord{
		Identifier:   code,
		CapturedAtMs: info.ValidatedAt,
		Channel:      models.ChannelReferral,
	}, &info
}
