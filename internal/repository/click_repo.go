package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/roamsim/attribution-service/internal/models"
)

type ClickRepo struct {
	db *sql.DB
}

func NewClickRepo(db *sql.DB) *ClickRepo {
	return &ClickRepo{db: db}
}

// RecordClick inserts one affiliate click event with its click-time context.
func (r *ClickRepo) RecordClick(ctx context.Context, ev models.ClickEvent) error {
	query := `
		INSERT INTO affiliate_clicks
			(id, identifier, visitor_key, landing_path, referrer, client_ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	createdAt := time.UnixMilli(ev.CreatedAtMs).UTC()
	_, err := r.db.ExecContext(ctx, query,
		ev.ID,
		ev.Identifier,
		ev.VisitorKey,
		ev.LandingPath,
		ev.Referrer,
		ev.ClientIP,
		ev.UserAgent,
		createdAt,
	)
	return err
}

// ListClicks returns the most recent clicks for an affiliate identifier.
func (r *ClickRepo) ListClicks(ctx context.Context, identifier string, limit int) ([]models.ClickEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, identifier, visitor_key, landing_path, referrer, client_ip, user_agent, created_at
		FROM affiliate_clicks
		WHERE identifier = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, identifier, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.ClickEvent
	for rows.Next() {
		var ev models.ClickEvent
		var createdAt time.Time
		if err := rows.Scan(
			&ev.ID,
			&ev.Identifier,
			&ev.VisitorKey,
			&ev.LandingPath,
			&ev.Referrer,
			&ev.ClientIP,
			&ev.UserAgent,
			&createdAt,
		); err != nil {
			return nil, err
		}
		ev.CreatedAtMs = createdAt.UnixMilli()
		events = append(events, ev)
	}
	return events, rows.Err()
}
