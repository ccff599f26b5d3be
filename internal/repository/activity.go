package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/autovolt/voice-bridge-go/internal/model"
)

type ActivityLogRepository interface {
	Append(ctx context.Context, entry model.ActivityLog) error
}

type activityLogRepo struct {
	db sqlxDB
}

func NewActivityLogRepository(db *sqlx.DB) ActivityLogRepository {
	return &activityLogRepo{db: db}
}

func (r *activityLogRepo) Append(ctx context.Context, entry model.ActivityLog) error {
	// jsonb takes text; lib/pq would send []byte in binary format.
	var metadata *string
	if entry.Metadata != nil {
		raw := string(*entry.Metadata)
		metadata = &raw
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_logs
			(id, action, triggered_by, user_id, user_name, device_id, details, ip, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, entry.ID, entry.Action, entry.TriggeredBy, entry.UserID, entry.UserName, entry.DeviceID,
		entry.Details, entry.IP, entry.UserAgent, metadata, entry.CreatedAt)
	return err
}
