package audit

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autovolt/voice-bridge-go/internal/model"
)

// LogActivityStore writes activity records to the structured log. It backs
// deployments that run without a database.
type LogActivityStore struct {
	logger zerolog.Logger
}

func NewLogActivityStore() *LogActivityStore {
	return &LogActivityStore{logger: log.With().Str("audit", "activity").Logger()}
}

// NewLogActivityStoreWithLogger is used by tests to capture output.
func NewLogActivityStoreWithLogger(logger zerolog.Logger) *LogActivityStore {
	return &LogActivityStore{logger: logger}
}

func (s *LogActivityStore) Append(_ context.Context, entry model.ActivityLog) error {
	e := s.logger.Info().
		Str("id", entry.ID).
		Str("action", entry.Action).
		Str("triggered_by", entry.TriggeredBy).
		Str("user_id", entry.UserID).
		Str("user_name", entry.UserName).
		Str("ip", entry.IP).
		Str("user_agent", entry.UserAgent).
		Time("created_at", entry.CreatedAt)
	if entry.DeviceID != nil {
		e = e.Str("device_id", *entry.DeviceID)
	}
	if entry.Metadata != nil {
		e = e.RawJSON("metadata", json.RawMessage(*entry.Metadata))
	}
	e.Msg(entry.Details)
	return nil
}
