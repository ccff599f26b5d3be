package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/autovolt/voice-bridge-go/internal/database"
	"github.com/autovolt/voice-bridge-go/internal/inventory"
)

// SwitchController persists switch state. A device row marked offline
// rejects writes and reads with inventory.ErrDeviceOffline so both
// controllers report unreachable hardware the same way.
type SwitchController struct {
	db *database.DB
}

func NewSwitchController(db *database.DB) *SwitchController {
	return &SwitchController{db: db}
}

func (c *SwitchController) SetSwitchState(ctx context.Context, deviceID, switchID string, on bool) (bool, error) {
	var state bool
	err := c.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var online bool
		err := tx.GetContext(ctx, &online, `
			SELECT online FROM devices WHERE id = $1 FOR UPDATE
		`, deviceID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("device %s not found", deviceID)
		}
		if err != nil {
			return err
		}
		if !online {
			return inventory.ErrDeviceOffline
		}

		err = tx.GetContext(ctx, &state, `
			UPDATE switches SET state = $3, updated_at = NOW()
			WHERE device_id = $1 AND id = $2
			RETURNING state
		`, deviceID, switchID, on)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("switch %s not found on device %s", switchID, deviceID)
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE devices SET last_seen = NOW(), updated_at = NOW() WHERE id = $1
		`, deviceID)
		return err
	})
	return state, err
}

func (c *SwitchController) ReadSwitchState(ctx context.Context, deviceID, switchID string) (bool, error) {
	var row struct {
		Online bool `db:"online"`
		State  bool `db:"state"`
	}
	err := c.db.GetContext(ctx, &row, `
		SELECT d.online, s.state
		FROM switches s
		JOIN devices d ON d.id = s.device_id
		WHERE s.device_id = $1 AND s.id = $2
	`, deviceID, switchID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("switch %s not found on device %s", switchID, deviceID)
	}
	if err != nil {
		return false, err
	}
	if !row.Online {
		return false, inventory.ErrDeviceOffline
	}
	return row.State, nil
}
