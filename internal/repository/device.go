package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/autovolt/voice-bridge-go/internal/model"
)

// DeviceRepository reads the device catalog. It satisfies the inventory
// contract the voice services depend on.
type DeviceRepository interface {
	FindByID(ctx context.Context, id string, scope model.AccessScope) (*model.Device, error)
	FindAccessible(ctx context.Context, scope model.AccessScope) ([]model.Device, error)
}

type deviceRepo struct {
	db sqlxDB
}

// deviceRow carries the assigned_users array, which model.Device leaves to
// the caller.
type deviceRow struct {
	model.Device
	Users pq.StringArray `db:"assigned_users"`
}

func (r deviceRow) toModel() model.Device {
	d := r.Device
	d.AssignedUsers = []string(r.Users)
	return d
}

const deviceColumns = `id, name, location, classroom, device_type, online, last_seen, assigned_users`

// Rows pass when $1 grants everything, or the user is assigned, or the
// classroom is one of the user's rooms.
const scopeFilter = `($1 OR $2 = ANY(assigned_users) OR classroom = ANY($3))`

func NewDeviceRepository(db *sqlx.DB) DeviceRepository {
	return &deviceRepo{db: db}
}

func (r *deviceRepo) FindByID(ctx context.Context, id string, scope model.AccessScope) (*model.Device, error) {
	var row deviceRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+deviceColumns+` FROM devices
		WHERE id = $4 AND `+scopeFilter,
		scope.All, scope.UserID, pq.Array(scope.Rooms), id)
	found, err := HandleNotFound(&row, err)
	if err != nil || found == nil {
		return nil, err
	}

	device := found.toModel()
	if err := r.attachSwitches(ctx, []*model.Device{&device}); err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *deviceRepo) FindAccessible(ctx context.Context, scope model.AccessScope) ([]model.Device, error) {
	var rows []deviceRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+deviceColumns+` FROM devices
		WHERE `+scopeFilter+`
		ORDER BY id`,
		scope.All, scope.UserID, pq.Array(scope.Rooms))
	if err != nil {
		return nil, err
	}

	devices := make([]model.Device, len(rows))
	ptrs := make([]*model.Device, len(rows))
	for i := range rows {
		devices[i] = rows[i].toModel()
		ptrs[i] = &devices[i]
	}
	if err := r.attachSwitches(ctx, ptrs); err != nil {
		return nil, err
	}
	return devices, nil
}

// attachSwitches loads switches for all devices in one query, keeping each
// device's switch order stable.
func (r *deviceRepo) attachSwitches(ctx context.Context, devices []*model.Device) error {
	if len(devices) == 0 {
		return nil
	}

	ids := make([]string, len(devices))
	byID := make(map[string]*model.Device, len(devices))
	for i, d := range devices {
		ids[i] = d.ID
		byID[d.ID] = d
		d.Switches = []model.Switch{}
	}

	var switches []model.Switch
	err := r.db.SelectContext(ctx, &switches, `
		SELECT device_id, id, name, type, state FROM switches
		WHERE device_id = ANY($1)
		ORDER BY device_id, position, id
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load switches: %w", err)
	}

	for _, sw := range switches {
		sw.Type = model.NormalizeSwitchType(string(sw.Type))
		if d, ok := byID[sw.DeviceID]; ok {
			d.Switches = append(d.Switches, sw)
		}
	}
	return nil
}
