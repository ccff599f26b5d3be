package service

import (
	"context"

	"github.com/autovolt/voice-bridge-go/internal/model"
)

// DeviceInventory is the read side of the device catalog. Implementations
// apply the scope filter themselves and return copies.
type DeviceInventory interface {
	// FindByID returns nil when the device does not exist or is outside scope.
	FindByID(ctx context.Context, id string, scope model.AccessScope) (*model.Device, error)
	FindAccessible(ctx context.Context, scope model.AccessScope) ([]model.Device, error)
}

// DeviceController drives the hardware. Any error means the device could
// not be reached.
type DeviceController interface {
	SetSwitchState(ctx context.Context, deviceID, switchID string, on bool) (bool, error)
	ReadSwitchState(ctx context.Context, deviceID, switchID string) (bool, error)
}

type ActivityLogger interface {
	Append(ctx context.Context, entry model.ActivityLog) error
}
