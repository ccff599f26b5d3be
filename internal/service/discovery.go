package service

import (
	"context"
	"fmt"

	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/model"
	"github.com/autovolt/voice-bridge-go/internal/platform"
)

// Discovery is the per-platform listing of what a user may control.
type Discovery struct {
	Google any `json:"google"`
	Alexa  any `json:"alexa"`
	Siri   any `json:"siri"`
}

type DiscoveryService struct {
	inventory DeviceInventory
	google    platform.Adapter
	alexa     platform.Adapter
	siri      platform.Adapter
}

func NewDiscoveryService(inventory DeviceInventory, google, alexa, siri platform.Adapter) *DiscoveryService {
	return &DiscoveryService{
		inventory: inventory,
		google:    google,
		alexa:     alexa,
		siri:      siri,
	}
}

// Devices returns the devices visible in scope.
func (s *DiscoveryService) Devices(ctx context.Context, scope model.AccessScope) ([]model.Device, error) {
	devices, err := s.inventory.FindAccessible(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

// Discover builds all three catalogs from a single inventory snapshot.
func (s *DiscoveryService) Discover(ctx context.Context, user *model.User) (*Discovery, error) {
	devices, err := s.Devices(ctx, user.Scope())
	if err != nil {
		return nil, err
	}

	return &Discovery{
		Google: s.google.Catalog(devices),
		Alexa:  s.alexa.Catalog(devices),
		Siri:   s.siri.Catalog(devices),
	}, nil
}

// DeviceStatus reports a device's connectivity and switch states. Devices
// outside the user's scope are reported as not found.
func (s *DiscoveryService) DeviceStatus(ctx context.Context, user *model.User, deviceID string) (*model.DeviceStatus, error) {
	device, err := s.inventory.FindByID(ctx, deviceID, user.Scope())
	if err != nil {
		return nil, fmt.Errorf("find device: %w", err)
	}
	if device == nil {
		return nil, apperrors.DeviceNotFound(deviceID)
	}

	switches := make([]model.SwitchStatus, 0, len(device.Switches))
	for _, sw := range device.Switches {
		switches = append(switches, model.SwitchStatus{
			ID:    sw.ID,
			Name:  sw.Name,
			State: sw.State,
			Type:  sw.Type,
		})
	}

	return &model.DeviceStatus{
		Online:   device.Online,
		Switches: switches,
		LastSeen: device.LastSeen,
	}, nil
}
