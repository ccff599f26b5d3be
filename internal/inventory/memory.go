// Package inventory is an in-process device catalog and controller, seeded
// from YAML. It backs development setups and tests that run without
// Postgres.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/autovolt/voice-bridge-go/internal/model"
)

var ErrDeviceOffline = errors.New("device offline")

type Inventory struct {
	mu      sync.RWMutex
	devices []model.Device
	index   map[string]int
	now     func() time.Time
}

func New(devices []model.Device) *Inventory {
	inv := &Inventory{now: time.Now}
	inv.Replace(devices)
	return inv
}

// Replace swaps the whole catalog.
func (inv *Inventory) Replace(devices []model.Device) {
	copied := make([]model.Device, len(devices))
	for i := range devices {
		d := devices[i].Clone()
		for j := range d.Switches {
			d.Switches[j].DeviceID = d.ID
			d.Switches[j].Type = model.NormalizeSwitchType(string(d.Switches[j].Type))
		}
		copied[i] = *d
	}
	sort.Slice(copied, func(i, j int) bool { return copied[i].ID < copied[j].ID })

	index := make(map[string]int, len(copied))
	for i := range copied {
		index[copied[i].ID] = i
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.devices = copied
	inv.index = index
}

func (inv *Inventory) FindByID(_ context.Context, id string, scope model.AccessScope) (*model.Device, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	i, ok := inv.index[id]
	if !ok || !scope.Allows(&inv.devices[i]) {
		return nil, nil
	}
	return inv.devices[i].Clone(), nil
}

func (inv *Inventory) FindAccessible(_ context.Context, scope model.AccessScope) ([]model.Device, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := make([]model.Device, 0, len(inv.devices))
	for i := range inv.devices {
		if scope.Allows(&inv.devices[i]) {
			out = append(out, *inv.devices[i].Clone())
		}
	}
	return out, nil
}

// SetOnline marks a device reachable or not.
func (inv *Inventory) SetOnline(id string, online bool) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	i, ok := inv.index[id]
	if !ok {
		return fmt.Errorf("device %s not found", id)
	}
	inv.devices[i].Online = online
	return nil
}

func (inv *Inventory) lookup(deviceID, switchID string) (*model.Device, *model.Switch, error) {
	i, ok := inv.index[deviceID]
	if !ok {
		return nil, nil, fmt.Errorf("device %s not found", deviceID)
	}
	d := &inv.devices[i]
	if !d.Online {
		return nil, nil, ErrDeviceOffline
	}
	sw := d.FindSwitch(switchID)
	if sw == nil {
		return nil, nil, fmt.Errorf("switch %s not found on device %s", switchID, deviceID)
	}
	return d, sw, nil
}

func (inv *Inventory) SetSwitchState(_ context.Context, deviceID, switchID string, on bool) (bool, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	d, sw, err := inv.lookup(deviceID, switchID)
	if err != nil {
		return false, err
	}
	sw.State = on
	seen := inv.now()
	d.LastSeen = &seen
	return sw.State, nil
}

func (inv *Inventory) ReadSwitchState(_ context.Context, deviceID, switchID string) (bool, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	_, sw, err := inv.lookup(deviceID, switchID)
	if err != nil {
		return false, err
	}
	return sw.State, nil
}
