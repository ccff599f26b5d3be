package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/model"
)

var onOffActions = map[model.Action]bool{
	model.ActionOn:     true,
	model.ActionOff:    true,
	model.ActionToggle: true,
	model.ActionStatus: true,
}

// Actions each switch type accepts. All current hardware is relay-driven,
// so nothing beyond on/off is supported yet.
var switchCapabilities = map[model.SwitchType]map[model.Action]bool{
	model.SwitchTypeLight:     onOffActions,
	model.SwitchTypeFan:       onOffActions,
	model.SwitchTypeOutlet:    onOffActions,
	model.SwitchTypeProjector: onOffActions,
	model.SwitchTypeAC:        onOffActions,
	model.SwitchTypeOther:     onOffActions,
}

// Supports reports whether a switch of type t accepts action.
func Supports(t model.SwitchType, action model.Action) bool {
	caps, ok := switchCapabilities[t]
	if !ok {
		caps = switchCapabilities[model.SwitchTypeOther]
	}
	return caps[action]
}

type Executor struct {
	controller DeviceController
}

func NewExecutor(controller DeviceController) *Executor {
	return &Executor{controller: controller}
}

// Execute applies or reads the resolved switch. Failures are returned as
// execution errors; the caller turns them into a result.
func (e *Executor) Execute(ctx context.Context, res *model.Resolution) (*model.Result, error) {
	device, sw, action := res.Device, res.Switch, res.Action
	label := switchLabel(device, sw)

	if !Supports(sw.Type, action) {
		return nil, apperrors.ActionUnsupported(string(action), string(sw.Type))
	}

	prior, err := e.controller.ReadSwitchState(ctx, device.ID, sw.ID)
	if err != nil {
		log.Warn().Err(err).Str("deviceId", device.ID).Str("switchId", sw.ID).Msg("device read failed")
		return nil, apperrors.DeviceOffline(device.Name, err)
	}

	result := &model.Result{
		Success:         true,
		MatchedDeviceID: device.ID,
		MatchedSwitchID: sw.ID,
		AppliedAction:   action,
		PriorState:      boolPtr(prior),
		DeviceName:      device.Name,
		SwitchName:      sw.Name,
	}

	if action == model.ActionStatus {
		result.NewState = boolPtr(prior)
		result.Message = fmt.Sprintf("%s is %s", label, onOff(prior))
		return result, nil
	}

	target := action == model.ActionOn
	if action == model.ActionToggle {
		target = !prior
	}

	state, err := e.controller.SetSwitchState(ctx, device.ID, sw.ID, target)
	if err != nil {
		log.Warn().Err(err).Str("deviceId", device.ID).Str("switchId", sw.ID).Msg("device control failed")
		return nil, apperrors.DeviceOffline(device.Name, err)
	}

	result.NewState = boolPtr(state)
	result.Message = fmt.Sprintf("Turned %s %s", onOff(state), label)
	return result, nil
}

func switchLabel(device *model.Device, sw *model.Switch) string {
	return device.Name + " " + sw.Name
}

func onOff(state bool) string {
	if state {
		return "on"
	}
	return "off"
}

func boolPtr(b bool) *bool {
	return &b
}
