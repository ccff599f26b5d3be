package platform

import (
	"encoding/json"
	"strings"

	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/model"
)

const siriIntentDiscover = "discover"

type siriRequest struct {
	Intent     string `json:"intent"`
	DeviceID   string `json:"deviceId"`
	Command    string `json:"command"`
	Parameters struct {
		SwitchID   string `json:"switchId"`
		SwitchName string `json:"switchName"`
	} `json:"parameters"`
}

// Intents that name an action outright. Anything else is inferred from the
// command text.
var siriIntentActions = map[string]model.Action{
	"turn_on":  model.ActionOn,
	"turnon":   model.ActionOn,
	"on":       model.ActionOn,
	"turn_off": model.ActionOff,
	"turnoff":  model.ActionOff,
	"off":      model.ActionOff,
	"toggle":   model.ActionToggle,
	"status":   model.ActionStatus,
	"query":    model.ActionStatus,
}

type SiriDevice struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Location  string       `json:"location"`
	Classroom string       `json:"classroom"`
	Switches  []SiriSwitch `json:"switches"`
}

type SiriSwitch struct {
	ID   string           `json:"id"`
	Name string           `json:"name"`
	Type model.SwitchType `json:"type"`
}

type siriResponse struct {
	Success bool          `json:"success"`
	Devices []SiriDevice  `json:"devices,omitempty"`
	Result  *model.Result `json:"result,omitempty"`
	Message string        `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
	Code    string        `json:"code,omitempty"`
}

// SiriAdapter serves the Shortcuts/HomeKit webhook. Devices are addressed
// by raw device id, never by composite id.
type SiriAdapter struct{}

var _ Adapter = (*SiriAdapter)(nil)

func NewSiriAdapter() *SiriAdapter {
	return &SiriAdapter{}
}

func (a *SiriAdapter) Channel() model.Channel {
	return model.ChannelSiri
}

func (a *SiriAdapter) ParseInbound(body []byte) (*Inbound, error) {
	in := &Inbound{}

	var req siriRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return in, apperrors.ValidationError("Malformed webhook body")
	}

	intent := strings.ToLower(strings.TrimSpace(req.Intent))
	if intent == siriIntentDiscover {
		in.Kind = KindDiscovery
		return in, nil
	}

	if req.DeviceID == "" {
		return in, apperrors.MissingRequired("deviceId")
	}

	action := siriIntentActions[intent]
	if action == "" && req.Command == "" && intent != "" {
		// An unknown intent with no text is carried verbatim and rejected
		// by the executor.
		action = model.Action(intent)
	}

	in.Kind = KindExecute
	if action == model.ActionStatus {
		in.Kind = KindQuery
	}
	in.Commands = []model.Command{{
		RawText:         req.Command,
		SwitchNameHint:  req.Parameters.SwitchName,
		RequestedAction: action,
		SourceChannel:   model.ChannelSiri,
		DeviceID:        req.DeviceID,
		SwitchID:        req.Parameters.SwitchID,
		EndpointID:      req.DeviceID,
	}}
	return in, nil
}

func (a *SiriAdapter) Catalog(devices []model.Device) any {
	out := make([]SiriDevice, 0, len(devices))
	for i := range devices {
		d := &devices[i]
		switches := make([]SiriSwitch, 0, len(d.Switches))
		for _, sw := range d.Switches {
			switches = append(switches, SiriSwitch{ID: sw.ID, Name: sw.Name, Type: sw.Type})
		}
		out = append(out, SiriDevice{
			ID:        d.ID,
			Name:      d.Name,
			Location:  d.Location,
			Classroom: d.Classroom,
			Switches:  switches,
		})
	}
	return out
}

func (a *SiriAdapter) FormatDiscovery(_ *Inbound, devices []model.Device) any {
	return siriResponse{Success: true, Devices: a.Catalog(devices).([]SiriDevice)}
}

func (a *SiriAdapter) FormatResult(_ *Inbound, outcomes []Outcome) any {
	if len(outcomes) == 0 || outcomes[0].Result == nil {
		return siriResponse{Success: false, Error: "No result"}
	}

	r := outcomes[0].Result
	if !r.Success {
		return siriResponse{Success: false, Error: r.Message, Code: r.ErrorCode}
	}
	return siriResponse{Success: true, Result: r, Message: r.Message}
}

func (a *SiriAdapter) FormatError(_ *Inbound, err error) any {
	message := "An unexpected error occurred"
	code := string(apperrors.ErrCodeInternal)
	if appErr, ok := apperrors.AsAppError(err); ok {
		message = appErr.Message
		code = string(appErr.Code)
	}
	return siriResponse{Success: false, Error: message, Code: code}
}
