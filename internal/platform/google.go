package platform

import (
	"encoding/json"

	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/model"
)

const (
	googleIntentSync       = "action.devices.SYNC"
	googleIntentQuery      = "action.devices.QUERY"
	googleIntentExecute    = "action.devices.EXECUTE"
	googleIntentDisconnect = "action.devices.DISCONNECT"

	googleCommandOnOff = "action.devices.commands.OnOff"
	googleTraitOnOff   = "action.devices.traits.OnOff"
)

var googleDeviceTypes = map[model.SwitchType]string{
	model.SwitchTypeLight:     "action.devices.types.LIGHT",
	model.SwitchTypeFan:       "action.devices.types.FAN",
	model.SwitchTypeOutlet:    "action.devices.types.OUTLET",
	model.SwitchTypeProjector: "action.devices.types.SWITCH",
	model.SwitchTypeAC:        "action.devices.types.AC_UNIT",
}

func googleDeviceType(t model.SwitchType) string {
	if v, ok := googleDeviceTypes[t]; ok {
		return v
	}
	return "action.devices.types.SWITCH"
}

type googleRequest struct {
	RequestID string        `json:"requestId"`
	Inputs    []googleInput `json:"inputs"`
}

type googleInput struct {
	Intent  string `json:"intent"`
	Payload struct {
		Devices  []googleDeviceRef `json:"devices"`
		Commands []struct {
			Devices   []googleDeviceRef `json:"devices"`
			Execution []struct {
				Command string         `json:"command"`
				Params  map[string]any `json:"params"`
			} `json:"execution"`
		} `json:"commands"`
	} `json:"payload"`
}

type googleDeviceRef struct {
	ID string `json:"id"`
}

type googleEnvelope struct {
	RequestID string
}

type GoogleDevice struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Traits     []string         `json:"traits"`
	Name       GoogleDeviceName `json:"name"`
	WillReport bool             `json:"willReportState"`
	DeviceInfo GoogleDeviceInfo `json:"deviceInfo"`
}

type GoogleDeviceName struct {
	Name         string   `json:"name"`
	DefaultNames []string `json:"defaultNames"`
	Nicknames    []string `json:"nicknames"`
}

type GoogleDeviceInfo struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	HwVersion    string `json:"hwVersion"`
	SwVersion    string `json:"swVersion"`
}

type googleResponse struct {
	RequestID string `json:"requestId"`
	Payload   any    `json:"payload"`
}

type googleErrorPayload struct {
	ErrorCode   string `json:"errorCode"`
	DebugString string `json:"debugString,omitempty"`
}

type googleCommandResult struct {
	IDs       []string       `json:"ids"`
	Status    string         `json:"status"`
	States    map[string]any `json:"states,omitempty"`
	ErrorCode string         `json:"errorCode,omitempty"`
}

type GoogleConfig struct {
	AgentUserID  string
	Manufacturer string
}

// GoogleAdapter speaks the Google smart-home intent protocol.
type GoogleAdapter struct {
	cfg GoogleConfig
}

var _ Adapter = (*GoogleAdapter)(nil)

func NewGoogleAdapter(cfg GoogleConfig) *GoogleAdapter {
	return &GoogleAdapter{cfg: cfg}
}

func (a *GoogleAdapter) Channel() model.Channel {
	return model.ChannelGoogle
}

func (a *GoogleAdapter) ParseInbound(body []byte) (*Inbound, error) {
	in := &Inbound{Envelope: googleEnvelope{}}

	var req googleRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return in, apperrors.ValidationError("Malformed Google request body")
	}
	in.Envelope = googleEnvelope{RequestID: req.RequestID}

	if len(req.Inputs) == 0 {
		return in, apperrors.MissingRequired("inputs")
	}

	// Google sends one input per request.
	input := req.Inputs[0]
	switch input.Intent {
	case googleIntentSync:
		in.Kind = KindDiscovery
	case googleIntentDisconnect:
		in.Kind = KindDisconnect
	case googleIntentQuery:
		in.Kind = KindQuery
		for _, d := range input.Payload.Devices {
			in.Commands = append(in.Commands, commandForEndpoint(model.ChannelGoogle, d.ID, model.ActionStatus))
		}
	case googleIntentExecute:
		in.Kind = KindExecute
		for _, c := range input.Payload.Commands {
			for _, exec := range c.Execution {
				action := googleAction(exec.Command, exec.Params)
				for _, d := range c.Devices {
					in.Commands = append(in.Commands, commandForEndpoint(model.ChannelGoogle, d.ID, action))
				}
			}
		}
	default:
		return in, apperrors.ValidationError("Unsupported Google intent: " + input.Intent)
	}

	return in, nil
}

// googleAction maps an execution to a canonical action. Commands other than
// OnOff are carried verbatim so the executor reports them as unsupported.
func googleAction(command string, params map[string]any) model.Action {
	if command != googleCommandOnOff {
		return model.Action(command)
	}
	if on, ok := params["on"].(bool); ok {
		if on {
			return model.ActionOn
		}
		return model.ActionOff
	}
	return model.ActionToggle
}

func (a *GoogleAdapter) Catalog(devices []model.Device) any {
	out := make([]GoogleDevice, 0, len(devices))
	for i := range devices {
		d := &devices[i]
		for j := range d.Switches {
			sw := &d.Switches[j]
			if !Addressable(sw.ID) {
				skipUnaddressable(model.ChannelGoogle, d.ID, sw.ID)
				continue
			}
			out = append(out, GoogleDevice{
				ID:     CompositeID(d.ID, sw.ID),
				Type:   googleDeviceType(sw.Type),
				Traits: []string{googleTraitOnOff},
				Name: GoogleDeviceName{
					Name:         displayName(d, sw),
					DefaultNames: []string{spokenName(d.Location, sw.Name)},
					Nicknames:    []string{spokenName(d.Classroom, sw.Name)},
				},
				DeviceInfo: GoogleDeviceInfo{
					Manufacturer: a.cfg.Manufacturer,
					Model:        d.DeviceType,
					HwVersion:    "1.0",
					SwVersion:    "1.0",
				},
			})
		}
	}
	return out
}

func (a *GoogleAdapter) FormatDiscovery(in *Inbound, devices []model.Device) any {
	return googleResponse{
		RequestID: googleRequestID(in),
		Payload: map[string]any{
			"agentUserId": a.cfg.AgentUserID,
			"devices":     a.Catalog(devices),
		},
	}
}

func (a *GoogleAdapter) FormatResult(in *Inbound, outcomes []Outcome) any {
	requestID := googleRequestID(in)

	if in != nil && in.Kind == KindDisconnect {
		return map[string]any{}
	}

	if in != nil && in.Kind == KindQuery {
		states := make(map[string]any, len(outcomes))
		for _, o := range outcomes {
			if o.Result != nil && o.Result.Success {
				states[o.Command.EndpointID] = map[string]any{
					"online": true,
					"status": "SUCCESS",
					"on":     derefBool(o.Result.NewState),
				}
				continue
			}
			states[o.Command.EndpointID] = map[string]any{
				"status":    "ERROR",
				"errorCode": googleErrorCode(resultCode(o.Result)),
			}
		}
		return googleResponse{RequestID: requestID, Payload: map[string]any{"devices": states}}
	}

	commands := make([]googleCommandResult, 0, len(outcomes))
	for _, o := range outcomes {
		ids := []string{o.Command.EndpointID}
		if o.Result != nil && o.Result.Success {
			commands = append(commands, googleCommandResult{
				IDs:    ids,
				Status: "SUCCESS",
				States: map[string]any{"on": derefBool(o.Result.NewState), "online": true},
			})
			continue
		}
		code := resultCode(o.Result)
		status := "ERROR"
		if code == apperrors.ErrCodeDeviceOffline {
			status = "OFFLINE"
		}
		commands = append(commands, googleCommandResult{
			IDs:       ids,
			Status:    status,
			ErrorCode: googleErrorCode(code),
		})
	}
	return googleResponse{RequestID: requestID, Payload: map[string]any{"commands": commands}}
}

func (a *GoogleAdapter) FormatError(in *Inbound, err error) any {
	code := "INTERNAL_ERROR"
	if IsParseError(err) {
		code = googleErrorCode(apperrors.GetCode(err))
	}
	debug := "An unexpected error occurred"
	if appErr, ok := apperrors.AsAppError(err); ok {
		debug = appErr.Message
	}
	return googleResponse{
		RequestID: googleRequestID(in),
		Payload:   googleErrorPayload{ErrorCode: code, DebugString: debug},
	}
}

func googleRequestID(in *Inbound) string {
	if in != nil {
		if env, ok := in.Envelope.(googleEnvelope); ok && env.RequestID != "" {
			return env.RequestID
		}
	}
	return "unknown"
}

func googleErrorCode(code apperrors.ErrorCode) string {
	switch code {
	case apperrors.ErrCodeDeviceNotFound, apperrors.ErrCodeSwitchNotFound:
		return "deviceNotFound"
	case apperrors.ErrCodeDeviceOffline:
		return "deviceOffline"
	case apperrors.ErrCodeActionUnsupported:
		return "functionNotSupported"
	case apperrors.ErrCodeValidation, apperrors.ErrCodeMissingRequired, apperrors.ErrCodePayloadTooLarge:
		return "protocolError"
	default:
		return "hardError"
	}
}

func derefBool(b *bool) bool {
	return b != nil && *b
}
