package platform

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/model"
)

const (
	alexaPayloadVersion = "3"

	alexaNamespaceBase      = "Alexa"
	alexaNamespaceDiscovery = "Alexa.Discovery"
	alexaNamespacePower     = "Alexa.PowerController"
	alexaNamespaceAuth      = "Alexa.Authorization"
)

type alexaRequest struct {
	Directive *alexaDirective `json:"directive"`
}

type alexaDirective struct {
	Header   AlexaHeader     `json:"header"`
	Endpoint *alexaEndpoint  `json:"endpoint,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type AlexaHeader struct {
	Namespace        string `json:"namespace"`
	Name             string `json:"name"`
	MessageID        string `json:"messageId"`
	CorrelationToken string `json:"correlationToken,omitempty"`
	PayloadVersion   string `json:"payloadVersion"`
}

type alexaEndpoint struct {
	EndpointID string `json:"endpointId"`
}

type alexaEnvelope struct {
	Header     AlexaHeader
	EndpointID string
}

type AlexaEndpoint struct {
	EndpointID        string            `json:"endpointId"`
	ManufacturerName  string            `json:"manufacturerName"`
	FriendlyName      string            `json:"friendlyName"`
	Description       string            `json:"description"`
	DisplayCategories []string          `json:"displayCategories"`
	Capabilities      []AlexaCapability `json:"capabilities"`
}

type AlexaCapability struct {
	Type       string                `json:"type"`
	Interface  string                `json:"interface"`
	Version    string                `json:"version"`
	Properties *AlexaCapabilityProps `json:"properties,omitempty"`
}

type AlexaCapabilityProps struct {
	Supported           []map[string]string `json:"supported"`
	ProactivelyReported bool                `json:"proactivelyReported"`
	Retrievable         bool                `json:"retrievable"`
}

type alexaEvent struct {
	Context *alexaContext `json:"context,omitempty"`
	Event   alexaEventBody `json:"event"`
}

type alexaEventBody struct {
	Header   AlexaHeader    `json:"header"`
	Endpoint *alexaEndpoint `json:"endpoint,omitempty"`
	Payload  any            `json:"payload"`
}

type alexaContext struct {
	Properties []alexaProperty `json:"properties"`
}

type alexaProperty struct {
	Namespace                 string `json:"namespace"`
	Name                      string `json:"name"`
	Value                     string `json:"value"`
	TimeOfSample              string `json:"timeOfSample"`
	UncertaintyInMilliseconds int    `json:"uncertaintyInMilliseconds"`
}

type AlexaConfig struct {
	Manufacturer string
}

// AlexaAdapter speaks the Alexa smart-home skill directive protocol.
type AlexaAdapter struct {
	cfg       AlexaConfig
	messageID func() string
	now       func() time.Time
}

var _ Adapter = (*AlexaAdapter)(nil)

func NewAlexaAdapter(cfg AlexaConfig) *AlexaAdapter {
	return &AlexaAdapter{
		cfg:       cfg,
		messageID: uuid.NewString,
		now:       time.Now,
	}
}

func (a *AlexaAdapter) Channel() model.Channel {
	return model.ChannelAlexa
}

func (a *AlexaAdapter) ParseInbound(body []byte) (*Inbound, error) {
	in := &Inbound{Envelope: alexaEnvelope{}}

	var req alexaRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return in, apperrors.ValidationError("Malformed Alexa request body")
	}
	if req.Directive == nil {
		return in, apperrors.MissingRequired("directive")
	}

	env := alexaEnvelope{Header: req.Directive.Header}
	if req.Directive.Endpoint != nil {
		env.EndpointID = req.Directive.Endpoint.EndpointID
	}
	in.Envelope = env

	h := req.Directive.Header
	switch {
	case h.Namespace == alexaNamespaceDiscovery && h.Name == "Discover":
		in.Kind = KindDiscovery
	case h.Namespace == alexaNamespacePower && (h.Name == "TurnOn" || h.Name == "TurnOff"):
		if env.EndpointID == "" {
			return in, apperrors.MissingRequired("endpoint.endpointId")
		}
		action := model.ActionOn
		if h.Name == "TurnOff" {
			action = model.ActionOff
		}
		in.Kind = KindExecute
		in.Commands = []model.Command{commandForEndpoint(model.ChannelAlexa, env.EndpointID, action)}
	case h.Namespace == alexaNamespaceBase && h.Name == "ReportState":
		if env.EndpointID == "" {
			return in, apperrors.MissingRequired("endpoint.endpointId")
		}
		in.Kind = KindQuery
		in.Commands = []model.Command{commandForEndpoint(model.ChannelAlexa, env.EndpointID, model.ActionStatus)}
	case h.Namespace == alexaNamespaceAuth:
		return in, apperrors.ValidationError("Account linking grants are not supported")
	default:
		return in, apperrors.ValidationError("Unsupported directive: " + h.Namespace + "." + h.Name)
	}

	return in, nil
}

func (a *AlexaAdapter) Catalog(devices []model.Device) any {
	out := make([]AlexaEndpoint, 0, len(devices))
	for i := range devices {
		d := &devices[i]
		for j := range d.Switches {
			sw := &d.Switches[j]
			if !Addressable(sw.ID) {
				skipUnaddressable(model.ChannelAlexa, d.ID, sw.ID)
				continue
			}
			out = append(out, AlexaEndpoint{
				EndpointID:        CompositeID(d.ID, sw.ID),
				ManufacturerName:  a.cfg.Manufacturer,
				FriendlyName:      displayName(d, sw),
				Description:       spokenName(d.Location, sw.Name),
				DisplayCategories: []string{"SWITCH"},
				Capabilities: []AlexaCapability{
					{Type: "AlexaInterface", Interface: alexaNamespacePower, Version: alexaPayloadVersion,
						Properties: &AlexaCapabilityProps{
							Supported:   []map[string]string{{"name": "powerState"}},
							Retrievable: true,
						}},
					{Type: "AlexaInterface", Interface: alexaNamespaceBase, Version: alexaPayloadVersion},
				},
			})
		}
	}
	return out
}

func (a *AlexaAdapter) FormatDiscovery(in *Inbound, devices []model.Device) any {
	return alexaEvent{
		Event: alexaEventBody{
			Header: AlexaHeader{
				Namespace:      alexaNamespaceDiscovery,
				Name:           "Discover.Response",
				MessageID:      a.messageID(),
				PayloadVersion: alexaPayloadVersion,
			},
			Payload: map[string]any{"endpoints": a.Catalog(devices)},
		},
	}
}

// FormatResult answers a single directive. Alexa directives address exactly
// one endpoint, so only the first outcome is used.
func (a *AlexaAdapter) FormatResult(in *Inbound, outcomes []Outcome) any {
	env := alexaEnvelopeOf(in)
	if len(outcomes) == 0 {
		return a.FormatError(in, apperrors.Internal("No outcome for directive"))
	}

	o := outcomes[0]
	if o.Result == nil || !o.Result.Success {
		return a.errorEvent(env, alexaErrorType(resultCode(o.Result)), resultMessage(o.Result))
	}

	name := "Response"
	if in.Kind == KindQuery {
		name = "StateReport"
	}

	value := "OFF"
	if derefBool(o.Result.NewState) {
		value = "ON"
	}

	return alexaEvent{
		Context: &alexaContext{Properties: []alexaProperty{{
			Namespace:                 alexaNamespacePower,
			Name:                      "powerState",
			Value:                     value,
			TimeOfSample:              a.now().UTC().Format(time.RFC3339),
			UncertaintyInMilliseconds: 500,
		}}},
		Event: alexaEventBody{
			Header: AlexaHeader{
				Namespace:        alexaNamespaceBase,
				Name:             name,
				MessageID:        a.messageID(),
				CorrelationToken: env.Header.CorrelationToken,
				PayloadVersion:   alexaPayloadVersion,
			},
			Endpoint: &alexaEndpoint{EndpointID: env.EndpointID},
			Payload:  map[string]any{},
		},
	}
}

func (a *AlexaAdapter) FormatError(in *Inbound, err error) any {
	message := "An unexpected error occurred"
	if appErr, ok := apperrors.AsAppError(err); ok {
		message = appErr.Message
	}
	return a.errorEvent(alexaEnvelopeOf(in), alexaErrorType(apperrors.GetCode(err)), message)
}

// errorEvent echoes the directive's message id so Alexa can correlate it.
func (a *AlexaAdapter) errorEvent(env alexaEnvelope, errType, message string) alexaEvent {
	return alexaEvent{
		Event: alexaEventBody{
			Header: AlexaHeader{
				Namespace:        alexaNamespaceBase,
				Name:             "ErrorResponse",
				MessageID:        env.Header.MessageID,
				CorrelationToken: env.Header.CorrelationToken,
				PayloadVersion:   alexaPayloadVersion,
			},
			Endpoint: &alexaEndpoint{EndpointID: env.EndpointID},
			Payload: map[string]string{
				"type":    errType,
				"message": message,
			},
		},
	}
}

func alexaEnvelopeOf(in *Inbound) alexaEnvelope {
	if in != nil {
		if env, ok := in.Envelope.(alexaEnvelope); ok {
			return env
		}
	}
	return alexaEnvelope{}
}

func alexaErrorType(code apperrors.ErrorCode) string {
	switch code {
	case apperrors.ErrCodeDeviceNotFound, apperrors.ErrCodeSwitchNotFound:
		return "NO_SUCH_ENDPOINT"
	case apperrors.ErrCodeDeviceOffline:
		return "ENDPOINT_UNREACHABLE"
	case apperrors.ErrCodeActionUnsupported, apperrors.ErrCodeAmbiguousDevice, apperrors.ErrCodeAmbiguousSwitch,
		apperrors.ErrCodeValidation, apperrors.ErrCodeMissingRequired, apperrors.ErrCodePayloadTooLarge:
		return "INVALID_DIRECTIVE"
	default:
		return "INTERNAL_ERROR"
	}
}

func resultMessage(r *model.Result) string {
	if r == nil || r.Message == "" {
		return "An unexpected error occurred"
	}
	return r.Message
}
