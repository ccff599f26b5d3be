// Package platform translates between third-party smart-home protocols and
// the canonical command and result model.
package platform

import (
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/model"
)

type InboundKind string

const (
	KindDiscovery  InboundKind = "discovery"
	KindExecute    InboundKind = "execute"
	KindQuery      InboundKind = "query"
	KindDisconnect InboundKind = "disconnect"
)

// Inbound is a decoded platform request. Envelope holds the channel's own
// request context (ids to echo back) and is only read by the adapter that
// produced it.
type Inbound struct {
	Kind     InboundKind
	Commands []model.Command
	Envelope any
}

// Outcome pairs a command with the result of running it.
type Outcome struct {
	Command model.Command
	Result  *model.Result
}

type Adapter interface {
	Channel() model.Channel
	// ParseInbound decodes a request body. On error the returned Inbound is
	// still non-nil and carries whatever envelope could be decoded, so the
	// error response can echo the request's ids.
	ParseInbound(body []byte) (*Inbound, error)
	// Catalog is the bare discovery listing for devices.
	Catalog(devices []model.Device) any
	FormatDiscovery(in *Inbound, devices []model.Device) any
	FormatResult(in *Inbound, outcomes []Outcome) any
	FormatError(in *Inbound, err error) any
}

// CompositeID addresses one switch of one device.
func CompositeID(deviceID, switchID string) string {
	return deviceID + "_" + switchID
}

// ParseCompositeID splits at the last underscore, so device ids may contain
// underscores but switch ids may not. An id without one is a bare device id.
func ParseCompositeID(id string) (deviceID, switchID string) {
	i := strings.LastIndex(id, "_")
	if i <= 0 || i == len(id)-1 {
		return id, ""
	}
	return id[:i], id[i+1:]
}

// commandForEndpoint builds a direct-addressed command for a composite id.
func commandForEndpoint(channel model.Channel, endpointID string, action model.Action) model.Command {
	deviceID, switchID := ParseCompositeID(endpointID)
	return model.Command{
		SourceChannel:   channel,
		DeviceID:        deviceID,
		SwitchID:        switchID,
		EndpointID:      endpointID,
		RequestedAction: action,
	}
}

// Addressable reports whether a switch id survives a round trip through
// CompositeID and ParseCompositeID.
func Addressable(switchID string) bool {
	return switchID != "" && !strings.Contains(switchID, "_")
}

func skipUnaddressable(channel model.Channel, deviceID, switchID string) {
	log.Warn().
		Str("channel", string(channel)).
		Str("deviceId", deviceID).
		Str("switchId", switchID).
		Msg("switch id contains an underscore; left out of discovery")
}

// spokenName joins the non-empty parts with single spaces.
func spokenName(parts ...string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func displayName(d *model.Device, sw *model.Switch) string {
	return spokenName(d.Name, sw.Name)
}

// resultCode returns the canonical code of a failed result.
func resultCode(r *model.Result) apperrors.ErrorCode {
	if r == nil || r.ErrorCode == "" {
		return apperrors.ErrCodeInternal
	}
	return apperrors.ErrorCode(r.ErrorCode)
}

// IsParseError reports whether err came from decoding the request rather
// than from running it.
func IsParseError(err error) bool {
	return apperrors.KindOf(err) == apperrors.KindValidation
}
