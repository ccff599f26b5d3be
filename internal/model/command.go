package model

type Action string

const (
	ActionOn     Action = "on"
	ActionOff    Action = "off"
	ActionToggle Action = "toggle"
	ActionStatus Action = "status"
)

// Mutating reports whether the action changes switch state.
func (a Action) Mutating() bool {
	return a == ActionOn || a == ActionOff || a == ActionToggle
}

type Channel string

const (
	ChannelGoogle Channel = "google"
	ChannelAlexa  Channel = "alexa"
	ChannelSiri   Channel = "siri"
	ChannelWeb    Channel = "web"
)

// ParseChannel accepts the first-party "assistant" field. Empty and unknown
// values fall back to web.
func ParseChannel(s string) Channel {
	switch c := Channel(s); c {
	case ChannelGoogle, ChannelAlexa, ChannelSiri:
		return c
	default:
		return ChannelWeb
	}
}

// Command is the canonical, platform-neutral request to act on a switch.
// DeviceID, SwitchID and EndpointID are set by channels that address
// devices directly instead of by name.
type Command struct {
	RawText         string  `json:"rawText,omitempty"`
	DeviceNameHint  string  `json:"deviceNameHint,omitempty"`
	SwitchNameHint  string  `json:"switchNameHint,omitempty"`
	RequestedAction Action  `json:"requestedAction,omitempty"`
	SourceChannel   Channel `json:"sourceChannel"`
	ActorUserID     string  `json:"actorUserId,omitempty"`
	DeviceID        string  `json:"deviceId,omitempty"`
	SwitchID        string  `json:"switchId,omitempty"`
	EndpointID      string  `json:"endpointId,omitempty"`
}

type Result struct {
	Success         bool   `json:"success"`
	MatchedDeviceID string `json:"matchedDeviceId,omitempty"`
	MatchedSwitchID string `json:"matchedSwitchId,omitempty"`
	AppliedAction   Action `json:"appliedAction,omitempty"`
	PriorState      *bool  `json:"priorState,omitempty"`
	NewState        *bool  `json:"newState,omitempty"`
	Message         string `json:"message"`
	ErrorKind       string `json:"errorKind,omitempty"`
	ErrorCode       string `json:"errorCode,omitempty"`

	// Names for audit records and platform responses.
	DeviceName string `json:"-"`
	SwitchName string `json:"-"`
}

// Resolution is a concrete (device, switch, action) triple.
type Resolution struct {
	Device *Device
	Switch *Switch
	Action Action
}

// VoiceCommandRequest is the first-party command body.
type VoiceCommandRequest struct {
	Command    string `json:"command"`
	DeviceName string `json:"deviceName"`
	SwitchName string `json:"switchName"`
	Assistant  string `json:"assistant"`
}
