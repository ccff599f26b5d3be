package model

import (
	"encoding/json"
	"time"
)

const (
	ActivityActionVoiceCommand   = "voice_command"
	ActivityTriggeredByAssistant = "voice_assistant"
)

type ActivityLog struct {
	ID          string           `db:"id" json:"id"`
	Action      string           `db:"action" json:"action"`
	TriggeredBy string           `db:"triggered_by" json:"triggeredBy"`
	UserID      string           `db:"user_id" json:"userId"`
	UserName    string           `db:"user_name" json:"userName"`
	DeviceID    *string          `db:"device_id" json:"deviceId,omitempty"`
	Details     string           `db:"details" json:"details"`
	IP          string           `db:"ip" json:"ip"`
	UserAgent   string           `db:"user_agent" json:"userAgent"`
	Metadata    *json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
}

type ActivityMetadata struct {
	Assistant   Channel             `json:"assistant"`
	Command     string              `json:"command"`
	DeviceName  string              `json:"deviceName,omitempty"`
	SwitchName  string              `json:"switchName,omitempty"`
	Result      bool                `json:"result"`
	ErrorKind   string              `json:"errorKind,omitempty"`
	SessionInfo ActivitySessionInfo `json:"sessionInfo"`
}

type ActivitySessionInfo struct {
	CommandCount int64 `json:"commandCount"`
	// SessionAge is in milliseconds.
	SessionAge int64 `json:"sessionAge"`
}
