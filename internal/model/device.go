package model

import "time"

type SwitchType string

const (
	SwitchTypeLight     SwitchType = "light"
	SwitchTypeFan       SwitchType = "fan"
	SwitchTypeOutlet    SwitchType = "outlet"
	SwitchTypeProjector SwitchType = "projector"
	SwitchTypeAC        SwitchType = "ac"
	SwitchTypeOther     SwitchType = "other"
)

// NormalizeSwitchType maps unknown or empty types to SwitchTypeOther.
func NormalizeSwitchType(s string) SwitchType {
	switch t := SwitchType(s); t {
	case SwitchTypeLight, SwitchTypeFan, SwitchTypeOutlet, SwitchTypeProjector, SwitchTypeAC:
		return t
	default:
		return SwitchTypeOther
	}
}

type Device struct {
	ID            string     `db:"id" json:"id" yaml:"id"`
	Name          string     `db:"name" json:"name" yaml:"name"`
	Location      string     `db:"location" json:"location" yaml:"location"`
	Classroom     string     `db:"classroom" json:"classroom" yaml:"classroom"`
	DeviceType    string     `db:"device_type" json:"deviceType" yaml:"deviceType"`
	Online        bool       `db:"online" json:"online" yaml:"online"`
	LastSeen      *time.Time `db:"last_seen" json:"lastSeen,omitempty" yaml:"lastSeen,omitempty"`
	AssignedUsers []string   `db:"-" json:"assignedUsers,omitempty" yaml:"assignedUsers,omitempty"`
	Switches      []Switch   `db:"-" json:"switches" yaml:"switches"`
}

// FindSwitch returns the switch with the given id, or nil.
func (d *Device) FindSwitch(id string) *Switch {
	for i := range d.Switches {
		if d.Switches[i].ID == id {
			return &d.Switches[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the device and its switches.
func (d *Device) Clone() *Device {
	c := *d
	if d.LastSeen != nil {
		t := *d.LastSeen
		c.LastSeen = &t
	}
	c.AssignedUsers = append([]string(nil), d.AssignedUsers...)
	c.Switches = append([]Switch(nil), d.Switches...)
	return &c
}

type Switch struct {
	ID       string     `db:"id" json:"id" yaml:"id"`
	DeviceID string     `db:"device_id" json:"deviceId" yaml:"-"`
	Name     string     `db:"name" json:"name" yaml:"name"`
	Type     SwitchType `db:"type" json:"type" yaml:"type"`
	State    bool       `db:"state" json:"state" yaml:"state"`
}

// SwitchStatus is the per-switch entry of a device status report.
type SwitchStatus struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	State bool       `json:"state"`
	Type  SwitchType `json:"type"`
}

type DeviceStatus struct {
	Online   bool           `json:"online"`
	Switches []SwitchStatus `json:"switches"`
	LastSeen *time.Time     `json:"lastSeen"`
}
