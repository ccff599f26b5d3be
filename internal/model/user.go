package model

const (
	RoleSuperAdmin = "super-admin"
	RoleAdmin      = "admin"
	RoleDean       = "dean"
	RoleStudent    = "student"
)

var elevatedRoles = map[string]bool{
	RoleSuperAdmin: true,
	RoleAdmin:      true,
	RoleDean:       true,
}

// User is the projection of the identity credential this service relies on.
type User struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	VoiceControl  bool     `json:"voiceControl"`
	AssignedRooms []string `json:"assignedRooms,omitempty"`
}

// CanUseVoice: students need the voice control permission, every other role
// has it implicitly.
func (u *User) CanUseVoice() bool {
	if u.Role == RoleStudent {
		return u.VoiceControl
	}
	return true
}

func (u *User) IsElevated() bool {
	return elevatedRoles[u.Role]
}

// Scope returns the set of devices the user may see and control.
func (u *User) Scope() AccessScope {
	if u.IsElevated() {
		return AccessScope{UserID: u.ID, All: true}
	}
	return AccessScope{UserID: u.ID, Rooms: u.AssignedRooms}
}

// AccessScope restricts inventory queries. All overrides UserID and Rooms.
type AccessScope struct {
	UserID string
	Rooms  []string
	All    bool
}

// FullScope is used by third-party channels, which act on behalf of the
// linked installation rather than a specific user.
func FullScope() AccessScope {
	return AccessScope{All: true}
}

// Allows reports whether a device falls inside the scope.
func (s AccessScope) Allows(d *Device) bool {
	if s.All {
		return true
	}
	for _, u := range d.AssignedUsers {
		if u == s.UserID {
			return true
		}
	}
	for _, r := range s.Rooms {
		if r == d.Classroom {
			return true
		}
	}
	return false
}
