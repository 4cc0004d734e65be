package models

// Role is a workflow role granted by the identity provider.
type Role string

const (
	RoleAuthor   Role = "author"
	RoleReviewer Role = "reviewer"
	RoleEditor   Role = "editor"
	RoleAdmin    Role = "admin"
)

// Actor is the authenticated caller of a workflow operation. It is resolved
// per request and passed explicitly into every engine call.
type Actor struct {
	UserID string `json:"user_id"`
	Roles  []Role `json:"roles"`
}

// HasRole reports whether the actor holds role. Admins satisfy every editor check.
func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
		if role == RoleEditor && r == RoleAdmin {
			return true
		}
	}
	return false
}

func (a Actor) IsEditor() bool { return a.HasRole(RoleEditor) }

// ParseRole maps a claim value onto a known role.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleAuthor, RoleReviewer, RoleEditor, RoleAdmin:
		return Role(raw), true
	}
	return "", false
}
