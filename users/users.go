package users

import "time"

// RoleType represents a user's role within WorkNest.
type RoleType string

const (
	// RoleUser is a regular employee, assignable to tasks
	RoleUser RoleType = "ROLE_USER"
	// RoleProjectManager can create and manage projects and stages
	RoleProjectManager RoleType = "ROLE_PROJECT_MANAGER"
	// RoleAdmin can additionally administer user accounts
	RoleAdmin RoleType = "ROLE_ADMIN"
)

// User is the account record returned by the identity service. It is cached
// client-side as a read-through copy of the server's authorization response and
// never synthesized locally.
type User struct {
	ID        string    `json:"id,omitempty"`        // Unique identifier for the user
	Email     string    `json:"email,omitempty"`     // User's email address
	Role      RoleType  `json:"role,omitempty"`      // Role assigned by the server
	FirstName string    `json:"firstName,omitempty"` // First name of the user
	LastName  string    `json:"lastName,omitempty"`  // Last name of the user
	Verified  bool      `json:"verified,omitempty"`  // Verified, has the user confirmed their email
	CreatedAt time.Time `json:"createdAt,omitempty"` // When the account was created
	UpdatedAt time.Time `json:"updatedAt,omitempty"` // Last server-side modification
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin returns true if the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsManager returns true if the user holds the manager role or above.
func (u *User) IsManager() bool {
	return u.Role == RoleProjectManager || u.Role == RoleAdmin
}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r RoleType) bool {
	switch r {
	case RoleUser, RoleProjectManager, RoleAdmin:
		return true
	}
	return false
}
