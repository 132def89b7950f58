package model

import "time"

// Role is the coarse authorization tier assigned to a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Status flags whether an account is usable. Inactive accounts are blocked
// at login; previously issued tokens keep verifying until they expire.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// User represents a registered account. Passwords are stored as bcrypt
// hashes and never serialized outbound.
type User struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	FullName     string     `json:"fullName" db:"full_name"`
	PasswordHash string     `json:"-" db:"password_hash"` // bcrypt hash, never expose
	Role         Role       `json:"role" db:"role"`
	Status       Status     `json:"status" db:"status"`
	LastLogin    *time.Time `json:"lastLogin,omitempty" db:"last_login"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// PublicView returns the user as a map suitable for JSON responses. The
// password hash is excluded by the struct tag already; this exists so list
// and detail endpoints serialize a consistent shape.
func (u *User) PublicView() map[string]interface{} {
	m := map[string]interface{}{
		"id":        u.ID,
		"email":     u.Email,
		"fullName":  u.FullName,
		"role":      u.Role,
		"status":    u.Status,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
	if u.LastLogin != nil {
		m["lastLogin"] = u.LastLogin
	}
	return m
}
