package domain

import "time"

// Role enumerates account roles.
type Role string

const (
	RoleRegular Role = "REGULAR"
	RoleAgent   Role = "AGENT"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleRegular, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may work tickets.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleAdmin
}

// User is the account record for everyone who talks to the service.
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Actor returns the identity used for policy decisions.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role, Active: u.Active}
}

// Actor is the caller of a workflow operation.
type Actor struct {
	ID     string
	Role   Role
	Active bool
}

// IsAdmin reports whether the actor holds the ADMIN role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
