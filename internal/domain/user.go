package domain

import "time"

// Role names a position in the company hierarchy.
type Role string

const (
	RoleTechnician  Role = "technician"
	RoleCoordinator Role = "coordinator"
	RoleManager     Role = "manager"
	RoleDirector    Role = "director"
	RolePresident   Role = "president"
)

// User is an employee who can sign in.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor returns the identity used for access checks.
func (u *User) Actor() *Actor {
	return &Actor{ID: u.ID, Role: u.Role}
}
