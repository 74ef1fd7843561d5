package model

import "time"

// Role is the coarse identity role carried in JWT claims. The pipeline
// trusts ids and roles as given by the identity collaborator.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleFaculty Role = "faculty"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTutor || r == RoleFaculty
}

// Account is a minimal identity record used to issue role tokens.
type Account struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest is the credential payload for all roles.
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}
