package domain

import (
	"slices"
	"time"
)

type Role string

const (
	RoleUser        Role = "USER"
	RoleAdmin       Role = "ADMIN"
	RoleVerificator Role = "VERIFICATOR"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

var (
	AdminRoles    = []Role{RoleAdmin}
	ReviewerRoles = []Role{RoleAdmin, RoleVerificator}
)

type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Version      int32      `json:"-"`
}

// IsAuthorized reports whether role is one of allowed.
func IsAuthorized(role Role, allowed ...Role) bool {
	return slices.Contains(allowed, role)
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

func (u *User) IsReviewer() bool {
	return IsAuthorized(u.Role, ReviewerRoles...)
}
