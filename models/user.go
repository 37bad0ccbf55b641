package models

import (
	"time"
)

// Role enum
type Role string

const (
	RolePublic Role = "public"
	RolePolice Role = "police"
	RoleAdmin  Role = "admin"
)

// ValidRole reports whether r is a known role
func ValidRole(r Role) bool {
	switch r {
	case RolePublic, RolePolice, RoleAdmin:
		return true
	}
	return false
}

// User model for authentication and role gating
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Name         *string   `json:"name,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	Role         Role      `gorm:"default:public;index" json:"role"`
	IsActive     bool      `gorm:"default:true" json:"isActive"`
	IsVerified   bool      `gorm:"default:false" json:"isVerified"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
