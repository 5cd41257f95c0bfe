package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is an account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:150;not null;uniqueIndex" json:"username"`
	FirstName    string `gorm:"size:150" json:"first_name"`
	LastName     string `gorm:"size:150" json:"last_name"`
	Email        string `gorm:"size:254;index" json:"-"`
	PasswordHash string `gorm:"size:255" json:"-"`
	Provider     string `gorm:"size:32" json:"-"`
	ProviderID   string `gorm:"size:255;index" json:"-"`
	RegisterIP   string `gorm:"size:45" json:"-"`
	// SessionVersion invalidates every issued session token when it changes.
	SessionVersion uint           `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time      `json:"date_joined"`
	UpdatedAt      time.Time      `json:"-"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	Posts          []Post         `gorm:"foreignKey:AuthorID" json:"-"`
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
