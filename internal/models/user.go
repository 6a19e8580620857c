package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account status values. Deleted accounts are removed outright, so no stored
// state exists for them.
const (
	AccountActive = "active"
	AccountBanned = "banned"
)

// User describes a platform account: store owners, barbers, and operators.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`

	IsRoot bool   `gorm:"default:false" json:"is_root"`
	Status string `gorm:"not null;default:active;index" json:"status"`

	MFAEnabled bool       `gorm:"default:false" json:"mfa_enabled"`
	MFASecret  *MFASecret `gorm:"foreignKey:UserID" json:"-"`

	Roles    []Role    `gorm:"many2many:user_roles;" json:"roles,omitempty"`
	Sessions []Session `gorm:"foreignKey:UserID" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"last_login_ip"`

	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`

	BannedAt *time.Time `json:"banned_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Banned reports whether the account is currently banned.
func (u *User) Banned() bool {
	return u.Status == AccountBanned
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
