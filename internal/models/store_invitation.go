package models

import "time"

// Invitation status values. Expiry is implicit: a pending invitation whose
// ExpiresAt has passed no longer resolves, without a stored transition.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusRevoked  = "revoked"
)

// StoreInvitation grants a prospective barber membership in a store. Only the
// sha256 hash of the token is stored; the raw token lives in the emailed link.
type StoreInvitation struct {
	BaseModel

	StoreID string `gorm:"type:uuid;not null;index" json:"store_id"`
	Store   *Store `gorm:"foreignKey:StoreID" json:"store,omitempty"`

	Email     string `gorm:"not null;index" json:"email"`
	TokenHash string `gorm:"uniqueIndex;not null" json:"-"`
	Status    string `gorm:"not null;default:pending;index" json:"status"`

	InvitedBy string `gorm:"type:uuid" json:"invited_by"`

	BarberName string `json:"barber_name"`
	Specialty  string `json:"specialty"`

	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
	RevokedAt  *time.Time `json:"revoked_at"`
}
