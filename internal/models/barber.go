package models

// Barber is a professional attached to a store. UserID is populated once the
// barber's invitation has been accepted and linked to a platform account.
type Barber struct {
	BaseModel

	StoreID string `gorm:"type:uuid;not null;index" json:"store_id"`
	Store   *Store `gorm:"foreignKey:StoreID" json:"store,omitempty"`

	UserID *string `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	DisplayName string `gorm:"not null" json:"display_name"`
	Email       string `gorm:"index" json:"email"`
	Specialty   string `json:"specialty"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
}
