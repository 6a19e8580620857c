package models

// Store is a barbershop location owned by a single account. The owner (or a
// super-admin) is the only principal allowed to mutate the store and its
// dependent resources.
type Store struct {
	BaseModel

	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner   *User  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	Name     string `gorm:"not null" json:"name"`
	Slug     string `gorm:"uniqueIndex;not null" json:"slug"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Phone    string `json:"phone"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	Workstations   []Workstation   `gorm:"foreignKey:StoreID" json:"workstations,omitempty"`
	Barbers        []Barber        `gorm:"foreignKey:StoreID" json:"barbers,omitempty"`
	Advertisements []Advertisement `gorm:"foreignKey:StoreID" json:"advertisements,omitempty"`
}
