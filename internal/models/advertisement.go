package models

import (
	"time"

	"gorm.io/datatypes"
)

// Advertisement placement values.
const (
	AdPlacementHome   = "home"
	AdPlacementSearch = "search"
	AdPlacementStore  = "store_page"
)

// Advertisement is a store-owned promotional entry shown on the marketing
// surfaces. Metadata carries free-form display hints (colours, image refs).
type Advertisement struct {
	BaseModel

	StoreID string `gorm:"type:uuid;not null;index" json:"store_id"`
	Store   *Store `gorm:"foreignKey:StoreID" json:"store,omitempty"`

	Title     string         `gorm:"not null" json:"title"`
	Body      string         `json:"body"`
	Placement string         `gorm:"not null;default:home;index" json:"placement"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`

	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	IsActive bool       `gorm:"default:true;index" json:"is_active"`
}
