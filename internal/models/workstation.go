package models

// Workstation type values.
const (
	WorkstationStandard = "standard"
	WorkstationPremium  = "premium"
	WorkstationVIP      = "vip"
)

// Workstation status values.
const (
	WorkstationAvailable   = "available"
	WorkstationOccupied    = "occupied"
	WorkstationMaintenance = "maintenance"
)

// Workstation is a chair/booth inside a store. Number is unique per store.
type Workstation struct {
	BaseModel

	StoreID string `gorm:"type:uuid;not null;index:idx_workstation_store_number,unique" json:"store_id"`
	Store   *Store `gorm:"foreignKey:StoreID" json:"store,omitempty"`

	Number string `gorm:"not null;index:idx_workstation_store_number,unique" json:"number"`
	Type   string `gorm:"not null;default:standard" json:"type"`
	Status string `gorm:"not null;default:available;index" json:"status"`

	DiscountPercent int `gorm:"default:0" json:"discount_percent"`

	BarberID *string `gorm:"type:uuid;index" json:"barber_id,omitempty"`
	Barber   *Barber `gorm:"foreignKey:BarberID" json:"barber,omitempty"`
}
