package database

import (
	"encoding/json"
	"sort"

	"gorm.io/gorm"

	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/internal/permissions"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Session{},
		&models.AuditLog{},
		&models.MFASecret{},
		&models.CacheEntry{},
		&models.Store{},
		&models.Workstation{},
		&models.Barber{},
		&models.Advertisement{},
		&models.StoreInvitation{},
	)
}

// SeedData populates system roles and syncs permission rows from the registry.
func SeedData(db *gorm.DB) error {
	if err := syncPermissions(db); err != nil {
		return err
	}

	roles := []models.Role{
		{
			BaseModel:   models.BaseModel{ID: "super_admin"},
			Name:        "Super Admin",
			Description: "Platform-wide moderation and management",
			IsSystem:    true,
		},
		{
			BaseModel:   models.BaseModel{ID: "owner"},
			Name:        "Store Owner",
			Description: "Manage owned stores and their resources",
			IsSystem:    true,
		},
		{
			BaseModel:   models.BaseModel{ID: "user"},
			Name:        "User",
			Description: "Standard account access",
			IsSystem:    true,
		},
	}

	for _, role := range roles {
		if err := db.Where(models.Role{BaseModel: models.BaseModel{ID: role.ID}}).Attrs(role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
	}

	grants := map[string][]string{
		"super_admin": {permissions.SuperAdmin},
		"owner": {
			"store.view", "store.manage",
			"workstation.view", "workstation.manage",
			"barber.view", "barber.manage",
			"ad.view", "ad.manage",
		},
		"user": {"store.view", "workstation.view", "barber.view", "ad.view"},
	}

	for roleID, permIDs := range grants {
		var role models.Role
		if err := db.First(&role, "id = ?", roleID).Error; err != nil {
			return err
		}

		perms := make([]models.Permission, 0, len(permIDs))
		if err := db.Find(&perms, "id IN ?", permIDs).Error; err != nil {
			return err
		}

		if err := db.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return err
		}
	}

	return nil
}

func syncPermissions(db *gorm.DB) error {
	registry := permissions.GetAll()

	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		def := registry[id]

		implies, err := json.Marshal(def.Implies)
		if err != nil {
			return err
		}

		row := models.Permission{
			BaseModel:   models.BaseModel{ID: def.ID},
			Module:      def.Module,
			Description: def.Description,
			Implies:     string(implies),
		}

		if err := db.Where(models.Permission{BaseModel: models.BaseModel{ID: def.ID}}).
			Assign(row).FirstOrCreate(&models.Permission{}).Error; err != nil {
			return err
		}
	}

	return nil
}
