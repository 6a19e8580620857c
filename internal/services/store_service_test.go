package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/internal/permissions"
)

func TestStoreServiceCreateAndGet(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newStoreService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)

	store, err := svc.Create(context.Background(), owner.ID, CreateStoreInput{
		Name:    "Fade Factory",
		Address: "1 Main St",
		City:    "Lisbon",
	})
	require.NoError(t, err)
	require.Equal(t, "fade-factory", store.Slug)
	require.True(t, store.IsActive)

	loaded, err := svc.GetByID(context.Background(), store.ID)
	require.NoError(t, err)
	require.Equal(t, owner.ID, loaded.OwnerID)

	_, err = svc.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrStoreNotFound)
}

func TestStoreServiceDuplicateSlug(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newStoreService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)

	_, err := svc.Create(context.Background(), owner.ID, CreateStoreInput{Name: "Fade Factory"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), owner.ID, CreateStoreInput{Name: "Fade Factory"})
	require.Error(t, err)
}

func TestStoreServiceUpdateEnforcesOwnership(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newStoreService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	intruder := createStoreTestUser(t, db, "intruder", false)

	store, err := svc.Create(context.Background(), owner.ID, CreateStoreInput{Name: "Fade Factory"})
	require.NoError(t, err)

	name := "Stolen"
	_, err = svc.Update(context.Background(), intruder.ID, store.ID, UpdateStoreInput{Name: &name})
	require.ErrorIs(t, err, ErrNotOwner)

	// The denied mutation left the row untouched.
	var fresh models.Store
	require.NoError(t, db.First(&fresh, "id = ?", store.ID).Error)
	require.Equal(t, "Fade Factory", fresh.Name)

	// The owner succeeds; a missing id reports not found.
	updated, err := svc.Update(context.Background(), owner.ID, store.ID, UpdateStoreInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Stolen", updated.Name)

	_, err = svc.Update(context.Background(), owner.ID, "missing", UpdateStoreInput{Name: &name})
	require.ErrorIs(t, err, ErrStoreNotFound)
}

func TestStoreServiceAdminBypassesOwnership(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newStoreService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	admin := createStoreTestUser(t, db, "admin", true)

	store, err := svc.Create(context.Background(), owner.ID, CreateStoreInput{Name: "Fade Factory"})
	require.NoError(t, err)

	city := "Porto"
	updated, err := svc.Update(context.Background(), admin.ID, store.ID, UpdateStoreInput{City: &city})
	require.NoError(t, err)
	require.Equal(t, "Porto", updated.City)
}

func TestStoreServiceDeleteCascades(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newStoreService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	intruder := createStoreTestUser(t, db, "intruder", false)

	store, err := svc.Create(context.Background(), owner.ID, CreateStoreInput{Name: "Fade Factory"})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Workstation{StoreID: store.ID, Number: "A001", Type: models.WorkstationStandard, Status: models.WorkstationAvailable}).Error)
	require.NoError(t, db.Create(&models.Barber{StoreID: store.ID, DisplayName: "Zed"}).Error)

	require.ErrorIs(t, svc.Delete(context.Background(), intruder.ID, store.ID), ErrNotOwner)
	require.NoError(t, svc.Delete(context.Background(), owner.ID, store.ID))

	var count int64
	require.NoError(t, db.Model(&models.Workstation{}).Where("store_id = ?", store.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.Barber{}).Where("store_id = ?", store.ID).Count(&count).Error)
	require.Zero(t, count)

	require.ErrorIs(t, svc.Delete(context.Background(), owner.ID, store.ID), ErrStoreNotFound)
}

func newStoreService(t *testing.T, db *gorm.DB) *StoreService {
	t.Helper()

	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	svc, err := NewStoreService(db, checker, nil)
	require.NoError(t, err)
	return svc
}

func createStoreTestUser(t *testing.T, db *gorm.DB, username string, root bool) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		IsRoot:   root,
		Status:   models.AccountActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func openStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Store{},
		&models.Workstation{},
		&models.Barber{},
		&models.Advertisement{},
		&models.StoreInvitation{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
