package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/internal/permissions"
)

func TestWorkstationCreateInOwnedStore(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newWorkstationService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	ws, err := svc.Create(context.Background(), owner.ID, CreateWorkstationInput{
		StoreID: store.ID,
		Number:  "A001",
		Type:    models.WorkstationStandard,
	})
	require.NoError(t, err)
	require.Equal(t, "A001", ws.Number)
	require.Equal(t, store.ID, ws.StoreID)
	require.Equal(t, models.WorkstationAvailable, ws.Status)
	require.NotEmpty(t, ws.ID)
}

func TestWorkstationCreateRejectsForeignStore(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newWorkstationService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	intruder := createStoreTestUser(t, db, "intruder", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	_, err := svc.Create(context.Background(), intruder.ID, CreateWorkstationInput{
		StoreID: store.ID,
		Number:  "A001",
	})
	require.ErrorIs(t, err, ErrNotOwner)

	var count int64
	require.NoError(t, db.Model(&models.Workstation{}).Where("store_id = ?", store.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestWorkstationDuplicateNumberPerStore(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newWorkstationService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	storeA := createTestStore(t, db, owner.ID, "Fade Factory")
	storeB := createTestStore(t, db, owner.ID, "Clip Joint")

	_, err := svc.Create(context.Background(), owner.ID, CreateWorkstationInput{StoreID: storeA.ID, Number: "A001"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), owner.ID, CreateWorkstationInput{StoreID: storeA.ID, Number: "A001"})
	require.Error(t, err)

	// Same number in a different store is fine.
	_, err = svc.Create(context.Background(), owner.ID, CreateWorkstationInput{StoreID: storeB.ID, Number: "A001"})
	require.NoError(t, err)
}

func TestWorkstationDiscountBounds(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newWorkstationService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	_, err := svc.Create(context.Background(), owner.ID, CreateWorkstationInput{
		StoreID:         store.ID,
		Number:          "A001",
		DiscountPercent: 120,
	})
	require.Error(t, err)

	ws, err := svc.Create(context.Background(), owner.ID, CreateWorkstationInput{
		StoreID:         store.ID,
		Number:          "A001",
		DiscountPercent: 25,
	})
	require.NoError(t, err)

	bad := -1
	_, err = svc.Update(context.Background(), owner.ID, ws.ID, UpdateWorkstationInput{DiscountPercent: &bad})
	require.Error(t, err)
}

func TestWorkstationUpdateEnforcesOwnership(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newWorkstationService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	intruder := createStoreTestUser(t, db, "intruder", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	ws, err := svc.Create(context.Background(), owner.ID, CreateWorkstationInput{StoreID: store.ID, Number: "A001"})
	require.NoError(t, err)

	status := models.WorkstationMaintenance
	_, err = svc.Update(context.Background(), intruder.ID, ws.ID, UpdateWorkstationInput{Status: &status})
	require.ErrorIs(t, err, ErrNotOwner)

	var fresh models.Workstation
	require.NoError(t, db.First(&fresh, "id = ?", ws.ID).Error)
	require.Equal(t, models.WorkstationAvailable, fresh.Status)

	updated, err := svc.Update(context.Background(), owner.ID, ws.ID, UpdateWorkstationInput{Status: &status})
	require.NoError(t, err)
	require.Equal(t, models.WorkstationMaintenance, updated.Status)

	_, err = svc.Update(context.Background(), owner.ID, "missing", UpdateWorkstationInput{Status: &status})
	require.ErrorIs(t, err, ErrWorkstationNotFound)
}

func TestWorkstationAssignAndReleaseBarber(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newWorkstationService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")
	other := createTestStore(t, db, owner.ID, "Clip Joint")

	ws, err := svc.Create(context.Background(), owner.ID, CreateWorkstationInput{StoreID: store.ID, Number: "A001"})
	require.NoError(t, err)

	barber := &models.Barber{StoreID: store.ID, DisplayName: "Zed", IsActive: true}
	require.NoError(t, db.Create(barber).Error)
	foreign := &models.Barber{StoreID: other.ID, DisplayName: "Far", IsActive: true}
	require.NoError(t, db.Create(foreign).Error)

	_, err = svc.AssignBarber(context.Background(), owner.ID, ws.ID, foreign.ID)
	require.ErrorIs(t, err, ErrBarberStoreMismatch)

	assigned, err := svc.AssignBarber(context.Background(), owner.ID, ws.ID, barber.ID)
	require.NoError(t, err)
	require.Equal(t, models.WorkstationOccupied, assigned.Status)
	require.NotNil(t, assigned.BarberID)
	require.Equal(t, barber.ID, *assigned.BarberID)

	released, err := svc.ReleaseBarber(context.Background(), owner.ID, ws.ID)
	require.NoError(t, err)
	require.Equal(t, models.WorkstationAvailable, released.Status)
	require.Nil(t, released.BarberID)
}

func TestWorkstationDeleteEnforcesOwnership(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newWorkstationService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	intruder := createStoreTestUser(t, db, "intruder", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	ws, err := svc.Create(context.Background(), owner.ID, CreateWorkstationInput{StoreID: store.ID, Number: "A001"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(context.Background(), intruder.ID, ws.ID), ErrNotOwner)
	require.NoError(t, svc.Delete(context.Background(), owner.ID, ws.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), owner.ID, ws.ID), ErrWorkstationNotFound)
}

func newWorkstationService(t *testing.T, db *gorm.DB) *WorkstationService {
	t.Helper()

	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	svc, err := NewWorkstationService(db, checker, nil)
	require.NoError(t, err)
	return svc
}

func createTestStore(t *testing.T, db *gorm.DB, ownerID, name string) *models.Store {
	t.Helper()

	store := &models.Store{
		OwnerID:  ownerID,
		Name:     name,
		Slug:     slugify(name),
		IsActive: true,
	}
	require.NoError(t, db.Create(store).Error)
	return store
}
