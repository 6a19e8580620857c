package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/internal/permissions"
)

func TestBarberCreateAndUpdate(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newBarberService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	intruder := createStoreTestUser(t, db, "intruder", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	_, err := svc.Create(context.Background(), intruder.ID, CreateBarberInput{
		StoreID:     store.ID,
		DisplayName: "Zed",
	})
	require.ErrorIs(t, err, ErrNotOwner)

	barber, err := svc.Create(context.Background(), owner.ID, CreateBarberInput{
		StoreID:     store.ID,
		DisplayName: "Zed",
		Email:       "Zed@Example.com",
		Specialty:   "fades",
	})
	require.NoError(t, err)
	require.Equal(t, "zed@example.com", barber.Email)
	require.True(t, barber.IsActive)

	specialty := "beards"
	_, err = svc.Update(context.Background(), intruder.ID, barber.ID, UpdateBarberInput{Specialty: &specialty})
	require.ErrorIs(t, err, ErrNotOwner)

	updated, err := svc.Update(context.Background(), owner.ID, barber.ID, UpdateBarberInput{Specialty: &specialty})
	require.NoError(t, err)
	require.Equal(t, "beards", updated.Specialty)

	_, err = svc.Update(context.Background(), owner.ID, "missing", UpdateBarberInput{Specialty: &specialty})
	require.ErrorIs(t, err, ErrBarberNotFound)
}

func TestBarberDeleteReleasesWorkstation(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newBarberService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	barber, err := svc.Create(context.Background(), owner.ID, CreateBarberInput{
		StoreID:     store.ID,
		DisplayName: "Zed",
	})
	require.NoError(t, err)

	ws := &models.Workstation{
		StoreID:  store.ID,
		Number:   "A001",
		Type:     models.WorkstationStandard,
		Status:   models.WorkstationOccupied,
		BarberID: &barber.ID,
	}
	require.NoError(t, db.Create(ws).Error)

	require.NoError(t, svc.Delete(context.Background(), owner.ID, barber.ID))

	var fresh models.Workstation
	require.NoError(t, db.First(&fresh, "id = ?", ws.ID).Error)
	require.Nil(t, fresh.BarberID)
	require.Equal(t, models.WorkstationAvailable, fresh.Status)

	require.ErrorIs(t, svc.Delete(context.Background(), owner.ID, barber.ID), ErrBarberNotFound)
}

func newBarberService(t *testing.T, db *gorm.DB) *BarberService {
	t.Helper()

	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	svc, err := NewBarberService(db, checker, nil)
	require.NoError(t, err)
	return svc
}
