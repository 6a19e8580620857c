package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/internal/permissions"
)

func TestAdvertisementCreateValidatesWindow(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newAdService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	start := time.Now()
	end := start.Add(-time.Hour)
	_, err := svc.Create(context.Background(), owner.ID, CreateAdvertisementInput{
		StoreID:  store.ID,
		Title:    "Backwards",
		StartsAt: &start,
		EndsAt:   &end,
	})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), owner.ID, CreateAdvertisementInput{
		StoreID:   store.ID,
		Title:     "Summer Cuts",
		Placement: "nowhere",
	})
	require.Error(t, err)

	ad, err := svc.Create(context.Background(), owner.ID, CreateAdvertisementInput{
		StoreID:  store.ID,
		Title:    "Summer Cuts",
		Metadata: map[string]any{"color": "teal"},
	})
	require.NoError(t, err)
	require.Equal(t, models.AdPlacementHome, ad.Placement)
	require.JSONEq(t, `{"color":"teal"}`, string(ad.Metadata))
}

func TestAdvertisementListActiveRespectsWindow(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newAdService(t, db)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	owner := createStoreTestUser(t, db, "owner", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	past := now.Add(-48 * time.Hour)
	recent := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	seed := []models.Advertisement{
		{StoreID: store.ID, Title: "live open-ended", Placement: models.AdPlacementHome, IsActive: true},
		{StoreID: store.ID, Title: "live windowed", Placement: models.AdPlacementHome, IsActive: true, StartsAt: &recent, EndsAt: &future},
		{StoreID: store.ID, Title: "expired", Placement: models.AdPlacementHome, IsActive: true, StartsAt: &past, EndsAt: &recent},
		{StoreID: store.ID, Title: "not yet", Placement: models.AdPlacementHome, IsActive: true, StartsAt: &future},
		{StoreID: store.ID, Title: "disabled", Placement: models.AdPlacementHome, IsActive: false},
		{StoreID: store.ID, Title: "other surface", Placement: models.AdPlacementSearch, IsActive: true},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	ads, err := svc.ListActive(context.Background(), models.AdPlacementHome)
	require.NoError(t, err)
	require.Len(t, ads, 2)
	for _, ad := range ads {
		require.Contains(t, []string{"live open-ended", "live windowed"}, ad.Title)
	}

	all, err := svc.ListActive(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestAdvertisementMutationsEnforceOwnership(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newAdService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	intruder := createStoreTestUser(t, db, "intruder", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	ad, err := svc.Create(context.Background(), owner.ID, CreateAdvertisementInput{
		StoreID: store.ID,
		Title:   "Summer Cuts",
	})
	require.NoError(t, err)

	title := "Hijacked"
	_, err = svc.Update(context.Background(), intruder.ID, ad.ID, UpdateAdvertisementInput{Title: &title})
	require.ErrorIs(t, err, ErrNotOwner)

	require.ErrorIs(t, svc.Delete(context.Background(), intruder.ID, ad.ID), ErrNotOwner)

	var fresh models.Advertisement
	require.NoError(t, db.First(&fresh, "id = ?", ad.ID).Error)
	require.Equal(t, "Summer Cuts", fresh.Title)

	require.NoError(t, svc.Delete(context.Background(), owner.ID, ad.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), owner.ID, ad.ID), ErrAdvertisementNotFound)
}

func newAdService(t *testing.T, db *gorm.DB) *AdvertisementService {
	t.Helper()

	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	svc, err := NewAdvertisementService(db, checker, nil)
	require.NoError(t, err)
	return svc
}
