package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/internal/permissions"
	"github.com/barberhq/barberhq/pkg/mail"
)

func TestInviteCreateStoresOnlyTheHash(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newInviteService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	result, err := svc.Create(context.Background(), owner.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      "New.Barber@Example.com",
		BarberName: "Zed",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, "new.barber@example.com", result.Invitation.Email)
	require.Equal(t, models.InviteStatusPending, result.Invitation.Status)
	require.NotEqual(t, result.Token, result.Invitation.TokenHash)
	require.Equal(t, hashInviteToken(result.Token), result.Invitation.TokenHash)
}

func TestInviteCreateRequiresStoreOwnership(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newInviteService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	intruder := createStoreTestUser(t, db, "intruder", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	_, err := svc.Create(context.Background(), intruder.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      "x@example.com",
		BarberName: "Zed",
	})
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestInviteCreateRejectsDuplicates(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newInviteService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	_, err := svc.Create(context.Background(), owner.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      "zed@example.com",
		BarberName: "Zed",
	})
	require.NoError(t, err)

	// A second pending invitation for the same email is rejected.
	_, err = svc.Create(context.Background(), owner.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      "zed@example.com",
		BarberName: "Zed",
	})
	require.Error(t, err)

	// So is inviting someone already working in the store.
	require.NoError(t, db.Create(&models.Barber{StoreID: store.ID, DisplayName: "Moe", Email: "moe@example.com", IsActive: true}).Error)
	_, err = svc.Create(context.Background(), owner.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      "moe@example.com",
		BarberName: "Moe",
	})
	require.Error(t, err)
}

func TestInviteListByStoreFiltersStatus(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newInviteService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	intruder := createStoreTestUser(t, db, "intruder", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	kept, err := svc.Create(context.Background(), owner.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      "zed@example.com",
		BarberName: "Zed",
	})
	require.NoError(t, err)

	gone, err := svc.Create(context.Background(), owner.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      "moe@example.com",
		BarberName: "Moe",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), owner.ID, gone.Invitation.ID))

	all, err := svc.ListByStore(context.Background(), owner.ID, store.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	pending, err := svc.ListByStore(context.Background(), owner.ID, store.ID, models.InviteStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, kept.Invitation.ID, pending[0].ID)

	_, err = svc.ListByStore(context.Background(), intruder.ID, store.ID, "")
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestInviteAcceptCreatesBarberOnce(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newInviteService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	result, err := svc.Create(context.Background(), owner.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      "zed@example.com",
		BarberName: "Zed",
		Specialty:  "fades",
	})
	require.NoError(t, err)

	barber, err := svc.Accept(context.Background(), result.Token)
	require.NoError(t, err)
	require.Equal(t, store.ID, barber.StoreID)
	require.Equal(t, "Zed", barber.DisplayName)
	require.Equal(t, "fades", barber.Specialty)

	var invite models.StoreInvitation
	require.NoError(t, db.First(&invite, "id = ?", result.Invitation.ID).Error)
	require.Equal(t, models.InviteStatusAccepted, invite.Status)
	require.NotNil(t, invite.AcceptedAt)

	// The second redemption fails and creates no extra barber.
	_, err = svc.Accept(context.Background(), result.Token)
	require.ErrorIs(t, err, ErrInviteNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Barber{}).Where("store_id = ?", store.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestInviteAcceptLinksExistingAccount(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newInviteService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	invited := createStoreTestUser(t, db, "zed", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	result, err := svc.Create(context.Background(), owner.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      invited.Email,
		BarberName: "Zed",
	})
	require.NoError(t, err)

	barber, err := svc.Accept(context.Background(), result.Token)
	require.NoError(t, err)
	require.NotNil(t, barber.UserID)
	require.Equal(t, invited.ID, *barber.UserID)
}

func TestInviteAcceptRejectsExpiredAndRevokedAndUnknown(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newInviteService(t, db)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	owner := createStoreTestUser(t, db, "owner", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	expired, err := svc.Create(context.Background(), owner.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      "late@example.com",
		BarberName: "Late",
	})
	require.NoError(t, err)

	revoked, err := svc.Create(context.Background(), owner.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      "gone@example.com",
		BarberName: "Gone",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), owner.ID, revoked.Invitation.ID))

	// Jump past the expiry window.
	svc.clock = func() time.Time { return now.Add(DefaultInviteTTL + time.Hour) }

	_, err = svc.Accept(context.Background(), expired.Token)
	require.ErrorIs(t, err, ErrInviteNotFound)
	_, err = svc.Accept(context.Background(), revoked.Token)
	require.ErrorIs(t, err, ErrInviteNotFound)
	_, err = svc.Accept(context.Background(), "no-such-token")
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestInviteRevokeOnlyPending(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newInviteService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	result, err := svc.Create(context.Background(), owner.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      "zed@example.com",
		BarberName: "Zed",
	})
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), result.Token)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Revoke(context.Background(), owner.ID, result.Invitation.ID), ErrInviteNotPending)
}

func TestInviteResendRotatesToken(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newInviteService(t, db)

	owner := createStoreTestUser(t, db, "owner", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	first, err := svc.Create(context.Background(), owner.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      "zed@example.com",
		BarberName: "Zed",
	})
	require.NoError(t, err)

	second, err := svc.Resend(context.Background(), owner.ID, first.Invitation.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	// The old token stops resolving; the new one redeems.
	_, err = svc.Accept(context.Background(), first.Token)
	require.ErrorIs(t, err, ErrInviteNotFound)

	_, err = svc.Accept(context.Background(), second.Token)
	require.NoError(t, err)
}

func TestInvitePurgeExpired(t *testing.T) {
	db := openStoreTestDB(t)
	svc := newInviteService(t, db)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	owner := createStoreTestUser(t, db, "owner", false)
	store := createTestStore(t, db, owner.ID, "Fade Factory")

	_, err := svc.Create(context.Background(), owner.ID, CreateInviteInput{
		StoreID:    store.ID,
		Email:      "zed@example.com",
		BarberName: "Zed",
	})
	require.NoError(t, err)

	// Not old enough yet.
	svc.clock = func() time.Time { return now.Add(DefaultInviteTTL) }
	purged, err := svc.PurgeExpired(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	require.Zero(t, purged)

	svc.clock = func() time.Time { return now.Add(DefaultInviteTTL + 31*24*time.Hour) }
	purged, err = svc.PurgeExpired(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
}

type disabledMailer struct{}

func (disabledMailer) Send(ctx context.Context, msg mail.Message) error {
	return mail.ErrSMTPDisabled
}

func newInviteService(t *testing.T, db *gorm.DB) *InviteService {
	t.Helper()

	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	svc, err := NewInviteService(db, checker, nil, disabledMailer{})
	require.NoError(t, err)
	return svc
}
