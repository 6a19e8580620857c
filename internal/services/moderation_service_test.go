package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	iauth "github.com/barberhq/barberhq/internal/auth"
	"github.com/barberhq/barberhq/internal/auth/providers"
	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/internal/permissions"
	"github.com/barberhq/barberhq/pkg/crypto"
)

func TestModerationBanRevokesSessionsAndBlocksLogin(t *testing.T) {
	db := openModerationTestDB(t)
	svc, sessions := newModerationService(t, db)

	admin := createModerationUser(t, db, "admin", true)
	target := createModerationUser(t, db, "victim", false)

	pair, _, err := sessions.CreateSession(target.ID, iauth.SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, svc.Ban(context.Background(), admin.ID, target.ID))

	// Existing refresh tokens stop working.
	_, _, err = sessions.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, iauth.ErrSessionRevoked)

	// Sign-in with valid credentials now fails with the banned error.
	local, err := providers.NewLocalProvider(db, providers.LocalConfig{})
	require.NoError(t, err)
	_, err = local.Authenticate(providers.AuthenticateInput{
		Identifier: target.Username,
		Password:   "secret123!",
	})
	require.ErrorIs(t, err, providers.ErrAccountBanned)

	// Banning again is a conflict, not a double transition.
	require.ErrorIs(t, svc.Ban(context.Background(), admin.ID, target.ID), ErrAccountAlreadyBanned)
}

func TestModerationReactivateRestoresSignIn(t *testing.T) {
	db := openModerationTestDB(t)
	svc, _ := newModerationService(t, db)

	admin := createModerationUser(t, db, "admin", true)
	target := createModerationUser(t, db, "victim", false)

	require.NoError(t, svc.Ban(context.Background(), admin.ID, target.ID))
	require.NoError(t, svc.Reactivate(context.Background(), admin.ID, target.ID))

	local, err := providers.NewLocalProvider(db, providers.LocalConfig{})
	require.NoError(t, err)
	user, err := local.Authenticate(providers.AuthenticateInput{
		Identifier: target.Username,
		Password:   "secret123!",
	})
	require.NoError(t, err)
	require.Equal(t, target.ID, user.ID)

	// Reactivating an active account is a conflict.
	require.ErrorIs(t, svc.Reactivate(context.Background(), admin.ID, target.ID), ErrAccountNotBanned)
}

func TestModerationDeleteIsIrreversible(t *testing.T) {
	db := openModerationTestDB(t)
	svc, sessions := newModerationService(t, db)

	admin := createModerationUser(t, db, "admin", true)
	target := createModerationUser(t, db, "victim", false)

	pair, _, err := sessions.CreateSession(target.ID, iauth.SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), admin.ID, target.ID))

	_, _, err = sessions.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, iauth.ErrSessionNotFound)

	// Sign-in fails exactly like a nonexistent account.
	local, err := providers.NewLocalProvider(db, providers.LocalConfig{})
	require.NoError(t, err)
	_, err = local.Authenticate(providers.AuthenticateInput{
		Identifier: target.Username,
		Password:   "secret123!",
	})
	require.ErrorIs(t, err, providers.ErrInvalidCredentials)

	// Moderation against the deleted account reports not found.
	require.ErrorIs(t, svc.Ban(context.Background(), admin.ID, target.ID), ErrUserNotFound)
}

func TestModerationRequiresSuperAdmin(t *testing.T) {
	db := openModerationTestDB(t)
	svc, _ := newModerationService(t, db)

	caller := createModerationUser(t, db, "pleb", false)
	target := createModerationUser(t, db, "victim", false)

	require.ErrorIs(t, svc.Ban(context.Background(), caller.ID, target.ID), ErrModerationForbidden)
	require.ErrorIs(t, svc.Reactivate(context.Background(), caller.ID, target.ID), ErrModerationForbidden)
	require.ErrorIs(t, svc.Delete(context.Background(), caller.ID, target.ID), ErrModerationForbidden)
	_, err := svc.Impersonate(context.Background(), caller.ID, target.ID, iauth.SessionMetadata{})
	require.ErrorIs(t, err, ErrModerationForbidden)

	// The denied attempt changed nothing.
	var fresh models.User
	require.NoError(t, db.First(&fresh, "id = ?", target.ID).Error)
	require.Equal(t, models.AccountActive, fresh.Status)
}

func TestModerationRootAccountImmutable(t *testing.T) {
	db := openModerationTestDB(t)
	svc, _ := newModerationService(t, db)

	admin := createModerationUser(t, db, "admin", true)
	root := createModerationUser(t, db, "root", true)

	require.ErrorIs(t, svc.Ban(context.Background(), admin.ID, root.ID), ErrRootUserImmutable)
	require.ErrorIs(t, svc.Delete(context.Background(), admin.ID, root.ID), ErrRootUserImmutable)
}

func TestModerationImpersonateCarriesActClaim(t *testing.T) {
	db := openModerationTestDB(t)
	svc, _ := newModerationService(t, db)

	admin := createModerationUser(t, db, "admin", true)
	target := createModerationUser(t, db, "victim", false)

	result, err := svc.Impersonate(context.Background(), admin.ID, target.ID, iauth.SessionMetadata{})
	require.NoError(t, err)
	require.Equal(t, target.ID, result.Target.ID)

	jwtService := newModerationJWT(t)
	claims, err := jwtService.ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, target.ID, claims.UserID)
	require.Equal(t, admin.ID, claims.ImpersonatorID)
	require.True(t, claims.Impersonated())

	var session models.Session
	require.NoError(t, db.First(&session, "id = ?", result.SessionID).Error)
	require.NotNil(t, session.ImpersonatorID)
	require.Equal(t, admin.ID, *session.ImpersonatorID)
}

func TestModerationImpersonateRejectsBannedTarget(t *testing.T) {
	db := openModerationTestDB(t)
	svc, _ := newModerationService(t, db)

	admin := createModerationUser(t, db, "admin", true)
	target := createModerationUser(t, db, "victim", false)

	require.NoError(t, svc.Ban(context.Background(), admin.ID, target.ID))

	_, err := svc.Impersonate(context.Background(), admin.ID, target.ID, iauth.SessionMetadata{})
	require.ErrorIs(t, err, ErrImpersonateBanned)
}

func newModerationJWT(t *testing.T) *iauth.JWTService {
	t.Helper()

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "moderation-test-secret", Issuer: "test"})
	require.NoError(t, err)
	return jwtService
}

func newModerationService(t *testing.T, db *gorm.DB) (*ModerationService, *iauth.SessionService) {
	t.Helper()

	sessions, err := iauth.NewSessionService(db, newModerationJWT(t), iauth.SessionConfig{})
	require.NoError(t, err)

	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	audit, err := NewAuditService(db)
	require.NoError(t, err)

	svc, err := NewModerationService(db, checker, sessions, audit)
	require.NoError(t, err)

	return svc, sessions
}

func createModerationUser(t *testing.T, db *gorm.DB, username string, root bool) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword("secret123!")
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		IsRoot:   root,
		Status:   models.AccountActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func openModerationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Session{},
		&models.MFASecret{},
		&models.AuditLog{},
		&models.Store{},
		&models.Barber{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
