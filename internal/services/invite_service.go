package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/internal/permissions"
	"github.com/barberhq/barberhq/pkg/crypto"
	apperrors "github.com/barberhq/barberhq/pkg/errors"
	"github.com/barberhq/barberhq/pkg/logger"
	"github.com/barberhq/barberhq/pkg/mail"
	"github.com/barberhq/barberhq/pkg/metrics"
)

var (
	// ErrInviteNotFound covers every invitation resolution failure: unknown
	// token, expired, revoked, or already accepted. A single error keeps the
	// token endpoint from leaking invitation state.
	ErrInviteNotFound = apperrors.New("INVITE_NOT_FOUND", "Invitation not found or no longer valid", http.StatusNotFound)
	// ErrInviteNotPending rejects resend/revoke on settled invitations.
	ErrInviteNotPending = apperrors.New("INVITE_NOT_PENDING", "Invitation is not pending", http.StatusConflict)
)

// DefaultInviteTTL bounds how long an invitation token stays redeemable.
const DefaultInviteTTL = 7 * 24 * time.Hour

const inviteTokenBytes = 32

// CreateInviteInput describes a new barber invitation.
type CreateInviteInput struct {
	StoreID    string
	Email      string
	BarberName string
	Specialty  string
}

// InviteResult pairs the stored invitation with the raw token. The token is
// only available here; at rest the database holds its sha256 hash.
type InviteResult struct {
	Invitation *models.StoreInvitation
	Token      string
}

// InviteService manages the barber invitation lifecycle: generate, resend,
// revoke, and accept. Acceptance is a single transaction that settles the
// invitation and creates the barber row, so a token can never be redeemed twice.
type InviteService struct {
	db     *gorm.DB
	guard  ownershipGuard
	audit  *AuditService
	mailer mail.Mailer
	ttl    time.Duration
	clock  func() time.Time
}

// InviteOption customises InviteService construction.
type InviteOption func(*InviteService)

// WithInviteTTL overrides the invitation validity window.
func WithInviteTTL(ttl time.Duration) InviteOption {
	return func(s *InviteService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithInviteClock injects a deterministic clock for tests.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *InviteService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewInviteService constructs an InviteService.
func NewInviteService(db *gorm.DB, checker *permissions.Checker, audit *AuditService, mailer mail.Mailer, opts ...InviteOption) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}
	if checker == nil {
		return nil, errors.New("invite service: permission checker is required")
	}

	svc := &InviteService{
		db:     db,
		guard:  ownershipGuard{checker: checker},
		audit:  audit,
		mailer: mailer,
		ttl:    DefaultInviteTTL,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create issues an invitation for a store the caller owns and emails the raw
// token. Mail delivery being disabled is not an error: the token is still
// returned so it can be shared out of band.
func (s *InviteService) Create(ctx context.Context, callerID string, input CreateInviteInput) (*InviteResult, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	if email == "" {
		return nil, apperrors.NewBadRequest("invitee email is required")
	}
	barberName := strings.TrimSpace(input.BarberName)
	if barberName == "" {
		return nil, apperrors.NewBadRequest("barber name is required")
	}

	if err := s.requireStoreOwnership(ctx, callerID, input.StoreID); err != nil {
		return nil, err
	}

	var pending int64
	if err := s.db.WithContext(ctx).Model(&models.StoreInvitation{}).
		Where("store_id = ? AND email = ? AND status = ?", input.StoreID, email, models.InviteStatusPending).
		Count(&pending).Error; err != nil {
		return nil, fmt.Errorf("invite service: check pending invitations: %w", err)
	}
	if pending > 0 {
		return nil, apperrors.NewBadRequest("a pending invitation already exists for this email")
	}

	var members int64
	if err := s.db.WithContext(ctx).Model(&models.Barber{}).
		Where("store_id = ? AND email = ?", input.StoreID, email).
		Count(&members).Error; err != nil {
		return nil, fmt.Errorf("invite service: check store members: %w", err)
	}
	if members > 0 {
		return nil, apperrors.NewBadRequest("this email already belongs to a barber in the store")
	}

	token, hash, err := newInviteToken()
	if err != nil {
		return nil, fmt.Errorf("invite service: generate token: %w", err)
	}

	invite := &models.StoreInvitation{
		StoreID:    input.StoreID,
		Email:      email,
		TokenHash:  hash,
		Status:     models.InviteStatusPending,
		InvitedBy:  callerID,
		BarberName: barberName,
		Specialty:  strings.TrimSpace(input.Specialty),
		ExpiresAt:  s.clock().Add(s.ttl),
	}

	if err := s.db.WithContext(ctx).Create(invite).Error; err != nil {
		return nil, fmt.Errorf("invite service: create invitation: %w", err)
	}

	s.deliver(ctx, invite, token)
	metrics.InviteEvents.WithLabelValues("created").Inc()

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "invite.create",
		Resource: invite.ID,
		Result:   "success",
		Metadata: map[string]any{"store_id": invite.StoreID, "email": invite.Email},
	})

	return &InviteResult{Invitation: invite, Token: token}, nil
}

// ListByStore returns a store's invitations, newest first, optionally
// filtered by status.
func (s *InviteService) ListByStore(ctx context.Context, callerID, storeID, status string) ([]models.StoreInvitation, error) {
	ctx = ensureContext(ctx)

	if err := s.requireStoreOwnership(ctx, callerID, storeID); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Where("store_id = ?", storeID)
	if status = strings.TrimSpace(status); status != "" {
		query = query.Where("status = ?", status)
	}

	var invites []models.StoreInvitation
	if err := query.
		Order("created_at DESC").
		Find(&invites).Error; err != nil {
		return nil, fmt.Errorf("invite service: list invitations: %w", err)
	}
	return invites, nil
}

// Resend rotates the token on a pending invitation and extends its expiry.
// The previous token stops resolving the moment the new hash is stored.
func (s *InviteService) Resend(ctx context.Context, callerID, inviteID string) (*InviteResult, error) {
	ctx = ensureContext(ctx)

	invite, err := s.loadOwned(ctx, callerID, inviteID)
	if err != nil {
		return nil, err
	}

	token, hash, err := newInviteToken()
	if err != nil {
		return nil, fmt.Errorf("invite service: generate token: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&models.StoreInvitation{}).
		Where("id = ? AND status = ?", inviteID, models.InviteStatusPending).
		Updates(map[string]any{
			"token_hash": hash,
			"expires_at": s.clock().Add(s.ttl),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("invite service: rotate token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrInviteNotPending
	}

	if err := s.db.WithContext(ctx).First(invite, "id = ?", inviteID).Error; err != nil {
		return nil, fmt.Errorf("invite service: reload invitation: %w", err)
	}

	s.deliver(ctx, invite, token)

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "invite.resend",
		Resource: invite.ID,
		Result:   "success",
	})

	return &InviteResult{Invitation: invite, Token: token}, nil
}

// Revoke cancels a pending invitation. Settled invitations cannot be revoked.
func (s *InviteService) Revoke(ctx context.Context, callerID, inviteID string) error {
	ctx = ensureContext(ctx)

	if _, err := s.loadOwned(ctx, callerID, inviteID); err != nil {
		return err
	}

	now := s.clock()
	result := s.db.WithContext(ctx).Model(&models.StoreInvitation{}).
		Where("id = ? AND status = ?", inviteID, models.InviteStatusPending).
		Updates(map[string]any{
			"status":     models.InviteStatusRevoked,
			"revoked_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("invite service: revoke invitation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInviteNotPending
	}

	metrics.InviteEvents.WithLabelValues("revoked").Inc()

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "invite.revoke",
		Resource: inviteID,
		Result:   "success",
	})

	return nil
}

// Accept redeems a raw invitation token. Resolution requires the token to be
// pending and unexpired in a single predicate; unknown, expired, revoked, and
// already-accepted tokens all fail identically. On success the invitation is
// settled and the barber row created in one transaction, optionally linked to
// an existing account matching the invited email.
func (s *InviteService) Accept(ctx context.Context, rawToken string) (*models.Barber, error) {
	ctx = ensureContext(ctx)

	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrInviteNotFound
	}
	hash := hashInviteToken(rawToken)

	var barber *models.Barber
	now := s.clock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invite models.StoreInvitation
		err := tx.
			Where("token_hash = ? AND status = ? AND expires_at > ?", hash, models.InviteStatusPending, now).
			First(&invite).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInviteNotFound
		}
		if err != nil {
			return fmt.Errorf("resolve token: %w", err)
		}

		result := tx.Model(&models.StoreInvitation{}).
			Where("id = ? AND status = ?", invite.ID, models.InviteStatusPending).
			Updates(map[string]any{
				"status":      models.InviteStatusAccepted,
				"accepted_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("settle invitation: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// A concurrent redeem won the race.
			return ErrInviteNotFound
		}

		barber = &models.Barber{
			StoreID:     invite.StoreID,
			DisplayName: invite.BarberName,
			Email:       invite.Email,
			Specialty:   invite.Specialty,
			IsActive:    true,
		}

		var user models.User
		err = tx.Select("id").Where("email = ?", invite.Email).First(&user).Error
		if err == nil {
			barber.UserID = &user.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup invited account: %w", err)
		}

		if err := tx.Create(barber).Error; err != nil {
			return fmt.Errorf("create barber: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInviteNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("invite service: accept invitation: %w", err)
	}

	metrics.InviteEvents.WithLabelValues("accepted").Inc()

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "invite.accept",
		Resource: barber.ID,
		Result:   "success",
		Metadata: map[string]any{"store_id": barber.StoreID, "email": barber.Email},
	})

	return barber, nil
}

// PurgeExpired deletes settled and long-expired invitations; run by the
// maintenance scheduler.
func (s *InviteService) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	ctx = ensureContext(ctx)

	cutoff := s.clock().Add(-olderThan)
	result := s.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.InviteStatusPending, cutoff).
		Delete(&models.StoreInvitation{})
	if result.Error != nil {
		return 0, fmt.Errorf("invite service: purge expired: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		metrics.InviteEvents.WithLabelValues("expired_purged").Add(float64(result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// loadOwned fetches an invitation and verifies the caller owns its store.
func (s *InviteService) loadOwned(ctx context.Context, callerID, inviteID string) (*models.StoreInvitation, error) {
	var invite models.StoreInvitation
	err := s.db.WithContext(ctx).First(&invite, "id = ?", inviteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite service: load invitation: %w", err)
	}

	if err := s.requireStoreOwnership(ctx, callerID, invite.StoreID); err != nil {
		return nil, err
	}
	return &invite, nil
}

func (s *InviteService) requireStoreOwnership(ctx context.Context, callerID, storeID string) error {
	if strings.TrimSpace(storeID) == "" {
		return apperrors.NewBadRequest("store id is required")
	}

	admin, err := s.guard.isSuperAdmin(ctx, callerID)
	if err != nil {
		return fmt.Errorf("invite service: %w", err)
	}

	var store models.Store
	err = s.db.WithContext(ctx).Select("id", "owner_id", "name").First(&store, "id = ?", storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrStoreNotFound
	}
	if err != nil {
		return fmt.Errorf("invite service: load store: %w", err)
	}

	if !admin && store.OwnerID != callerID {
		return ErrNotOwner
	}
	return nil
}

// deliver emails the invitation link. Failures are logged, never fatal: the
// raw token is returned to the caller regardless.
func (s *InviteService) deliver(ctx context.Context, invite *models.StoreInvitation, token string) {
	if s.mailer == nil {
		return
	}

	msg := mail.Message{
		To:      []string{invite.Email},
		Subject: "You have been invited to join a barbershop",
		Body: fmt.Sprintf(
			"Hello %s,\n\nYou have been invited to join as a barber. Use the token below to accept:\n\n%s\n\nThis invitation expires on %s.\n",
			invite.BarberName, token, invite.ExpiresAt.Format(time.RFC1123),
		),
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrSMTPDisabled) {
			logger.Debug("invitation email skipped, smtp disabled", zap.String("invite_id", invite.ID))
			return
		}
		logger.Warn("invitation email delivery failed",
			zap.String("invite_id", invite.ID),
			zap.Error(err),
		)
	}
}

func newInviteToken() (token, hash string, err error) {
	token, err = crypto.GenerateToken(inviteTokenBytes)
	if err != nil {
		return "", "", err
	}
	return token, hashInviteToken(token), nil
}

func hashInviteToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
