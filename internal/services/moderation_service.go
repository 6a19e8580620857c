package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/barberhq/barberhq/internal/auth"
	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/internal/permissions"
	apperrors "github.com/barberhq/barberhq/pkg/errors"
	"github.com/barberhq/barberhq/pkg/metrics"
)

var (
	// ErrModerationForbidden is returned when the caller lacks super-admin rights.
	ErrModerationForbidden = apperrors.New("UNAUTHORIZED", "Unauthorized: Admin access required", http.StatusForbidden)
	// ErrAccountAlreadyBanned signals a ban attempt on an already banned account.
	ErrAccountAlreadyBanned = apperrors.New("ACCOUNT_ALREADY_BANNED", "Account is already banned", http.StatusConflict)
	// ErrAccountNotBanned signals a reactivation attempt on an active account.
	ErrAccountNotBanned = apperrors.New("ACCOUNT_NOT_BANNED", "Account is not banned", http.StatusConflict)
	// ErrImpersonateBanned rejects impersonation of banned accounts.
	ErrImpersonateBanned = apperrors.New("IMPERSONATE_BANNED", "Cannot impersonate a banned account", http.StatusConflict)
)

// ImpersonationResult bundles the token pair issued for an impersonated session.
type ImpersonationResult struct {
	Target       *models.User
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// ModerationService implements the admin account workflows: ban, reactivate,
// delete, and impersonate. Every operation requires the caller to hold
// platform-wide moderation rights and is audited. State transitions are single
// conditional updates keyed on the current status, so concurrent moderation
// actions cannot interleave into an inconsistent state.
type ModerationService struct {
	db       *gorm.DB
	checker  *permissions.Checker
	sessions *auth.SessionService
	audit    *AuditService
}

// NewModerationService constructs a ModerationService.
func NewModerationService(db *gorm.DB, checker *permissions.Checker, sessions *auth.SessionService, audit *AuditService) (*ModerationService, error) {
	if db == nil {
		return nil, errors.New("moderation service: db is required")
	}
	if checker == nil {
		return nil, errors.New("moderation service: permission checker is required")
	}
	if sessions == nil {
		return nil, errors.New("moderation service: session service is required")
	}

	return &ModerationService{
		db:       db,
		checker:  checker,
		sessions: sessions,
		audit:    audit,
	}, nil
}

// Ban transitions an active account to banned and revokes all its sessions.
func (s *ModerationService) Ban(ctx context.Context, callerID, targetID string) error {
	ctx = ensureContext(ctx)

	target, err := s.authorise(ctx, callerID, targetID, "ban")
	if err != nil {
		return err
	}

	if target.IsRoot {
		s.record(ctx, callerID, targetID, "account.ban", "denied")
		metrics.ModerationActions.WithLabelValues("ban", "denied").Inc()
		return ErrRootUserImmutable
	}

	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND status = ?", targetID, models.AccountActive).
		Updates(map[string]any{
			"status":    models.AccountBanned,
			"banned_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("moderation service: ban account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		metrics.ModerationActions.WithLabelValues("ban", "noop").Inc()
		return ErrAccountAlreadyBanned
	}

	if err := s.sessions.RevokeUserSessions(targetID); err != nil {
		return fmt.Errorf("moderation service: revoke sessions: %w", err)
	}

	s.record(ctx, callerID, targetID, "account.ban", "success")
	metrics.ModerationActions.WithLabelValues("ban", "success").Inc()
	return nil
}

// Reactivate transitions a banned account back to active, restoring sign-in.
func (s *ModerationService) Reactivate(ctx context.Context, callerID, targetID string) error {
	ctx = ensureContext(ctx)

	if _, err := s.authorise(ctx, callerID, targetID, "reactivate"); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND status = ?", targetID, models.AccountBanned).
		Updates(map[string]any{
			"status":    models.AccountActive,
			"banned_at": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("moderation service: reactivate account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		metrics.ModerationActions.WithLabelValues("reactivate", "noop").Inc()
		return ErrAccountNotBanned
	}

	s.record(ctx, callerID, targetID, "account.reactivate", "success")
	metrics.ModerationActions.WithLabelValues("reactivate", "success").Inc()
	return nil
}

// Delete removes the account outright. The deletion is irreversible: sessions
// are revoked first, dependent rows are cleared, and afterwards sign-in with
// the deleted credentials behaves exactly like an unknown account.
func (s *ModerationService) Delete(ctx context.Context, callerID, targetID string) error {
	ctx = ensureContext(ctx)

	target, err := s.authorise(ctx, callerID, targetID, "delete")
	if err != nil {
		return err
	}

	if target.IsRoot {
		s.record(ctx, callerID, targetID, "account.delete", "denied")
		metrics.ModerationActions.WithLabelValues("delete", "denied").Inc()
		return ErrRootUserImmutable
	}

	if err := s.sessions.RevokeUserSessions(targetID); err != nil {
		return fmt.Errorf("moderation service: revoke sessions: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(target).Association("Roles").Clear(); err != nil {
			return fmt.Errorf("clear roles: %w", err)
		}
		if err := tx.Where("user_id = ?", targetID).Delete(&models.MFASecret{}).Error; err != nil {
			return fmt.Errorf("delete mfa secret: %w", err)
		}
		if err := tx.Where("user_id = ?", targetID).Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		if err := tx.Model(&models.Barber{}).
			Where("user_id = ?", targetID).
			Update("user_id", nil).Error; err != nil {
			return fmt.Errorf("unlink barbers: %w", err)
		}
		if err := tx.Delete(&models.User{}, "id = ?", targetID).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("moderation service: delete account: %w", err)
	}

	s.record(ctx, callerID, targetID, "account.delete", "success")
	metrics.ModerationActions.WithLabelValues("delete", "success").Inc()
	return nil
}

// Impersonate issues a session for the target account on behalf of the admin.
// The session and access token both carry the impersonator's identity.
func (s *ModerationService) Impersonate(ctx context.Context, callerID, targetID string, meta auth.SessionMetadata) (*ImpersonationResult, error) {
	ctx = ensureContext(ctx)

	target, err := s.authorise(ctx, callerID, targetID, "impersonate")
	if err != nil {
		return nil, err
	}

	if target.Banned() {
		metrics.ModerationActions.WithLabelValues("impersonate", "denied").Inc()
		return nil, ErrImpersonateBanned
	}

	pair, session, err := s.sessions.Impersonate(targetID, callerID, meta)
	if err != nil {
		return nil, fmt.Errorf("moderation service: impersonate: %w", err)
	}

	s.record(ctx, callerID, targetID, "account.impersonate", "success")
	metrics.ModerationActions.WithLabelValues("impersonate", "success").Inc()

	return &ImpersonationResult{
		Target:       target,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		SessionID:    session.ID,
	}, nil
}

// authorise verifies the caller is a super-admin and resolves the target.
func (s *ModerationService) authorise(ctx context.Context, callerID, targetID, action string) (*models.User, error) {
	callerID = strings.TrimSpace(callerID)
	targetID = strings.TrimSpace(targetID)
	if callerID == "" || targetID == "" {
		return nil, apperrors.NewBadRequest("caller and target ids are required")
	}

	admin, err := s.checker.IsSuperAdmin(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("moderation service: admin check: %w", err)
	}
	if !admin {
		s.record(ctx, callerID, targetID, "account."+action, "denied")
		metrics.ModerationActions.WithLabelValues(action, "denied").Inc()
		return nil, ErrModerationForbidden
	}

	var target models.User
	if err := s.db.WithContext(ctx).First(&target, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("moderation service: load target: %w", err)
	}

	return &target, nil
}

func (s *ModerationService) record(ctx context.Context, callerID, targetID, action, result string) {
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   action,
		Resource: targetID,
		Result:   result,
	})
}
