package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/internal/permissions"
	apperrors "github.com/barberhq/barberhq/pkg/errors"
)

// ErrNotOwner is surfaced when a caller attempts to mutate a resource they do
// not own and they lack super-admin rights.
var ErrNotOwner = apperrors.New("UNAUTHORIZED", "You do not own this resource", http.StatusForbidden)

// ownershipGuard answers "may this caller bypass ownership predicates?".
// The predicate itself is applied inside the mutation statement, so the check
// and the write cannot race.
type ownershipGuard struct {
	checker *permissions.Checker
}

func (g ownershipGuard) isSuperAdmin(ctx context.Context, callerID string) (bool, error) {
	if g.checker == nil {
		return false, nil
	}
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return false, nil
	}
	admin, err := g.checker.IsSuperAdmin(ctx, callerID)
	if err != nil {
		return false, fmt.Errorf("ownership: admin check: %w", err)
	}
	return admin, nil
}

// ownedStoreIDs builds a subquery selecting the store IDs owned by the caller.
// Used as the owner predicate on store-scoped child resources.
func ownedStoreIDs(db *gorm.DB, ownerID string) *gorm.DB {
	return db.Model(&models.Store{}).Select("id").Where("owner_id = ?", ownerID)
}

// classifyMutationMiss distinguishes a missing resource from an ownership
// mismatch after a conditional mutation touched zero rows. The follow-up read
// only selects the error; the mutation predicate already enforced the guard.
func classifyMutationMiss(ctx context.Context, db *gorm.DB, model any, id string, notFound error) error {
	err := db.WithContext(ctx).Select("id").Take(model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("ownership: classify mutation miss: %w", err)
	}
	return ErrNotOwner
}
