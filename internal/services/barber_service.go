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

// ErrBarberNotFound indicates the requested barber does not exist.
var ErrBarberNotFound = apperrors.New("BARBER_NOT_FOUND", "Barber not found", http.StatusNotFound)

// CreateBarberInput describes the fields accepted when adding a barber directly.
type CreateBarberInput struct {
	StoreID     string
	DisplayName string
	Email       string
	Specialty   string
}

// UpdateBarberInput enumerates mutable barber attributes.
type UpdateBarberInput struct {
	DisplayName *string
	Specialty   *string
	IsActive    *bool
}

// BarberService manages barbers within a store. Mutations carry the owner
// predicate as a store_id IN (owned stores) clause in the statement.
type BarberService struct {
	db    *gorm.DB
	guard ownershipGuard
	audit *AuditService
}

// NewBarberService constructs a BarberService.
func NewBarberService(db *gorm.DB, checker *permissions.Checker, audit *AuditService) (*BarberService, error) {
	if db == nil {
		return nil, errors.New("barber service: db is required")
	}
	if checker == nil {
		return nil, errors.New("barber service: permission checker is required")
	}
	return &BarberService{
		db:    db,
		guard: ownershipGuard{checker: checker},
		audit: audit,
	}, nil
}

// Create adds a barber to a store the caller owns, without the invitation flow.
func (s *BarberService) Create(ctx context.Context, callerID string, input CreateBarberInput) (*models.Barber, error) {
	ctx = ensureContext(ctx)

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return nil, apperrors.NewBadRequest("barber display name is required")
	}

	if err := s.requireStoreOwnership(ctx, callerID, input.StoreID); err != nil {
		return nil, err
	}

	barber := &models.Barber{
		StoreID:     input.StoreID,
		DisplayName: displayName,
		Email:       normaliseEmail(input.Email),
		Specialty:   strings.TrimSpace(input.Specialty),
		IsActive:    true,
	}

	if err := s.db.WithContext(ctx).Create(barber).Error; err != nil {
		return nil, fmt.Errorf("barber service: create barber: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "barber.create",
		Resource: barber.ID,
		Result:   "success",
		Metadata: map[string]any{"store_id": barber.StoreID, "display_name": barber.DisplayName},
	})

	return barber, nil
}

// GetByID loads a barber by identifier.
func (s *BarberService) GetByID(ctx context.Context, id string) (*models.Barber, error) {
	ctx = ensureContext(ctx)

	var barber models.Barber
	err := s.db.WithContext(ctx).First(&barber, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBarberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("barber service: get barber: %w", err)
	}
	return &barber, nil
}

// ListByStore returns a store's barbers ordered by name.
func (s *BarberService) ListByStore(ctx context.Context, storeID string) ([]models.Barber, error) {
	ctx = ensureContext(ctx)

	var barbers []models.Barber
	if err := s.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("display_name ASC").
		Find(&barbers).Error; err != nil {
		return nil, fmt.Errorf("barber service: list barbers: %w", err)
	}
	return barbers, nil
}

// Update mutates a barber the caller owns via its parent store.
func (s *BarberService) Update(ctx context.Context, callerID, barberID string, input UpdateBarberInput) (*models.Barber, error) {
	ctx = ensureContext(ctx)

	updates := map[string]any{}
	if input.DisplayName != nil {
		if name := strings.TrimSpace(*input.DisplayName); name != "" {
			updates["display_name"] = name
		}
	}
	if input.Specialty != nil {
		updates["specialty"] = strings.TrimSpace(*input.Specialty)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return s.GetByID(ctx, barberID)
	}

	admin, err := s.guard.isSuperAdmin(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("barber service: %w", err)
	}

	query := s.db.WithContext(ctx).Model(&models.Barber{}).Where("id = ?", barberID)
	if !admin {
		query = query.Where("store_id IN (?)", ownedStoreIDs(s.db, callerID))
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("barber service: update barber: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, classifyMutationMiss(ctx, s.db, &models.Barber{}, barberID, ErrBarberNotFound)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "barber.update",
		Resource: barberID,
		Result:   "success",
		Metadata: updates,
	})

	return s.GetByID(ctx, barberID)
}

// Delete removes a barber from the caller's store. Any workstation assignment
// is released in the same transaction so no chair keeps a dangling reference.
func (s *BarberService) Delete(ctx context.Context, callerID, barberID string) error {
	ctx = ensureContext(ctx)

	admin, err := s.guard.isSuperAdmin(ctx, callerID)
	if err != nil {
		return fmt.Errorf("barber service: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("id = ?", barberID)
		if !admin {
			query = query.Where("store_id IN (?)", ownedStoreIDs(tx, callerID))
		}

		result := query.Delete(&models.Barber{})
		if result.Error != nil {
			return fmt.Errorf("delete barber: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return classifyMutationMiss(ctx, tx, &models.Barber{}, barberID, ErrBarberNotFound)
		}

		if err := tx.Model(&models.Workstation{}).
			Where("barber_id = ?", barberID).
			Updates(map[string]any{
				"barber_id": nil,
				"status":    models.WorkstationAvailable,
			}).Error; err != nil {
			return fmt.Errorf("release workstations: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrBarberNotFound) || errors.Is(err, ErrNotOwner) {
			return err
		}
		return fmt.Errorf("barber service: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "barber.delete",
		Resource: barberID,
		Result:   "success",
	})

	return nil
}

func (s *BarberService) requireStoreOwnership(ctx context.Context, callerID, storeID string) error {
	if strings.TrimSpace(storeID) == "" {
		return apperrors.NewBadRequest("store id is required")
	}

	admin, err := s.guard.isSuperAdmin(ctx, callerID)
	if err != nil {
		return fmt.Errorf("barber service: %w", err)
	}

	var store models.Store
	err = s.db.WithContext(ctx).Select("id", "owner_id").First(&store, "id = ?", storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrStoreNotFound
	}
	if err != nil {
		return fmt.Errorf("barber service: load store: %w", err)
	}

	if !admin && store.OwnerID != callerID {
		return ErrNotOwner
	}
	return nil
}
