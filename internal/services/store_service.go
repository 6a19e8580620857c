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

// ErrStoreNotFound indicates the requested store does not exist.
var ErrStoreNotFound = apperrors.New("STORE_NOT_FOUND", "Store not found", http.StatusNotFound)

// CreateStoreInput describes the fields accepted when creating a store.
type CreateStoreInput struct {
	Name    string
	Slug    string
	Address string
	City    string
	Phone   string
}

// UpdateStoreInput enumerates mutable store attributes.
type UpdateStoreInput struct {
	Name     *string
	Address  *string
	City     *string
	Phone    *string
	IsActive *bool
}

// StoreService manages barbershop stores. All mutations apply the ownership
// predicate inside the statement itself: non-admin callers can only touch rows
// whose owner_id matches, and an affected-row count of zero is classified
// afterwards into NotFound or Unauthorized.
type StoreService struct {
	db    *gorm.DB
	guard ownershipGuard
	audit *AuditService
}

// NewStoreService constructs a StoreService.
func NewStoreService(db *gorm.DB, checker *permissions.Checker, audit *AuditService) (*StoreService, error) {
	if db == nil {
		return nil, errors.New("store service: db is required")
	}
	if checker == nil {
		return nil, errors.New("store service: permission checker is required")
	}
	return &StoreService{
		db:    db,
		guard: ownershipGuard{checker: checker},
		audit: audit,
	}, nil
}

// Create registers a new store owned by the caller.
func (s *StoreService) Create(ctx context.Context, ownerID string, input CreateStoreInput) (*models.Store, error) {
	ctx = ensureContext(ctx)

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, apperrors.NewBadRequest("owner id is required")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("store name is required")
	}

	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" {
		slug = slugify(name)
	}

	store := &models.Store{
		OwnerID:  ownerID,
		Name:     name,
		Slug:     slug,
		Address:  strings.TrimSpace(input.Address),
		City:     strings.TrimSpace(input.City),
		Phone:    strings.TrimSpace(input.Phone),
		IsActive: true,
	}

	if err := s.db.WithContext(ctx).Create(store).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("a store with this slug already exists")
		}
		return nil, fmt.Errorf("store service: create store: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &ownerID,
		Action:   "store.create",
		Resource: store.ID,
		Result:   "success",
		Metadata: map[string]any{"name": store.Name, "slug": store.Slug},
	})

	return store, nil
}

// GetByID loads a store with its dependent resources.
func (s *StoreService) GetByID(ctx context.Context, id string) (*models.Store, error) {
	ctx = ensureContext(ctx)

	var store models.Store
	err := s.db.WithContext(ctx).
		Preload("Workstations").
		Preload("Barbers").
		First(&store, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store service: get store: %w", err)
	}
	return &store, nil
}

// ListOwned returns the stores owned by the given account.
func (s *StoreService) ListOwned(ctx context.Context, ownerID string) ([]models.Store, error) {
	ctx = ensureContext(ctx)

	var stores []models.Store
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("store service: list stores: %w", err)
	}
	return stores, nil
}

// ListAll returns every store; intended for admin surfaces.
func (s *StoreService) ListAll(ctx context.Context) ([]models.Store, error) {
	ctx = ensureContext(ctx)

	var stores []models.Store
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("store service: list stores: %w", err)
	}
	return stores, nil
}

// Update mutates a store on behalf of the caller. The owner predicate rides in
// the UPDATE statement, closing the check-then-write window.
func (s *StoreService) Update(ctx context.Context, callerID, storeID string, input UpdateStoreInput) (*models.Store, error) {
	ctx = ensureContext(ctx)

	updates := map[string]any{}
	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" {
			updates["name"] = name
		}
	}
	if input.Address != nil {
		updates["address"] = strings.TrimSpace(*input.Address)
	}
	if input.City != nil {
		updates["city"] = strings.TrimSpace(*input.City)
	}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return s.GetByID(ctx, storeID)
	}

	admin, err := s.guard.isSuperAdmin(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("store service: %w", err)
	}

	query := s.db.WithContext(ctx).Model(&models.Store{}).Where("id = ?", storeID)
	if !admin {
		query = query.Where("owner_id = ?", callerID)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("store service: update store: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, classifyMutationMiss(ctx, s.db, &models.Store{}, storeID, ErrStoreNotFound)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "store.update",
		Resource: storeID,
		Result:   "success",
		Metadata: updates,
	})

	return s.GetByID(ctx, storeID)
}

// Delete removes a store and its dependent resources in one transaction.
func (s *StoreService) Delete(ctx context.Context, callerID, storeID string) error {
	ctx = ensureContext(ctx)

	admin, err := s.guard.isSuperAdmin(ctx, callerID)
	if err != nil {
		return fmt.Errorf("store service: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("id = ?", storeID)
		if !admin {
			query = query.Where("owner_id = ?", callerID)
		}

		result := query.Delete(&models.Store{})
		if result.Error != nil {
			return fmt.Errorf("delete store: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return classifyMutationMiss(ctx, tx, &models.Store{}, storeID, ErrStoreNotFound)
		}

		// Dependent rows only go once the guarded delete succeeded.
		if err := tx.Where("store_id = ?", storeID).Delete(&models.Workstation{}).Error; err != nil {
			return fmt.Errorf("delete workstations: %w", err)
		}
		if err := tx.Where("store_id = ?", storeID).Delete(&models.Barber{}).Error; err != nil {
			return fmt.Errorf("delete barbers: %w", err)
		}
		if err := tx.Where("store_id = ?", storeID).Delete(&models.Advertisement{}).Error; err != nil {
			return fmt.Errorf("delete advertisements: %w", err)
		}
		if err := tx.Where("store_id = ?", storeID).Delete(&models.StoreInvitation{}).Error; err != nil {
			return fmt.Errorf("delete invitations: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) || errors.Is(err, ErrNotOwner) {
			return err
		}
		return fmt.Errorf("store service: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "store.delete",
		Resource: storeID,
		Result:   "success",
	})

	return nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	return strings.Trim(slug, "-")
}
