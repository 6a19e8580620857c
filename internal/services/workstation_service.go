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

var (
	// ErrWorkstationNotFound indicates the requested workstation does not exist.
	ErrWorkstationNotFound = apperrors.New("WORKSTATION_NOT_FOUND", "Workstation not found", http.StatusNotFound)
	// ErrBarberStoreMismatch rejects assigning a barber from a different store.
	ErrBarberStoreMismatch = apperrors.New("BARBER_STORE_MISMATCH", "Barber does not belong to this store", http.StatusBadRequest)
)

var workstationTypes = map[string]bool{
	models.WorkstationStandard: true,
	models.WorkstationPremium:  true,
	models.WorkstationVIP:      true,
}

var workstationStatuses = map[string]bool{
	models.WorkstationAvailable:   true,
	models.WorkstationOccupied:    true,
	models.WorkstationMaintenance: true,
}

// CreateWorkstationInput describes the fields accepted when creating a workstation.
type CreateWorkstationInput struct {
	StoreID         string
	Number          string
	Type            string
	DiscountPercent int
}

// UpdateWorkstationInput enumerates mutable workstation attributes.
type UpdateWorkstationInput struct {
	Number          *string
	Type            *string
	Status          *string
	DiscountPercent *int
}

// WorkstationService manages chairs within a store. Creation checks ownership
// of the parent store; updates and deletes carry the owner predicate as a
// store_id IN (owned stores) clause in the statement itself.
type WorkstationService struct {
	db    *gorm.DB
	guard ownershipGuard
	audit *AuditService
}

// NewWorkstationService constructs a WorkstationService.
func NewWorkstationService(db *gorm.DB, checker *permissions.Checker, audit *AuditService) (*WorkstationService, error) {
	if db == nil {
		return nil, errors.New("workstation service: db is required")
	}
	if checker == nil {
		return nil, errors.New("workstation service: permission checker is required")
	}
	return &WorkstationService{
		db:    db,
		guard: ownershipGuard{checker: checker},
		audit: audit,
	}, nil
}

// Create adds a workstation to a store the caller owns. The per-store number
// uniqueness is enforced by the database index, so a duplicate surfaces as a
// validation error rather than a second row.
func (s *WorkstationService) Create(ctx context.Context, callerID string, input CreateWorkstationInput) (*models.Workstation, error) {
	ctx = ensureContext(ctx)

	number := strings.TrimSpace(input.Number)
	if number == "" {
		return nil, apperrors.NewBadRequest("workstation number is required")
	}

	wsType := strings.TrimSpace(input.Type)
	if wsType == "" {
		wsType = models.WorkstationStandard
	}
	if !workstationTypes[wsType] {
		return nil, apperrors.NewBadRequest("invalid workstation type")
	}
	if input.DiscountPercent < 0 || input.DiscountPercent > 100 {
		return nil, apperrors.NewBadRequest("discount percent must be between 0 and 100")
	}

	if err := s.requireStoreOwnership(ctx, callerID, input.StoreID); err != nil {
		return nil, err
	}

	ws := &models.Workstation{
		StoreID:         input.StoreID,
		Number:          number,
		Type:            wsType,
		Status:          models.WorkstationAvailable,
		DiscountPercent: input.DiscountPercent,
	}

	if err := s.db.WithContext(ctx).Create(ws).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("a workstation with this number already exists in the store")
		}
		return nil, fmt.Errorf("workstation service: create workstation: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "workstation.create",
		Resource: ws.ID,
		Result:   "success",
		Metadata: map[string]any{"store_id": ws.StoreID, "number": ws.Number},
	})

	return ws, nil
}

// GetByID loads a workstation with its assigned barber.
func (s *WorkstationService) GetByID(ctx context.Context, id string) (*models.Workstation, error) {
	ctx = ensureContext(ctx)

	var ws models.Workstation
	err := s.db.WithContext(ctx).
		Preload("Barber").
		First(&ws, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWorkstationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("workstation service: get workstation: %w", err)
	}
	return &ws, nil
}

// ListByStore returns a store's workstations ordered by number.
func (s *WorkstationService) ListByStore(ctx context.Context, storeID string) ([]models.Workstation, error) {
	ctx = ensureContext(ctx)

	var stations []models.Workstation
	if err := s.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("number ASC").
		Preload("Barber").
		Find(&stations).Error; err != nil {
		return nil, fmt.Errorf("workstation service: list workstations: %w", err)
	}
	return stations, nil
}

// ListOwned returns every workstation across the caller's stores.
func (s *WorkstationService) ListOwned(ctx context.Context, callerID string) ([]models.Workstation, error) {
	ctx = ensureContext(ctx)

	admin, err := s.guard.isSuperAdmin(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("workstation service: %w", err)
	}

	query := s.db.WithContext(ctx).Model(&models.Workstation{})
	if !admin {
		query = query.Where("store_id IN (?)", ownedStoreIDs(s.db, callerID))
	}

	var stations []models.Workstation
	if err := query.
		Order("created_at DESC").
		Preload("Store").
		Find(&stations).Error; err != nil {
		return nil, fmt.Errorf("workstation service: list workstations: %w", err)
	}
	return stations, nil
}

// Update mutates a workstation the caller owns via its parent store.
func (s *WorkstationService) Update(ctx context.Context, callerID, workstationID string, input UpdateWorkstationInput) (*models.Workstation, error) {
	ctx = ensureContext(ctx)

	updates := map[string]any{}
	if input.Number != nil {
		if number := strings.TrimSpace(*input.Number); number != "" {
			updates["number"] = number
		}
	}
	if input.Type != nil {
		if !workstationTypes[*input.Type] {
			return nil, apperrors.NewBadRequest("invalid workstation type")
		}
		updates["type"] = *input.Type
	}
	if input.Status != nil {
		if !workstationStatuses[*input.Status] {
			return nil, apperrors.NewBadRequest("invalid workstation status")
		}
		updates["status"] = *input.Status
	}
	if input.DiscountPercent != nil {
		if *input.DiscountPercent < 0 || *input.DiscountPercent > 100 {
			return nil, apperrors.NewBadRequest("discount percent must be between 0 and 100")
		}
		updates["discount_percent"] = *input.DiscountPercent
	}

	if len(updates) == 0 {
		return s.GetByID(ctx, workstationID)
	}

	result, err := s.guardedMutation(ctx, callerID, workstationID, func(query *gorm.DB) *gorm.DB {
		return query.Updates(updates)
	})
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, classifyMutationMiss(ctx, s.db, &models.Workstation{}, workstationID, ErrWorkstationNotFound)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "workstation.update",
		Resource: workstationID,
		Result:   "success",
		Metadata: updates,
	})

	return s.GetByID(ctx, workstationID)
}

// AssignBarber places a barber on the workstation. The barber must belong to
// the same store; the workstation flips to occupied in the same statement.
func (s *WorkstationService) AssignBarber(ctx context.Context, callerID, workstationID, barberID string) (*models.Workstation, error) {
	ctx = ensureContext(ctx)

	ws, err := s.GetByID(ctx, workstationID)
	if err != nil {
		return nil, err
	}

	var barber models.Barber
	err = s.db.WithContext(ctx).First(&barber, "id = ?", barberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBarberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("workstation service: load barber: %w", err)
	}
	if barber.StoreID != ws.StoreID {
		return nil, ErrBarberStoreMismatch
	}

	result, err := s.guardedMutation(ctx, callerID, workstationID, func(query *gorm.DB) *gorm.DB {
		return query.Updates(map[string]any{
			"barber_id": barberID,
			"status":    models.WorkstationOccupied,
		})
	})
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, classifyMutationMiss(ctx, s.db, &models.Workstation{}, workstationID, ErrWorkstationNotFound)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "workstation.assign_barber",
		Resource: workstationID,
		Result:   "success",
		Metadata: map[string]any{"barber_id": barberID},
	})

	return s.GetByID(ctx, workstationID)
}

// ReleaseBarber clears the barber assignment and returns the chair to available.
func (s *WorkstationService) ReleaseBarber(ctx context.Context, callerID, workstationID string) (*models.Workstation, error) {
	ctx = ensureContext(ctx)

	result, err := s.guardedMutation(ctx, callerID, workstationID, func(query *gorm.DB) *gorm.DB {
		return query.Updates(map[string]any{
			"barber_id": nil,
			"status":    models.WorkstationAvailable,
		})
	})
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, classifyMutationMiss(ctx, s.db, &models.Workstation{}, workstationID, ErrWorkstationNotFound)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "workstation.release_barber",
		Resource: workstationID,
		Result:   "success",
	})

	return s.GetByID(ctx, workstationID)
}

// Delete removes a workstation the caller owns.
func (s *WorkstationService) Delete(ctx context.Context, callerID, workstationID string) error {
	ctx = ensureContext(ctx)

	admin, err := s.guard.isSuperAdmin(ctx, callerID)
	if err != nil {
		return fmt.Errorf("workstation service: %w", err)
	}

	query := s.db.WithContext(ctx).Where("id = ?", workstationID)
	if !admin {
		query = query.Where("store_id IN (?)", ownedStoreIDs(s.db, callerID))
	}

	result := query.Delete(&models.Workstation{})
	if result.Error != nil {
		return fmt.Errorf("workstation service: delete workstation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return classifyMutationMiss(ctx, s.db, &models.Workstation{}, workstationID, ErrWorkstationNotFound)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "workstation.delete",
		Resource: workstationID,
		Result:   "success",
	})

	return nil
}

// guardedMutation runs a workstation mutation with the owner predicate applied.
func (s *WorkstationService) guardedMutation(ctx context.Context, callerID, workstationID string, mutate func(*gorm.DB) *gorm.DB) (*gorm.DB, error) {
	admin, err := s.guard.isSuperAdmin(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("workstation service: %w", err)
	}

	query := s.db.WithContext(ctx).Model(&models.Workstation{}).Where("id = ?", workstationID)
	if !admin {
		query = query.Where("store_id IN (?)", ownedStoreIDs(s.db, callerID))
	}

	result := mutate(query)
	if result.Error != nil {
		return nil, fmt.Errorf("workstation service: mutate workstation: %w", result.Error)
	}
	return result, nil
}

// requireStoreOwnership verifies the caller owns the target store (or is an admin).
func (s *WorkstationService) requireStoreOwnership(ctx context.Context, callerID, storeID string) error {
	if strings.TrimSpace(storeID) == "" {
		return apperrors.NewBadRequest("store id is required")
	}

	admin, err := s.guard.isSuperAdmin(ctx, callerID)
	if err != nil {
		return fmt.Errorf("workstation service: %w", err)
	}

	var store models.Store
	err = s.db.WithContext(ctx).Select("id", "owner_id").First(&store, "id = ?", storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrStoreNotFound
	}
	if err != nil {
		return fmt.Errorf("workstation service: load store: %w", err)
	}

	if !admin && store.OwnerID != callerID {
		return ErrNotOwner
	}
	return nil
}
