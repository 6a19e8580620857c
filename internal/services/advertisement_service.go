package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/internal/permissions"
	apperrors "github.com/barberhq/barberhq/pkg/errors"
)

// ErrAdvertisementNotFound indicates the requested advertisement does not exist.
var ErrAdvertisementNotFound = apperrors.New("ADVERTISEMENT_NOT_FOUND", "Advertisement not found", http.StatusNotFound)

var adPlacements = map[string]bool{
	models.AdPlacementHome:   true,
	models.AdPlacementSearch: true,
	models.AdPlacementStore:  true,
}

// CreateAdvertisementInput describes the fields accepted when creating an ad.
type CreateAdvertisementInput struct {
	StoreID   string
	Title     string
	Body      string
	Placement string
	Metadata  map[string]any
	StartsAt  *time.Time
	EndsAt    *time.Time
}

// UpdateAdvertisementInput enumerates mutable advertisement attributes.
type UpdateAdvertisementInput struct {
	Title     *string
	Body      *string
	Placement *string
	Metadata  map[string]any
	StartsAt  *time.Time
	EndsAt    *time.Time
	IsActive  *bool
}

// AdvertisementService manages store-owned promotional entries.
type AdvertisementService struct {
	db    *gorm.DB
	guard ownershipGuard
	audit *AuditService
	clock func() time.Time
}

// NewAdvertisementService constructs an AdvertisementService.
func NewAdvertisementService(db *gorm.DB, checker *permissions.Checker, audit *AuditService) (*AdvertisementService, error) {
	if db == nil {
		return nil, errors.New("advertisement service: db is required")
	}
	if checker == nil {
		return nil, errors.New("advertisement service: permission checker is required")
	}
	return &AdvertisementService{
		db:    db,
		guard: ownershipGuard{checker: checker},
		audit: audit,
		clock: time.Now,
	}, nil
}

// Create publishes an advertisement for a store the caller owns.
func (s *AdvertisementService) Create(ctx context.Context, callerID string, input CreateAdvertisementInput) (*models.Advertisement, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("advertisement title is required")
	}

	placement := strings.TrimSpace(input.Placement)
	if placement == "" {
		placement = models.AdPlacementHome
	}
	if !adPlacements[placement] {
		return nil, apperrors.NewBadRequest("invalid advertisement placement")
	}
	if input.StartsAt != nil && input.EndsAt != nil && input.EndsAt.Before(*input.StartsAt) {
		return nil, apperrors.NewBadRequest("advertisement end must not precede its start")
	}

	if err := s.requireStoreOwnership(ctx, callerID, input.StoreID); err != nil {
		return nil, err
	}

	metadata, err := marshalAdMetadata(input.Metadata)
	if err != nil {
		return nil, err
	}

	ad := &models.Advertisement{
		StoreID:   input.StoreID,
		Title:     title,
		Body:      strings.TrimSpace(input.Body),
		Placement: placement,
		Metadata:  metadata,
		StartsAt:  input.StartsAt,
		EndsAt:    input.EndsAt,
		IsActive:  true,
	}

	if err := s.db.WithContext(ctx).Create(ad).Error; err != nil {
		return nil, fmt.Errorf("advertisement service: create advertisement: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "advertisement.create",
		Resource: ad.ID,
		Result:   "success",
		Metadata: map[string]any{"store_id": ad.StoreID, "placement": ad.Placement},
	})

	return ad, nil
}

// GetByID loads an advertisement by identifier.
func (s *AdvertisementService) GetByID(ctx context.Context, id string) (*models.Advertisement, error) {
	ctx = ensureContext(ctx)

	var ad models.Advertisement
	err := s.db.WithContext(ctx).First(&ad, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAdvertisementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("advertisement service: get advertisement: %w", err)
	}
	return &ad, nil
}

// ListByStore returns a store's advertisements, newest first.
func (s *AdvertisementService) ListByStore(ctx context.Context, storeID string) ([]models.Advertisement, error) {
	ctx = ensureContext(ctx)

	var ads []models.Advertisement
	if err := s.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Find(&ads).Error; err != nil {
		return nil, fmt.Errorf("advertisement service: list advertisements: %w", err)
	}
	return ads, nil
}

// ListActive returns the ads currently inside their display window for a
// placement. Open-ended windows (nil bounds) are always inside.
func (s *AdvertisementService) ListActive(ctx context.Context, placement string) ([]models.Advertisement, error) {
	ctx = ensureContext(ctx)

	now := s.clock()
	query := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("starts_at IS NULL OR starts_at <= ?", now).
		Where("ends_at IS NULL OR ends_at >= ?", now)
	if placement != "" {
		if !adPlacements[placement] {
			return nil, apperrors.NewBadRequest("invalid advertisement placement")
		}
		query = query.Where("placement = ?", placement)
	}

	var ads []models.Advertisement
	if err := query.Order("created_at DESC").Find(&ads).Error; err != nil {
		return nil, fmt.Errorf("advertisement service: list active advertisements: %w", err)
	}
	return ads, nil
}

// Update mutates an advertisement the caller owns via its parent store.
func (s *AdvertisementService) Update(ctx context.Context, callerID, adID string, input UpdateAdvertisementInput) (*models.Advertisement, error) {
	ctx = ensureContext(ctx)

	updates := map[string]any{}
	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title != "" {
			updates["title"] = title
		}
	}
	if input.Body != nil {
		updates["body"] = strings.TrimSpace(*input.Body)
	}
	if input.Placement != nil {
		if !adPlacements[*input.Placement] {
			return nil, apperrors.NewBadRequest("invalid advertisement placement")
		}
		updates["placement"] = *input.Placement
	}
	if input.Metadata != nil {
		metadata, err := marshalAdMetadata(input.Metadata)
		if err != nil {
			return nil, err
		}
		updates["metadata"] = metadata
	}
	if input.StartsAt != nil {
		updates["starts_at"] = *input.StartsAt
	}
	if input.EndsAt != nil {
		updates["ends_at"] = *input.EndsAt
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return s.GetByID(ctx, adID)
	}

	admin, err := s.guard.isSuperAdmin(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("advertisement service: %w", err)
	}

	query := s.db.WithContext(ctx).Model(&models.Advertisement{}).Where("id = ?", adID)
	if !admin {
		query = query.Where("store_id IN (?)", ownedStoreIDs(s.db, callerID))
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("advertisement service: update advertisement: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, classifyMutationMiss(ctx, s.db, &models.Advertisement{}, adID, ErrAdvertisementNotFound)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "advertisement.update",
		Resource: adID,
		Result:   "success",
	})

	return s.GetByID(ctx, adID)
}

// Delete removes an advertisement from the caller's store.
func (s *AdvertisementService) Delete(ctx context.Context, callerID, adID string) error {
	ctx = ensureContext(ctx)

	admin, err := s.guard.isSuperAdmin(ctx, callerID)
	if err != nil {
		return fmt.Errorf("advertisement service: %w", err)
	}

	query := s.db.WithContext(ctx).Where("id = ?", adID)
	if !admin {
		query = query.Where("store_id IN (?)", ownedStoreIDs(s.db, callerID))
	}

	result := query.Delete(&models.Advertisement{})
	if result.Error != nil {
		return fmt.Errorf("advertisement service: delete advertisement: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return classifyMutationMiss(ctx, s.db, &models.Advertisement{}, adID, ErrAdvertisementNotFound)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "advertisement.delete",
		Resource: adID,
		Result:   "success",
	})

	return nil
}

func (s *AdvertisementService) requireStoreOwnership(ctx context.Context, callerID, storeID string) error {
	if strings.TrimSpace(storeID) == "" {
		return apperrors.NewBadRequest("store id is required")
	}

	admin, err := s.guard.isSuperAdmin(ctx, callerID)
	if err != nil {
		return fmt.Errorf("advertisement service: %w", err)
	}

	var store models.Store
	err = s.db.WithContext(ctx).Select("id", "owner_id").First(&store, "id = ?", storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrStoreNotFound
	}
	if err != nil {
		return fmt.Errorf("advertisement service: load store: %w", err)
	}

	if !admin && store.OwnerID != callerID {
		return ErrNotOwner
	}
	return nil
}

func marshalAdMetadata(meta map[string]any) (datatypes.JSON, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid advertisement metadata")
	}
	return datatypes.JSON(raw), nil
}
