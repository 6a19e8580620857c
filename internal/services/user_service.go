package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/pkg/crypto"
	apperrors "github.com/barberhq/barberhq/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrRootUserImmutable ensures the root account cannot be banned or deleted.
	ErrRootUserImmutable = apperrors.New("USER_ROOT_IMMUTABLE", "Root user cannot be modified by moderation actions", http.StatusBadRequest)
)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	Avatar      string
	IsRoot      bool
	RoleIDs     []string
}

// UpdateUserInput enumerates mutable user attributes.
type UpdateUserInput struct {
	Username    *string
	Email       *string
	DisplayName *string
	Avatar      *string
}

// UserFilters captures listing filters.
type UserFilters struct {
	Status string
	Query  string
}

// ListUsersOptions controls pagination for user listing.
type ListUsersOptions struct {
	Page     int
	PageSize int
	Filters  UserFilters
}

// UserService manages CRUD lifecycle for platform accounts.
type UserService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, auditService *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{
		db:           db,
		auditService: auditService,
	}, nil
}

// Create provisions a new user with a hashed password and default roles.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := normaliseEmail(input.Email)
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username:    username,
		Email:       email,
		Password:    hashed,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Avatar:      strings.TrimSpace(input.Avatar),
		IsRoot:      input.IsRoot,
		Status:      models.AccountActive,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		roleIDs := input.RoleIDs
		if len(roleIDs) == 0 {
			roleIDs = []string{"user"}
		}
		if user.IsRoot {
			roleIDs = append(roleIDs, "super_admin")
		}

		var roles []models.Role
		if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
			return fmt.Errorf("user service: load roles: %w", err)
		}
		if len(roles) == 0 {
			return fmt.Errorf("user service: no matching roles for %v", roleIDs)
		}

		if err := tx.Model(user).Association("Roles").Replace(roles); err != nil {
			return fmt.Errorf("user service: assign roles: %w", err)
		}

		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("username or email already exists")
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "user.create",
		Resource: user.ID,
		Result:   "success",
		Metadata: map[string]any{
			"username": user.Username,
			"email":    user.Email,
			"is_root":  user.IsRoot,
		},
	})

	return user, nil
}

// GetByID loads a user by identifier including role associations.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Roles.Permissions").
		First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// List retrieves users matching the supplied filters with pagination.
func (s *UserService) List(ctx context.Context, opts ListUsersOptions) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if status := strings.TrimSpace(opts.Filters.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if q := strings.TrimSpace(opts.Filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Preload("Roles").
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	return users, total, nil
}

// Update persists mutable attributes for an existing user.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	updates := map[string]any{}

	if input.Username != nil {
		if name := strings.TrimSpace(*input.Username); name != "" && name != user.Username {
			updates["username"] = name
		}
	}
	if input.Email != nil {
		if email := normaliseEmail(*input.Email); email != "" && email != user.Email {
			updates["email"] = email
		}
	}
	if input.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*input.DisplayName)
	}
	if input.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*input.Avatar)
	}

	if len(updates) == 0 {
		return &user, nil
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("username or email already exists")
		}
		return nil, fmt.Errorf("user service: update user: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("user service: reload user: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "user.update",
		Resource: user.ID,
		Result:   "success",
		Metadata: updates,
	})

	return &user, nil
}

// SetRoles replaces role assignments for the specified user.
func (s *UserService) SetRoles(ctx context.Context, id string, roleIDs []string) (*models.User, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(id)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	var result *models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Preload("Roles").First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("user service: load user: %w", err)
		}

		var roles []models.Role
		if len(roleIDs) > 0 {
			if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
				return fmt.Errorf("user service: load roles: %w", err)
			}
			if len(roles) != len(roleIDs) {
				return apperrors.NewBadRequest("one or more roles were not found")
			}
		}

		if err := tx.Model(&user).Association("Roles").Replace(roles); err != nil {
			return fmt.Errorf("user service: replace roles: %w", err)
		}

		if err := tx.Preload("Roles").First(&user, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("user service: reload user: %w", err)
		}

		result = &user

		recordAudit(s.auditService, ctx, AuditEntry{
			Action:   "user.set_roles",
			Resource: user.ID,
			Result:   "success",
			Metadata: map[string]any{
				"role_ids": roleIDs,
			},
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
