package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/barberhq/barberhq/internal/services"
	"github.com/barberhq/barberhq/pkg/response"
)

// StoreHandler exposes store CRUD for owners.
type StoreHandler struct {
	stores *services.StoreService
}

// NewStoreHandler constructs a StoreHandler.
func NewStoreHandler(stores *services.StoreService) *StoreHandler {
	return &StoreHandler{stores: stores}
}

type createStoreRequest struct {
	Name    string `json:"name" validate:"required,max=128"`
	Slug    string `json:"slug" validate:"max=128"`
	Address string `json:"address" validate:"max=256"`
	City    string `json:"city" validate:"max=128"`
	Phone   string `json:"phone" validate:"max=32"`
}

// Create registers a new store owned by the caller.
func (h *StoreHandler) Create(c *gin.Context) {
	var req createStoreRequest
	if !bindAndValidate(c, &req) {
		return
	}

	store, err := h.stores.Create(c.Request.Context(), currentUserID(c), services.CreateStoreInput{
		Name:    req.Name,
		Slug:    req.Slug,
		Address: req.Address,
		City:    req.City,
		Phone:   req.Phone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, store)
}

// List returns the caller's stores.
func (h *StoreHandler) List(c *gin.Context) {
	stores, err := h.stores.ListOwned(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"stores": stores})
}

// ListAll returns every store on the platform. Routed under the admin group.
func (h *StoreHandler) ListAll(c *gin.Context) {
	stores, err := h.stores.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"stores": stores})
}

// Get loads one store with its workstations and barbers.
func (h *StoreHandler) Get(c *gin.Context) {
	store, err := h.stores.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, store)
}

type updateStoreRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=128"`
	Address  *string `json:"address" validate:"omitempty,max=256"`
	City     *string `json:"city" validate:"omitempty,max=128"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	IsActive *bool   `json:"is_active"`
}

// Update mutates a store the caller owns.
func (h *StoreHandler) Update(c *gin.Context) {
	var req updateStoreRequest
	if !bindAndValidate(c, &req) {
		return
	}

	store, err := h.stores.Update(c.Request.Context(), currentUserID(c), c.Param("id"), services.UpdateStoreInput{
		Name:     req.Name,
		Address:  req.Address,
		City:     req.City,
		Phone:    req.Phone,
		IsActive: req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, store)
}

// Delete removes a store and its dependents.
func (h *StoreHandler) Delete(c *gin.Context) {
	if err := h.stores.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
