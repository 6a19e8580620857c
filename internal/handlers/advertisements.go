package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/barberhq/barberhq/internal/services"
	"github.com/barberhq/barberhq/pkg/response"
)

// AdvertisementHandler exposes advertisement CRUD plus the public active feed.
type AdvertisementHandler struct {
	ads *services.AdvertisementService
}

// NewAdvertisementHandler constructs an AdvertisementHandler.
func NewAdvertisementHandler(ads *services.AdvertisementService) *AdvertisementHandler {
	return &AdvertisementHandler{ads: ads}
}

type createAdvertisementRequest struct {
	StoreID   string         `json:"store_id" validate:"required"`
	Title     string         `json:"title" validate:"required,max=256"`
	Body      string         `json:"body" validate:"max=4096"`
	Placement string         `json:"placement" validate:"omitempty,oneof=home search store_page"`
	Metadata  map[string]any `json:"metadata"`
	StartsAt  *time.Time     `json:"starts_at"`
	EndsAt    *time.Time     `json:"ends_at"`
}

// Create publishes an advertisement for one of the caller's stores.
func (h *AdvertisementHandler) Create(c *gin.Context) {
	var req createAdvertisementRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ad, err := h.ads.Create(c.Request.Context(), currentUserID(c), services.CreateAdvertisementInput{
		StoreID:   req.StoreID,
		Title:     req.Title,
		Body:      req.Body,
		Placement: req.Placement,
		Metadata:  req.Metadata,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, ad)
}

// List returns a store's advertisements.
func (h *AdvertisementHandler) List(c *gin.Context) {
	ads, err := h.ads.ListByStore(c.Request.Context(), c.Query("store_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"advertisements": ads})
}

// Get loads a single advertisement.
func (h *AdvertisementHandler) Get(c *gin.Context) {
	ad, err := h.ads.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, ad)
}

// ListActive returns ads currently inside their display window. Public.
func (h *AdvertisementHandler) ListActive(c *gin.Context) {
	ads, err := h.ads.ListActive(c.Request.Context(), c.Query("placement"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"advertisements": ads})
}

type updateAdvertisementRequest struct {
	Title     *string        `json:"title" validate:"omitempty,max=256"`
	Body      *string        `json:"body" validate:"omitempty,max=4096"`
	Placement *string        `json:"placement" validate:"omitempty,oneof=home search store_page"`
	Metadata  map[string]any `json:"metadata"`
	StartsAt  *time.Time     `json:"starts_at"`
	EndsAt    *time.Time     `json:"ends_at"`
	IsActive  *bool          `json:"is_active"`
}

// Update mutates an advertisement.
func (h *AdvertisementHandler) Update(c *gin.Context) {
	var req updateAdvertisementRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ad, err := h.ads.Update(c.Request.Context(), currentUserID(c), c.Param("id"), services.UpdateAdvertisementInput{
		Title:     req.Title,
		Body:      req.Body,
		Placement: req.Placement,
		Metadata:  req.Metadata,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		IsActive:  req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, ad)
}

// Delete removes an advertisement.
func (h *AdvertisementHandler) Delete(c *gin.Context) {
	if err := h.ads.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
