package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/barberhq/barberhq/internal/middleware"
	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/internal/permissions"
	"github.com/barberhq/barberhq/internal/services"
)

func TestAdminWorkstationEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := openHandlerTestDB(t)
	svc := newHandlerWorkstationService(t, db)

	owner := createHandlerTestUser(t, db, "owner")
	other := createHandlerTestUser(t, db, "other")
	store := &models.Store{OwnerID: owner.ID, Name: "Fade Factory", Slug: "fade-factory", IsActive: true}
	require.NoError(t, db.Create(store).Error)

	r := gin.New()
	r.POST("/api/admin/workstations", stubIdentity(), NewAdminWorkstationHandler(svc).Handle)

	// Creating a workstation answers with the flat envelope.
	w := postAction(t, r, owner.ID, gin.H{
		"action": "create",
		"data":   gin.H{"store_id": store.ID, "number": "A001", "type": "standard"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		Success bool `json:"success"`
		Data    struct {
			ID      string `json:"id"`
			Number  string `json:"number"`
			StoreID string `json:"store_id"`
			Status  string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.True(t, created.Success)
	require.Equal(t, "A001", created.Data.Number)
	require.Equal(t, store.ID, created.Data.StoreID)
	require.Equal(t, models.WorkstationAvailable, created.Data.Status)
	require.NotEmpty(t, created.Data.ID)

	// Errors come back as a flat string, not the nested envelope.
	w = postAction(t, r, other.ID, gin.H{
		"action": "create",
		"data":   gin.H{"store_id": store.ID, "number": "A002"},
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	var denied struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &denied))
	require.False(t, denied.Success)
	require.NotEmpty(t, denied.Error)

	// Listing by store returns the created workstation.
	w = postAction(t, r, owner.ID, gin.H{
		"action": "getWorkstations",
		"data":   gin.H{"store_id": store.ID},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Success bool `json:"success"`
		Data    []struct {
			Number string `json:"number"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.True(t, listed.Success)
	require.Len(t, listed.Data, 1)
	require.Equal(t, "A001", listed.Data[0].Number)

	// Deleting answers with the id echoed back.
	w = postAction(t, r, owner.ID, gin.H{
		"action": "delete",
		"data":   gin.H{"id": created.Data.ID},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t,
		`{"success":true,"data":{"id":"`+created.Data.ID+`","deleted":true}}`,
		w.Body.String(),
	)
}

func TestAdminWorkstationUnknownAction(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := openHandlerTestDB(t)
	svc := newHandlerWorkstationService(t, db)
	owner := createHandlerTestUser(t, db, "owner")

	r := gin.New()
	r.POST("/api/admin/workstations", stubIdentity(), NewAdminWorkstationHandler(svc).Handle)

	w := postAction(t, r, owner.ID, gin.H{"action": "explode"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"success":false,"error":"Unknown action: explode"}`, w.Body.String())

	w = postAction(t, r, owner.ID, gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"success":false,"error":"Invalid request payload"}`, w.Body.String())
}

// stubIdentity copies the X-Test-User header into the auth context slot.
func stubIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(middleware.CtxUserIDKey, id)
		}
		c.Next()
	}
}

func postAction(t *testing.T, r *gin.Engine, userID string, body gin.H) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/workstations", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", userID)
	r.ServeHTTP(w, req)
	return w
}

func newHandlerWorkstationService(t *testing.T, db *gorm.DB) *services.WorkstationService {
	t.Helper()

	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	svc, err := services.NewWorkstationService(db, checker, nil)
	require.NoError(t, err)
	return svc
}

func createHandlerTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		Status:   models.AccountActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func openHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Store{},
		&models.Workstation{},
		&models.Barber{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
