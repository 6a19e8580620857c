package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/barberhq/barberhq/internal/auth"
	"github.com/barberhq/barberhq/internal/auth/providers"
	"github.com/barberhq/barberhq/internal/models"
	"github.com/barberhq/barberhq/pkg/crypto"
	apperrors "github.com/barberhq/barberhq/pkg/errors"
	"github.com/barberhq/barberhq/pkg/response"
)

// SSOHandler implements the OIDC authorization-code login flow. State travels
// as an encrypted payload carrying the PKCE verifier and nonce, so the
// callback needs no server-side state storage.
type SSOHandler struct {
	db       *gorm.DB
	oidc     *providers.OIDCProvider
	state    *iauth.StateCodec
	sessions *iauth.SessionService
}

// NewSSOHandler constructs an SSOHandler. The oidc provider may be nil when
// SSO is not configured; endpoints then answer 404.
func NewSSOHandler(db *gorm.DB, oidc *providers.OIDCProvider, state *iauth.StateCodec, sessions *iauth.SessionService) *SSOHandler {
	return &SSOHandler{db: db, oidc: oidc, state: state, sessions: sessions}
}

// Begin starts the login flow by redirecting to the identity provider.
func (h *SSOHandler) Begin(c *gin.Context) {
	if h.oidc == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	pkce, err := iauth.GeneratePKCE()
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	nonce, err := crypto.GenerateToken(16)
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	state, err := h.state.Encode(iauth.StatePayload{
		Provider:  "oidc",
		ReturnURL: c.Query("return_url"),
		Nonce:     nonce,
		PKCE:      pkce.Verifier,
	})
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	url, err := h.oidc.AuthCodeURL(state, nonce, pkce.Challenge)
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	c.Redirect(http.StatusFound, url)
}

// Callback completes the flow: validates state, redeems the code, and issues a
// session for the matched (or provisioned) account.
func (h *SSOHandler) Callback(c *gin.Context) {
	if h.oidc == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	payload, err := h.state.Decode(c.Query("state"))
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("Invalid or expired login state"))
		return
	}

	identity, err := h.oidc.Exchange(c.Request.Context(), c.Query("code"), payload.PKCE, payload.Nonce)
	if err != nil {
		response.Error(c, apperrors.ErrUnauthorized.WithInternal(err))
		return
	}

	user, err := h.resolveUser(identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	if user.Banned() {
		response.Error(c, apperrors.ErrAccountBanned)
		return
	}

	pair, session, err := h.sessions.CreateSession(user.ID, sessionMetadata(c))
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":          user,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"session_id":    session.ID,
		"return_url":    payload.ReturnURL,
	})
}

// resolveUser matches the external identity to an account by email, creating
// one when the provider vouches for the address.
func (h *SSOHandler) resolveUser(identity *providers.Identity) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("Identity provider returned no email address")
	}

	var user models.User
	err := h.db.Where("email = ?", email).Take(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if !identity.EmailVerified {
		return nil, apperrors.NewBadRequest("Email address is not verified by the identity provider")
	}

	password, err := crypto.GenerateToken(32)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	user = models.User{
		Username:    usernameFromEmail(email),
		Email:       email,
		Password:    hashed,
		DisplayName: identity.DisplayName,
		Avatar:      identity.AvatarURL,
		Status:      models.AccountActive,
	}
	if err := h.db.Create(&user).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	return &user, nil
}

func usernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
