package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig holds the settings for a single OpenID Connect identity provider.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// OIDCOptions configures the behaviour of the OIDC provider implementation.
type OIDCOptions struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Identity represents the claims returned from an external authentication provider.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	DisplayName   string
	AvatarURL     string
	RawClaims     map[string]any
}

// OIDCProvider implements the authorization code flow with PKCE against a
// single configured identity provider.
type OIDCProvider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	timeout     time.Duration
}

// NewOIDCProvider performs discovery against the issuer and returns a ready provider.
func NewOIDCProvider(cfg OIDCConfig, opts OIDCOptions) (*OIDCProvider, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("oidc provider: issuer is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("oidc provider: client id is required")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("oidc provider: client secret is required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, errors.New("oidc provider: redirect url is required")
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}

	ctx := context.Background()
	if opts.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, opts.HTTPClient)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	issuer, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: discovery failed: %w", err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     issuer.Endpoint(),
		RedirectURL:  cfg.RedirectURL,
		Scopes:       scopes,
	}

	return &OIDCProvider{
		oauthConfig: oauthConfig,
		verifier:    issuer.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		timeout:     opts.Timeout,
	}, nil
}

// AuthCodeURL builds the authorization redirect URL for the given state,
// nonce, and PKCE S256 challenge.
func (p *OIDCProvider) AuthCodeURL(state, nonce, pkceChallenge string) (string, error) {
	if strings.TrimSpace(state) == "" {
		return "", errors.New("oidc provider: state is required")
	}
	if strings.TrimSpace(nonce) == "" {
		return "", errors.New("oidc provider: nonce is required")
	}
	if strings.TrimSpace(pkceChallenge) == "" {
		return "", errors.New("oidc provider: pkce challenge is required")
	}

	return p.oauthConfig.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("code_challenge", pkceChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	), nil
}

// Exchange redeems the authorization code, verifies the ID token, and returns
// the external identity.
func (p *OIDCProvider) Exchange(ctx context.Context, code, pkceVerifier, expectedNonce string) (*Identity, error) {
	if code == "" {
		return nil, errors.New("oidc provider: authorization code missing")
	}
	if strings.TrimSpace(pkceVerifier) == "" {
		return nil, errors.New("oidc provider: pkce verifier is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token, err := p.oauthConfig.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", pkceVerifier))
	if err != nil {
		return nil, fmt.Errorf("oidc provider: exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("oidc provider: id token missing")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: verify id token: %w", err)
	}
	if expectedNonce != "" && idToken.Nonce != expectedNonce {
		return nil, errors.New("oidc provider: nonce mismatch")
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("oidc provider: decode claims: %w", err)
	}

	return &Identity{
		Provider:      "oidc",
		Subject:       idToken.Subject,
		Email:         stringValue(claims, "email"),
		EmailVerified: boolValue(claims, "email_verified"),
		DisplayName:   stringValue(claims, "name"),
		AvatarURL:     stringValue(claims, "picture"),
		RawClaims:     claims,
	}, nil
}

func stringValue(claims map[string]any, key string) string {
	if v, ok := claims[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func boolValue(claims map[string]any, key string) bool {
	if v, ok := claims[key]; ok {
		switch val := v.(type) {
		case bool:
			return val
		case string:
			return strings.EqualFold(val, "true")
		}
	}
	return false
}
