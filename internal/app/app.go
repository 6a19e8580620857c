package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/barberhq/barberhq/internal/api"
	"github.com/barberhq/barberhq/internal/app/maintenance"
	iauth "github.com/barberhq/barberhq/internal/auth"
	"github.com/barberhq/barberhq/internal/auth/mfa"
	"github.com/barberhq/barberhq/internal/auth/providers"
	"github.com/barberhq/barberhq/internal/cache"
	"github.com/barberhq/barberhq/internal/database"
	"github.com/barberhq/barberhq/internal/handlers"
	"github.com/barberhq/barberhq/internal/middleware"
	"github.com/barberhq/barberhq/internal/permissions"
	"github.com/barberhq/barberhq/internal/services"
	"github.com/barberhq/barberhq/pkg/logger"
	"github.com/barberhq/barberhq/pkg/mail"
)

// App owns the wired application: database, services, HTTP server, and the
// maintenance scheduler.
type App struct {
	cfg       *Config
	db        *gorm.DB
	server    *http.Server
	scheduler *maintenance.Scheduler
	redis     *cache.RedisClient
	log       *zap.Logger
}

// New builds the full dependency graph from configuration.
func New(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}

	log := logger.WithModule("app")

	db, err := database.Open(database.Config{
		Driver:   cfg.Database.Driver,
		Path:     cfg.Database.Path,
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Name:     cfg.Database.Name,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Options:  cfg.Database.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("app: open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("app: migrate: %w", err)
	}

	// Cache backend: Redis when configured, otherwise the database table.
	var (
		cacheStore  cache.Store
		redisClient *cache.RedisClient
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cache.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("app: redis: %w", err)
		}
		cacheStore = redisClient
		log.Info("redis cache enabled", zap.String("address", cfg.Redis.Address))
	} else {
		cacheStore = cache.NewDatabaseStore(db)
	}

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWTSecret,
		Issuer:         cfg.Auth.Issuer,
		AccessTokenTTL: cfg.Auth.AccessTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("app: jwt: %w", err)
	}

	sessions, err := iauth.NewSessionService(db, jwtService, iauth.SessionConfig{
		RefreshTokenTTL:  cfg.Auth.RefreshTokenTTL,
		ImpersonationTTL: cfg.Auth.ImpersonationTTL,
		Cache:            iauth.NewSessionStoreCache(cacheStore),
	})
	if err != nil {
		return nil, fmt.Errorf("app: sessions: %w", err)
	}

	local, err := providers.NewLocalProvider(db, providers.LocalConfig{
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		LockoutDuration:  cfg.Auth.LockoutDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("app: local provider: %w", err)
	}

	totp, err := mfa.NewTOTPService(db, []byte(cfg.Auth.EncryptionKey))
	if err != nil {
		return nil, fmt.Errorf("app: totp: %w", err)
	}

	checker, err := permissions.NewChecker(db)
	if err != nil {
		return nil, fmt.Errorf("app: permissions: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(mail.SMTPSettings{
		Enabled:  cfg.SMTP.Enabled,
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		UseTLS:   cfg.SMTP.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("app: smtp: %w", err)
	}

	auditService, err := services.NewAuditService(db)
	if err != nil {
		return nil, fmt.Errorf("app: audit service: %w", err)
	}
	userService, err := services.NewUserService(db, auditService)
	if err != nil {
		return nil, fmt.Errorf("app: user service: %w", err)
	}
	moderation, err := services.NewModerationService(db, checker, sessions, auditService)
	if err != nil {
		return nil, fmt.Errorf("app: moderation service: %w", err)
	}
	storeService, err := services.NewStoreService(db, checker, auditService)
	if err != nil {
		return nil, fmt.Errorf("app: store service: %w", err)
	}
	workstationService, err := services.NewWorkstationService(db, checker, auditService)
	if err != nil {
		return nil, fmt.Errorf("app: workstation service: %w", err)
	}
	barberService, err := services.NewBarberService(db, checker, auditService)
	if err != nil {
		return nil, fmt.Errorf("app: barber service: %w", err)
	}
	adService, err := services.NewAdvertisementService(db, checker, auditService)
	if err != nil {
		return nil, fmt.Errorf("app: advertisement service: %w", err)
	}
	inviteService, err := services.NewInviteService(db, checker, auditService, mailer)
	if err != nil {
		return nil, fmt.Errorf("app: invite service: %w", err)
	}

	var sso *handlers.SSOHandler
	if cfg.SSO.Enabled {
		oidcProvider, err := providers.NewOIDCProvider(providers.OIDCConfig{
			Issuer:       cfg.SSO.Issuer,
			ClientID:     cfg.SSO.ClientID,
			ClientSecret: cfg.SSO.ClientSecret,
			RedirectURL:  cfg.SSO.RedirectURL,
			Scopes:       cfg.SSO.Scopes,
		}, providers.OIDCOptions{})
		if err != nil {
			return nil, fmt.Errorf("app: oidc: %w", err)
		}
		stateCodec, err := iauth.NewStateCodec([]byte(cfg.Auth.EncryptionKey), 10*time.Minute, nil)
		if err != nil {
			return nil, fmt.Errorf("app: sso state: %w", err)
		}
		sso = handlers.NewSSOHandler(db, oidcProvider, stateCodec, sessions)
	}

	var rateStore middleware.RateStore
	if cfg.RateLimit.Enabled {
		rateStore = middleware.NewCacheRateStore(cacheStore)
	}

	router := api.NewRouter(api.Dependencies{
		JWT:     jwtService,
		Checker: checker,

		Auth:           handlers.NewAuthHandler(local, sessions, totp, userService),
		MFA:            handlers.NewMFAHandler(totp, userService),
		SSO:            sso,
		Health:         handlers.NewHealthHandler(db),
		Stores:         handlers.NewStoreHandler(storeService),
		Workstations:   handlers.NewWorkstationHandler(workstationService),
		Barbers:        handlers.NewBarberHandler(barberService),
		Advertisements: handlers.NewAdvertisementHandler(adService),
		Invites:        handlers.NewInviteHandler(inviteService),

		AdminAccounts:     handlers.NewAdminAccountHandler(moderation, userService),
		AdminWorkstations: handlers.NewAdminWorkstationHandler(workstationService),
		AdminAudit:        handlers.NewAdminAuditHandler(auditService),

		RateStore:      rateStore,
		RateLimitMax:   cfg.RateLimit.MaxRequests,
		RateLimitEvery: cfg.RateLimit.Window,
	})

	scheduler, err := maintenance.NewScheduler(sessions, inviteService, auditService, maintenance.Options{
		Schedule:           cfg.Cleanup.Schedule,
		AuditRetentionDays: cfg.Cleanup.AuditRetentionDays,
		InviteRetention:    cfg.Cleanup.InviteRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("app: scheduler: %w", err)
	}

	return &App{
		cfg: cfg,
		db:  db,
		server: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		scheduler: scheduler,
		redis:     redisClient,
		log:       log,
	}, nil
}

// Run starts the scheduler and HTTP server, blocking until ctx is cancelled
// or the server fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.scheduler.Start(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errCh:
		a.scheduler.Stop()
		return err
	}
}

func (a *App) shutdown() error {
	a.log.Info("shutting down")

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := a.server.Shutdown(ctx)
	a.scheduler.Stop()

	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, dbErr := a.db.DB(); dbErr == nil {
		_ = sqlDB.Close()
	}

	return err
}
