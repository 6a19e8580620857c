package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	iauth "github.com/barberhq/barberhq/internal/auth"
	"github.com/barberhq/barberhq/internal/handlers"
	"github.com/barberhq/barberhq/internal/middleware"
	"github.com/barberhq/barberhq/internal/permissions"
)

// Dependencies bundles everything the router needs. Optional fields may be
// nil; the corresponding routes are then skipped.
type Dependencies struct {
	JWT     *iauth.JWTService
	Checker *permissions.Checker

	Auth           *handlers.AuthHandler
	MFA            *handlers.MFAHandler
	SSO            *handlers.SSOHandler
	Health         *handlers.HealthHandler
	Stores         *handlers.StoreHandler
	Workstations   *handlers.WorkstationHandler
	Barbers        *handlers.BarberHandler
	Advertisements *handlers.AdvertisementHandler
	Invites        *handlers.InviteHandler

	AdminAccounts     *handlers.AdminAccountHandler
	AdminWorkstations *handlers.AdminWorkstationHandler
	AdminAudit        *handlers.AdminAuditHandler

	RateStore      middleware.RateStore
	RateLimitMax   int
	RateLimitEvery time.Duration
}

// NewRouter wires the middleware chain and all route groups.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())

	if deps.RateStore != nil && deps.RateLimitMax > 0 {
		window := deps.RateLimitEvery
		if window <= 0 {
			window = time.Minute
		}
		router.Use(middleware.RateLimit(deps.RateStore, deps.RateLimitMax, window))
	}

	router.NoRoute(middleware.NotFoundHandler)

	router.GET("/healthz", deps.Health.Live)
	router.GET("/readyz", deps.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	// Public surface: registration, login, token refresh, invitation
	// acceptance, and the active ad feed.
	public := api.Group("")
	{
		public.POST("/auth/register", deps.Auth.Register)
		public.POST("/auth/login", deps.Auth.Login)
		public.POST("/auth/refresh", deps.Auth.Refresh)
		public.POST("/invitations/accept", deps.Invites.Accept)
		public.GET("/advertisements/active", deps.Advertisements.ListActive)

		if deps.SSO != nil {
			public.GET("/auth/sso", deps.SSO.Begin)
			public.GET("/auth/sso/callback", deps.SSO.Callback)
		}
	}

	authed := api.Group("", middleware.Auth(deps.JWT))
	{
		authed.POST("/auth/logout", deps.Auth.Logout)
		authed.GET("/auth/me", deps.Auth.Me)
		authed.PATCH("/auth/profile", deps.Auth.UpdateProfile)
		authed.POST("/auth/password", deps.Auth.ChangePassword)

		if deps.MFA != nil {
			mfaGroup := authed.Group("/auth/mfa")
			mfaGroup.POST("/setup", deps.MFA.Setup)
			mfaGroup.POST("/confirm", deps.MFA.Confirm)
			mfaGroup.POST("/disable", deps.MFA.Disable)
			mfaGroup.GET("/backup-codes", deps.MFA.BackupCodes)
		}

		stores := authed.Group("/stores")
		stores.GET("", middleware.RequirePermission(deps.Checker, "store.view"), deps.Stores.List)
		stores.GET("/:id", middleware.RequirePermission(deps.Checker, "store.view"), deps.Stores.Get)
		stores.POST("", middleware.RequirePermission(deps.Checker, "store.manage"), deps.Stores.Create)
		stores.PATCH("/:id", middleware.RequirePermission(deps.Checker, "store.manage"), deps.Stores.Update)
		stores.DELETE("/:id", middleware.RequirePermission(deps.Checker, "store.manage"), deps.Stores.Delete)

		workstations := authed.Group("/workstations")
		workstations.GET("", middleware.RequirePermission(deps.Checker, "workstation.view"), deps.Workstations.List)
		workstations.GET("/:id", middleware.RequirePermission(deps.Checker, "workstation.view"), deps.Workstations.Get)
		workstations.POST("", middleware.RequirePermission(deps.Checker, "workstation.manage"), deps.Workstations.Create)
		workstations.PATCH("/:id", middleware.RequirePermission(deps.Checker, "workstation.manage"), deps.Workstations.Update)
		workstations.POST("/:id/assign", middleware.RequirePermission(deps.Checker, "workstation.manage"), deps.Workstations.AssignBarber)
		workstations.POST("/:id/release", middleware.RequirePermission(deps.Checker, "workstation.manage"), deps.Workstations.ReleaseBarber)
		workstations.DELETE("/:id", middleware.RequirePermission(deps.Checker, "workstation.manage"), deps.Workstations.Delete)

		barbers := authed.Group("/barbers")
		barbers.GET("", middleware.RequirePermission(deps.Checker, "barber.view"), deps.Barbers.List)
		barbers.GET("/:id", middleware.RequirePermission(deps.Checker, "barber.view"), deps.Barbers.Get)
		barbers.POST("", middleware.RequirePermission(deps.Checker, "barber.manage"), deps.Barbers.Create)
		barbers.PATCH("/:id", middleware.RequirePermission(deps.Checker, "barber.manage"), deps.Barbers.Update)
		barbers.DELETE("/:id", middleware.RequirePermission(deps.Checker, "barber.manage"), deps.Barbers.Delete)

		ads := authed.Group("/advertisements")
		ads.GET("", middleware.RequirePermission(deps.Checker, "ad.view"), deps.Advertisements.List)
		ads.GET("/:id", middleware.RequirePermission(deps.Checker, "ad.view"), deps.Advertisements.Get)
		ads.POST("", middleware.RequirePermission(deps.Checker, "ad.manage"), deps.Advertisements.Create)
		ads.PATCH("/:id", middleware.RequirePermission(deps.Checker, "ad.manage"), deps.Advertisements.Update)
		ads.DELETE("/:id", middleware.RequirePermission(deps.Checker, "ad.manage"), deps.Advertisements.Delete)

		invites := authed.Group("/invitations")
		invites.GET("", middleware.RequirePermission(deps.Checker, "barber.manage"), deps.Invites.List)
		invites.POST("", middleware.RequirePermission(deps.Checker, "barber.manage"), deps.Invites.Create)
		invites.POST("/:id/resend", middleware.RequirePermission(deps.Checker, "barber.manage"), deps.Invites.Resend)
		invites.POST("/:id/revoke", middleware.RequirePermission(deps.Checker, "barber.manage"), deps.Invites.Revoke)
	}

	admin := api.Group("/admin", middleware.Auth(deps.JWT), middleware.RequireSuperAdmin(deps.Checker))
	{
		admin.GET("/accounts", deps.AdminAccounts.List)
		admin.POST("/accounts/:id/ban", deps.AdminAccounts.Ban)
		admin.POST("/accounts/:id/reactivate", deps.AdminAccounts.Reactivate)
		admin.DELETE("/accounts/:id", deps.AdminAccounts.Delete)
		admin.PUT("/accounts/:id/roles", deps.AdminAccounts.SetRoles)
		admin.POST("/accounts/:id/impersonate", deps.AdminAccounts.Impersonate)

		admin.GET("/stores", deps.Stores.ListAll)
		admin.POST("/workstations", deps.AdminWorkstations.Handle)

		admin.GET("/audit", deps.AdminAudit.List)
	}

	return router
}
