package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepnotes/mocktest-backend/internal/config"
	"github.com/prepnotes/mocktest-backend/internal/handler"
	"github.com/prepnotes/mocktest-backend/internal/middleware"
	"github.com/prepnotes/mocktest-backend/internal/response"
	"github.com/prepnotes/mocktest-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	Portal        *handler.PortalHandler
	Product       *handler.ProductHandler
	CandidateMgmt *handler.CandidateMgmtHandler
	WS            *handler.WSHandler
	Monitor       *handler.MonitorHandler
	System        *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/candidate/register", handlers.Auth.Register)
		auth.POST("/candidate/login", handlers.Auth.CandidateLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/candidate/logout", middleware.RequireCandidateJWT(authService), handlers.Auth.CandidateLogout)
		auth.GET("/candidate/me", middleware.RequireCandidateJWT(authService), handlers.Auth.GetCandidateProfile)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Storefront Catalog (Public) ────────────────────────────────
	router.GET("/api/v1/catalog", handlers.Portal.GetCatalog)

	// ─── 3. Candidate Portal (JWT + Single Device) ─────────────────────
	portalAPI := router.Group("/api/v1/portal")
	portalAPI.Use(
		middleware.RequireCandidateJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		portalAPI.GET("/products", handlers.Portal.GetOwned)
		portalAPI.GET("/attempts", handlers.Portal.GetMyAttempts)
		portalAPI.POST("/products/:product_id/attempts", handlers.Portal.StartAttempt)
		portalAPI.DELETE("/products/:product_id/attempts", handlers.Portal.AbortAttempt)
		portalAPI.GET("/products/:product_id/paper", handlers.Portal.GetPaper)
		portalAPI.GET("/products/:product_id/state", handlers.Portal.GetState)
	}

	// ─── 4. WebSocket Group (Candidate WS Auth) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateWSAuth(authService))
	{
		ws.GET("/portal/products/:product_id/exam", handlers.WS.HandleExam)
	}

	// ─── 5. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Product management
		adminAPI.GET("/products", handlers.Product.ListProducts)
		adminAPI.POST("/products", handlers.Product.CreateProduct)
		adminAPI.GET("/products/:product_id", handlers.Product.GetProduct)
		adminAPI.PUT("/products/:product_id", handlers.Product.UpdateProduct)
		adminAPI.DELETE("/products/:product_id", handlers.Product.DeleteProduct)
		adminAPI.POST("/products/:product_id/publish", handlers.Product.PublishProduct)
		adminAPI.POST("/products/:product_id/archive", handlers.Product.ArchiveProduct)

		// Question bank
		adminAPI.GET("/products/:product_id/questions", handlers.Product.ListQuestions)
		adminAPI.POST("/products/:product_id/questions", handlers.Product.AddQuestion)
		adminAPI.PUT("/products/:product_id/questions", handlers.Product.ReplaceQuestions)
		adminAPI.DELETE("/products/:product_id/questions/:question_id", handlers.Product.DeleteQuestion)

		// Results and violations
		adminAPI.GET("/products/:product_id/results", handlers.Product.ListResults)
		adminAPI.GET("/products/:product_id/candidates/:candidate_id/violations", handlers.Product.ListAttemptViolations)

		// Live proctoring
		adminAPI.GET("/products/:product_id/monitor", handlers.Monitor.StreamProduct)

		// Candidate management
		adminAPI.GET("/candidates", handlers.CandidateMgmt.ListCandidates)
		adminAPI.GET("/candidates/:candidate_id", handlers.CandidateMgmt.GetCandidate)
		adminAPI.PUT("/candidates/:candidate_id", handlers.CandidateMgmt.UpdateCandidate)
		adminAPI.DELETE("/candidates/:candidate_id", handlers.CandidateMgmt.DeleteCandidate)
		adminAPI.POST("/candidates/:candidate_id/reset-session", handlers.CandidateMgmt.ResetSession)
		adminAPI.GET("/candidates/:candidate_id/entitlements", handlers.CandidateMgmt.ListEntitlements)

		// Entitlements
		adminAPI.POST("/entitlements", handlers.CandidateMgmt.GrantEntitlement)
		adminAPI.DELETE("/entitlements", handlers.CandidateMgmt.RevokeEntitlement)

		// System monitoring
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
