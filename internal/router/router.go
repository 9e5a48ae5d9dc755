package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/config"
	"github.com/stemsi/recruitment-portal/internal/handler"
	"github.com/stemsi/recruitment-portal/internal/middleware"
	"github.com/stemsi/recruitment-portal/internal/response"
	"github.com/stemsi/recruitment-portal/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Portal  *handler.CandidatePortalHandler
	Result  *handler.ResultHandler
	WS      *handler.WSHandler
	Monitor *handler.MonitorHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work such as rate limiter cleanup.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Prometheus())
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(ctx, cfg.AuthRateLimit, time.Minute)

	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/signup", authLimiter.Middleware(), handlers.Auth.Signup)
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.POST("/logout", handlers.Auth.Logout)
		auth.GET("/me", handlers.Auth.Me)
	}

	// ─── 2. Candidate Group (JWT + Single Session) ─────────────────────
	candidateAPI := router.Group("/api/v1/candidate")
	candidateAPI.Use(middleware.RequireCandidateJWT(authService)...)
	{
		candidateAPI.GET("/questions", middleware.CacheControl(cfg.QuestionsCacheSecs), handlers.Portal.Questions)

		noStore := candidateAPI.Group("")
		noStore.Use(middleware.NoStore())
		{
			noStore.GET("/profile", handlers.Portal.Profile)
			noStore.GET("/session", handlers.Portal.Session)
			noStore.POST("/session/start", handlers.Portal.Start)
			noStore.POST("/session/hidden", handlers.Portal.Hidden)
			noStore.POST("/session/suspend", handlers.Portal.Suspend)
			noStore.POST("/session/submit", handlers.Portal.Submit)
			noStore.GET("/result", handlers.Result.Current)
			noStore.GET("/results", handlers.Result.History)
		}
	}

	// ─── 3. WebSocket Group (token via query) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateJWT(authService)...)
	{
		ws.GET("/candidate/session/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Admin Group ────────────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService)...)
	adminAPI.Use(middleware.NoStore())
	{
		adminAPI.GET("/results", handlers.Result.All)
		adminAPI.GET("/monitor", handlers.Monitor.MonitorSSE)
		adminAPI.GET("/monitor/snapshot", handlers.Monitor.Snapshot)
		adminAPI.GET("/system", handlers.System.Runtime)
	}

	return router
}
