package router

import (
	"net/http"
	"time"

	"github.com/edustack/assess-backend/internal/config"
	"github.com/edustack/assess-backend/internal/handler"
	"github.com/edustack/assess-backend/internal/middleware"
	"github.com/edustack/assess-backend/internal/model"
	"github.com/edustack/assess-backend/internal/response"
	"github.com/edustack/assess-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Authoring *handler.AuthoringHandler
	Review    *handler.ReviewHandler
	Portal    *handler.PortalHandler
	WS        *handler.WSHandler
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

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. Tutor Group (Authoring) ────────────────────────────────────
	tutorAPI := router.Group("/api/v1/tutor")
	tutorAPI.Use(middleware.RequireRole(authService, model.RoleTutor))
	{
		tutorAPI.GET("/subjects", handlers.Authoring.ListSubjects)
		tutorAPI.GET("/assessments", handlers.Authoring.ListMine)
		tutorAPI.POST("/assessments", handlers.Authoring.SubmitForReview)
		tutorAPI.GET("/assessments/:staging_id", handlers.Authoring.GetDetail)
	}

	// ─── 3. Faculty Group (Review + Oversight) ─────────────────────────
	facultyAPI := router.Group("/api/v1/faculty")
	facultyAPI.Use(middleware.RequireRole(authService, model.RoleFaculty))
	{
		facultyAPI.GET("/review", handlers.Review.ListPending)
		facultyAPI.GET("/review/:staging_id", handlers.Review.GetDetail)
		facultyAPI.POST("/review/:staging_id", handlers.Review.Review)
		facultyAPI.POST("/assessments/:assessment_id/archive", handlers.Review.Archive)
		facultyAPI.GET("/assessments/:assessment_id/results", handlers.Review.Leaderboard)
		facultyAPI.GET("/assessments/:assessment_id/stats", handlers.Review.Stats)
	}

	// ─── 4. Student Group (Catalog + Attempts) ─────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireRole(authService, model.RoleStudent))
	{
		studentAPI.GET("/assessments", handlers.Portal.Catalog)
		studentAPI.GET("/assessments/:assessment_id/paper", handlers.Portal.GetPaper)
		studentAPI.POST("/assessments/:assessment_id/attempts", handlers.Portal.StartAttempt)
		studentAPI.GET("/assessments/:assessment_id/attempt", handlers.Portal.ActiveAttempt)
		studentAPI.GET("/attempts/:attempt_id", handlers.Portal.GetAttempt)
		studentAPI.PUT("/attempts/:attempt_id/answers/:question_id", handlers.Portal.RecordAnswer)
		studentAPI.POST("/attempts/:attempt_id/submit", handlers.Portal.SubmitAttempt)
		studentAPI.GET("/results", handlers.Portal.History)
	}

	// ─── 5. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService, model.RoleStudent))
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	return router
}
