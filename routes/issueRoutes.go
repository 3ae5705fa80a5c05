package routes

import (
	"log/slog"
	"net/http"

	"urbanconnect-be/controllers"
	"urbanconnect-be/middlewares"
	"urbanconnect-be/models"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers bundles every controller the router serves.
type Handlers struct {
	Auth   *controllers.AuthController
	Issues *controllers.IssueController
	Admin  *controllers.AdminController
	Media  *controllers.MediaController
	Geo    *controllers.GeoController
	Events *controllers.EventsController
}

type Options struct {
	JWTSecret       string
	AllowedOrigins  []string
	Redis           *redis.Client
	IssueLimitQueue string
	DailyIssueLimit int
	Log             *slog.Logger
}

// Setup builds the gin engine with every route group.
func Setup(h Handlers, opts Options) *gin.Engine {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(opts.Log), middlewares.CORSMiddleware(opts.AllowedOrigins))
	r.MaxMultipartMemory = 32 << 20

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/media/*key", h.Media.Serve)

	AuthRoutes(r, h.Auth, opts.JWTSecret)
	IssueRoutes(r, h, opts)
	AdminRoutes(r, h, opts.JWTSecret)
	return r
}

// IssueRoutes sets up the citizen-facing issue routes
func IssueRoutes(r *gin.Engine, h Handlers, opts Options) {
	auth := middlewares.AuthMiddleware(opts.JWTSecret)
	optional := middlewares.OptionalAuth(opts.JWTSecret)

	issues := r.Group("/api/issues")
	{
		issues.POST("",
			auth,
			middlewares.IssueRateLimiter(opts.Redis, opts.IssueLimitQueue, opts.DailyIssueLimit),
			h.Issues.CreateIssue,
		)
		issues.GET("", optional, h.Issues.GetAllIssues)
		issues.GET("/resolved", optional, h.Issues.GetResolvedIssues)
		issues.GET("/mine", auth, h.Issues.GetMyIssues)
		issues.GET("/events", auth, h.Events.Stream)
		issues.GET("/:id", optional, h.Issues.GetIssue)
		issues.POST("/:id/vote", auth, h.Issues.ToggleVote)
		issues.POST("/:id/feedback", auth, h.Issues.SubmitFeedback)
	}

	r.POST("/api/upload", auth, h.Media.Upload)
	r.GET("/api/geo/reverse", h.Geo.ReverseGeocode)
}

// AdminRoutes sets up the triage routes, all restricted to administrators
func AdminRoutes(r *gin.Engine, h Handlers, secret string) {
	admin := r.Group("/api/admin", middlewares.AuthMiddleware(secret), middlewares.RequireRole(models.RoleAdmin))
	{
		admin.GET("/issues/pending", h.Issues.GetPendingIssues)
		admin.PATCH("/issues/:id/status", h.Admin.UpdateStatus)
		admin.POST("/issues/:id/assign", h.Admin.AssignIssue)
		admin.PATCH("/issues/:id/stage", h.Admin.UpdateStage)
		admin.GET("/activity", h.Admin.GetActivity)
		admin.GET("/workers", h.Admin.GetWorkers)
		admin.GET("/analytics", h.Admin.GetAnalytics)
	}
}
