package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/neurowell/neurowell/config"
	"github.com/neurowell/neurowell/controllers"
	"github.com/neurowell/neurowell/middleware"
	"github.com/neurowell/neurowell/recommend"
	"github.com/neurowell/neurowell/services"
	"github.com/neurowell/neurowell/utils"
)

const spaEntry = "./static/index.html"

// SetupRouter wires routes, middlewares, and controllers. A nil clock uses the wall clock.
func SetupRouter(db *gorm.DB, ai *recommend.Client, clock services.Clock) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err == nil {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))
	r.Use(utils.MetricsMiddleware())
	r.Use(middleware.PageGate())

	r.Static("/static", "./static")

	spa := func(c *gin.Context) {
		c.File(spaEntry)
	}
	r.GET("/", spa)
	r.GET("/auth", spa)
	r.GET("/home", spa)
	r.GET("/home/*path", spa)
	r.GET("/auth/onboard", spa)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	checkins := services.NewCheckInService(db, clock)
	profiles := services.NewProfileService(db, clock)

	perMinute := cfg.RateLimitPerMinute

	authController := controllers.NewAuthController(db)
	onboardingController := controllers.NewOnboardingController(profiles)
	checkInController := controllers.NewCheckInController(checkins)
	insightsController := controllers.NewInsightsController(db, checkins, profiles, ai)
	counsellorController := controllers.NewCounsellorController(db)
	statsController := controllers.NewStatsController(db, clock)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware("auth", max(perMinute/6, 10)))
	authGroup.POST("/signup", authController.SignUp)
	authGroup.POST("/signin", authController.SignIn)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/signout", middleware.AuthRequired(), authController.SignOut)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public directory and stats
	api.GET("/counsellors", counsellorController.List)
	api.GET("/counsellors/specialties", counsellorController.Specialties)
	api.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware("api", perMinute))

	protected.POST("/onboarding", onboardingController.Submit)
	protected.GET("/onboarding/status", onboardingController.Status)

	protected.POST("/checkins", checkInController.Submit)
	protected.GET("/checkins/streak", checkInController.Streak)
	protected.GET("/checkins/recent", checkInController.Recent)
	protected.GET("/checkins/week", checkInController.Week)

	protected.GET("/insights/wellness", insightsController.Wellness)
	protected.GET("/insights/activities", insightsController.Activities)
	protected.GET("/insights/counsellors", insightsController.Counsellors)
	protected.POST("/insights/chat", middleware.RateLimitMiddleware("chat", 30), insightsController.Chat)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		if strings.HasPrefix(path, "/static/") {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "static asset not found"})
			return
		}
		// Other paths fall back to the SPA entry
		ctx.Status(http.StatusOK)
		ctx.File(spaEntry)
	})

	return r
}
