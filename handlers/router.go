package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"equipment-analytics-api/config"
	"equipment-analytics-api/middleware"
	"equipment-analytics-api/services"
)

// Deps carries everything the router wires into handlers. DB may be nil in
// tests that never touch the auth routes.
type Deps struct {
	Config      *config.Config
	DB          *gorm.DB
	Auth        *services.AuthService
	Cache       *services.CacheService
	Analysis    *services.AnalysisService
	Predictions *services.PredictionService
	Reports     *services.ReportService
	Logger      *slog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.SetupCORS(d.Config.CORS))
	r.MaxMultipartMemory = d.Config.Upload.MaxBytes

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"message": "Equipment analytics API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authH := NewAuthHandler(d.DB, d.Auth, d.Logger)
	datasetH := NewDatasetHandler(d.Analysis, d.Reports, d.Config.Upload, d.Logger)
	predictionH := NewPredictionHandler(d.Predictions, d.Logger)

	uploadLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RedisClient: d.Cache.Client(),
		Limit:       d.Config.Upload.RatePerMinute,
		Window:      time.Minute,
		KeyPrefix:   "equiviz:rl:upload:",
		Extractor:   middleware.ByOwner,
	})

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authH.Register)
			auth.POST("/login", authH.Login)

			secured := auth.Group("", middleware.RequireAuth(d.Auth))
			secured.POST("/logout", authH.Logout)
			secured.GET("/me", authH.Me)
			secured.POST("/change-password", authH.ChangePassword)
		}

		datasets := v1.Group("/datasets", middleware.RequireAuth(d.Auth))
		{
			datasets.POST("", uploadLimiter, datasetH.Upload)
			datasets.GET("", datasetH.List)
			datasets.GET("/:id", datasetH.Get)
			datasets.DELETE("/:id", datasetH.Delete)
			datasets.GET("/:id/report", datasetH.Report)
			datasets.GET("/:id/records", datasetH.Records)
			datasets.POST("/:id/predict", predictionH.Predict)
			datasets.POST("/:id/predict-type", predictionH.PredictType)
			datasets.GET("/:id/feature-importance", predictionH.FeatureImportance)
		}

		v1.GET("/predictions", middleware.RequireAuth(d.Auth), predictionH.PredictAll)
		v1.GET("/ws/analyses", AnalysisWebSocket(d.Cache, d.Auth, d.Logger))
	}

	return r
}
