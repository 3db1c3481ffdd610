package main

import (
	"net/http"
	"time"

	sharedMiddleware "mapguess-server/shared/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// newRouter собирает gin.Engine: логирование, recovery, метрики, CORS и /health.
// Метрики подключаются до регистрации маршрутов, иначе gin не применит их к уже
// добавленным хендлерам.
func newRouter(allowedOrigins []string, logger *zap.Logger, registerRoutes func(*gin.Engine)) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(sharedMiddleware.GinZapLogger(logger))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Player-ID", "X-Admin-Password", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Player-ID", "X-Request-ID", "Retry-After"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	registerRoutes(router)
	return router
}
