package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tescaelements/mashgiach/backend/internal/api/handlers"
	"github.com/tescaelements/mashgiach/backend/internal/config"
	"github.com/tescaelements/mashgiach/backend/internal/database"
	"github.com/tescaelements/mashgiach/backend/internal/metrics"
	"github.com/tescaelements/mashgiach/backend/internal/middleware"
	"github.com/tescaelements/mashgiach/backend/internal/services"
)

func main() {
	cfg := config.Load()

	if cfg.AdminKey == "" {
		log.Println("ADMIN_KEY not set; destructive endpoints are unprotected")
	}

	if err := database.Initialize(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	engine := services.NewEngine(cfg)
	cache := services.NewVerdictCacheService(db)
	history := services.NewHistoryService(db)
	images := services.NewImageStorageService(cfg.ScannedImageDir)
	off := services.NewOpenFoodFactsClient()

	analyzeHandler := handlers.NewAnalyzeHandler(engine, cache, history, images, off)
	historyHandler := handlers.NewHistoryHandler(history, images)
	agencyHandler := handlers.NewAgencyHandler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	statsWorker := services.NewStatsWorker(db)
	go statsWorker.Start(ctx)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(metrics.HTTPMetrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/analyze", analyzeHandler.AnalyzeImages)
		api.POST("/analyze/text", analyzeHandler.AnalyzeText)
		api.POST("/barcode/extract", analyzeHandler.ExtractBarcode)
		api.GET("/barcode/:code", analyzeHandler.LookupBarcode)

		api.GET("/agencies", agencyHandler.List)
		api.GET("/agencies/:symbol", agencyHandler.Lookup)

		api.GET("/history", historyHandler.List)
		api.GET("/history/:id/image", historyHandler.Image)
		api.POST("/history/:id/favorite", historyHandler.SetFavorite)
		api.DELETE("/history/:id", historyHandler.Remove)
		api.DELETE("/history", middleware.AdminKeyAuth(), historyHandler.ClearAll)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}

	log.Println("Server stopped")
}
