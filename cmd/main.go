// Package main is the entry point for the plant siting planner.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/optimal-sites/planner/internal/config"
	"github.com/optimal-sites/planner/internal/controller"
	"github.com/optimal-sites/planner/internal/handler"
	"github.com/optimal-sites/planner/internal/mapview"
	"github.com/optimal-sites/planner/internal/metrics"
	"github.com/optimal-sites/planner/internal/recommender"
)

func main() {
	// Parse command line flags
	port := flag.String("port", "", "Server port (overrides SERVER_PORT env var)")
	recommenderURL := flag.String("recommender-url", "", "Recommendation service endpoint (overrides RECOMMENDER_URL env var)")
	flag.Parse()

	// Override environment variables if flags are provided
	if *port != "" {
		os.Setenv("SERVER_PORT", *port)
	}
	if *recommenderURL != "" {
		os.Setenv("RECOMMENDER_URL", *recommenderURL)
	}

	app := fx.New(
		fx.Provide(
			config.New,
			newLogger,
			newGinEngine,
			newSearchCollector,
			recommender.NewClient,
			newController,
			mapview.ViewportFromConfig,
			handler.NewHandler,
		),
		fx.Invoke(startServer),
	)

	app.Run()
}

// newLogger creates a new zap logger based on the environment.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapCfg.Build()
}

// newGinEngine creates and configures a new Gin engine.
func newGinEngine(cfg *config.Config) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[origin] = true
	}

	// CORS middleware
	engine.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowed["*"]:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	return engine
}

func newSearchCollector() (*metrics.SearchCollector, error) {
	return metrics.NewSearchCollector(prometheus.DefaultRegisterer)
}

func newController(cfg *config.Config, client *recommender.Client, collector *metrics.SearchCollector, logger *zap.Logger) (*controller.Controller, error) {
	return controller.New(cfg, client, collector, logger)
}

// startServer runs the search session and the HTTP server.
func startServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.Logger,
	engine *gin.Engine,
	h *handler.Handler,
	ctl *controller.Controller,
	collector *metrics.SearchCollector,
) {
	logger.Info("Starting service",
		zap.String("port", cfg.ServerPort),
		zap.String("recommender_url", cfg.RecommenderURL),
		zap.String("recommender_format", cfg.RecommenderFormat),
		zap.Strings("required_fields", cfg.RequiredFields),
	)

	// Health check endpoint
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "plant-siting-planner",
		})
	})
	engine.GET("/metrics", gin.WrapH(collector.Handler()))

	// Setup API versioned routes
	h.RegisterRoutes(engine.Group("/api/v1"))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: engine,
	}

	sessionCtx, stopSession := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go ctl.Run(sessionCtx)
			go func() {
				logger.Info("Server starting", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("Server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Server shutting down")

			stopSession()
			err := server.Shutdown(ctx)
			_ = logger.Sync()
			return err
		},
	})
}
