package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "taskmanager/docs"
	"taskmanager/internal/auth"
	"taskmanager/internal/config"
	"taskmanager/internal/handler"
	"taskmanager/internal/middleware"
	"taskmanager/internal/repository"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Server struct {
	Engine   *gin.Engine
	Store    *Store
	Config   *config.Config
	Logger   *log.Logger
	Registry *prometheus.Registry
}

// Init opens the configured store and builds the router.
func Init(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Server, error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return New(cfg, logger, store), nil
}

// New builds the router over an already opened store.
func New(cfg *config.Config, logger *log.Logger, store *Store) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn.Duration)
	tasks := repository.Instrument(store.Tasks, repository.NewMetrics(reg))

	// Setup Gin
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger),
		middleware.NewHTTPMetrics(reg).Handler(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.CORSOrigin),
		middleware.BodyLimit(cfg.MaxBodyBytes),
		middleware.NewRateLimiter(cfg.RateLimitPerMinute).Handler(),
	)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
	})

	// Initialize handlers
	taskHandler := handler.NewTaskHandler(tasks, logger)
	authHandler := handler.NewAuthHandler(store.Users, tokens, logger)

	r.GET("/health", handler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Auth routes
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", middleware.RequireAuth(tokens), authHandler.Me)
	}

	// Task routes - identity is optional
	api := r.Group("/api/tasks")
	api.Use(middleware.OptionalAuth(tokens))
	{
		api.GET("", taskHandler.List)
		api.POST("", taskHandler.Create)
		api.GET("/:id", taskHandler.GetByID)
		api.PUT("/:id", taskHandler.Update)
		api.DELETE("/:id", taskHandler.Delete)
	}

	return &Server{
		Engine:   r,
		Store:    store,
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
	}
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:              ":" + s.Config.ServerPort,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.Logger.Info("🚀 Server running", "port", s.Config.ServerPort, "store", s.Config.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Fatal("❌ Failed to listen", "err", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.Logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.Logger.Fatal("❌ Server forced to shutdown", "err", err)
	}
	if err := s.Store.Close(ctx); err != nil {
		s.Logger.Error("failed to close store", "err", err)
	}

	s.Logger.Info("✅ Server exited properly")
}
