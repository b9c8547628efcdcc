package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"ginie-settings-service/internal/auth"
	"ginie-settings-service/internal/cache"
	"ginie-settings-service/internal/database"
	"ginie-settings-service/internal/defaults"
	"ginie-settings-service/internal/events"
	"ginie-settings-service/internal/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	// Filter out old requests
	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	repo        *database.Repository
	eventBus    *events.EventBus
	store       *defaults.Store
	userCache   *cache.UserConfigCacheService
	config      ServerConfig
	authService *auth.Service
	authEnabled bool
	rateLimiter *RateLimiter
	logger      *logging.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins string
	ProductionMode bool
}

// NewServer creates a new API server
func NewServer(
	config ServerConfig,
	repo *database.Repository,
	eventBus *events.EventBus,
	store *defaults.Store,
	userCache *cache.UserConfigCacheService, // Can be nil if redis is disabled
	authService *auth.Service, // Can be nil if auth is disabled
) *Server {
	// Set Gin mode
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "" || config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		repo:        repo,
		eventBus:    eventBus,
		store:       store,
		userCache:   userCache,
		config:      config,
		authService: authService,
		authEnabled: authService != nil,
		rateLimiter: NewRateLimiter(60, time.Minute),
		logger:      logging.Default().WithComponent("api"),
	}

	server.setupRoutes()

	// Initialize the WebSocket hub for real-time event broadcasting
	InitWebSocket(eventBus)

	return server
}

// rateLimitMiddleware rate limits mutating requests per endpoint
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests to this endpoint. Please slow down.",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Auth routes (public, no authentication required)
	if s.authEnabled {
		authHandlers := auth.NewHandlers(s.authService)
		authGroup := s.router.Group("/api/auth")
		authHandlers.RegisterRoutes(authGroup, s.authService.GetJWTManager())
	}

	// Auth status endpoint (always available, returns whether auth is enabled)
	s.router.GET("/api/auth/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"auth_enabled": s.authEnabled,
		})
	})

	// WebSocket endpoint (token optionally carried in query, not enforced)
	s.router.GET("/ws", s.handleWebSocket)

	// API routes (protected when auth is enabled)
	api := s.router.Group("/api")
	if s.authEnabled {
		api.Use(auth.Middleware(s.authService.GetJWTManager()))
	}

	{
		// Settings domain registry and reconciliation
		api.GET("/settings/domains", s.handleGetDomains)
		api.GET("/settings/defaults/:domain", s.handleGetDomainDefaults)
		api.POST("/settings/diff/:domain", s.handleDiffDomain)

		// Per-user current config
		api.GET("/settings/user/:domain", s.handleGetUserConfig)
		api.PUT("/settings/user/:domain", s.rateLimitMiddleware(), s.handleSaveUserConfig)
		api.DELETE("/settings/user/:domain", s.rateLimitMiddleware(), s.handleResetUserConfig)
	}

	// Admin routes
	admin := api.Group("/admin")
	if s.authEnabled {
		admin.Use(auth.RequireAdmin())
	}
	{
		admin.PUT("/defaults/:domain", s.rateLimitMiddleware(), s.handleSaveDomainDefaults)
		admin.POST("/defaults/:domain/reset", s.rateLimitMiddleware(), s.handleResetDomainDefaults)
		admin.GET("/defaults/audit", s.handleGetAuditTrail)
		admin.POST("/defaults/reload", s.rateLimitMiddleware(), s.handleReloadDefaults)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Router exposes the gin engine, used by handler tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dbHealthy := true
	if s.repo != nil {
		if err := s.repo.HealthCheck(ctx); err != nil {
			dbHealthy = false
		}
	}

	if !dbHealthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "healthy",
		"version":  s.store.File().Metadata.Version,
	})
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// getUserID returns the user ID from the context, or a fixed ID when auth is disabled
func (s *Server) getUserID(c *gin.Context) string {
	if !s.authEnabled {
		return "00000000-0000-0000-0000-000000000000"
	}
	return auth.GetUserID(c)
}

// getUserIDRequired returns the user ID from the context and sends error if not authenticated
func (s *Server) getUserIDRequired(c *gin.Context) (string, bool) {
	userID := s.getUserID(c)
	if userID == "" && s.authEnabled {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "UNAUTHORIZED",
			"message": "authentication required",
		})
		return "", false
	}
	return userID, true
}

// isUserAdmin checks if the current user is an admin
func (s *Server) isUserAdmin(c *gin.Context) bool {
	if !s.authEnabled {
		return true
	}
	return auth.IsAdmin(c)
}

// userName returns a display name for audit entries
func (s *Server) userName(c *gin.Context) string {
	if claims := auth.GetUserClaims(c); claims != nil {
		return claims.Email
	}
	return "admin"
}
