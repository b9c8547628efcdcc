package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ginie-settings-service/config"
	"ginie-settings-service/internal/api"
	"ginie-settings-service/internal/audit"
	"ginie-settings-service/internal/auth"
	"ginie-settings-service/internal/cache"
	"ginie-settings-service/internal/database"
	"ginie-settings-service/internal/defaults"
	"ginie-settings-service/internal/email"
	"ginie-settings-service/internal/events"
	"ginie-settings-service/internal/logging"
	"ginie-settings-service/internal/vault"
)

func main() {
	// Load configuration from config.json + environment overrides
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		Component:   "main",
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
	})
	logging.SetDefault(logger)

	logger.Info("Starting Ginie settings service",
		"port", cfg.ServerConfig.Port,
		"redis_enabled", cfg.RedisConfig.Enabled,
		"vault_enabled", cfg.VaultConfig.Enabled)

	ctx := context.Background()

	// Vault-backed secrets override whatever came from file/env. When Vault
	// is disabled the client reports no secrets and the config values stand.
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Error("Failed to initialize Vault client", "error", err)
		os.Exit(1)
	}
	if secrets, err := vaultClient.GetServiceSecrets(ctx); err != nil {
		logger.Warn("Failed to read service secrets from Vault, using config values", "error", err)
	} else if secrets != nil {
		if secrets.JWTSecret != "" {
			cfg.AuthConfig.JWTSecret = secrets.JWTSecret
		}
		if secrets.DatabasePassword != "" {
			cfg.DatabaseConfig.Password = secrets.DatabasePassword
		}
		if secrets.RedisPassword != "" {
			cfg.RedisConfig.Password = secrets.RedisPassword
		}
		if secrets.AdminPassword != "" {
			cfg.AuthConfig.AdminPassword = secrets.AdminPassword
		}
		logger.Info("Service secrets loaded from Vault")
	}

	// Event bus for settings change notifications (WebSocket, audit trail)
	eventBus := events.NewEventBus()

	// Database
	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	repo := database.NewRepository(db)

	// Authentication. Without a JWT secret the API runs open with a fixed
	// anonymous identity - local development only.
	var authService *auth.Service
	if cfg.AuthConfig.JWTSecret != "" {
		authCfg := auth.DefaultConfig()
		authCfg.JWTSecret = cfg.AuthConfig.JWTSecret
		authCfg.AccessTokenDuration = cfg.AuthConfig.AccessTokenDuration
		authCfg.RefreshTokenDuration = cfg.AuthConfig.RefreshTokenDuration
		authCfg.PasswordResetDuration = cfg.AuthConfig.PasswordResetDuration
		authCfg.MinPasswordLength = cfg.AuthConfig.MinPasswordLength
		authCfg.MaxSessionsPerUser = cfg.AuthConfig.MaxSessionsPerUser
		authCfg.AdminEmail = cfg.AuthConfig.AdminEmail
		authCfg.AdminPassword = cfg.AuthConfig.AdminPassword
		authService = auth.NewService(repo, authCfg)
		authService.SetEventBus(eventBus)
		if mailer := email.NewService(cfg.EmailConfig); mailer.IsConfigured() {
			authService.SetMailer(mailer)
			logger.Info("SMTP configured, password reset email enabled")
		}

		if err := auth.SeedAdminUser(ctx, db, authCfg); err != nil {
			logger.Warn("Admin user seeding failed", "error", err)
		}
	} else {
		logger.Warn("JWT_SECRET not set - authentication disabled, API is open")
	}

	// Redis cache (optional). Nil services degrade to direct resolution.
	var cacheService *cache.CacheService
	var defaultsCache *cache.DefaultsCacheService
	var userCache *cache.UserConfigCacheService
	if cfg.RedisConfig.Enabled {
		cacheService, err = cache.NewCacheService(cfg.RedisConfig)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache", "error", err)
		} else {
			defer cacheService.Close()
			cacheLogger := logging.Default().WithComponent("cache")
			defaultsCache = cache.NewDefaultsCacheService(cacheService, cacheLogger)
			userCache = cache.NewUserConfigCacheService(cacheService, cacheLogger)
		}
	}

	// Default settings file
	defaults.SetPath(cfg.DefaultsConfig.FilePath)
	settingsFile, err := defaults.Load()
	if err != nil {
		logger.Error("Failed to load default settings", "error", err)
		os.Exit(1)
	}
	if err := settingsFile.Validate(); err != nil {
		logger.Error("Default settings file is invalid", "error", err)
		os.Exit(1)
	}

	registry := defaults.NewRegistry()
	var domainCache defaults.DomainCache
	if defaultsCache != nil {
		domainCache = defaultsCache
	}
	store := defaults.NewStore(registry, settingsFile, repo, domainCache, eventBus)

	// Audit trail subscribes to settings change events
	audit.NewTrail(os.Stdout).Attach(eventBus)

	// HTTP server
	server := api.NewServer(api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
		ProductionMode: os.Getenv("GIN_MODE") == "release",
	}, repo, eventBus, store, userCache, authService)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("HTTP server stopped", "error", err)
		}
	}()

	// Background: expired session cleanup
	stopCh := make(chan struct{})
	if authService != nil {
		go func() {
			interval := cfg.AuthConfig.SessionCleanupInterval
			if interval <= 0 {
				interval = time.Hour
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := authService.CleanupExpiredSessions(ctx); err != nil {
						logger.Warn("Session cleanup failed", "error", err)
					}
				case <-stopCh:
					return
				}
			}
		}()
	}

	// Background: watch the defaults file and flush cached resolutions when
	// it changes on disk
	if defaultsCache != nil && cfg.DefaultsConfig.WatchInterval > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(cfg.DefaultsConfig.WatchInterval) * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := defaults.Reload(); err != nil {
						logger.Warn("Defaults file reload failed", "error", err)
						eventBus.PublishError("defaults-watch", "defaults file reload failed", err)
						continue
					}
					file, err := defaults.Load()
					if err != nil {
						continue
					}
					changed, err := defaultsCache.CheckAndRefreshIfChanged(ctx, file)
					if err != nil && err != cache.ErrCacheUnavailable {
						logger.Warn("Defaults cache refresh failed", "error", err)
					}
					if changed {
						store.ReplaceFile(file)
						logger.Info("Default settings refreshed from disk",
							"version", file.Metadata.Version)
					}
				case <-stopCh:
					return
				}
			}
		}()
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutdown signal received", "signal", sig.String())

	close(stopCh)

	shutdownTimeout := time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Ginie settings service stopped")
}
