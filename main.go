package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/auditrail-io/auditrail-engine/pkg/auth"
	"github.com/auditrail-io/auditrail-engine/pkg/config"
	"github.com/auditrail-io/auditrail-engine/pkg/database"
	"github.com/auditrail-io/auditrail-engine/pkg/handlers"
	"github.com/auditrail-io/auditrail-engine/pkg/middleware"
	"github.com/auditrail-io/auditrail-engine/pkg/repositories"
	"github.com/auditrail-io/auditrail-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", cfg.Database.Database))

	ctx := context.Background()

	// Connect to the audit database
	db, err := database.Connect(ctx, database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations through database/sql (required by golang-migrate)
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Audit.MigrationsPath, logger); err != nil {
		sqlDB.Close()
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	sqlDB.Close()

	// JWT validation for the read API
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()

	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)

	// Audit trail read side
	auditRepo := repositories.NewAuditRepository(db)
	queryService := services.NewAuditQueryService(auditRepo, logger)

	mux := http.NewServeMux()

	// Register handlers
	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	auditHandler := handlers.NewAuditHandler(queryService, logger)
	auditHandler.RegisterRoutes(mux, authMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting auditrail-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))

	if cfg.TLSCertPath != "" {
		err = http.ListenAndServeTLS(addr, cfg.TLSCertPath, cfg.TLSKeyPath, handler)
	} else {
		err = http.ListenAndServe(addr, handler)
	}
	if err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newLogger builds the process logger. Production config emits JSON; anything
// else gets the human-readable development encoder.
func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProductionConfig().Build()
	}
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	return logConfig.Build()
}
