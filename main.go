package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dashly-io/dashly-engine/pkg/adapters/source"
	_ "github.com/dashly-io/dashly-engine/pkg/adapters/source/api"
	_ "github.com/dashly-io/dashly-engine/pkg/adapters/source/jira"
	_ "github.com/dashly-io/dashly-engine/pkg/adapters/source/postgres"
	_ "github.com/dashly-io/dashly-engine/pkg/adapters/source/scraping"
	_ "github.com/dashly-io/dashly-engine/pkg/adapters/source/smax"
	"github.com/dashly-io/dashly-engine/pkg/auth"
	"github.com/dashly-io/dashly-engine/pkg/config"
	"github.com/dashly-io/dashly-engine/pkg/crypto"
	"github.com/dashly-io/dashly-engine/pkg/database"
	"github.com/dashly-io/dashly-engine/pkg/directory"
	"github.com/dashly-io/dashly-engine/pkg/handlers"
	"github.com/dashly-io/dashly-engine/pkg/logging"
	"github.com/dashly-io/dashly-engine/pkg/mail"
	"github.com/dashly-io/dashly-engine/pkg/models"
	"github.com/dashly-io/dashly-engine/pkg/repositories"
	"github.com/dashly-io/dashly-engine/pkg/retry"
	"github.com/dashly-io/dashly-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
	)

	ctx := context.Background()

	// The database may come up after us, so connection gets a few retries.
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return database.Connect(connectCtx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := database.Migrate(cfg.Database.ConnectionString(), cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.String("error", logging.SanitizeError(err)))
	}

	encryptor, err := crypto.NewEncryptor(cfg.CredentialsKey)
	if err != nil {
		logger.Fatal("Failed to create credentials encryptor", zap.Error(err))
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	dataSourceRepo := repositories.NewDataSourceRepository(db)
	dashboardRepo := repositories.NewDashboardRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)

	// Shared infrastructure
	sessions := auth.NewManager(cfg.SessionKey)
	middleware := auth.NewMiddleware(sessions, userRepo, logger)
	directoryClient := directory.NewClient(logger)
	mailer := mail.NewSMTPMailer(logger)
	factory := source.NewAdapterFactory(source.Deps{Logger: logger})

	// Services
	settingsService := services.NewSettingsService(settingsRepo)
	authService := services.NewAuthService(userRepo, resetRepo, settingsService, directoryClient, mailer, cfg.BaseURL, logger)
	userService := services.NewUserService(userRepo)
	dataSourceService := services.NewDataSourceService(dataSourceRepo, factory, encryptor, logger)
	dashboardService := services.NewDashboardService(dashboardRepo, settingsService)

	if err := bootstrapAdmin(ctx, cfg, userRepo, userService, logger); err != nil {
		logger.Fatal("Failed to bootstrap admin account", zap.Error(err))
	}

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(authService, sessions, logger).RegisterRoutes(mux, middleware)
	handlers.NewUserHandler(userService, logger).RegisterRoutes(mux, middleware)
	handlers.NewDataSourceHandler(dataSourceService, logger).RegisterRoutes(mux, middleware)
	handlers.NewDashboardHandler(dashboardService, dataSourceService, logger).RegisterRoutes(mux, middleware)
	handlers.NewSettingsHandler(settingsService, directoryClient, mailer, logger).RegisterRoutes(mux, middleware)

	// Serve static UI files from ui/dist
	mux.Handle("/", http.FileServer(http.Dir("./ui/dist")))

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("Starting dashly-engine",
		zap.String("addr", server.Addr),
		zap.String("version", cfg.Version),
	)
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// bootstrapAdmin seeds the first admin account from INITIAL_ADMIN_PASSWORD
// when no admin exists yet. Without it a fresh install has no way to log in.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, users repositories.UserRepository, userService *services.UserService, logger *zap.Logger) error {
	count, err := users.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if cfg.InitialAdminPassword == "" {
		logger.Warn("No admin account exists and INITIAL_ADMIN_PASSWORD is not set; nobody can log in")
		return nil
	}

	if _, err := userService.Create(ctx, "admin", "admin@localhost.local", "Administrator", cfg.InitialAdminPassword, models.RoleAdmin); err != nil {
		return err
	}
	logger.Info("Created initial admin account", zap.String("username", "admin"))
	return nil
}
