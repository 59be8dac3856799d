package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitshala/guildgate/internal/gate/discord"
	httpapi "github.com/bitshala/guildgate/internal/gate/http"
	"github.com/bitshala/guildgate/internal/gate/mail"
	"github.com/bitshala/guildgate/internal/gate/service"
	"github.com/bitshala/guildgate/internal/gate/store"
	"github.com/bitshala/guildgate/internal/gate/store/drivers/sqlite"
	"github.com/bitshala/guildgate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the gate service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	provider service.Provider
	mailer   service.Mailer

	// Services
	issuerService       *service.IssuerService
	redemptionService   *service.RedemptionService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gate-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.validateConfig(); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initProvider()
	app.initMailer()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("gate service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gate service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gate service stopped")
	return nil
}

func (app *Application) validateConfig() error {
	switch {
	case app.cfg.ClientID == "":
		return fmt.Errorf("CLIENT_ID is required")
	case app.cfg.ClientSecret == "":
		return fmt.Errorf("CLIENT_SECRET is required")
	case app.cfg.BotToken == "":
		return fmt.Errorf("DISCORD_TOKEN is required")
	case app.cfg.GuildID == "":
		return fmt.Errorf("GUILD_ID is required")
	case app.cfg.RedirectURI == "":
		return fmt.Errorf("REDIRECT_URI is required")
	case len(app.cfg.Roles) == 0:
		return fmt.Errorf("ROLE_MAP must define at least one role")
	}
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initProvider() {
	app.provider = discord.NewClient(discord.Config{
		ClientID:     app.cfg.ClientID,
		ClientSecret: app.cfg.ClientSecret,
		RedirectURI:  app.cfg.RedirectURI,
		BotToken:     app.cfg.BotToken,
		GuildID:      app.cfg.GuildID,
	})
}

// initMailer selects the dispatch backend. Invite issuance works without one,
// the register endpoint just reports the email as not sent.
func (app *Application) initMailer() {
	switch app.cfg.EmailMethod {
	case "sendgrid":
		app.mailer = mail.NewSendGridMailer(app.cfg.SendGridAPIKey, app.cfg.FromName, app.cfg.FromEmail)
		app.logger.Info("email dispatch enabled", "method", "sendgrid")
	case "smtp":
		app.mailer = &mail.SMTPMailer{
			Host:      app.cfg.SMTPHost,
			Port:      app.cfg.SMTPPort,
			Username:  app.cfg.SMTPUser,
			Password:  app.cfg.SMTPPassword,
			FromName:  app.cfg.FromName,
			FromEmail: app.cfg.FromEmail,
		}
		app.logger.Info("email dispatch enabled", "method", "smtp", "host", app.cfg.SMTPHost)
	default:
		app.mailer = service.NopMailer{}
		app.logger.Warn("email dispatch disabled, invite emails will not be sent")
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.issuerService = &service.IssuerService{
		Store:         app.db,
		Roles:         app.cfg.Roles,
		Mailer:        app.mailer,
		TokenTTL:      app.cfg.TokenTTL,
		PublicBaseURL: app.cfg.PublicBaseURL,
	}

	app.redemptionService = &service.RedemptionService{
		Store:    app.db,
		Provider: app.provider,
		Roles:    app.cfg.Roles,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	// Wire services to router
	router.IssuerService = app.issuerService
	router.RedemptionService = app.redemptionService
	router.HousekeepingService = app.housekeepingService
	router.Provider = app.provider
	router.CompletionURL = app.cfg.CompletionURL
	router.CallbackPath = app.cfg.CallbackPath()
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
