package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AlessiaSanfi/EventHub-Project/internal/api"
	"github.com/AlessiaSanfi/EventHub-Project/internal/api/handlers"
	"github.com/AlessiaSanfi/EventHub-Project/internal/api/middleware"
	"github.com/AlessiaSanfi/EventHub-Project/internal/audit"
	"github.com/AlessiaSanfi/EventHub-Project/internal/auth"
	"github.com/AlessiaSanfi/EventHub-Project/internal/config"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/events"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/reports"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/users"
	"github.com/AlessiaSanfi/EventHub-Project/internal/email"
	"github.com/AlessiaSanfi/EventHub-Project/internal/metrics"
	"github.com/AlessiaSanfi/EventHub-Project/internal/realtime"
	"github.com/AlessiaSanfi/EventHub-Project/internal/storage/postgres"
)

var (
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the EventHub HTTP server",
	Long: `Start the EventHub HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Bootstrap an admin account if ADMIN_* env vars are set
- Serve the REST API and the websocket notification endpoint
- Handle graceful shutdown on SIGINT/SIGTERM`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Msg("starting EventHub server")

	metrics.Init(Version, GitCommit, BuildDate)

	poolCtx, poolCancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := newPool(poolCtx, cfg)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository init failed: %w", err)
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer)

	mailer, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("email service init failed: %w", err)
	}

	usersService := users.NewService(repo.Users(), jwtManager, mailer, logger)

	hub := realtime.NewHub(logger)
	notifier := realtime.NewNotifier(hub, usersService, logger)
	wsHandler := realtime.NewHandler(hub, jwtManager, cfg.Realtime, cfg.CORS, logger)

	eventsService := events.NewService(repo.Events(), notifier, logger)
	reportsService := reports.NewService(repo.Reports(), repo.Events(), notifier, logger)

	auditLogger := audit.NewLogger(logger)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := bootstrapAdminUser(bootCtx, cfg, repo.Users(), logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	bootCancel()

	router := api.NewRouter(api.Deps{
		Config:    cfg,
		Logger:    logger,
		Auth:      handlers.NewAuthHandler(usersService, cfg.Environment),
		Events:    handlers.NewEventsHandler(eventsService, reportsService, cfg.Environment),
		Users:     handlers.NewUsersHandler(usersService, eventsService, cfg.Environment),
		Admin:     handlers.NewAdminHandler(usersService, eventsService, reportsService, auditLogger, cfg.Environment),
		Healthz:   handlers.Healthz(Version),
		Readyz:    handlers.Readyz(pool),
		Websocket: wsHandler,
		JWT:       middleware.Authenticate(jwtManager, usersService, cfg.Environment),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      0, // websocket connections are long-lived
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		hub.Shutdown()
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.Database.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	}
	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// bootstrapAdminUser creates the configured admin account on first
// boot. An existing account with the same email is promoted if needed.
func bootstrapAdminUser(ctx context.Context, cfg config.Config, repo users.Repository, logger zerolog.Logger) error {
	bootstrap := cfg.AdminBootstrap
	if bootstrap.Username == "" || bootstrap.Password == "" || bootstrap.Email == "" {
		logger.Debug().Msg("admin bootstrap env vars not fully set; skipping")
		return nil
	}

	existing, err := repo.GetByEmail(ctx, bootstrap.Email)
	switch {
	case err == nil:
		if existing.Role == users.RoleAdmin {
			return nil
		}
		if err := repo.UpdateRole(ctx, existing.ID, users.RoleAdmin); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		logger.Info().Str("user_id", existing.ID).Msg("existing user promoted to admin")
		return nil
	case errors.Is(err, users.ErrNotFound):
		// fall through to create
	default:
		return fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := auth.HashPassword(bootstrap.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	created, err := repo.Create(ctx, users.CreateParams{
		Username:     bootstrap.Username,
		Email:        bootstrap.Email,
		PasswordHash: hash,
		Role:         users.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	logger.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("admin user bootstrapped")
	return nil
}
