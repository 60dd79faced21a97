package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rongwang/invoice-sheets/internal/api"
	"github.com/rongwang/invoice-sheets/internal/auth"
	"github.com/rongwang/invoice-sheets/internal/config"
	"github.com/rongwang/invoice-sheets/internal/repository"
	"github.com/rongwang/invoice-sheets/internal/service"
	"github.com/rongwang/invoice-sheets/internal/share"
	"github.com/rongwang/invoice-sheets/internal/sheets"
	"github.com/rongwang/invoice-sheets/internal/utils"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "invoice-sheets",
		Short:        "Invoices and quotations stored in the user's Google Sheets",
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newCleanupTokensCommand())
	return cmd
}

// app is everything the subcommands share
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	svc    service.Service
	closer func() error
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := utils.NewLogger(cfg.Log)

	db, err := config.SetupDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo := repository.NewPostgresRepository(db)

	oauthCfg := auth.NewOAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	connector := sheets.NewGoogleConnector(oauthCfg)
	vault := auth.NewVault(cfg.Auth.VaultSecret)

	svc := service.NewDefaultService(service.Dependencies{
		Repo:          repo,
		Connector:     connector,
		Provider:      auth.NewGoogleProvider(oauthCfg, logger),
		Sessions:      auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL),
		Vault:         vault,
		Shares:        share.NewService(repo, vault, connector, []byte(cfg.Share.Secret), logger, share.WithTTL(cfg.Share.TTL)),
		PublicBaseURL: cfg.Share.PublicBaseURL,
		Logger:        logger,
	})

	return &app{cfg: cfg, log: logger, svc: svc, closer: db.Close}, nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.closer()

			gin.SetMode(a.cfg.Server.Mode)
			router := gin.New()
			router.Use(gin.Recovery(), api.RequestLogger(a.log), api.CORS(a.cfg.CORS))
			api.NewHandler(a.svc, a.log).SetupRoutes(router)

			srv := &http.Server{
				Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
				Handler:      router,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("starting server", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("failed to start server: %w", err)
			case <-ctx.Done():
			}

			a.log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// setup runs the migrations
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closer()
			a.log.Info("database is up to date")
			return nil
		},
	}
}

func newCleanupTokensCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-tokens",
		Short: "Delete expired share tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closer()

			n, err := a.svc.CleanupExpiredShareTokens(cmd.Context())
			if err != nil {
				return err
			}
			a.log.Info("deleted expired share tokens", "count", n)
			return nil
		},
	}
}
