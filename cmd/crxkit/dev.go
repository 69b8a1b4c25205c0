package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	docs "github.com/crxkit/crxkit/docs"
	"github.com/crxkit/crxkit/internal/api"
	"github.com/crxkit/crxkit/internal/config"
	"github.com/crxkit/crxkit/internal/domain"
	"github.com/crxkit/crxkit/internal/health"
	"github.com/crxkit/crxkit/internal/session"
)

const shutdownTimeout = 10 * time.Second

func newDevCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "dev",
		Short: "Build, watch and serve live updates",
		Long: `Builds the extension, watches the project for changes and pushes
rebuilt assets to the extension over the HMR socket. The build-phase
socket listens one port above the HMR port and the inspection API on
API_PORT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return configExit(err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return configExit(runDev(ctx, cfg))
		},
	}
}

// runDev serves until ctx is cancelled and then shuts everything down.
func runDev(ctx context.Context, cfg *config.Config) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logStartupConfig(cfg)

	opts, err := sessionOptions(cfg)
	if err != nil {
		return err
	}
	sess, err := session.New(ctx, opts)
	if err != nil {
		return err
	}
	defer shutdownSession(sess)

	if err := sess.Start(ctx); err != nil {
		return err
	}

	if cfg.Server.Enabled {
		router := newRouter(cfg, sess)
		defer shutdownRouter(router)

		addr := fmt.Sprintf("%s:%d", cfg.HMR.Host, cfg.Server.Port)
		docs.SwaggerInfo.Host = addr
		go func() {
			log.Info().Str("addr", addr).Msg("Starting inspection API")
			if err := router.App.Listen(addr); err != nil {
				log.Error().Err(err).Str("addr", addr).Msg("Inspection API stopped")
			}
		}()
	}

	err = sess.Run(ctx)
	log.Info().Msg("Received shutdown signal, initiating graceful shutdown")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newRouter(cfg *config.Config, sess *session.Session) *api.RouterResult {
	deps := api.RouterDependencies{
		Workspace:     sess,
		Resolver:      sess.Resolver(),
		Cache:         sess.Checker(),
		BuildSocket:   sess.BuildSocket(),
		Validator:     domain.NewValidator(),
		HealthChecker: health.NewSystemHealthChecker(sess.HealthReporters()),
	}
	if hmr := sess.HMR(); hmr != nil {
		deps.HMR = hmr
	}

	return api.SetupRouter(deps, api.RouterConfig{
		CORSOrigins:    cfg.Security.CORSOrigins,
		BodyLimit:      cfg.Server.BodyLimit,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		RateLimitRPS:   cfg.Security.RateLimitRPS,
		RateLimitBurst: cfg.Security.RateLimitBurst,
	})
}

func shutdownRouter(router *api.RouterResult) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info().Msg("Stopping inspection API...")
	if err := router.App.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Error during inspection API shutdown")
	}
	router.Cleanup()
}

func shutdownSession(sess *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info().Msg("Closing live-update sockets...")
	if err := sess.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Error during session shutdown")
		return
	}
	log.Info().Msg("Graceful shutdown completed")
}
