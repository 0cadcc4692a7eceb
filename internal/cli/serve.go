package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guilhem-Bonnet/series-notifier/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/series-notifier/internal/adapters/telegram"
	"github.com/Guilhem-Bonnet/series-notifier/internal/app"
	"github.com/Guilhem-Bonnet/series-notifier/internal/buildinfo"
	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/logging"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var withoutBot bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot, the daily jobs and the admin HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts, withoutBot)
		},
	}
	cmd.Flags().BoolVar(&withoutBot, "no-bot", false, "do not start the Telegram bot (scheduled digests are disabled)")
	return cmd
}

func runServe(parent context.Context, opts *RootOptions, withoutBot bool) error {
	cfg, logger := opts.Config, opts.Logger
	validate := cfg.ValidateBot
	if withoutBot {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return err
	}
	logger.Info().Interface("build", buildinfo.Current()).Msg("starting")

	if parent == nil {
		parent = context.Background()
	}
	shutdownCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(shutdownCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn().Err(err).Msg("close failed")
		}
	}()

	loc, _ := cfg.Location()
	scheduler := app.NewDailyScheduler(logging.Component(logger, "scheduler"), loc)

	if rt.rec.Deployment() == domain.DeploymentTwoStore {
		times, _ := domain.ParseClockTimes(cfg.Reconcile.Times)
		scheduler.Add("reconcile", times, func(ctx context.Context) {
			if _, err := rt.rec.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("scheduled reconciliation failed")
			}
		})
	}

	if !withoutBot {
		commands := app.NewCommands(logging.Component(logger, "commands"), rt.svc, cfg.Telegram.UserID)
		bot, err := telegram.NewBot(logging.Component(logger, "telegram"), telegram.Options{
			Token:       cfg.Telegram.Token,
			PollTimeout: cfg.Telegram.PollTimeout,
			Debug:       cfg.Telegram.Debug,
		}, commands)
		if err != nil {
			return err
		}
		rt.svc.SetMessenger(bot)
		go app.NewReconcileAlerter(logging.Component(logger, "alerts"), rt.bus, bot, cfg.Telegram.UserID).Run(shutdownCtx)

		times, _ := domain.ParseClockTimes(cfg.Digest.Times)
		scheduler.Add("digest", times, func(ctx context.Context) {
			if err := rt.svc.SendScheduledDigest(ctx); err != nil {
				logger.Error().Err(err).Msg("scheduled digest failed")
			}
		})

		if cfg.Subscriptions.Enabled {
			reminder := app.NewSubscriptionReminder(logging.Component(logger, "subscriptions"), rt.catalog, bot, cfg.Telegram.UserID, loc)
			times, _ := domain.ParseClockTimes(cfg.Subscriptions.Times)
			scheduler.Add("subscriptions", times, func(ctx context.Context) {
				if _, err := reminder.Send(ctx); err != nil {
					logger.Error().Err(err).Msg("subscription reminder failed")
				}
			})
		}

		go func() {
			if err := bot.Run(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("telegram bot stopped")
				stop()
			}
		}()
	}

	go scheduler.Run(shutdownCtx)

	var httpServer *http.Server
	if cfg.HTTP.Addr != "" {
		srv := httpapi.NewServer(logging.Component(logger, "http"), rt.svc, rt.reports, rt.bus)
		httpServer = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.HTTP.Addr).Msg("listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("http server crashed")
				stop()
			}
		}()
	}

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	// Ferme les flux SSE avant l'arrêt du serveur.
	rt.bus.Close()
	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctx)
	}
	logger.Info().Msg("bye")
	return nil
}
