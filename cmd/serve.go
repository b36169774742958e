package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/timada-org/todo/internal/api"
	"github.com/timada-org/todo/internal/service"
	"github.com/timada-org/todo/pkg/client"
	"go.uber.org/zap"
)

var (
	migrate bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the todo server",

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			config, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := connect(ctx, config, log)
			if err != nil {
				return err
			}
			defer disconnect(db, log)

			if migrate {
				if err := db.Migrate(ctx); err != nil {
					return err
				}
			}

			options := service.Options{
				Items:    db.Items(),
				Students: db.Students(),
				Log:      log,
			}

			if config.Broker.URL != "" {
				c, err := client.New(client.ClientOptions{
					URL:   config.Broker.URL,
					Topic: config.Broker.Topic,
					Name:  config.Broker.Name,
				})
				if err != nil {
					return err
				}
				defer c.Close()

				options.Events = c
			}

			svc := service.New(options)
			defer svc.Wait()

			var auth *api.Auth
			if config.JwksURL != "" {
				auth, err = api.NewAuth(config.JwksURL, log)
				if err != nil {
					return err
				}
				defer auth.Close()
			}

			limiter := api.NewRateLimiter(config.RateLimit.RPS, config.RateLimit.Burst, log)
			if limiter != nil {
				go limiter.Run(ctx, time.Minute)
			}

			app := api.New(api.Options{
				Addr:           config.Addr,
				Service:        svc,
				Log:            log,
				Auth:           auth,
				Limiter:        limiter,
				AllowedOrigins: config.Cors.AllowedOrigins,
			})

			errs := make(chan error, 1)
			go func() {
				errs <- app.Listen()
			}()

			select {
			case err := <-errs:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := app.Shutdown(shutdownCtx); err != nil {
				log.Warn("http shutdown failed", zap.Error(err))
			}

			return nil
		},
	}
)

func init() {
	serveCmd.Flags().BoolVar(&migrate, "migrate", false, "create indexes and the id sequence before serving")
}
