package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/timada-org/todo/internal/core"
	"github.com/timada-org/todo/internal/store"
	"go.uber.org/zap"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          "todo",
		Short:        "A to-do list REST API backed by MongoDB",
		Long:         `todo serves a shared item list under /api and per student lists under /:ra, storing items in MongoDB.`,
		SilenceUsage: true,
	}
)

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "configs/config.yml", "config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func setup() (*core.Config, *zap.Logger, error) {
	config, err := core.NewConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	log, err := core.NewLogger(config.Log.Level, config.Log.Format)
	if err != nil {
		return nil, nil, err
	}

	return config, log, nil
}

func connect(ctx context.Context, config *core.Config, log *zap.Logger) (*store.Database, error) {
	timeout, err := config.Mongo.Timeout()
	if err != nil {
		return nil, err
	}

	return store.Connect(ctx, store.Config{
		URI:      config.Mongo.URI,
		Database: config.Mongo.Database,
		Collections: store.Collections{
			Items:     config.Mongo.Collections.Items,
			Sequences: config.Mongo.Collections.Sequences,
			Students:  config.Mongo.Collections.Students,
		},
		ConnectTimeout: timeout,
		Log:            log,
	})
}

func disconnect(db *store.Database, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Disconnect(ctx); err != nil {
		log.Warn("database disconnect failed", zap.Error(err))
	}
}
