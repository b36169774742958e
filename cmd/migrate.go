package cmd

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the indexes and the item id sequence",

	RunE: func(cmd *cobra.Command, args []string) error {
		config, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		db, err := connect(cmd.Context(), config, log)
		if err != nil {
			return err
		}
		defer disconnect(db, log)

		if err := db.Migrate(cmd.Context()); err != nil {
			return err
		}

		log.Info("database ready")

		return nil
	},
}
