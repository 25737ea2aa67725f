package cmd

import (
	"github.com/coastcare/coastal-alerts/internal/datastore"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, log, err := opts.load()
			if err != nil {
				return err
			}
			db, err := datastore.Open(&settings.Database, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := datastore.Close(db); err != nil {
					log.Warn("failed to close database", logger.Error(err))
				}
			}()
			if err := datastore.Migrate(db); err != nil {
				return err
			}
			cmd.Printf("Schema migrated (%s)\n", settings.Database.Driver)
			return nil
		},
	}
}
