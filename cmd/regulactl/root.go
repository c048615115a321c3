package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var opts globalOptions
	env := &cliEnv{opts: &opts}

	rootCmd := &cobra.Command{
		Use:           "regulactl",
		Short:         "Regula maintenance CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := env.config()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.driver, "db-driver", "", "Database driver (sqlite, postgres, pgx); overrides DB_DRIVER")
	rootCmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "Database DSN; overrides DB_DSN")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(newMigrateCommand(env))
	rootCmd.AddCommand(newSeedCommand(env))
	rootCmd.AddCommand(newTokenCommand(env))
	rootCmd.AddCommand(newTemplateCommand(env))
	rootCmd.AddCommand(newAuditCommand(env))
	rootCmd.AddCommand(newDeliveriesCommand(env))
	rootCmd.AddCommand(newRunCommand(env))

	return rootCmd
}
