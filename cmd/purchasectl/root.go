package main

import (
	"fmt"
	"os"

	"purchaseledger/internal/app"
	"purchaseledger/internal/config"
	"purchaseledger/internal/database"

	"github.com/spf13/cobra"
)

var cfg *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "purchasectl",
	Short: "Purchase ledger server and maintenance tool",
	Long: `purchasectl runs the purchase ledger API and performs offline maintenance
against the configured database: catalog seeding, history replay, exports and purges.

Configuration is read from configs/.env and the environment.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		app.SetupLogger(cfg)
		return nil
	},
}

// Execute adds all child commands to the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp connects to the configured database and wires the services.
func openApp() (*app.App, error) {
	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return app.New(cfg, db), nil
}
