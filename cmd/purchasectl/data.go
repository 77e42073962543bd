package main

import (
	"fmt"
	"io"
	"os"

	"purchaseledger/internal/service"
	"purchaseledger/pkg/tabular"

	"github.com/spf13/cobra"
)

var seedCatalogCmd = &cobra.Command{
	Use:   "seed-catalog <file.csv>",
	Short: "Upsert catalog items and providers from a point-of-sale CSV export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		result, err := a.Catalog.SeedCatalog(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "items added: %d, providers added: %d\n", result.ItemsAdded, result.ProvidersAdded)
		return nil
	},
}

var importHistoryCmd = &cobra.Command{
	Use:   "import-history <file.csv>",
	Short: "Replay an exported purchase history CSV as confirmed purchases",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		result, err := a.Transfer.ImportHistory(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purchases: %d, lines: %d\n", result.Purchases, result.Lines)
		return nil
	},
}

var exportPurchasesCmd = &cobra.Command{
	Use:   "export-purchases",
	Short: "Write confirmed purchase lines as CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		if format != "csv" && format != "xlsx" {
			return fmt.Errorf("unknown format %q (csv or xlsx)", format)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		table, err := a.Transfer.ExportPurchases(cmd.Context())
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if format == "xlsx" {
			return tabular.WriteXLSX(w, table)
		}
		return tabular.WriteCSV(w, table)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete purchases and cost history, or everything with --mode full_wipe",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to purge without --yes")
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		if err := a.Backup.Purge(cmd.Context(), mode); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged (%s)\n", mode)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	// No config or database needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := service.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCatalogCmd, importHistoryCmd, exportPurchasesCmd, purgeCmd, hashPasswordCmd)

	exportPurchasesCmd.Flags().StringP("format", "f", "csv", "Output format: csv or xlsx")
	exportPurchasesCmd.Flags().StringP("output", "o", "-", "Output file (- for stdout)")

	purgeCmd.Flags().String("mode", service.PurgeTransactionsOnly, "transactions_only or full_wipe")
	purgeCmd.Flags().Bool("yes", false, "Confirm the purge")
}
