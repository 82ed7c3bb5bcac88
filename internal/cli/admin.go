package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"saldo/internal/payment"
	"saldo/internal/sheets"
	gsheet "saldo/internal/sheets/google"
	memsheet "saldo/internal/sheets/memory"
	"saldo/internal/taxonomy"
	"saldo/internal/worker"
)

func init() {
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(integrityCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(plansCmd)

	seedCmd.Flags().String("owner", "", "owner id to seed (required)")
	_ = seedCmd.MarkFlagRequired("owner")

	integrityCmd.Flags().String("owner", "", "restrict the audit to one owner")

	now := time.Now()
	exportCmd.Flags().String("owner", "", "owner id to export (required)")
	exportCmd.Flags().Int("year", now.Year(), "year to export")
	exportCmd.Flags().Int("month", int(now.Month()), "month to export")
	exportCmd.Flags().Bool("dry-run", false, "build the rows and print them instead of writing the sheet")
	_ = exportCmd.MarkFlagRequired("owner")

	plansCmd.Flags().String("file", "", "plans TOML file (defaults to PLANS_FILE or the built-in plans)")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the default categories for an owner",
	Long:  `Install the default categories and subcategories for an owner. Owners that already have categories are left alone.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		app, err := commandApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		n, err := app.Taxonomy.SeedDefaults(ctx, owner)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d taxonomy rows for %s\n", n, owner)
		return nil
	},
}

var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Report orphan subcategories and duplicate category names",
	Long: `Scan the taxonomy for subcategories whose category is gone and for
categories of one owner that share a name. Nothing is repaired; the command
exits non-zero when a violation is found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		app, err := commandApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		var report taxonomy.Report
		if owner != "" {
			report, err = app.Taxonomy.Integrity(ctx, owner)
		} else {
			report, err = worker.NewAuditor(app.Store, app.Metrics).Run(ctx)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, sub := range report.Orphans {
			fmt.Fprintf(out, "orphan subcategory %s %q (category %s)\n", sub.ID, sub.Name, sub.CategoryID)
		}
		for dupOwner, groups := range report.Duplicates {
			for _, group := range groups {
				fmt.Fprintf(out, "duplicate category %q for %s: %d rows\n", group[0].Name, dupOwner, len(group))
			}
		}
		if report.Clean() {
			fmt.Fprintln(out, "taxonomy is clean")
		}
		return report.Err()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write one month of an owner's ledger to Google Sheets",
	Long: `Overwrite the spreadsheet tab named YYYY-MM with the owner's transactions
of that month and the month totals. Needs GOOGLE_SPREADSHEET_ID and service
account credentials unless --dry-run is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		year, _ := cmd.Flags().GetInt("year")
		month, _ := cmd.Flags().GetInt("month")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		app, err := commandApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		var (
			writer sheets.RowWriter
			dry    *memsheet.Writer
		)
		if dryRun {
			dry = memsheet.New()
			writer = dry
		} else {
			if app.Config.GoogleSpreadsheetID == "" {
				return errors.New("GOOGLE_SPREADSHEET_ID is not set; use --dry-run to preview")
			}
			client, err := gsheet.NewFromEnv(ctx)
			if err != nil {
				return err
			}
			writer = client
		}

		result, err := sheets.NewExporter(app.Ledger, writer).Export(ctx, owner, year, month)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if dry != nil {
			for _, row := range dry.Rows(result.Tab) {
				fmt.Fprintln(out, row...)
			}
		}
		fmt.Fprintf(out, "wrote %d rows to %s\n", result.Rows, result.Range)
		return nil
	},
}

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List the plans offered at checkout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			cfg, err := commandConfig(cmd)
			if err != nil {
				return err
			}
			path = cfg.PlansFile
		}
		catalog, err := payment.LoadCatalog(path)
		if err != nil {
			return err
		}
		for _, p := range catalog.Plans() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-24s %8s %s\n", p.ID, p.Name, p.Price, p.Cycle)
		}
		return nil
	},
}

// commandApp opens the store and builds the services for a one-shot command.
// Events stay in process.
func commandApp(cmd *cobra.Command) (*App, error) {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg.AMQPURL = ""
	cfg.AsaasAPIKey = ""
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	return NewApp(cfg, store)
}
