package main

import (
	"fmt"
	"os"

	"github.com/aretw0/animgate/internal/cli"
	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [ids...]",
	Short: "Normalize stored controllers",
	Long: `Loads every stored controller (or only the given ids), normalizes its
death and respawn transitions and saves the result. With --dry-run nothing is
written and the report shows what would change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cliOptions(cmd)
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		opts.ReadOnly = dryRun
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		format, _ := cmd.Flags().GetString("format")
		format = cli.ResolveFormat(format, os.Stdout)

		f, err := cli.LoadConfig(opts)
		if err != nil {
			return err
		}
		if concurrency > 0 {
			f.Batch.Concurrency = concurrency
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		engine, res, err := cli.CreateEngine(ctx, opts, f, cli.NewLogger(opts))
		if err != nil {
			return err
		}
		defer res.Close()

		result, err := engine.NormalizeAll(ctx, dryRun, args...)
		if err != nil {
			if sig := ctx.Signal(); sig != nil {
				return fmt.Errorf("interrupted by %v: %w", sig, err)
			}
			return err
		}
		if err := cli.PrintRun(os.Stdout, result, format); err != nil {
			return err
		}
		if result.Run.Failed > 0 {
			return fmt.Errorf("%d controller(s) failed", result.Run.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().Bool("dry-run", false, "Report changes without saving")
	normalizeCmd.Flags().Int("concurrency", 0, "Controllers processed in parallel (0 uses the configured value)")
	normalizeCmd.Flags().String("format", "auto", "Output format: auto, text, json or markdown")
}
