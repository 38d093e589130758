package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/animgate"
	"github.com/aretw0/animgate/internal/cli"
	"github.com/aretw0/animgate/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [ids...]",
	Short: "Check stored controllers for consistency",
	Long: `Reports structural problems (dangling destinations, unknown parameters,
out of range values) and the death/respawn invariants each stored controller
still violates. States no transition can reach are listed as warnings.
Exits non-zero when any controller has problems.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cliOptions(cmd)
		opts.ReadOnly = true

		f, err := cli.LoadConfig(opts)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		engine, res, err := cli.CreateEngine(ctx, opts, f, cli.NewLogger(opts))
		if err != nil {
			return err
		}
		defer res.Close()

		ids := args
		if len(ids) == 0 {
			if ids, err = engine.List(ctx); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, id := range ids {
			if err := engine.Validate(ctx, id); err != nil {
				failed++
				fmt.Fprintf(out, "%s: invalid\n%s\n", id, validator.Describe(err))
				continue
			}
			if err := warnUnreachable(ctx, out, engine, id); err != nil {
				failed++
				fmt.Fprintf(out, "%s: %v\n", id, err)
				continue
			}
			violations, err := engine.Check(ctx, id)
			if err != nil {
				failed++
				fmt.Fprintf(out, "%s: %v\n", id, err)
				continue
			}
			if len(violations) == 0 {
				fmt.Fprintf(out, "%s: ok\n", id)
				continue
			}
			failed++
			fmt.Fprintf(out, "%s: %d violation(s)\n", id, len(violations))
			for _, v := range violations {
				fmt.Fprintf(out, "  - [%s] %s: %s\n", v.Layer, v.Invariant, v.Details)
			}
		}

		if failed > 0 {
			return errors.New("validation failed")
		}
		return nil
	},
}

// warnUnreachable prints the states of each valid layer of id that neither the
// entry state nor an Any State transition leads to.
func warnUnreachable(ctx context.Context, out io.Writer, engine *animgate.Engine, id string) error {
	c, err := engine.Load(ctx, id)
	if err != nil {
		return err
	}
	for i := range c.Layers {
		layer := &c.Layers[i]
		if validator.ValidateLayer(layer) != nil {
			continue
		}
		if names := validator.Unreachable(layer); len(names) > 0 {
			fmt.Fprintf(out, "  ! [%s] unreachable: %s\n", layer.Name, strings.Join(names, ", "))
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
