package main

import (
	"fmt"

	"github.com/aretw0/animgate/internal/cli"
	"github.com/aretw0/animgate/internal/presentation/graph"
	"github.com/aretw0/animgate/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <id>",
	Short: "Export a layer's state machine as a Mermaid diagram",
	Long: `Loads a stored controller and prints each layer (or only --layer) as a
Mermaid flowchart. The detected death and respawn states are highlighted.
Pass --normalized to draw the transitions as they would be after normalization.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cliOptions(cmd)
		opts.ReadOnly = true
		layerName, _ := cmd.Flags().GetString("layer")
		normalized, _ := cmd.Flags().GetBool("normalized")

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

		c, err := engine.Load(ctx, args[0])
		if err != nil {
			return err
		}
		// Detection runs on a copy so the drawn graph stays the stored one.
		fixed, report := engine.Normalize(ctx, c.Clone(), nil)
		if normalized {
			c = fixed
		}

		out := cmd.OutOrStdout()
		drawn := 0
		for i := range c.Layers {
			layer := &c.Layers[i]
			if layerName != "" && layer.Name != layerName {
				continue
			}
			drawn++
			fmt.Fprintf(out, "%%%% layer: %s\n", layer.Name)
			lr, _ := report.Layer(layer.Name)
			fmt.Fprint(out, graph.GenerateMermaid(layer, graph.OverlayFromReport(lr)))
		}
		if drawn == 0 {
			return fmt.Errorf("layer %q not found in %s: %w", layerName, args[0], domain.ErrStructural)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("layer", "", "Only draw this layer")
	graphCmd.Flags().Bool("normalized", false, "Draw the transitions after normalization")
}
