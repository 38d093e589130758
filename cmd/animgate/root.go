package main

import (
	"fmt"
	"os"

	"github.com/aretw0/animgate/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "animgate",
	Short: "animgate normalizes death and respawn transitions in animation controllers",
	Long: `animgate finds the terminal (death) and recovery (respawn) states of every
layer in an animation controller and rewrites their transitions so that death
is immediate and respawn is gated on a boolean parameter.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the controller project")
	rootCmd.PersistentFlags().String("store", "", "Controller store: loam, file, redis or minio (overrides animgate.yaml)")
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
}

// cliOptions collects the persistent flags.
func cliOptions(cmd *cobra.Command) cli.Options {
	dir, _ := cmd.Flags().GetString("dir")
	store, _ := cmd.Flags().GetString("store")
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	logFormat, _ := cmd.Flags().GetString("log-format")
	return cli.Options{
		Dir:        dir,
		StoreKind:  store,
		ConfigPath: configPath,
		Debug:      debug,
		LogFormat:  logFormat,
	}
}
