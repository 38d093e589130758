package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/animgate"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of animgate",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("animgate version %s\n", strings.TrimSpace(animgate.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
