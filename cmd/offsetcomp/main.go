package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.3.1"

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "offsetcomp",
	Short: "Offset-aware frame comparisons on slow.pics",
	Long:  "offsetcomp picks reference frames across misaligned video sources, tracks per-source frame offsets, and uploads or appends offset-corrected side-by-side comparisons on slow.pics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return framesListCmd.RunE(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("offsetcomp %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default ~/.offsetcomp/config.yaml)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(framesCmd)
	rootCmd.AddCommand(tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
