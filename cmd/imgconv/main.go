// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the imgconv CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/imgconv/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the imgconv CLI.
var rootCmd = &cobra.Command{
	Use:   "imgconv",
	Short: "Batch-convert still images between HEIC, PNG and JPEG",
	Long: `imgconv converts every image of one format found directly inside an
input directory into another format, writing the results to an output
directory.

Use heif2jpg for the fixed HEIF to JPEG conversion between file_in and
file_out, or convert to run the conversion described by a YAML
configuration file. Each run is logged to the console and to a log file,
and recorded in a local history database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
