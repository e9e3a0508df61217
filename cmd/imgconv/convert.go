// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/imgconv/internal/codec"
	"github.com/pdiddy/imgconv/internal/codec/heic"
	"github.com/pdiddy/imgconv/internal/config"
	"github.com/pdiddy/imgconv/internal/convert"
	"github.com/pdiddy/imgconv/internal/history"
	"github.com/pdiddy/imgconv/internal/runlog"
	"github.com/pdiddy/imgconv/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert images as described by the configuration file",
	Long: `Convert reads the configuration file (config.yaml by default), finds the
files of input_format in input_dir and writes them as output_format into
output_dir. Any pair among heic, png and jpg is supported.

Files that fail to convert are logged and counted; the command still
succeeds. Only a bad configuration or a missing input directory fails
the run.`,
	RunE: runConvert,
}

var heif2jpgCmd = &cobra.Command{
	Use:   "heif2jpg",
	Short: "Convert HEIF/HEIC files in file_in to JPEG in file_out",
	Long: `heif2jpg converts every .heif/.heic file (either case) in file_in to a
quality 95 JPEG in file_out. It needs no configuration file and never
clears file_out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, config.HEIFToJPEG())
	},
}

func init() {
	convertCmd.Flags().Bool("no-history", false, "do not record this run in the history database")
	heif2jpgCmd.Flags().Bool("no-history", false, "do not record this run in the history database")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(heif2jpgCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadRunConfig(path, config.DefaultLogFile, os.Stdout)
	if err != nil {
		return err
	}
	return runBatch(cmd, cfg)
}

// loadRunConfig loads the configuration at path. A failure is logged to
// logFile and console before it is returned, since the configured log
// file is not known yet.
func loadRunConfig(path, logFile string, console io.Writer) (types.ConversionConfig, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if log, lerr := runlog.Open(logFile, console); lerr == nil {
		log.Error("loading configuration failed", "config", path, "err", err)
		log.Close()
	}
	return types.ConversionConfig{}, err
}

// runBatch runs one conversion under a run-scoped logger and records the
// outcome. Per-file failures do not fail the command.
func runBatch(cmd *cobra.Command, cfg types.ConversionConfig) error {
	log, err := runlog.Open(cfg.LogFile, os.Stdout)
	if err != nil {
		return err
	}
	defer log.Close()

	started := time.Now()
	res, err := convert.New(cfg, codec.Default(heic.New()), log.Logger).Run()
	if err != nil {
		return err
	}

	noHistory, _ := cmd.Flags().GetBool("no-history")
	if noHistory || cfg.HistoryDB == "" {
		return nil
	}
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		log.Warn("history unavailable", "db", cfg.HistoryDB, "err", err)
		return nil
	}
	defer store.Close()

	run := history.NewRun(cfg, started, time.Now(), res)
	if err := store.Record(context.Background(), run); err != nil {
		log.Warn("recording run failed", "run", run.ID, "err", err)
	}
	return nil
}
