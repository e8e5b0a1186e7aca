package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alm9/grades-escolares-api/internal/config"
	"github.com/alm9/grades-escolares-api/internal/grades"
	"github.com/alm9/grades-escolares-api/internal/logging"
	"github.com/alm9/grades-escolares-api/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what every subcommand needs once the root pre-run has finished.
type app struct {
	gradesFile string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
	engine *grades.Engine
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "gradectl",
		Short: "Inspect and edit the grades file",
		Long: `gradectl operates on the grades file through the same engine the API uses.

Settings come from the environment (and a .env file outside Docker).
GRADES_FILE selects the file unless --file is given.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.gradesFile, "file", "f", "", "Path to the grades file (overrides GRADES_FILE)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		a.listCmd(),
		a.getCmd(),
		a.totalCmd(),
		a.averageCmd(),
		a.topCmd(),
		a.addCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.backupCmd(),
		a.backupsCmd(),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	// A missing .env is normal; the process environment still applies.
	_ = config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if a.gradesFile != "" {
		cfg.GradesFile = a.gradesFile
	}
	a.cfg = cfg

	logger, err := logging.New(a.logLevel)
	if err != nil {
		return err
	}
	a.logger = logger

	engine, err := server.NewEngine(cfg, logger)
	if err != nil {
		return err
	}
	a.engine = engine

	logger.Debug("opened grades file", zap.String("file", cfg.GradesFile))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
