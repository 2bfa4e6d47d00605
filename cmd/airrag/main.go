package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"airrag/internal/config"
	"airrag/internal/logging"
)

type rootFlags struct {
	configPath string
	project    string
	logFile    string
	verbose    bool
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:          "airrag",
		Short:        "Air-quality and energy assistant for Trójmiasto",
		Long:         "Answers questions about air quality and energy use in Gdańsk, Gdynia and Sopot from live station data, project data and uploaded documents.",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/airrag/config.yaml)")
	pf.StringVar(&flags.project, "project", "", "JSON file with project data to load at startup")
	pf.StringVar(&flags.logFile, "log-file", "", "write logs to this file instead of stderr")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newChatCmd(flags),
		newServeCmd(flags),
		newIngestCmd(flags),
		newAskCmd(flags),
		newStationsCmd(flags),
	)
	return root
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}

// setup loads configuration and assembles the application. quiet
// discards logs unless a log file was requested, for commands that own
// the terminal.
func setup(flags *rootFlags, quiet bool) (*app, func(), error) {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if flags.verbose {
		cfg.Log.Level = "debug"
	}
	var log *zap.Logger
	switch {
	case flags.logFile != "":
		log, err = logging.New(cfg.Log, flags.logFile)
	case quiet:
		log = zap.NewNop()
	default:
		log, err = logging.New(cfg.Log)
	}
	if err != nil {
		return nil, nil, err
	}
	a, err := newApp(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if flags.project != "" {
		if err := a.loadProject(flags.project); err != nil {
			return nil, nil, err
		}
	}
	return a, func() { _ = log.Sync() }, nil
}
