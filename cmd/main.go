package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"kiosk-lottery/internal/config"

	"github.com/google/logger"
	"github.com/spf13/cobra"
)

const appName = "kiosk-lottery"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what the subcommands share once the root command has run.
type app struct {
	configFile string
	cfg        *config.Config
	log        *logger.Logger
	logFile    io.Closer
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          appName,
		Short:        "Annual party lottery kiosk",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Close()
			}
			if a.logFile != nil {
				a.logFile.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ./config.yaml)")

	root.AddCommand(
		newServeCommand(a),
		newHistoryCommand(a),
		newPinCommand(),
	)
	return root
}

// setup loads the config and sends the log to DataDir/kiosk.log, mirrored to the console when verbose.
func (a *app) setup() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	var out io.Writer = io.Discard
	if err := os.MkdirAll(cfg.DataDir, 0755); err == nil {
		f, err := os.OpenFile(filepath.Join(cfg.DataDir, "kiosk.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			out = f
			a.logFile = f
		}
	}
	a.log = logger.Init(appName, cfg.LogVerbose, false, out)
	return nil
}
