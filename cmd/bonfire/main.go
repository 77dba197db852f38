// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/blinklabs-io/bonfire"
	"github.com/blinklabs-io/bonfire/internal/config"
	"github.com/blinklabs-io/bonfire/internal/version"
	"github.com/blinklabs-io/bonfire/points"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	programName = "bonfire"
)

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

func commonRun() *slog.Logger {
	// Configure logger
	logLevel := slog.LevelInfo
	addSource := false
	if globalFlags.debug {
		logLevel = slog.LevelDebug
		addSource = true
	}
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		}),
	)
	slog.SetDefault(logger)
	// Configure max processes with our logger wrapper, toss undo func
	_, err := maxprocs.Set(maxprocs.Logger(slogPrintf))
	if err != nil {
		// If we hit this, something really wrong happened
		slog.Error(err.Error())
		os.Exit(1)
	}
	logger.Info(
		"version: "+version.GetVersionString(),
		"component", programName,
	)
	return logger
}

// newEngine builds and starts an engine from the loaded config. The
// owner address doubles as the caller for CLI operations.
func newEngine(
	cfg *config.Config,
	logger *slog.Logger,
) (*bonfire.Engine, points.Address, error) {
	owner, err := points.ParseAddress(cfg.Owner)
	if err != nil {
		return nil, points.ZeroAddress, fmt.Errorf(
			"invalid owner address: %w",
			err,
		)
	}
	e, err := bonfire.New(
		bonfire.NewConfig(
			bonfire.WithLogger(logger),
			bonfire.WithOwner(owner),
			bonfire.WithPrometheusRegistry(prometheus.DefaultRegisterer),
			bonfire.WithDataDir(cfg.DatabasePath),
			bonfire.WithTokenName(cfg.TokenName),
			bonfire.WithTokenSymbol(cfg.TokenSymbol),
			bonfire.WithMaxReward(cfg.MaxReward),
			bonfire.WithMaxSubmissions(cfg.MaxSubmissions),
		),
	)
	if err != nil {
		return nil, points.ZeroAddress, err
	}
	if err := e.Start(); err != nil {
		return nil, points.ZeroAddress, err
	}
	return e, owner, nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", programName, version.GetVersionString())
		},
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use: programName,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			serveRun(cmd, args, cfg)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")

	// Subcommands
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(createCommand())
	rootCmd.AddCommand(submitCommand())
	rootCmd.AddCommand(selectWinnerCommand())
	rootCmd.AddCommand(disperseCommand())
	rootCmd.AddCommand(mintCommand())
	rootCmd.AddCommand(statusCommand())
	rootCmd.AddCommand(versionCommand())

	// Execute cobra command
	if err := rootCmd.Execute(); err != nil {
		// NOTE: we purposely don't display the error, since cobra will have already displayed it
		os.Exit(1)
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
