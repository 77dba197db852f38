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
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/bonfire/campaign"
	"github.com/blinklabs-io/bonfire/event"
	"github.com/blinklabs-io/bonfire/internal/config"
	"github.com/blinklabs-io/bonfire/reward"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func serveRun(_ *cobra.Command, _ []string, cfg *config.Config) {
	logger := commonRun()

	e, _, err := newEngine(cfg, logger)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	// Log engine events as they happen
	for _, eventType := range []event.EventType{
		campaign.CampaignCreatedEventType,
		campaign.SubmissionBatchEventType,
		campaign.WinnerSelectedEventType,
		reward.PointsDispersedEventType,
		reward.PointsMintedEventType,
	} {
		e.EventBus().SubscribeFunc(
			eventType,
			func(evt event.Event) {
				logger.Info(
					"event",
					"type", evt.Type,
					"data", evt.Data,
					"component", "serve",
				)
			},
		)
	}

	// Metrics and debug listener
	http.Handle("/metrics", promhttp.Handler())
	logger.Info(
		"serving prometheus metrics on "+fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		"component", "serve",
	)
	metricsServer := &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "serve",
			)
			os.Exit(1)
		}
	}()

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	<-signalCtx.Done()
	logger.Info("signal received, initiating graceful shutdown")

	// Shutdown metrics server
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		30*time.Second,
	)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}

	// Shutdown engine
	if err := e.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with a metrics listener",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			serveRun(cmd, args, cfg)
		},
	}
	return cmd
}
