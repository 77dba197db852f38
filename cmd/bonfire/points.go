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
	"strconv"

	"github.com/blinklabs-io/bonfire/points"
	"github.com/spf13/cobra"
)

func disperseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disperse <campaign-id>",
		Short: "Settle the pending reward for a campaign's winner",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			logger := commonRun()
			campaignId, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				slog.Error(fmt.Sprintf("invalid campaign id: %s", err))
				os.Exit(1)
			}
			e, owner, err := newEngine(cfg, logger)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			defer e.Stop() //nolint:errcheck
			amount, err := e.DispersePoints(owner, campaignId)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			fmt.Printf("dispersed %d points for campaign %d\n", amount, campaignId)
		},
	}
}

func mintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mint <to-address> <amount>",
		Short: "Mint points directly to an address",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			logger := commonRun()
			to, err := points.ParseAddress(args[0])
			if err != nil {
				slog.Error(fmt.Sprintf("invalid address: %s", err))
				os.Exit(1)
			}
			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				slog.Error(fmt.Sprintf("invalid amount: %s", err))
				os.Exit(1)
			}
			e, owner, err := newEngine(cfg, logger)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			defer e.Stop() //nolint:errcheck
			if err := e.MintPoints(owner, to, amount); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			fmt.Printf("minted %d points to %s\n", amount, to.String())
		},
	}
}
