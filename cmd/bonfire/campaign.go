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

	"github.com/blinklabs-io/bonfire/campaign"
	"github.com/blinklabs-io/bonfire/points"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new campaign",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			logger := commonRun()
			e, owner, err := newEngine(cfg, logger)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			defer e.Stop() //nolint:errcheck
			campaignId, err := e.CreateCampaign(owner)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			fmt.Printf("created campaign %d\n", campaignId)
		},
	}
}

// batchFile is the YAML shape accepted by the submit command
type batchFile struct {
	Submissions []batchFileItem `yaml:"submissions"`
}

type batchFileItem struct {
	CampaignId    uint64 `yaml:"campaignId"`
	Content       string `yaml:"content"`
	ProducerLabel string `yaml:"producerLabel"`
	Submitter     string `yaml:"submitter"`
	UsageMetric   uint64 `yaml:"usageMetric"`
}

func submitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <batch-file>",
		Short: "Submit a batch of submissions from a YAML file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			logger := commonRun()
			buf, err := os.ReadFile(args[0])
			if err != nil {
				slog.Error(fmt.Sprintf("failed to read batch file: %s", err))
				os.Exit(1)
			}
			var bf batchFile
			if err := yaml.Unmarshal(buf, &bf); err != nil {
				slog.Error(fmt.Sprintf("failed to parse batch file: %s", err))
				os.Exit(1)
			}
			batch := make([]campaign.BatchItem, 0, len(bf.Submissions))
			for _, item := range bf.Submissions {
				submitter, err := points.ParseAddress(item.Submitter)
				if err != nil {
					slog.Error(
						fmt.Sprintf("invalid submitter address: %s", err),
					)
					os.Exit(1)
				}
				batch = append(batch, campaign.BatchItem{
					CampaignId: item.CampaignId,
					Submission: campaign.SubmissionContent{
						Content:       item.Content,
						ProducerLabel: item.ProducerLabel,
						Submitter:     submitter,
						UsageMetric:   item.UsageMetric,
					},
				})
			}
			e, owner, err := newEngine(cfg, logger)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			defer e.Stop() //nolint:errcheck
			ids, err := e.AddSubmissions(owner, batch)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			for _, id := range ids {
				fmt.Printf("added submission %d\n", id)
			}
		},
	}
}

func selectWinnerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "select-winner <campaign-id> <submission-id> <winner-address>",
		Short: "Select a campaign's winner and credit their pending reward",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			logger := commonRun()
			campaignId, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				slog.Error(fmt.Sprintf("invalid campaign id: %s", err))
				os.Exit(1)
			}
			submissionId, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				slog.Error(fmt.Sprintf("invalid submission id: %s", err))
				os.Exit(1)
			}
			winner, err := points.ParseAddress(args[2])
			if err != nil {
				slog.Error(fmt.Sprintf("invalid winner address: %s", err))
				os.Exit(1)
			}
			e, owner, err := newEngine(cfg, logger)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			defer e.Stop() //nolint:errcheck
			if err := e.SelectWinner(owner, campaignId, submissionId, winner); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			fmt.Printf(
				"campaign %d won by %s (submission %d)\n",
				campaignId,
				winner.String(),
				submissionId,
			)
		},
	}
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [campaign-id]",
		Short: "Show campaign status",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			logger := commonRun()
			e, _, err := newEngine(cfg, logger)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			defer e.Stop() //nolint:errcheck
			if len(args) > 0 {
				campaignId, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					slog.Error(fmt.Sprintf("invalid campaign id: %s", err))
					os.Exit(1)
				}
				c, ok := e.Campaign(campaignId)
				if !ok {
					slog.Error(
						fmt.Sprintf("no such campaign: %d", campaignId),
					)
					os.Exit(1)
				}
				printCampaign(c)
				return
			}
			count := e.CampaignCount()
			fmt.Printf("campaigns: %d\n", count)
			for campaignId := uint64(1); campaignId <= count; campaignId++ {
				if c, ok := e.Campaign(campaignId); ok {
					printCampaign(c)
				}
			}
		},
	}
}

func printCampaign(c campaign.Campaign) {
	fmt.Printf(
		"campaign %d: status=%s submissions=%d",
		c.Id,
		c.Status,
		c.SubmissionCount,
	)
	if c.Status == campaign.StatusInactive {
		fmt.Printf(
			" winner=%s winning_submission=%d",
			c.Winner.String(),
			c.WinningSubmission,
		)
	}
	fmt.Println()
}
