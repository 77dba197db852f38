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

// Package bonfire implements a campaign bookkeeping and reward
// settlement engine: campaigns collect a bounded number of submissions,
// a single winner closes each campaign and accrues a fixed reward, and
// pending rewards settle through a points ledger via a pull-based,
// idempotent disbursement step.
package bonfire

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/bonfire/campaign"
	"github.com/blinklabs-io/bonfire/database"
	"github.com/blinklabs-io/bonfire/event"
	"github.com/blinklabs-io/bonfire/points"
	"github.com/blinklabs-io/bonfire/reward"
)

// ErrUnauthorized is returned when a mutating operation is attempted by
// anyone other than the configured owner
var ErrUnauthorized = errors.New("unauthorized caller")

// ErrNotStarted is returned when an operation is attempted before the
// engine has been started
var ErrNotStarted = errors.New("engine not started")

type Engine struct {
	config      Config
	eventBus    *event.EventBus
	db          *database.Database
	registry    *campaign.Registry
	ledger      *campaign.Ledger
	accumulator *reward.Accumulator
	disburser   *reward.Disburser
	points      *points.Ledger
	started     bool
	stopped     bool
}

func New(cfg Config) (*Engine, error) {
	if cfg.owner.IsZero() {
		return nil, errors.New("no owner configured")
	}
	e := &Engine{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
	}
	return e, nil
}

// Start opens the database, wires the engine components together, and
// restores any existing state
func (e *Engine) Start() error {
	if e.started {
		return errors.New("engine already started")
	}
	if e.stopped {
		return errors.New("engine cannot be restarted after stop")
	}
	db, err := database.New(&database.Config{
		DataDir:      e.config.dataDir,
		Logger:       e.config.logger,
		PromRegistry: e.config.promRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	e.db = db
	e.points = points.NewLedger(points.LedgerConfig{
		Logger:       e.config.logger,
		PromRegistry: e.config.promRegistry,
		Name:         e.config.tokenName,
		Symbol:       e.config.tokenSymbol,
	})
	e.accumulator = reward.NewAccumulator(reward.AccumulatorConfig{
		Logger:       e.config.logger,
		PromRegistry: e.config.promRegistry,
		Database:     e.db,
	})
	e.registry = campaign.NewRegistry(campaign.RegistryConfig{
		Logger:         e.config.logger,
		EventBus:       e.eventBus,
		PromRegistry:   e.config.promRegistry,
		Database:       e.db,
		Rewards:        e.accumulator,
		MaxReward:      e.config.maxReward,
		MaxSubmissions: e.config.maxSubmissions,
	})
	e.ledger = campaign.NewLedger(campaign.LedgerConfig{
		Logger:       e.config.logger,
		EventBus:     e.eventBus,
		PromRegistry: e.config.promRegistry,
		Database:     e.db,
		Registry:     e.registry,
	})
	e.disburser = reward.NewDisburser(reward.DisburserConfig{
		Logger:       e.config.logger,
		EventBus:     e.eventBus,
		PromRegistry: e.config.promRegistry,
		Accumulator:  e.accumulator,
		Winners:      e.registry,
		Authority:    e.points,
	})
	if err := e.registry.Load(); err != nil {
		return err
	}
	if err := e.ledger.Load(); err != nil {
		return err
	}
	if err := e.accumulator.Load(); err != nil {
		return err
	}
	e.started = true
	return nil
}

// Stop shuts down the event bus and closes the database. A stopped
// engine cannot be restarted; create a new engine to reopen the same
// data directory.
func (e *Engine) Stop() error {
	if !e.started {
		return nil
	}
	e.started = false
	e.stopped = true
	e.eventBus.Stop()
	return e.db.Close()
}

func (e *Engine) requireOwner(caller points.Address) error {
	if !e.started {
		return ErrNotStarted
	}
	if caller != e.config.owner {
		return ErrUnauthorized
	}
	return nil
}

// CreateCampaign creates a new active campaign and returns its id
func (e *Engine) CreateCampaign(caller points.Address) (uint64, error) {
	if err := e.requireOwner(caller); err != nil {
		return 0, err
	}
	return e.registry.Create()
}

// AddSubmissions admits an ordered batch of submissions as one atomic
// unit and returns the newly assigned submission ids
func (e *Engine) AddSubmissions(
	caller points.Address,
	batch []campaign.BatchItem,
) ([]uint64, error) {
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	return e.ledger.Append(batch)
}

// SelectWinner closes a campaign, records its winner, and credits the
// winner's pending reward
func (e *Engine) SelectWinner(
	caller points.Address,
	campaignId uint64,
	submissionId uint64,
	winner points.Address,
) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	return e.registry.SelectWinner(campaignId, submissionId, winner)
}

// DispersePoints settles the pending reward for a campaign's winner and
// returns the amount transferred. Settling an already-settled campaign
// reports a zero amount.
func (e *Engine) DispersePoints(
	caller points.Address,
	campaignId uint64,
) (uint64, error) {
	if err := e.requireOwner(caller); err != nil {
		return 0, err
	}
	return e.disburser.Settle(campaignId)
}

// MintPoints mints points directly, outside the campaign reward flow
func (e *Engine) MintPoints(
	caller points.Address,
	to points.Address,
	amount uint64,
) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	return e.disburser.MintDirect(to, amount)
}

// CampaignCount returns the number of campaigns created so far, or zero
// before the engine is started
func (e *Engine) CampaignCount() uint64 {
	if !e.started {
		return 0
	}
	return e.registry.CampaignCount()
}

// Campaign returns the campaign with the given id
func (e *Engine) Campaign(campaignId uint64) (campaign.Campaign, bool) {
	if !e.started {
		return campaign.Campaign{}, false
	}
	return e.registry.Campaign(campaignId)
}

// SubmissionCount returns the number of submissions admitted to the
// given campaign, or zero before the engine is started
func (e *Engine) SubmissionCount(campaignId uint64) uint64 {
	if !e.started {
		return 0
	}
	return e.registry.SubmissionCount(campaignId)
}

// Submission returns the stored submission with the given id
func (e *Engine) Submission(id uint64) (campaign.Submission, bool, error) {
	if !e.started {
		return campaign.Submission{}, false, nil
	}
	return e.ledger.Submission(id)
}

// PendingReward returns the unsettled reward balance for an account, or
// zero before the engine is started
func (e *Engine) PendingReward(account points.Address) uint64 {
	if !e.started {
		return 0
	}
	return e.accumulator.Balance(account)
}

// BalanceOf returns the points balance for an account, or zero before
// the engine is started
func (e *Engine) BalanceOf(account points.Address) uint64 {
	if !e.started {
		return 0
	}
	return e.points.BalanceOf(account)
}

// TotalSupply returns the total points supply, or zero before the
// engine is started
func (e *Engine) TotalSupply() uint64 {
	if !e.started {
		return 0
	}
	return e.points.TotalSupply()
}

// EventBus returns the engine's event bus for notification subscribers
func (e *Engine) EventBus() *event.EventBus {
	return e.eventBus
}

// Points returns the in-process points ledger. It is nil until the
// engine is started.
func (e *Engine) Points() *points.Ledger {
	return e.points
}
