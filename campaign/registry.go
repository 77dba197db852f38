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

package campaign

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/bonfire/database"
	"github.com/blinklabs-io/bonfire/event"
	"github.com/blinklabs-io/bonfire/points"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// MaxSubmissionsPerCampaign is the default cap on submissions
	// admitted to a single campaign
	MaxSubmissionsPerCampaign = 1500

	// DefaultMaxRewardPerCampaign is the default reward credited to a
	// campaign winner, in points base units (6 decimal places)
	DefaultMaxRewardPerCampaign uint64 = 100_000_000_000

	CampaignCreatedEventType event.EventType = "campaign.created"
	WinnerSelectedEventType  event.EventType = "campaign.winner_selected"
)

// ErrCampaignNotActive is returned when an operation targets a campaign
// that does not exist or has already closed
var ErrCampaignNotActive = errors.New("campaign not active")

// MaxSubmissionsError is returned when admitting a submission would
// push a campaign past its cap
type MaxSubmissionsError struct {
	CampaignId uint64
	Count      uint64
	Capacity   uint64
}

func (e *MaxSubmissionsError) Error() string {
	return fmt.Sprintf(
		"max submissions reached: campaign=%d, count=%d, capacity=%d",
		e.CampaignId,
		e.Count,
		e.Capacity,
	)
}

type CampaignCreatedEvent struct {
	CampaignId uint64
}

type WinnerSelectedEvent struct {
	CampaignId   uint64
	SubmissionId uint64
	Winner       points.Address
}

type CampaignStatus uint8

const (
	StatusInactive CampaignStatus = 0
	StatusActive   CampaignStatus = 1
)

func (s CampaignStatus) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusInactive:
		return "Inactive"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// Campaign is a bounded collection of submissions with a single
// eventual winner. A campaign starts Active and becomes Inactive
// exactly once, when its winner is selected. The winning submission id
// is recorded for reference only and is never validated against the
// submission ledger.
type Campaign struct {
	Id                uint64
	Status            CampaignStatus
	Winner            points.Address
	WinningSubmission uint64
	SubmissionCount   uint64
}

// RewardCrediter is the write side of the pending-reward accumulator
// needed by winner selection. Credit owns the durable write of the new
// balance and commits the supplied transaction.
type RewardCrediter interface {
	Credit(account points.Address, amount uint64, txn *database.Txn) error
}

type RegistryConfig struct {
	PromRegistry   prometheus.Registerer
	Logger         *slog.Logger
	EventBus       *event.EventBus
	Database       *database.Database
	Rewards        RewardCrediter
	MaxReward      uint64
	MaxSubmissions uint64
}

// Registry owns campaign identity and lifecycle state. All mutating
// operations hold the registry lock so that the admission-check/count
// bump and the status-flip/reward-credit pairs are each atomic.
type Registry struct {
	config  RegistryConfig
	logger  *slog.Logger
	metrics struct {
		campaignsCreated prometheus.Counter
		winnersSelected  prometheus.Counter
		activeCampaigns  prometheus.Gauge
	}
	eventBus        *event.EventBus
	db              *database.Database
	rewards         RewardCrediter
	campaigns       map[uint64]*Campaign
	campaignCounter uint64
	sync.RWMutex
}

func NewRegistry(config RegistryConfig) *Registry {
	if config.MaxReward == 0 {
		config.MaxReward = DefaultMaxRewardPerCampaign
	}
	if config.MaxSubmissions == 0 {
		config.MaxSubmissions = MaxSubmissionsPerCampaign
	}
	r := &Registry{
		config:    config,
		eventBus:  config.EventBus,
		db:        config.Database,
		rewards:   config.Rewards,
		campaigns: make(map[uint64]*Campaign),
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		r.logger = config.Logger
	}
	promautoFactory := promauto.With(config.PromRegistry)
	r.metrics.campaignsCreated = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "bonfire_campaigns_created_total",
			Help: "total campaigns created",
		},
	)
	r.metrics.winnersSelected = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "bonfire_campaign_winners_selected_total",
			Help: "total campaign winners selected",
		},
	)
	r.metrics.activeCampaigns = promautoFactory.NewGauge(
		prometheus.GaugeOpts{
			Name: "bonfire_campaigns_active",
			Help: "current count of active campaigns",
		},
	)
	return r
}

// Load restores campaign state from the database
func (r *Registry) Load() error {
	r.Lock()
	defer r.Unlock()
	campaigns, err := r.db.GetCampaigns(nil)
	if err != nil {
		return fmt.Errorf("failed to load campaigns: %w", err)
	}
	active := 0
	for _, tmpCampaign := range campaigns {
		c := &Campaign{
			Id:                tmpCampaign.ID,
			Status:            CampaignStatus(tmpCampaign.Status),
			WinningSubmission: tmpCampaign.WinningSubmission,
			SubmissionCount:   tmpCampaign.SubmissionCount,
		}
		copy(c.Winner[:], tmpCampaign.Winner)
		r.campaigns[c.Id] = c
		if c.Status == StatusActive {
			active++
		}
	}
	counter, ok, err := r.db.GetState(database.CampaignCounterKey, nil)
	if err != nil {
		return fmt.Errorf("failed to load campaign counter: %w", err)
	}
	if ok {
		r.campaignCounter = counter
	}
	r.metrics.activeCampaigns.Set(float64(active))
	r.logger.Info(
		"loaded campaign state",
		"component", "campaign",
		"campaigns", len(campaigns),
		"active", active,
	)
	return nil
}

// Create assigns the next sequential campaign id and records the new
// campaign as Active
func (r *Registry) Create() (uint64, error) {
	r.Lock()
	defer r.Unlock()
	tmpCampaign := &Campaign{
		Id:     r.campaignCounter + 1,
		Status: StatusActive,
	}
	txn := r.db.Transaction()
	defer txn.Discard()
	if err := r.db.SetCampaign(r.storedCampaign(tmpCampaign), txn); err != nil {
		return 0, fmt.Errorf("failed to store campaign: %w", err)
	}
	if err := r.db.SetState(database.CampaignCounterKey, tmpCampaign.Id, txn); err != nil {
		return 0, fmt.Errorf("failed to store campaign counter: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return 0, err
	}
	r.campaignCounter = tmpCampaign.Id
	r.campaigns[tmpCampaign.Id] = tmpCampaign
	r.logger.Info(
		"created campaign",
		"component", "campaign",
		"campaign_id", tmpCampaign.Id,
	)
	r.metrics.campaignsCreated.Inc()
	r.metrics.activeCampaigns.Inc()
	r.eventBus.Publish(
		CampaignCreatedEventType,
		event.NewEvent(
			CampaignCreatedEventType,
			CampaignCreatedEvent{
				CampaignId: tmpCampaign.Id,
			},
		),
	)
	return tmpCampaign.Id, nil
}

// SelectWinner closes a campaign and credits the winner's pending
// reward. This is a one-way transition: a second call for the same
// campaign fails with ErrCampaignNotActive. The submission id is
// recorded as-is for reference.
func (r *Registry) SelectWinner(
	campaignId uint64,
	submissionId uint64,
	winner points.Address,
) error {
	r.Lock()
	defer r.Unlock()
	tmpCampaign, ok := r.campaigns[campaignId]
	if !ok || tmpCampaign.Status != StatusActive {
		return ErrCampaignNotActive
	}
	updated := *tmpCampaign
	updated.Status = StatusInactive
	updated.Winner = winner
	updated.WinningSubmission = submissionId
	txn := r.db.Transaction()
	defer txn.Discard()
	if err := r.db.SetCampaign(r.storedCampaign(&updated), txn); err != nil {
		return fmt.Errorf("failed to store campaign: %w", err)
	}
	// The accumulator persists the winner's new balance and commits the
	// transaction under its own lock, so the campaign row and the reward
	// credit land together
	if err := r.rewards.Credit(winner, r.config.MaxReward, txn); err != nil {
		return fmt.Errorf("failed to credit winner: %w", err)
	}
	*tmpCampaign = updated
	r.logger.Info(
		"selected campaign winner",
		"component", "campaign",
		"campaign_id", campaignId,
		"submission_id", submissionId,
		"winner", winner.String(),
	)
	r.metrics.winnersSelected.Inc()
	r.metrics.activeCampaigns.Dec()
	r.eventBus.Publish(
		WinnerSelectedEventType,
		event.NewEvent(
			WinnerSelectedEventType,
			WinnerSelectedEvent{
				CampaignId:   campaignId,
				SubmissionId: submissionId,
				Winner:       winner,
			},
		),
	)
	return nil
}

// Campaign returns a copy of the campaign with the given id
func (r *Registry) Campaign(campaignId uint64) (Campaign, bool) {
	r.RLock()
	defer r.RUnlock()
	tmpCampaign, ok := r.campaigns[campaignId]
	if !ok {
		return Campaign{}, false
	}
	return *tmpCampaign, true
}

// CampaignCount returns the number of campaigns created so far
func (r *Registry) CampaignCount() uint64 {
	r.RLock()
	defer r.RUnlock()
	return r.campaignCounter
}

// SubmissionCount returns the number of submissions admitted to the
// given campaign
func (r *Registry) SubmissionCount(campaignId uint64) uint64 {
	r.RLock()
	defer r.RUnlock()
	tmpCampaign, ok := r.campaigns[campaignId]
	if !ok {
		return 0
	}
	return tmpCampaign.SubmissionCount
}

// Winner returns the winner for the given campaign. The bool return is
// false while the campaign is missing or still active.
func (r *Registry) Winner(campaignId uint64) (points.Address, bool) {
	r.RLock()
	defer r.RUnlock()
	tmpCampaign, ok := r.campaigns[campaignId]
	if !ok || tmpCampaign.Status != StatusInactive {
		return points.ZeroAddress, false
	}
	return tmpCampaign.Winner, true
}

// MaxReward returns the configured per-campaign winner reward
func (r *Registry) MaxReward() uint64 {
	return r.config.MaxReward
}

// MaxSubmissions returns the configured per-campaign submission cap
func (r *Registry) MaxSubmissions() uint64 {
	return r.config.MaxSubmissions
}

func (r *Registry) storedCampaign(c *Campaign) database.Campaign {
	return database.Campaign{
		ID:                c.Id,
		Status:            uint8(c.Status),
		Winner:            c.Winner[:],
		WinningSubmission: c.WinningSubmission,
		SubmissionCount:   c.SubmissionCount,
	}
}

// admitBatch validates an ordered list of target campaign ids and bumps
// the submission counts for the whole batch as one atomic unit. Items
// are checked in order and the first violation aborts the entire batch
// with no changes. On success the persist callback is invoked with
// copies of the affected campaigns while the registry lock is still
// held, so the persisted snapshots cannot be made stale by a concurrent
// winner selection. A persist error rolls back the count bumps.
func (r *Registry) admitBatch(
	campaignIds []uint64,
	persist func(updated []Campaign) error,
) error {
	r.Lock()
	defer r.Unlock()
	accepted := make(map[uint64]uint64)
	for _, campaignId := range campaignIds {
		tmpCampaign, ok := r.campaigns[campaignId]
		if !ok || tmpCampaign.Status != StatusActive {
			return ErrCampaignNotActive
		}
		if tmpCampaign.SubmissionCount+accepted[campaignId]+1 > r.config.MaxSubmissions {
			return &MaxSubmissionsError{
				CampaignId: campaignId,
				Count:      tmpCampaign.SubmissionCount + accepted[campaignId],
				Capacity:   r.config.MaxSubmissions,
			}
		}
		accepted[campaignId]++
	}
	updated := make([]Campaign, 0, len(accepted))
	for campaignId, count := range accepted {
		tmpCampaign := r.campaigns[campaignId]
		tmpCampaign.SubmissionCount += count
		updated = append(updated, *tmpCampaign)
	}
	if err := persist(updated); err != nil {
		for campaignId, count := range accepted {
			r.campaigns[campaignId].SubmissionCount -= count
		}
		return err
	}
	return nil
}
