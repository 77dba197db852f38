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

package reward

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/bonfire/event"
	"github.com/blinklabs-io/bonfire/points"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	PointsDispersedEventType event.EventType = "reward.points_dispersed"
	PointsMintedEventType    event.EventType = "reward.points_minted"
)

// ErrWinnersNotSelected is returned when settlement targets a campaign
// that does not exist or has no winner yet
var ErrWinnersNotSelected = errors.New("campaign winners not selected")

// ExternalLedgerError wraps a failure from the external mint authority.
// The pending balance is untouched when this is returned, so the
// operation is safe to retry.
type ExternalLedgerError struct {
	Err error
}

func (e *ExternalLedgerError) Error() string {
	return fmt.Sprintf("external ledger failure: %s", e.Err)
}

func (e *ExternalLedgerError) Unwrap() error {
	return e.Err
}

type PointsDispersedEvent struct {
	CampaignId uint64
	Winner     points.Address
	Amount     uint64
}

type PointsMintedEvent struct {
	To     points.Address
	Amount uint64
}

// MintAuthority is the external collaborator that realizes reward
// transfers by minting fungible points
type MintAuthority interface {
	Mint(to points.Address, amount uint64) error
}

// WinnerSource resolves a campaign's winner. The bool return is false
// while the campaign is missing or has no winner yet.
type WinnerSource interface {
	Winner(campaignId uint64) (points.Address, bool)
}

type DisburserConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	Accumulator  *Accumulator
	Winners      WinnerSource
	Authority    MintAuthority
}

// Disburser settles pending rewards through the external mint
// authority. Settlements are serialized so that a balance is never
// read by two settlements at once.
type Disburser struct {
	config  DisburserConfig
	logger  *slog.Logger
	metrics struct {
		dispersalsTotal prometheus.Counter
		pointsDispersed prometheus.Counter
		mintsTotal      prometheus.Counter
	}
	eventBus    *event.EventBus
	accumulator *Accumulator
	winners     WinnerSource
	authority   MintAuthority
	sync.Mutex
}

func NewDisburser(config DisburserConfig) *Disburser {
	d := &Disburser{
		config:      config,
		eventBus:    config.EventBus,
		accumulator: config.Accumulator,
		winners:     config.Winners,
		authority:   config.Authority,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		d.logger = config.Logger
	}
	promautoFactory := promauto.With(config.PromRegistry)
	d.metrics.dispersalsTotal = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "bonfire_reward_dispersals_total",
			Help: "total settlement operations",
		},
	)
	d.metrics.pointsDispersed = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "bonfire_reward_points_dispersed_total",
			Help: "total points dispersed to winners in base units",
		},
	)
	d.metrics.mintsTotal = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "bonfire_reward_direct_mints_total",
			Help: "total direct mint operations",
		},
	)
	return d
}

// Settle realizes the pending reward for a campaign's winner via the
// external mint authority and drains the winner's balance. Settling a
// campaign whose reward was already dispersed is not an error: it
// reports a zero amount. A mint authority failure leaves the balance
// pending for retry.
func (d *Disburser) Settle(campaignId uint64) (uint64, error) {
	d.Lock()
	defer d.Unlock()
	winner, ok := d.winners.Winner(campaignId)
	if !ok {
		return 0, ErrWinnersNotSelected
	}
	amount := d.accumulator.Balance(winner)
	if amount > 0 {
		if err := d.authority.Mint(winner, amount); err != nil {
			return 0, &ExternalLedgerError{Err: err}
		}
		if err := d.accumulator.Debit(winner, amount); err != nil {
			return 0, err
		}
	}
	d.logger.Info(
		"dispersed points",
		"component", "reward",
		"campaign_id", campaignId,
		"winner", winner.String(),
		"amount", amount,
	)
	d.metrics.dispersalsTotal.Inc()
	d.metrics.pointsDispersed.Add(float64(amount))
	d.eventBus.Publish(
		PointsDispersedEventType,
		event.NewEvent(
			PointsDispersedEventType,
			PointsDispersedEvent{
				CampaignId: campaignId,
				Winner:     winner,
				Amount:     amount,
			},
		),
	)
	return amount, nil
}

// MintDirect passes a mint through to the external authority outside
// the campaign reward flow. Pending balances are not touched.
func (d *Disburser) MintDirect(to points.Address, amount uint64) error {
	if err := d.authority.Mint(to, amount); err != nil {
		return &ExternalLedgerError{Err: err}
	}
	d.logger.Info(
		"minted points",
		"component", "reward",
		"to", to.String(),
		"amount", amount,
	)
	d.metrics.mintsTotal.Inc()
	d.eventBus.Publish(
		PointsMintedEventType,
		event.NewEvent(
			PointsMintedEventType,
			PointsMintedEvent{
				To:     to,
				Amount: amount,
			},
		),
	)
	return nil
}
