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
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/bonfire/database"
	"github.com/blinklabs-io/bonfire/points"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type AccumulatorConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	Database     *database.Database
}

// Accumulator tracks per-account pending reward balances. Credits are
// additive: an account that wins multiple campaigns accumulates one
// reward per win until settlement drains the balance.
type Accumulator struct {
	config  AccumulatorConfig
	logger  *slog.Logger
	metrics struct {
		creditsTotal prometheus.Counter
		pendingTotal prometheus.Gauge
	}
	db       *database.Database
	balances map[points.Address]uint64
	sync.RWMutex
}

func NewAccumulator(config AccumulatorConfig) *Accumulator {
	a := &Accumulator{
		config:   config,
		db:       config.Database,
		balances: make(map[points.Address]uint64),
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		a.logger = config.Logger
	}
	promautoFactory := promauto.With(config.PromRegistry)
	a.metrics.creditsTotal = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "bonfire_reward_credits_total",
			Help: "total reward credits applied",
		},
	)
	a.metrics.pendingTotal = promautoFactory.NewGauge(
		prometheus.GaugeOpts{
			Name: "bonfire_reward_pending_total",
			Help: "sum of pending reward balances in base units",
		},
	)
	return a
}

// Load restores pending reward balances from the database
func (a *Accumulator) Load() error {
	a.Lock()
	defer a.Unlock()
	rewards, err := a.db.GetPendingRewards(nil)
	if err != nil {
		return fmt.Errorf("failed to load pending rewards: %w", err)
	}
	var total uint64
	for _, tmpReward := range rewards {
		var account points.Address
		copy(account[:], tmpReward.Account)
		a.balances[account] = tmpReward.Amount
		total += tmpReward.Amount
	}
	a.metrics.pendingTotal.Set(float64(total))
	a.logger.Info(
		"loaded pending rewards",
		"component", "reward",
		"accounts", len(rewards),
	)
	return nil
}

// Balance returns the pending reward balance for an account
func (a *Accumulator) Balance(account points.Address) uint64 {
	a.RLock()
	defer a.RUnlock()
	return a.balances[account]
}

// Credit adds amount to an account's pending balance, writing the new
// balance through the caller's transaction and committing it. The
// read, the durable write, and the commit all happen under the
// accumulator lock so that no concurrent debit can persist a balance
// read before this credit.
func (a *Accumulator) Credit(
	account points.Address,
	amount uint64,
	txn *database.Txn,
) error {
	a.Lock()
	defer a.Unlock()
	newBalance := a.balances[account] + amount
	if err := a.db.SetPendingReward(account[:], newBalance, txn); err != nil {
		return fmt.Errorf("failed to store pending reward: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	a.balances[account] = newBalance
	a.logger.Debug(
		"credited pending reward",
		"component", "reward",
		"account", account.String(),
		"amount", amount,
	)
	a.metrics.creditsTotal.Inc()
	a.metrics.pendingTotal.Add(float64(amount))
	return nil
}

// Debit removes amount from an account's pending balance and persists
// the new balance. Debiting more than the current balance indicates a
// bookkeeping bug and is rejected.
func (a *Accumulator) Debit(account points.Address, amount uint64) error {
	a.Lock()
	defer a.Unlock()
	balance := a.balances[account]
	if amount > balance {
		return fmt.Errorf(
			"debit %d exceeds pending balance %d for %s",
			amount,
			balance,
			account.String(),
		)
	}
	newBalance := balance - amount
	a.balances[account] = newBalance
	a.metrics.pendingTotal.Sub(float64(amount))
	// The in-memory debit must land even if persistence fails: the
	// external transfer has already happened by the time we're called,
	// and leaving the balance pending would pay it out twice. A stale
	// stored balance is corrected by the next write for this account.
	if err := a.db.SetPendingReward(account[:], newBalance, nil); err != nil {
		a.logger.Warn(
			"failed to store pending reward",
			"component", "reward",
			"account", account.String(),
			"error", err,
		)
	}
	return nil
}
