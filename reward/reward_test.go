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
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/bonfire/database"
	"github.com/blinklabs-io/bonfire/event"
	"github.com/blinklabs-io/bonfire/points"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers and Mocks
// =============================================================================

// mockAuthority is a mint authority that records mints and can be
// configured to fail
type mockAuthority struct {
	mints   map[points.Address]uint64
	failErr error
	mu      sync.Mutex
}

func newMockAuthority() *mockAuthority {
	return &mockAuthority{
		mints: make(map[points.Address]uint64),
	}
}

func (m *mockAuthority) Mint(to points.Address, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.mints[to] += amount
	return nil
}

func (m *mockAuthority) minted(to points.Address) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mints[to]
}

func (m *mockAuthority) setFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// mockWinners resolves winners from a fixed map
type mockWinners struct {
	winners map[uint64]points.Address
}

func (m *mockWinners) Winner(campaignId uint64) (points.Address, bool) {
	winner, ok := m.winners[campaignId]
	return winner, ok
}

func newTestAccumulator(t *testing.T) *Accumulator {
	t.Helper()
	db, err := database.New(&database.Config{
		DataDir: t.TempDir(),
	})
	require.NoError(t, err, "failed to create database")
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	a := NewAccumulator(AccumulatorConfig{
		PromRegistry: prometheus.NewRegistry(),
		Database:     db,
	})
	require.NoError(t, a.Load())
	return a
}

// credit applies a credit through its own transaction, the way winner
// selection does
func credit(
	t *testing.T,
	a *Accumulator,
	account points.Address,
	amount uint64,
) {
	t.Helper()
	txn := a.db.Transaction()
	defer txn.Discard()
	require.NoError(t, a.Credit(account, amount, txn))
}

func newTestDisburser(
	t *testing.T,
	winners *mockWinners,
	authority MintAuthority,
) (*Disburser, *Accumulator) {
	t.Helper()
	accumulator := newTestAccumulator(t)
	d := NewDisburser(DisburserConfig{
		PromRegistry: prometheus.NewRegistry(),
		EventBus:     event.NewEventBus(nil, nil),
		Accumulator:  accumulator,
		Winners:      winners,
		Authority:    authority,
	})
	return d, accumulator
}

func testAddress(lastByte byte) points.Address {
	var a points.Address
	a[points.AddressSize-1] = lastByte
	return a
}

// =============================================================================
// Accumulator Tests
// =============================================================================

func TestAccumulator_CreditAdditive(t *testing.T) {
	a := newTestAccumulator(t)
	account := testAddress(0x01)

	credit(t, a, account, 100)
	credit(t, a, account, 250)
	assert.Equal(t, uint64(350), a.Balance(account))
	assert.Equal(
		t,
		float64(350),
		testutil.ToFloat64(a.metrics.pendingTotal),
	)
}

func TestAccumulator_BalanceUnknownAccount(t *testing.T) {
	a := newTestAccumulator(t)
	assert.Equal(t, uint64(0), a.Balance(testAddress(0x01)))
}

func TestAccumulator_Debit(t *testing.T) {
	a := newTestAccumulator(t)
	account := testAddress(0x01)

	credit(t, a, account, 100)
	require.NoError(t, a.Debit(account, 60))
	assert.Equal(t, uint64(40), a.Balance(account))
	require.NoError(t, a.Debit(account, 40))
	assert.Equal(t, uint64(0), a.Balance(account))
}

func TestAccumulator_DebitExceedsBalance(t *testing.T) {
	a := newTestAccumulator(t)
	account := testAddress(0x01)

	credit(t, a, account, 100)
	err := a.Debit(account, 101)
	require.Error(t, err, "overdraw should be rejected")
	assert.Equal(t, uint64(100), a.Balance(account))
}

func TestAccumulator_LoadRestoresBalances(t *testing.T) {
	dataDir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)

	account := testAddress(0x01)
	require.NoError(t, db.SetPendingReward(account[:], 500, nil))
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	a := NewAccumulator(AccumulatorConfig{
		PromRegistry: prometheus.NewRegistry(),
		Database:     db,
	})
	require.NoError(t, a.Load())
	assert.Equal(t, uint64(500), a.Balance(account))
}

func TestAccumulator_SettledBalanceStaysSettled(t *testing.T) {
	a := newTestAccumulator(t)
	account := testAddress(0x01)

	credit(t, a, account, 1000)

	// The credit's durable write lands with the credit, not later
	restored := NewAccumulator(AccumulatorConfig{
		PromRegistry: prometheus.NewRegistry(),
		Database:     a.db,
	})
	require.NoError(t, restored.Load())
	require.Equal(t, uint64(1000), restored.Balance(account))

	// Draining the balance persists the zero, so a restart cannot
	// revive an already settled reward
	require.NoError(t, a.Debit(account, 1000))
	restored = NewAccumulator(AccumulatorConfig{
		PromRegistry: prometheus.NewRegistry(),
		Database:     a.db,
	})
	require.NoError(t, restored.Load())
	assert.Equal(t, uint64(0), restored.Balance(account))
}

// =============================================================================
// Disburser Settlement Tests
// =============================================================================

func TestDisburser_Settle(t *testing.T) {
	winner := testAddress(0x01)
	authority := newMockAuthority()
	d, accumulator := newTestDisburser(
		t,
		&mockWinners{winners: map[uint64]points.Address{1: winner}},
		authority,
	)
	credit(t, accumulator, winner, 1000)

	amount, err := d.Settle(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), amount)
	assert.Equal(t, uint64(1000), authority.minted(winner))
	assert.Equal(
		t,
		uint64(0),
		accumulator.Balance(winner),
		"settlement should drain the pending balance",
	)
}

func TestDisburser_Settle_Idempotent(t *testing.T) {
	winner := testAddress(0x01)
	authority := newMockAuthority()
	d, accumulator := newTestDisburser(
		t,
		&mockWinners{winners: map[uint64]points.Address{1: winner}},
		authority,
	)
	credit(t, accumulator, winner, 1000)

	amount, err := d.Settle(1)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), amount)

	// Second settlement succeeds but transfers nothing
	amount, err = d.Settle(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), amount)
	assert.Equal(t, uint64(1000), authority.minted(winner))
}

func TestDisburser_Settle_NoWinnerYet(t *testing.T) {
	d, _ := newTestDisburser(
		t,
		&mockWinners{winners: map[uint64]points.Address{}},
		newMockAuthority(),
	)

	_, err := d.Settle(1)
	require.ErrorIs(t, err, ErrWinnersNotSelected)
}

func TestDisburser_Settle_AuthorityFailureRetrySafe(t *testing.T) {
	winner := testAddress(0x01)
	authority := newMockAuthority()
	d, accumulator := newTestDisburser(
		t,
		&mockWinners{winners: map[uint64]points.Address{1: winner}},
		authority,
	)
	credit(t, accumulator, winner, 1000)

	// Mint failure surfaces as an external ledger error and leaves the
	// pending balance untouched
	mintErr := errors.New("authority unavailable")
	authority.setFail(mintErr)
	_, err := d.Settle(1)
	var extErr *ExternalLedgerError
	require.ErrorAs(t, err, &extErr)
	require.ErrorIs(t, err, mintErr)
	assert.Equal(t, uint64(1000), accumulator.Balance(winner))
	assert.Equal(t, uint64(0), authority.minted(winner))

	// Retry succeeds once the authority recovers
	authority.setFail(nil)
	amount, err := d.Settle(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), amount)
	assert.Equal(t, uint64(0), accumulator.Balance(winner))
}

func TestDisburser_Settle_MultipleWinsSettleTogether(t *testing.T) {
	winner := testAddress(0x01)
	authority := newMockAuthority()
	d, accumulator := newTestDisburser(
		t,
		&mockWinners{
			winners: map[uint64]points.Address{1: winner, 2: winner},
		},
		authority,
	)
	// Two wins accumulated before any settlement
	credit(t, accumulator, winner, 1000)
	credit(t, accumulator, winner, 1000)

	// Settling either campaign drains the whole pending balance
	amount, err := d.Settle(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), amount)

	amount, err = d.Settle(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), amount)
	assert.Equal(t, uint64(2000), authority.minted(winner))
}

func TestDisburser_Settle_PublishesEvent(t *testing.T) {
	winner := testAddress(0x01)
	d, accumulator := newTestDisburser(
		t,
		&mockWinners{winners: map[uint64]points.Address{1: winner}},
		newMockAuthority(),
	)
	credit(t, accumulator, winner, 500)
	_, evtCh := d.eventBus.Subscribe(PointsDispersedEventType)

	_, err := d.Settle(1)
	require.NoError(t, err)

	select {
	case evt := <-evtCh:
		dispersed, ok := evt.Data.(PointsDispersedEvent)
		require.True(t, ok, "event data should be PointsDispersedEvent")
		assert.Equal(t, uint64(1), dispersed.CampaignId)
		assert.Equal(t, winner, dispersed.Winner)
		assert.Equal(t, uint64(500), dispersed.Amount)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for points dispersed event")
	}
}

// =============================================================================
// Direct Mint Tests
// =============================================================================

func TestDisburser_MintDirect(t *testing.T) {
	to := testAddress(0x02)
	authority := newMockAuthority()
	d, accumulator := newTestDisburser(
		t,
		&mockWinners{winners: map[uint64]points.Address{}},
		authority,
	)

	require.NoError(t, d.MintDirect(to, 750))
	assert.Equal(t, uint64(750), authority.minted(to))
	// Direct mints bypass pending balances entirely
	assert.Equal(t, uint64(0), accumulator.Balance(to))
}

func TestDisburser_MintDirect_AuthorityFailure(t *testing.T) {
	authority := newMockAuthority()
	authority.setFail(errors.New("authority unavailable"))
	d, _ := newTestDisburser(
		t,
		&mockWinners{winners: map[uint64]points.Address{}},
		authority,
	)

	err := d.MintDirect(testAddress(0x02), 100)
	var extErr *ExternalLedgerError
	require.ErrorAs(t, err, &extErr)
}

func TestDisburser_MintDirect_PublishesEvent(t *testing.T) {
	to := testAddress(0x02)
	d, _ := newTestDisburser(
		t,
		&mockWinners{winners: map[uint64]points.Address{}},
		newMockAuthority(),
	)
	_, evtCh := d.eventBus.Subscribe(PointsMintedEventType)

	require.NoError(t, d.MintDirect(to, 300))

	select {
	case evt := <-evtCh:
		minted, ok := evt.Data.(PointsMintedEvent)
		require.True(t, ok, "event data should be PointsMintedEvent")
		assert.Equal(t, to, minted.To)
		assert.Equal(t, uint64(300), minted.Amount)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for points minted event")
	}
}
