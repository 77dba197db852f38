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

package points

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// AddressSize is the length of an account identifier in bytes
	AddressSize = 20

	DefaultName   = "Bonfire Points"
	DefaultSymbol = "POINT"
)

// ErrSupplyOverflow is returned when a mint would overflow an account
// balance or the total supply
var ErrSupplyOverflow = errors.New("points supply overflow")

// Address identifies an account on the points ledger. The zero value is
// a valid "unset" identifier and is accepted anywhere an address is
// recorded but rejected as a mint destination.
type Address [AddressSize]byte

var ZeroAddress = Address{}

// ParseAddress decodes a hex-encoded address with optional 0x prefix
func ParseAddress(s string) (Address, error) {
	var a Address
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != AddressSize {
		return a, fmt.Errorf(
			"invalid address length: expected %d bytes, got %d",
			AddressSize,
			len(raw),
		)
	}
	copy(a[:], raw)
	return a, nil
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

type LedgerConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	Name         string
	Symbol       string
}

// Ledger is an in-process fungible points ledger. It implements the
// mint authority expected by the reward disbursement flow and tracks
// per-account balances and the running total supply.
type Ledger struct {
	config  LedgerConfig
	logger  *slog.Logger
	metrics struct {
		mintsTotal  prometheus.Counter
		totalSupply prometheus.Gauge
	}
	balances    map[Address]uint64
	totalSupply uint64
	sync.RWMutex
}

func NewLedger(config LedgerConfig) *Ledger {
	if config.Name == "" {
		config.Name = DefaultName
	}
	if config.Symbol == "" {
		config.Symbol = DefaultSymbol
	}
	l := &Ledger{
		config:   config,
		balances: make(map[Address]uint64),
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		l.logger = config.Logger
	}
	promautoFactory := promauto.With(config.PromRegistry)
	l.metrics.mintsTotal = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "bonfire_points_mints_total",
			Help: "total count of mint operations on the points ledger",
		},
	)
	l.metrics.totalSupply = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "bonfire_points_total_supply",
		Help: "total supply of points in base units",
	})
	return l
}

// Name returns the display name for the points unit
func (l *Ledger) Name() string {
	return l.config.Name
}

// Symbol returns the ticker symbol for the points unit
func (l *Ledger) Symbol() string {
	return l.config.Symbol
}

// Mint credits amount base units to the given account. Minting is
// unrestricted once the ledger is wired into the engine; callers are
// expected to have performed their own authorization.
func (l *Ledger) Mint(to Address, amount uint64) error {
	if to.IsZero() {
		return errors.New("mint to zero address")
	}
	l.Lock()
	defer l.Unlock()
	if l.balances[to] > math.MaxUint64-amount {
		return ErrSupplyOverflow
	}
	if l.totalSupply > math.MaxUint64-amount {
		return ErrSupplyOverflow
	}
	l.balances[to] += amount
	l.totalSupply += amount
	l.logger.Debug(
		"minted points",
		"component", "points",
		"to", to.String(),
		"amount", amount,
	)
	l.metrics.mintsTotal.Inc()
	l.metrics.totalSupply.Set(float64(l.totalSupply))
	return nil
}

// BalanceOf returns the current balance for the given account
func (l *Ledger) BalanceOf(account Address) uint64 {
	l.RLock()
	defer l.RUnlock()
	return l.balances[account]
}

// TotalSupply returns the sum of all minted points
func (l *Ledger) TotalSupply() uint64 {
	l.RLock()
	defer l.RUnlock()
	return l.totalSupply
}
