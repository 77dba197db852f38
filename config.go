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

package bonfire

import (
	"io"
	"log/slog"

	"github.com/blinklabs-io/bonfire/points"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry   prometheus.Registerer
	logger         *slog.Logger
	owner          points.Address
	dataDir        string
	tokenName      string
	tokenSymbol    string
	maxReward      uint64
	maxSubmissions uint64
}

// ConfigOptionFunc is a type that represents functions that modify the engine config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new engine config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithOwner specifies the privileged caller identity. All mutating
// operations require this caller. An engine cannot be created without
// an owner.
func WithOwner(owner points.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.owner = owner
	}
}

// WithDataDir specifies the persistent data directory to use. The default is to store everything in memory
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithMaxReward specifies the reward credited to each campaign winner
// in points base units
func WithMaxReward(amount uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.maxReward = amount
	}
}

// WithMaxSubmissions specifies the per-campaign submission cap
func WithMaxSubmissions(limit uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.maxSubmissions = limit
	}
}

// WithTokenName specifies the display name for the points unit
func WithTokenName(name string) ConfigOptionFunc {
	return func(c *Config) {
		c.tokenName = name
	}
}

// WithTokenSymbol specifies the ticker symbol for the points unit
func WithTokenSymbol(symbol string) ConfigOptionFunc {
	return func(c *Config) {
		c.tokenSymbol = symbol
	}
}
