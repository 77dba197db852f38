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
	"testing"

	"github.com/blinklabs-io/bonfire/points"
	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.NotNil(t, cfg.logger, "default logger should be set")
	assert.True(t, cfg.owner.IsZero())
	assert.Equal(t, "", cfg.dataDir)
	assert.Equal(t, uint64(0), cfg.maxReward)
	assert.Equal(t, uint64(0), cfg.maxSubmissions)
}

func TestConfigOptions(t *testing.T) {
	var owner points.Address
	owner[0] = 0x01

	cfg := NewConfig(
		WithOwner(owner),
		WithDataDir("/tmp/bonfire-test"),
		WithMaxReward(5000),
		WithMaxSubmissions(100),
		WithTokenName("Test Points"),
		WithTokenSymbol("TEST"),
	)

	assert.Equal(t, owner, cfg.owner)
	assert.Equal(t, "/tmp/bonfire-test", cfg.dataDir)
	assert.Equal(t, uint64(5000), cfg.maxReward)
	assert.Equal(t, uint64(100), cfg.maxSubmissions)
	assert.Equal(t, "Test Points", cfg.tokenName)
	assert.Equal(t, "TEST", cfg.tokenSymbol)
}
