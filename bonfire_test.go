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

package bonfire_test

import (
	"testing"

	"github.com/blinklabs-io/bonfire"
	"github.com/blinklabs-io/bonfire/campaign"
	"github.com/blinklabs-io/bonfire/points"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress(lastByte byte) points.Address {
	var a points.Address
	a[points.AddressSize-1] = lastByte
	return a
}

var testOwner = testAddress(0xaa)

// newTestEngine creates a started engine backed by a temp data
// directory. Each engine gets its own prometheus registry so restarts
// within a test don't collide on metric registration.
func newTestEngine(t *testing.T, dataDir string) *bonfire.Engine {
	t.Helper()
	e, err := bonfire.New(bonfire.NewConfig(
		bonfire.WithOwner(testOwner),
		bonfire.WithDataDir(dataDir),
		bonfire.WithPrometheusRegistry(prometheus.NewRegistry()),
		bonfire.WithMaxReward(1000),
	))
	require.NoError(t, err, "failed to create engine")
	require.NoError(t, e.Start(), "failed to start engine")
	return e
}

func testBatch(campaignId uint64, count int) []campaign.BatchItem {
	batch := make([]campaign.BatchItem, 0, count)
	for i := range count {
		batch = append(batch, campaign.BatchItem{
			CampaignId: campaignId,
			Submission: campaign.SubmissionContent{
				Content:       "submission content",
				ProducerLabel: "producer",
				Submitter:     testAddress(byte(0x10 + i)),
				UsageMetric:   uint64(i),
			},
		})
	}
	return batch
}

func TestNew_RequiresOwner(t *testing.T) {
	_, err := bonfire.New(bonfire.NewConfig(
		bonfire.WithDataDir(t.TempDir()),
	))
	require.Error(t, err, "engine without an owner should be rejected")
}

func TestEngine_NotStarted(t *testing.T) {
	e, err := bonfire.New(bonfire.NewConfig(
		bonfire.WithOwner(testOwner),
		bonfire.WithDataDir(t.TempDir()),
		bonfire.WithPrometheusRegistry(prometheus.NewRegistry()),
	))
	require.NoError(t, err)

	_, err = e.CreateCampaign(testOwner)
	assert.ErrorIs(t, err, bonfire.ErrNotStarted)
	_, err = e.AddSubmissions(testOwner, testBatch(1, 1))
	assert.ErrorIs(t, err, bonfire.ErrNotStarted)
	err = e.SelectWinner(testOwner, 1, 1, testAddress(0x01))
	assert.ErrorIs(t, err, bonfire.ErrNotStarted)
	_, err = e.DispersePoints(testOwner, 1)
	assert.ErrorIs(t, err, bonfire.ErrNotStarted)
	err = e.MintPoints(testOwner, testAddress(0x01), 100)
	assert.ErrorIs(t, err, bonfire.ErrNotStarted)
}

func TestEngine_ReadsBeforeStart(t *testing.T) {
	e, err := bonfire.New(bonfire.NewConfig(
		bonfire.WithOwner(testOwner),
		bonfire.WithDataDir(t.TempDir()),
		bonfire.WithPrometheusRegistry(prometheus.NewRegistry()),
	))
	require.NoError(t, err)

	// Read queries on an unstarted engine report empty state rather
	// than panicking on unwired components
	assert.Equal(t, uint64(0), e.CampaignCount())
	_, ok := e.Campaign(1)
	assert.False(t, ok)
	assert.Equal(t, uint64(0), e.SubmissionCount(1))
	_, ok, err = e.Submission(1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(0), e.PendingReward(testAddress(0x01)))
	assert.Equal(t, uint64(0), e.BalanceOf(testAddress(0x01)))
	assert.Equal(t, uint64(0), e.TotalSupply())
	assert.Nil(t, e.Points())
}

func TestEngine_NoRestartAfterStop(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	require.NoError(t, e.Stop())

	// A stopped engine refuses to restart; reopening the data directory
	// takes a new engine
	require.Error(t, e.Start())
}

func TestEngine_OwnerOnly(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	defer e.Stop() //nolint:errcheck
	intruder := testAddress(0xbb)

	_, err := e.CreateCampaign(intruder)
	assert.ErrorIs(t, err, bonfire.ErrUnauthorized)
	_, err = e.AddSubmissions(intruder, testBatch(1, 1))
	assert.ErrorIs(t, err, bonfire.ErrUnauthorized)
	err = e.SelectWinner(intruder, 1, 1, testAddress(0x01))
	assert.ErrorIs(t, err, bonfire.ErrUnauthorized)
	_, err = e.DispersePoints(intruder, 1)
	assert.ErrorIs(t, err, bonfire.ErrUnauthorized)
	err = e.MintPoints(intruder, testAddress(0x01), 100)
	assert.ErrorIs(t, err, bonfire.ErrUnauthorized)
	assert.Equal(t, uint64(0), e.CampaignCount())
}

func TestEngine_FullCampaignFlow(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	defer e.Stop() //nolint:errcheck
	winner := testAddress(0x01)

	campaignId, err := e.CreateCampaign(testOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), campaignId)
	assert.Equal(t, uint64(1), e.CampaignCount())

	ids, err := e.AddSubmissions(testOwner, testBatch(campaignId, 3))
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, ids)
	assert.Equal(t, uint64(3), e.SubmissionCount(campaignId))

	submission, ok, err := e.Submission(2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, campaignId, submission.CampaignId)
	assert.Equal(t, "submission content", submission.Content)

	require.NoError(t, e.SelectWinner(testOwner, campaignId, 2, winner))
	c, ok := e.Campaign(campaignId)
	require.True(t, ok)
	assert.Equal(t, campaign.StatusInactive, c.Status)
	assert.Equal(t, winner, c.Winner)
	assert.Equal(t, uint64(2), c.WinningSubmission)
	assert.Equal(t, uint64(1000), e.PendingReward(winner))
	assert.Equal(t, uint64(0), e.BalanceOf(winner))

	amount, err := e.DispersePoints(testOwner, campaignId)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), amount)
	assert.Equal(t, uint64(0), e.PendingReward(winner))
	assert.Equal(t, uint64(1000), e.BalanceOf(winner))
	assert.Equal(t, uint64(1000), e.TotalSupply())

	// Re-settling is a no-op, not an error
	amount, err = e.DispersePoints(testOwner, campaignId)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), amount)
	assert.Equal(t, uint64(1000), e.BalanceOf(winner))
}

func TestEngine_ClosedCampaignRejectsSubmissions(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	defer e.Stop() //nolint:errcheck

	campaignId, err := e.CreateCampaign(testOwner)
	require.NoError(t, err)
	require.NoError(
		t,
		e.SelectWinner(testOwner, campaignId, 0, testAddress(0x01)),
	)

	_, err = e.AddSubmissions(testOwner, testBatch(campaignId, 1))
	assert.ErrorIs(t, err, campaign.ErrCampaignNotActive)
}

func TestEngine_MintPoints(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	defer e.Stop() //nolint:errcheck
	to := testAddress(0x02)

	require.NoError(t, e.MintPoints(testOwner, to, 500))
	require.NoError(t, e.MintPoints(testOwner, to, 250))
	assert.Equal(t, uint64(750), e.BalanceOf(to))
	assert.Equal(t, uint64(750), e.TotalSupply())
}

func TestEngine_Persistence(t *testing.T) {
	dataDir := t.TempDir()
	winner := testAddress(0x01)

	e := newTestEngine(t, dataDir)
	campaignId, err := e.CreateCampaign(testOwner)
	require.NoError(t, err)
	_, err = e.AddSubmissions(testOwner, testBatch(campaignId, 2))
	require.NoError(t, err)
	require.NoError(t, e.SelectWinner(testOwner, campaignId, 1, winner))
	require.NoError(t, e.Stop())

	// A fresh engine over the same data directory sees the campaign,
	// submissions, and unsettled reward
	e = newTestEngine(t, dataDir)
	defer e.Stop() //nolint:errcheck
	assert.Equal(t, uint64(1), e.CampaignCount())
	c, ok := e.Campaign(campaignId)
	require.True(t, ok)
	assert.Equal(t, campaign.StatusInactive, c.Status)
	assert.Equal(t, winner, c.Winner)
	assert.Equal(t, uint64(2), e.SubmissionCount(campaignId))
	assert.Equal(t, uint64(1000), e.PendingReward(winner))

	// Ids keep counting from where they left off
	campaignId, err = e.CreateCampaign(testOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), campaignId)
	ids, err := e.AddSubmissions(testOwner, testBatch(campaignId, 1))
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, ids)
}
