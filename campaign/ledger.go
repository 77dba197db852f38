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
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/bonfire/database"
	"github.com/blinklabs-io/bonfire/database/types"
	"github.com/blinklabs-io/bonfire/event"
	"github.com/blinklabs-io/bonfire/points"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	SubmissionBatchEventType event.EventType = "campaign.submission_batch"
)

type SubmissionBatchEvent struct {
	FirstId uint64
	Count   int
}

// SubmissionContent is the caller-provided portion of a submission.
// Empty content, an empty producer label, a zero usage metric, and a
// zero submitter address are all accepted.
type SubmissionContent struct {
	Content       string
	ProducerLabel string
	Submitter     points.Address
	UsageMetric   uint64
}

// BatchItem targets one submission at a campaign within a batch
type BatchItem struct {
	CampaignId uint64
	Submission SubmissionContent
}

// Submission is a stored submission record
type Submission struct {
	Id            uint64
	CampaignId    uint64
	Content       string
	ProducerLabel string
	Submitter     points.Address
	UsageMetric   uint64
}

type LedgerConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	Database     *database.Database
	Registry     *Registry
}

// Ledger owns the append-only submission record and the global
// submission id sequence. Admission control is delegated to the
// registry so the capacity check and count bump stay atomic with
// respect to winner selection.
type Ledger struct {
	config  LedgerConfig
	logger  *slog.Logger
	metrics struct {
		submissionsTotal prometheus.Counter
		batchesTotal     prometheus.Counter
		batchesRejected  prometheus.Counter
	}
	eventBus          *event.EventBus
	db                *database.Database
	registry          *Registry
	submissionCounter uint64
	sync.Mutex
}

func NewLedger(config LedgerConfig) *Ledger {
	l := &Ledger{
		config:   config,
		eventBus: config.EventBus,
		db:       config.Database,
		registry: config.Registry,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		l.logger = config.Logger
	}
	promautoFactory := promauto.With(config.PromRegistry)
	l.metrics.submissionsTotal = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "bonfire_submissions_total",
			Help: "total submissions admitted",
		},
	)
	l.metrics.batchesTotal = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "bonfire_submission_batches_total",
			Help: "total submission batches accepted",
		},
	)
	l.metrics.batchesRejected = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "bonfire_submission_batches_rejected_total",
			Help: "total submission batches rejected",
		},
	)
	return l
}

// Load restores the submission id sequence from the database
func (l *Ledger) Load() error {
	l.Lock()
	defer l.Unlock()
	counter, ok, err := l.db.GetState(database.SubmissionCounterKey, nil)
	if err != nil {
		return fmt.Errorf("failed to load submission counter: %w", err)
	}
	if ok {
		l.submissionCounter = counter
	}
	return nil
}

// Append admits an ordered batch of submissions as one atomic unit.
// Items are validated in order against campaign state and capacity; the
// first violation aborts the whole batch and no item is committed. On
// success it returns the newly assigned submission ids in batch order.
func (l *Ledger) Append(batch []BatchItem) ([]uint64, error) {
	l.Lock()
	defer l.Unlock()
	if len(batch) == 0 {
		return []uint64{}, nil
	}
	campaignIds := make([]uint64, len(batch))
	for i, item := range batch {
		campaignIds[i] = item.CampaignId
	}
	ids := make([]uint64, len(batch))
	// The persist callback runs while the registry still holds its lock,
	// so the campaign snapshots we commit cannot race a concurrent
	// winner selection
	err := l.registry.admitBatch(campaignIds, func(updated []Campaign) error {
		txn := l.db.Transaction()
		defer txn.Discard()
		for i, item := range batch {
			id := l.submissionCounter + uint64(i) + 1
			ids[i] = id
			record := database.Submission{
				ID:            id,
				CampaignID:    item.CampaignId,
				ProducerLabel: item.Submission.ProducerLabel,
				Submitter:     item.Submission.Submitter[:],
				UsageMetric:   types.Uint64(item.Submission.UsageMetric),
			}
			err := l.db.AddSubmission(
				record,
				[]byte(item.Submission.Content),
				txn,
			)
			if err != nil {
				return fmt.Errorf("failed to store submission: %w", err)
			}
		}
		for _, tmpCampaign := range updated {
			err := l.db.SetCampaign(
				l.registry.storedCampaign(&tmpCampaign),
				txn,
			)
			if err != nil {
				return fmt.Errorf("failed to store campaign: %w", err)
			}
		}
		err := l.db.SetState(
			database.SubmissionCounterKey,
			ids[len(ids)-1],
			txn,
		)
		if err != nil {
			return fmt.Errorf("failed to store submission counter: %w", err)
		}
		return txn.Commit()
	})
	if err != nil {
		l.metrics.batchesRejected.Inc()
		return nil, err
	}
	l.submissionCounter = ids[len(ids)-1]
	l.logger.Info(
		"accepted submission batch",
		"component", "campaign",
		"first_id", ids[0],
		"count", len(ids),
	)
	l.metrics.batchesTotal.Inc()
	l.metrics.submissionsTotal.Add(float64(len(ids)))
	l.eventBus.Publish(
		SubmissionBatchEventType,
		event.NewEvent(
			SubmissionBatchEventType,
			SubmissionBatchEvent{
				FirstId: ids[0],
				Count:   len(ids),
			},
		),
	)
	return ids, nil
}

// Submission returns the stored submission with the given id
func (l *Ledger) Submission(id uint64) (Submission, bool, error) {
	record, content, err := l.db.GetSubmission(id, nil)
	if err != nil {
		if l.db.IsNotFound(err) {
			return Submission{}, false, nil
		}
		return Submission{}, false, err
	}
	ret := Submission{
		Id:            record.ID,
		CampaignId:    record.CampaignID,
		Content:       string(content),
		ProducerLabel: record.ProducerLabel,
		UsageMetric:   uint64(record.UsageMetric),
	}
	copy(ret.Submitter[:], record.Submitter)
	return ret, true, nil
}

// SubmissionCount returns the number of submissions stored across all
// campaigns
func (l *Ledger) SubmissionCount() uint64 {
	l.Lock()
	defer l.Unlock()
	return l.submissionCounter
}
