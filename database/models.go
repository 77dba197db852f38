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

package database

import (
	"github.com/blinklabs-io/bonfire/database/types"
)

// MigrateModels is the list of model schemas created on startup
var MigrateModels = []any{
	&Campaign{},
	&Submission{},
	&PendingReward{},
	&EngineState{},
}

// Campaign is the durable record for a single campaign. Status and
// winner are stored raw; the campaign package owns their interpretation.
type Campaign struct {
	ID                uint64 `gorm:"primarykey"`
	Winner            []byte `gorm:"size:20"`
	WinningSubmission uint64
	SubmissionCount   uint64
	Status            uint8
}

func (Campaign) TableName() string {
	return "campaign"
}

// Submission is the durable record for a single submission. The
// content payload is stored separately in the blob store under
// SubmissionContentKey(ID).
type Submission struct {
	ID            uint64 `gorm:"primarykey"`
	CampaignID    uint64 `gorm:"index"`
	ProducerLabel string
	Submitter     []byte `gorm:"size:20"`
	UsageMetric   types.Uint64
}

func (Submission) TableName() string {
	return "submission"
}

// PendingReward is the durable record for an account's accumulated
// unsettled reward balance.
type PendingReward struct {
	ID      uint   `gorm:"primarykey"`
	Account []byte `gorm:"uniqueIndex;size:20"`
	Amount  uint64
}

func (PendingReward) TableName() string {
	return "pending_reward"
}

// EngineState is a generic key/value record for engine-level state
// such as the id counters
type EngineState struct {
	ID    uint   `gorm:"primarykey"`
	Key   string `gorm:"uniqueIndex"`
	Value string
}

func (EngineState) TableName() string {
	return "engine_state"
}
