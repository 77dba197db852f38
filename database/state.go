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
	"errors"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	CampaignCounterKey   = "campaign_counter"
	SubmissionCounterKey = "submission_counter"
)

// GetState returns the engine state value for the given key. The bool
// return indicates whether the key was present.
func (d *Database) GetState(key string, txn *Txn) (uint64, bool, error) {
	var tmpState EngineState
	result := d.metadataFromTxn(txn).First(&tmpState, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, result.Error
	}
	val, err := strconv.ParseUint(tmpState.Value, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

// SetState stores the engine state value for the given key
func (d *Database) SetState(key string, value uint64, txn *Txn) error {
	result := d.metadataFromTxn(txn).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&EngineState{
			Key:   key,
			Value: strconv.FormatUint(value, 10),
		})
	return result.Error
}
