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
	"gorm.io/gorm/clause"
)

// SetPendingReward stores or updates the pending reward balance for an
// account
func (d *Database) SetPendingReward(
	account []byte,
	amount uint64,
	txn *Txn,
) error {
	result := d.metadataFromTxn(txn).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount"}),
		}).
		Create(&PendingReward{Account: account, Amount: amount})
	return result.Error
}

// GetPendingRewards returns all pending reward balances
func (d *Database) GetPendingRewards(txn *Txn) ([]PendingReward, error) {
	var ret []PendingReward
	result := d.metadataFromTxn(txn).Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
