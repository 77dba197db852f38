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
	"gorm.io/gorm"
)

// metadataFromTxn returns the metadata handle for the given transaction,
// falling back to the shared connection when txn is nil
func (d *Database) metadataFromTxn(txn *Txn) *gorm.DB {
	if txn == nil {
		return d.metadata
	}
	return txn.metadata
}

// SetCampaign stores or updates a campaign record
func (d *Database) SetCampaign(campaign Campaign, txn *Txn) error {
	result := d.metadataFromTxn(txn).Save(&campaign)
	return result.Error
}

// GetCampaign returns the campaign record for the given id
func (d *Database) GetCampaign(id uint64, txn *Txn) (Campaign, error) {
	var ret Campaign
	result := d.metadataFromTxn(txn).First(&ret, "id = ?", id)
	if result.Error != nil {
		return ret, result.Error
	}
	return ret, nil
}

// GetCampaigns returns all campaign records ordered by id
func (d *Database) GetCampaigns(txn *Txn) ([]Campaign, error) {
	var ret []Campaign
	result := d.metadataFromTxn(txn).Order("id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
