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
	"fmt"

	"github.com/blinklabs-io/bonfire/database/types"
	badger "github.com/dgraph-io/badger/v4"
)

// SubmissionContentKey returns the blob store key for a submission's
// content payload
func SubmissionContentKey(id uint64) []byte {
	return fmt.Appendf(nil, "content/%d", id)
}

// AddSubmission stores a submission record and its content payload
func (d *Database) AddSubmission(
	submission Submission,
	content []byte,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction()
		defer txn.Discard()
		if err := d.AddSubmission(submission, content, txn); err != nil {
			return err
		}
		return txn.Commit()
	}
	if result := txn.metadata.Create(&submission); result.Error != nil {
		return result.Error
	}
	return txn.blob.Set(SubmissionContentKey(submission.ID), content)
}

// GetSubmission returns the submission record and content payload for
// the given id
func (d *Database) GetSubmission(
	id uint64,
	txn *Txn,
) (Submission, []byte, error) {
	var ret Submission
	result := d.metadataFromTxn(txn).First(&ret, "id = ?", id)
	if result.Error != nil {
		return ret, nil, result.Error
	}
	var content []byte
	err := d.blob.View(func(blobTxn *badger.Txn) error {
		item, err := blobTxn.Get(SubmissionContentKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return types.ErrBlobKeyNotFound
			}
			return err
		}
		content, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return ret, nil, err
	}
	return ret, content, nil
}

// GetSubmissionsByCampaign returns all submission records for the given
// campaign ordered by id. Content payloads are not fetched.
func (d *Database) GetSubmissionsByCampaign(
	campaignId uint64,
	txn *Txn,
) ([]Submission, error) {
	var ret []Submission
	result := d.metadataFromTxn(txn).
		Order("id").
		Find(&ret, "campaign_id = ?", campaignId)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
