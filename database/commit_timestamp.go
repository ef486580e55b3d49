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

import "fmt"

// CommitTimestampError means the stores disagree on their last commit time,
// so the most recent unit only partly reached disk
type CommitTimestampError struct {
	MetadataTimestamp int64
	BlobTimestamp     int64
}

func (e CommitTimestampError) Error() string {
	return fmt.Sprintf(
		"stores out of sync: metadata committed at %d, blob at %d",
		e.MetadataTimestamp,
		e.BlobTimestamp,
	)
}

// verifyCommitTimestamps compares the commit time recorded by each store. A
// fresh metadata store has nothing to compare.
func (d *Database) verifyCommitTimestamps() error {
	var ts CommitTimestampError
	var err error
	if ts.MetadataTimestamp, err = d.metadata.GetCommitTimestamp(); err != nil {
		return fmt.Errorf("read metadata commit timestamp: %w", err)
	}
	if ts.MetadataTimestamp <= 0 {
		return nil
	}
	if ts.BlobTimestamp, err = d.blob.GetCommitTimestamp(); err != nil {
		return fmt.Errorf("read blob commit timestamp: %w", err)
	}
	if ts.BlobTimestamp != ts.MetadataTimestamp {
		return ts
	}
	return nil
}

func (d *Database) stampCommit(txn *Txn, ts int64) error {
	if err := d.metadata.SetCommitTimestamp(ts, txn.Metadata()); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if err := d.blob.SetCommitTimestamp(ts, txn.Blob()); err != nil {
		return fmt.Errorf("blob: %w", err)
	}
	return nil
}
