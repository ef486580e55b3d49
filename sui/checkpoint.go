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

package sui

// Checkpoint is a finalized, ordered batch of transactions
type Checkpoint struct {
	Epoch                    Uint64   `json:"epoch"`
	SequenceNumber           Uint64   `json:"sequenceNumber"`
	Digest                   Digest   `json:"digest"`
	NetworkTotalTransactions Uint64   `json:"networkTotalTransactions"`
	PreviousDigest           *Digest  `json:"previousDigest"`
	TimestampMs              Uint64   `json:"timestampMs"`
	Transactions             []Digest `json:"transactions"`
}

// PrevDigest returns the previous checkpoint digest, or an empty digest for
// the first checkpoint
func (c *Checkpoint) PrevDigest() Digest {
	if c.PreviousDigest == nil {
		return ""
	}
	return *c.PreviousDigest
}
