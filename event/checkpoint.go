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

package event

// CheckpointCommittedEventType is published after a checkpoint unit and the
// watermark covering it are durable
const CheckpointCommittedEventType = EventType("checkpoint.committed")

type CheckpointCommittedEvent struct {
	SequenceNumber   uint64
	Digest           string
	TransactionCount int
	EventCount       int
	ObjectCount      int
}
