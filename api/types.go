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

package api

import "github.com/blinklabs-io/suidex/sui"

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	IsHealthy bool    `json:"is_healthy"`
	Watermark *uint64 `json:"watermark"`
}

// LatestCheckpointResponse is returned by GET /api/v1/checkpoints/latest
type LatestCheckpointResponse struct {
	SequenceNumber sui.Uint64 `json:"sequenceNumber"`
}

// CountResponse is returned by GET /api/v1/addresses/count
type CountResponse struct {
	Count sui.Uint64 `json:"count"`
}

// EventPage is a page of events with an opaque cursor
type EventPage struct {
	Data        []sui.Event `json:"data"`
	NextCursor  *string     `json:"nextCursor"`
	HasNextPage bool        `json:"hasNextPage"`
}
