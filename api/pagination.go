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

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/blinklabs-io/suidex/sui"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

var ErrInvalidPaginationParameters = errors.New(
	"invalid pagination parameters",
)

// PaginationParams contains parsed pagination query values. A nil Limit
// leaves the default to the query engine, which also checks the range.
type PaginationParams struct {
	Cursor     *string
	Limit      *int
	Descending bool
}

// ParsePagination parses the cursor, limit and order query parameters
func ParsePagination(r *http.Request) (PaginationParams, error) {
	var params PaginationParams
	query := r.URL.Query()
	if cursor := query.Get("cursor"); cursor != "" {
		params.Cursor = &cursor
	}
	if limitParam := query.Get("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
		params.Limit = &limit
	}
	if orderParam := query.Get("order"); orderParam != "" {
		switch strings.ToLower(orderParam) {
		case OrderAsc:
		case OrderDesc:
			params.Descending = true
		default:
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
	}
	return params, nil
}

// EncodeEventCursor renders an event ID as a URL-safe opaque cursor
func EncodeEventCursor(id sui.EventID) string {
	return base64.RawURLEncoding.EncodeToString(
		[]byte(id.TxDigest.String() + ":" + strconv.FormatUint(uint64(id.EventSeq), 10)),
	)
}

// DecodeEventCursor parses a cursor made by EncodeEventCursor
func DecodeEventCursor(cursor string) (*sui.EventID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidPaginationParameters
	}
	digest, seqStr, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, ErrInvalidPaginationParameters
	}
	seq, err := strconv.ParseUint(seqStr, 10, 64)
	if err != nil {
		return nil, ErrInvalidPaginationParameters
	}
	return &sui.EventID{
		TxDigest: sui.Digest(digest),
		EventSeq: sui.Uint64(seq),
	}, nil
}
