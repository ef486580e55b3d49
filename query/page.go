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

package query

import "fmt"

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Page is one page of results. NextCursor is the key of the last item
// returned, and is set on the final page too; HasNextPage tells whether
// more items follow it.
type Page[T any, C any] struct {
	Data        []T  `json:"data"`
	NextCursor  *C   `json:"nextCursor"`
	HasNextPage bool `json:"hasNextPage"`
}

// Limit returns a pointer for the optional limit arguments
func Limit(n int) *int {
	return &n
}

func checkLimit(limit *int) (int, error) {
	if limit == nil {
		return DefaultLimit, nil
	}
	if *limit < 1 || *limit > MaxLimit {
		return 0, fmt.Errorf(
			"%w: %d is outside 1..%d",
			ErrInvalidLimit,
			*limit,
			MaxLimit,
		)
	}
	return *limit, nil
}

// buildPage trims a result fetched with limit+1 items and derives the
// cursor of the page
func buildPage[S any, T any, C any](
	rows []S,
	limit int,
	convert func(S) (T, error),
	key func(S) C,
) (*Page[T, C], error) {
	ret := &Page[T, C]{Data: make([]T, 0, min(len(rows), limit))}
	if len(rows) > limit {
		ret.HasNextPage = true
		rows = rows[:limit]
	}
	for _, row := range rows {
		item, err := convert(row)
		if err != nil {
			return nil, err
		}
		ret.Data = append(ret.Data, item)
	}
	if len(rows) > 0 {
		cursor := key(rows[len(rows)-1])
		ret.NextCursor = &cursor
	}
	return ret, nil
}
