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

package ingest

import (
	"errors"
	"fmt"
)

// ErrIntegrity marks data from the source that can't be committed without
// risking corrupt state. The pipeline stops when it sees one.
var ErrIntegrity = errors.New("checkpoint integrity check failed")

type IntegrityError struct {
	Sequence uint64
	Reason   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: checkpoint %d: %s", ErrIntegrity, e.Sequence, e.Reason)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

func integrityErrorf(seq uint64, format string, args ...any) error {
	return &IntegrityError{
		Sequence: seq,
		Reason:   fmt.Sprintf(format, args...),
	}
}
