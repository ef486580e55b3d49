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

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// DigestLength is the size in bytes of a transaction, object or checkpoint digest
const DigestLength = 32

var ErrInvalidDigest = errors.New("invalid digest")

// Digest is a base58 encoded 32-byte content digest
type Digest string

// ParseDigest validates a base58 digest string
func ParseDigest(s string) (Digest, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDigest)
	}
	raw := base58.Decode(s)
	if len(raw) != DigestLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidDigest, s)
	}
	return Digest(s), nil
}

// DigestFromBytes encodes raw digest bytes
func DigestFromBytes(b []byte) Digest {
	return Digest(base58.Encode(b))
}

func (d Digest) String() string {
	return string(d)
}

// Bytes returns the decoded digest, or nil when the digest is not valid base58
func (d Digest) Bytes() []byte {
	raw := base58.Decode(string(d))
	if len(raw) != DigestLength {
		return nil
	}
	return raw
}
