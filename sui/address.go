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
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// AddressLength is the size in bytes of an account address or object ID
const AddressLength = 32

var ErrInvalidAddress = errors.New("invalid address")

// Address is an account address in its normalized form: "0x" followed by
// 64 lowercase hex characters
type Address string

// ObjectID shares the address format
type ObjectID = Address

// ZeroAddress is the sender of the genesis transaction
const ZeroAddress Address = "0x0000000000000000000000000000000000000000000000000000000000000000"

// ParseAddress accepts short ("0x2") and full length hex addresses, with or
// without the 0x prefix, and returns the normalized form
func ParseAddress(s string) (Address, error) {
	tmp := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if tmp == "" || len(tmp) > AddressLength*2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	tmp = strings.ToLower(tmp)
	if _, err := hex.DecodeString(padHex(tmp)); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return Address("0x" + strings.Repeat("0", AddressLength*2-len(tmp)) + tmp), nil
}

// MustParseAddress is ParseAddress for constants and tests
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes encodes a raw 32-byte address
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return "", fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidAddress,
			AddressLength,
			len(b),
		)
	}
	return Address("0x" + hex.EncodeToString(b)), nil
}

// String returns the normalized address
func (a Address) String() string {
	return string(a)
}

// Short returns the address with leading zeros removed, as used in type tags
// ("0x2::coin::Coin")
func (a Address) Short() string {
	tmp := strings.TrimLeft(strings.TrimPrefix(string(a), "0x"), "0")
	if tmp == "" {
		tmp = "0"
	}
	return "0x" + tmp
}

// Bytes returns the raw address bytes
func (a Address) Bytes() []byte {
	b, err := hex.DecodeString(strings.TrimPrefix(string(a), "0x"))
	if err != nil {
		return nil
	}
	return b
}

// UnmarshalJSON normalizes addresses as they are decoded. An empty string is
// left empty.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = ""
		return nil
	}
	tmp, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

func padHex(s string) string {
	if len(s)%2 == 1 {
		return "0" + s
	}
	return s
}
