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
	"encoding/json"
	"fmt"
)

type OwnerKind string

const (
	OwnerKindAddress   OwnerKind = "AddressOwner"
	OwnerKindObject    OwnerKind = "ObjectOwner"
	OwnerKindShared    OwnerKind = "Shared"
	OwnerKindImmutable OwnerKind = "Immutable"
)

// Owner describes who may use an object. On the wire it is one of
// {"AddressOwner": "0x.."}, {"ObjectOwner": "0x.."},
// {"Shared": {"initial_shared_version": n}} or the string "Immutable".
type Owner struct {
	Kind                 OwnerKind
	Address              Address
	InitialSharedVersion uint64
}

func AddressOwner(addr Address) Owner {
	return Owner{Kind: OwnerKindAddress, Address: addr}
}

func (o Owner) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case OwnerKindImmutable:
		return json.Marshal(string(OwnerKindImmutable))
	case OwnerKindShared:
		return json.Marshal(map[string]any{
			string(OwnerKindShared): map[string]uint64{
				"initial_shared_version": o.InitialSharedVersion,
			},
		})
	case OwnerKindAddress, OwnerKindObject:
		return json.Marshal(map[string]Address{string(o.Kind): o.Address})
	default:
		return nil, fmt.Errorf("unknown owner kind %q", o.Kind)
	}
}

func (o *Owner) UnmarshalJSON(data []byte) error {
	var tmpStr string
	if err := json.Unmarshal(data, &tmpStr); err == nil {
		if OwnerKind(tmpStr) != OwnerKindImmutable {
			return fmt.Errorf("unknown owner %q", tmpStr)
		}
		*o = Owner{Kind: OwnerKindImmutable}
		return nil
	}
	var tmpMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &tmpMap); err != nil {
		return err
	}
	if len(tmpMap) != 1 {
		return fmt.Errorf("unexpected owner format: %s", string(data))
	}
	for k, v := range tmpMap {
		switch OwnerKind(k) {
		case OwnerKindAddress, OwnerKindObject:
			var addr Address
			if err := json.Unmarshal(v, &addr); err != nil {
				return err
			}
			*o = Owner{Kind: OwnerKind(k), Address: addr}
		case OwnerKindShared:
			var tmpShared struct {
				InitialSharedVersion Uint64 `json:"initial_shared_version"`
			}
			if err := json.Unmarshal(v, &tmpShared); err != nil {
				return err
			}
			*o = Owner{
				Kind:                 OwnerKindShared,
				InitialSharedVersion: uint64(tmpShared.InitialSharedVersion),
			}
		default:
			return fmt.Errorf("unknown owner kind %q", k)
		}
	}
	return nil
}

// AddressOwned returns the owning address for address-owned objects
func (o Owner) AddressOwned() (Address, bool) {
	if o.Kind != OwnerKindAddress {
		return "", false
	}
	return o.Address, true
}

// String returns a compact representation suitable for storage
func (o Owner) String() string {
	switch o.Kind {
	case OwnerKindAddress, OwnerKindObject:
		return string(o.Address)
	case OwnerKindShared:
		return fmt.Sprintf("shared:%d", o.InitialSharedVersion)
	default:
		return string(o.Kind)
	}
}
