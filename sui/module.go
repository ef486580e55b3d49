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
	"errors"
	"fmt"
)

// NormalizedModule is the struct portion of a normalized Move module
type NormalizedModule struct {
	FileFormatVersion uint32                      `json:"fileFormatVersion"`
	Address           string                      `json:"address"`
	Name              string                      `json:"name"`
	Structs           map[string]NormalizedStruct `json:"structs"`
}

type NormalizedStruct struct {
	Abilities      AbilitySet            `json:"abilities"`
	TypeParameters []StructTypeParameter `json:"typeParameters"`
	Fields         []NormalizedField     `json:"fields"`
}

type AbilitySet struct {
	Abilities []string `json:"abilities"`
}

type StructTypeParameter struct {
	Constraints AbilitySet `json:"constraints"`
	IsPhantom   bool       `json:"isPhantom"`
}

type NormalizedField struct {
	Name string         `json:"name"`
	Type NormalizedType `json:"type"`
}

// NormalizedType is a Move type as described by a normalized module. Exactly
// one of the fields is set.
type NormalizedType struct {
	// Primitive is one of Bool, U8, U16, U32, U64, U128, U256, Address, Signer
	Primitive        string
	Vector           *NormalizedType
	Struct           *NormalizedStructType
	TypeParameter    *uint16
	Reference        *NormalizedType
	MutableReference *NormalizedType
}

type NormalizedStructType struct {
	Address       string           `json:"address"`
	Module        string           `json:"module"`
	Name          string           `json:"name"`
	TypeArguments []NormalizedType `json:"typeArguments"`
}

func (t NormalizedType) MarshalJSON() ([]byte, error) {
	switch {
	case t.Primitive != "":
		return json.Marshal(t.Primitive)
	case t.Vector != nil:
		return json.Marshal(map[string]*NormalizedType{"Vector": t.Vector})
	case t.Struct != nil:
		return json.Marshal(
			map[string]*NormalizedStructType{"Struct": t.Struct},
		)
	case t.TypeParameter != nil:
		return json.Marshal(map[string]uint16{"TypeParameter": *t.TypeParameter})
	case t.Reference != nil:
		return json.Marshal(map[string]*NormalizedType{"Reference": t.Reference})
	case t.MutableReference != nil:
		return json.Marshal(
			map[string]*NormalizedType{"MutableReference": t.MutableReference},
		)
	}
	return nil, fmt.Errorf("empty normalized type")
}

func (t *NormalizedType) UnmarshalJSON(data []byte) error {
	var tmpStr string
	if err := json.Unmarshal(data, &tmpStr); err == nil {
		*t = NormalizedType{Primitive: tmpStr}
		return nil
	}
	var tmpMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &tmpMap); err != nil {
		return err
	}
	if len(tmpMap) != 1 {
		return fmt.Errorf("unexpected normalized type: %s", string(data))
	}
	for k, v := range tmpMap {
		switch k {
		case "Vector", "Reference", "MutableReference":
			var inner NormalizedType
			if err := json.Unmarshal(v, &inner); err != nil {
				return err
			}
			switch k {
			case "Vector":
				*t = NormalizedType{Vector: &inner}
			case "Reference":
				*t = NormalizedType{Reference: &inner}
			default:
				*t = NormalizedType{MutableReference: &inner}
			}
		case "Struct":
			var tmpStruct NormalizedStructType
			if err := json.Unmarshal(v, &tmpStruct); err != nil {
				return err
			}
			*t = NormalizedType{Struct: &tmpStruct}
		case "TypeParameter":
			var idx uint16
			if err := json.Unmarshal(v, &idx); err != nil {
				return err
			}
			*t = NormalizedType{TypeParameter: &idx}
		default:
			return fmt.Errorf("unknown normalized type %q", k)
		}
	}
	return nil
}

// ErrModuleNotFound is returned by module sources when the requested module
// does not exist on chain
var ErrModuleNotFound = errors.New("module not found")
