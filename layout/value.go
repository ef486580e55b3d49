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

package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/blinklabs-io/suidex/sui"
)

// Value is a decoded Move value. It is one of bool, uint8, uint16, uint32,
// uint64, *big.Int, sui.Address, Bytes, []Value or *Struct.
type Value any

// Bytes is a decoded vector<u8>
type Bytes []byte

// MarshalJSON renders the bytes as an array of numbers
func (b Bytes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(int(v)))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

type Field struct {
	Name  string
	Value Value
}

// Struct is a decoded Move struct with fields in declaration order
type Struct struct {
	Type   StructTag
	Fields []Field
}

// Field returns the value of the named field
func (s *Struct) Field(name string) (Value, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

var (
	stdAddress = sui.MustParseAddress("0x1")
	suiAddress = sui.MustParseAddress("0x2")
)

func (s *Struct) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalValue renders a decoded value as JSON, following full node
// conventions: 64-bit and larger integers as decimal strings, strings and
// IDs flattened, and options as their value or null
func MarshalValue(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value) error {
	switch tmp := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(tmp))
	case uint8:
		buf.WriteString(strconv.FormatUint(uint64(tmp), 10))
	case uint16:
		buf.WriteString(strconv.FormatUint(uint64(tmp), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(tmp), 10))
	case uint64:
		buf.WriteString(`"` + strconv.FormatUint(tmp, 10) + `"`)
	case *big.Int:
		buf.WriteString(`"` + tmp.String() + `"`)
	case sui.Address:
		return writeJSON(buf, tmp.String())
	case Bytes:
		out, _ := tmp.MarshalJSON()
		buf.Write(out)
	case []Value:
		buf.WriteByte('[')
		for i, item := range tmp {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Struct:
		return writeStruct(buf, tmp)
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

func writeStruct(buf *bytes.Buffer, s *Struct) error {
	switch {
	case s.Type.Is(stdAddress, "string", "String"),
		s.Type.Is(stdAddress, "ascii", "String"):
		if raw, ok := s.Field("bytes"); ok {
			if b, ok := raw.(Bytes); ok {
				return writeJSON(buf, string(b))
			}
		}
	case s.Type.Is(suiAddress, "object", "ID"),
		s.Type.Is(suiAddress, "url", "Url"),
		s.Type.Is(suiAddress, "balance", "Balance"):
		// Single field wrappers render as their inner value
		if len(s.Fields) == 1 {
			return writeValue(buf, s.Fields[0].Value)
		}
	case s.Type.Is(stdAddress, "option", "Option"):
		if raw, ok := s.Field("vec"); ok {
			switch vec := raw.(type) {
			case []Value:
				if len(vec) == 0 {
					buf.WriteString("null")
					return nil
				}
				return writeValue(buf, vec[0])
			case Bytes:
				if len(vec) == 0 {
					buf.WriteString("null")
					return nil
				}
				return writeValue(buf, vec[0])
			}
		}
	}
	buf.WriteByte('{')
	for i, field := range s.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(buf, field.Name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeValue(buf, field.Value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	out, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(out)
	return nil
}
