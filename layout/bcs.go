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
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/blinklabs-io/suidex/sui"
)

var ErrMalformedBCS = errors.New("malformed BCS data")

// maxSequenceLength bounds vector lengths read from untrusted input
const maxSequenceLength = 1 << 24

// Decode decodes BCS bytes with the given layout. All input must be
// consumed.
func Decode(l *Layout, data []byte) (Value, error) {
	if l == nil {
		return nil, errors.New("nil layout")
	}
	d := &bcsDecoder{data: data}
	ret, err := d.decode(l)
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.data) {
		return nil, fmt.Errorf(
			"%w: %d trailing bytes",
			ErrMalformedBCS,
			len(d.data)-d.pos,
		)
	}
	return ret, nil
}

type bcsDecoder struct {
	data []byte
	pos  int
}

func (d *bcsDecoder) read(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, fmt.Errorf(
			"%w: unexpected end of input at offset %d",
			ErrMalformedBCS,
			d.pos,
		)
	}
	ret := d.data[d.pos : d.pos+n]
	d.pos += n
	return ret, nil
}

func (d *bcsDecoder) uleb128() (uint64, error) {
	var ret uint64
	for shift := uint(0); shift < 64; shift += 7 {
		b, err := d.read(1)
		if err != nil {
			return 0, err
		}
		ret |= uint64(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			return ret, nil
		}
	}
	return 0, fmt.Errorf("%w: ULEB128 overflow", ErrMalformedBCS)
}

// littleEndianInt reads a little endian unsigned integer of n bytes
func (d *bcsDecoder) littleEndianInt(n int) (*big.Int, error) {
	raw, err := d.read(n)
	if err != nil {
		return nil, err
	}
	tmp := slices.Clone(raw)
	slices.Reverse(tmp)
	return new(big.Int).SetBytes(tmp), nil
}

func (d *bcsDecoder) decode(l *Layout) (Value, error) {
	switch l.Kind {
	case KindBool:
		b, err := d.read(1)
		if err != nil {
			return nil, err
		}
		switch b[0] {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return nil, fmt.Errorf("%w: invalid bool %d", ErrMalformedBCS, b[0])
	case KindU8:
		b, err := d.read(1)
		if err != nil {
			return nil, err
		}
		return b[0], nil
	case KindU16:
		b, err := d.read(2)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.Uint16(b), nil
	case KindU32:
		b, err := d.read(4)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.Uint32(b), nil
	case KindU64:
		b, err := d.read(8)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.Uint64(b), nil
	case KindU128:
		return d.littleEndianInt(16)
	case KindU256:
		return d.littleEndianInt(32)
	case KindAddress, KindSigner:
		b, err := d.read(sui.AddressLength)
		if err != nil {
			return nil, err
		}
		return sui.AddressFromBytes(b)
	case KindVector:
		return d.decodeVector(l)
	case KindStruct:
		if l.Struct == nil {
			return nil, errors.New("struct layout without fields")
		}
		ret := &Struct{
			Type:   l.Struct.Type,
			Fields: make([]Field, 0, len(l.Struct.Fields)),
		}
		for _, field := range l.Struct.Fields {
			tmp, err := d.decode(field.Layout)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			ret.Fields = append(ret.Fields, Field{Name: field.Name, Value: tmp})
		}
		return ret, nil
	}
	return nil, fmt.Errorf("unknown layout kind %d", l.Kind)
}

func (d *bcsDecoder) decodeVector(l *Layout) (Value, error) {
	if l.Elem == nil {
		return nil, errors.New("vector layout without element")
	}
	length, err := d.uleb128()
	if err != nil {
		return nil, err
	}
	if length > maxSequenceLength || length > uint64(len(d.data)-d.pos) {
		// Every element takes at least one byte
		return nil, fmt.Errorf(
			"%w: vector length %d exceeds input",
			ErrMalformedBCS,
			length,
		)
	}
	if l.Elem.Kind == KindU8 {
		raw, err := d.read(int(length))
		if err != nil {
			return nil, err
		}
		return Bytes(slices.Clone(raw)), nil
	}
	ret := make([]Value, 0, length)
	for range length {
		tmp, err := d.decode(l.Elem)
		if err != nil {
			return nil, err
		}
		ret = append(ret, tmp)
	}
	return ret, nil
}
