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
	"errors"
	"fmt"
	"strings"

	"github.com/blinklabs-io/suidex/sui"
)

var ErrInvalidTypeTag = errors.New("invalid type tag")

// Kind identifies the shape of a Move type
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindU256
	KindAddress
	KindSigner
	KindVector
	KindStruct
)

var primitiveKinds = map[string]Kind{
	"bool":    KindBool,
	"u8":      KindU8,
	"u16":     KindU16,
	"u32":     KindU32,
	"u64":     KindU64,
	"u128":    KindU128,
	"u256":    KindU256,
	"address": KindAddress,
	"signer":  KindSigner,
}

func (k Kind) String() string {
	for name, kind := range primitiveKinds {
		if kind == k {
			return name
		}
	}
	switch k {
	case KindVector:
		return "vector"
	case KindStruct:
		return "struct"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// TypeTag is a fully instantiated Move type
type TypeTag struct {
	Kind   Kind
	Elem   *TypeTag
	Struct *StructTag
}

// StructTag names a struct type and its type arguments
type StructTag struct {
	Address    sui.Address
	Module     string
	Name       string
	TypeParams []TypeTag
}

// String returns the canonical form, with addresses in short hex
func (t TypeTag) String() string {
	switch t.Kind {
	case KindVector:
		if t.Elem == nil {
			return "vector<>"
		}
		return "vector<" + t.Elem.String() + ">"
	case KindStruct:
		if t.Struct == nil {
			return ""
		}
		return t.Struct.String()
	default:
		return t.Kind.String()
	}
}

func (s *StructTag) String() string {
	var sb strings.Builder
	sb.WriteString(s.Address.Short())
	sb.WriteString("::")
	sb.WriteString(s.Module)
	sb.WriteString("::")
	sb.WriteString(s.Name)
	if len(s.TypeParams) > 0 {
		sb.WriteString("<")
		for i, param := range s.TypeParams {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(param.String())
		}
		sb.WriteString(">")
	}
	return sb.String()
}

// Is reports whether the struct has the given address, module and name,
// ignoring type arguments
func (s *StructTag) Is(addr sui.Address, module string, name string) bool {
	return s.Address == addr && s.Module == module && s.Name == name
}

// ParseTypeTag parses a Move type such as
// 0x2::coin::Coin<0x2::sui::SUI> or vector<u8>
func ParseTypeTag(s string) (TypeTag, error) {
	p := &typeTagParser{input: s}
	ret, err := p.parseType(0)
	if err != nil {
		return TypeTag{}, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return TypeTag{}, p.errorf("unexpected trailing input")
	}
	return ret, nil
}

// ParseStructTag parses a type that must be a struct
func ParseStructTag(s string) (*StructTag, error) {
	tmp, err := ParseTypeTag(s)
	if err != nil {
		return nil, err
	}
	if tmp.Kind != KindStruct {
		return nil, fmt.Errorf("%w: %q is not a struct type", ErrInvalidTypeTag, s)
	}
	return tmp.Struct, nil
}

// MustParseTypeTag is ParseTypeTag for constants
func MustParseTypeTag(s string) TypeTag {
	ret, err := ParseTypeTag(s)
	if err != nil {
		panic(err)
	}
	return ret
}

// CanonicalType returns the canonical form of a type string
func CanonicalType(s string) (string, error) {
	tmp, err := ParseTypeTag(s)
	if err != nil {
		return "", err
	}
	return tmp.String(), nil
}

const maxTypeTagDepth = 64

type typeTagParser struct {
	input string
	pos   int
}

func (p *typeTagParser) errorf(format string, args ...any) error {
	return fmt.Errorf(
		"%w: %q at offset %d: %s",
		ErrInvalidTypeTag,
		p.input,
		p.pos,
		fmt.Sprintf(format, args...),
	)
}

func (p *typeTagParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeTagParser) consume(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.input[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeTagParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '_' ||
			(c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.input[start:p.pos]
}

func (p *typeTagParser) parseType(depth int) (TypeTag, error) {
	if depth > maxTypeTagDepth {
		return TypeTag{}, p.errorf("type nesting too deep")
	}
	word := p.ident()
	if word == "" {
		return TypeTag{}, p.errorf("expected type")
	}
	if kind, ok := primitiveKinds[word]; ok {
		return TypeTag{Kind: kind}, nil
	}
	if word == "vector" {
		if !p.consume("<") {
			return TypeTag{}, p.errorf("expected '<' after vector")
		}
		elem, err := p.parseType(depth + 1)
		if err != nil {
			return TypeTag{}, err
		}
		if !p.consume(">") {
			return TypeTag{}, p.errorf("expected '>'")
		}
		return TypeTag{Kind: KindVector, Elem: &elem}, nil
	}
	// Anything else must be an address-qualified struct
	addr, err := sui.ParseAddress(word)
	if err != nil || !strings.HasPrefix(word, "0x") {
		return TypeTag{}, p.errorf("invalid address %q", word)
	}
	if !p.consume("::") {
		return TypeTag{}, p.errorf("expected '::'")
	}
	module := p.ident()
	if module == "" {
		return TypeTag{}, p.errorf("expected module name")
	}
	if !p.consume("::") {
		return TypeTag{}, p.errorf("expected '::'")
	}
	name := p.ident()
	if name == "" {
		return TypeTag{}, p.errorf("expected struct name")
	}
	ret := &StructTag{
		Address: addr,
		Module:  module,
		Name:    name,
	}
	if p.consume("<") {
		for {
			param, err := p.parseType(depth + 1)
			if err != nil {
				return TypeTag{}, err
			}
			ret.TypeParams = append(ret.TypeParams, param)
			if p.consume(",") {
				continue
			}
			if p.consume(">") {
				break
			}
			return TypeTag{}, p.errorf("expected ',' or '>'")
		}
	}
	return TypeTag{Kind: KindStruct, Struct: ret}, nil
}
