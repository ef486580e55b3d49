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

// Layout describes how to decode the BCS bytes of a Move value
type Layout struct {
	Kind   Kind
	Elem   *Layout
	Struct *StructLayout
}

type StructLayout struct {
	Type   StructTag
	Fields []FieldLayout
}

type FieldLayout struct {
	Name   string
	Layout *Layout
}

// Resolution is the outcome of resolving a type tag. It is either
// resolved, carrying a layout, or unresolvable, carrying a reason.
type Resolution struct {
	layout *Layout
	reason string
}

func Resolved(l *Layout) Resolution {
	return Resolution{layout: l}
}

func Unresolvable(reason string) Resolution {
	if reason == "" {
		reason = "unresolvable"
	}
	return Resolution{reason: reason}
}

// Layout returns the resolved layout, or false when unresolvable
func (r Resolution) Layout() (*Layout, bool) {
	return r.layout, r.layout != nil
}

func (r Resolution) IsResolved() bool {
	return r.layout != nil
}

// Reason explains why the type could not be resolved
func (r Resolution) Reason() string {
	return r.reason
}

func (r Resolution) String() string {
	if r.layout != nil {
		return "resolved"
	}
	return "unresolvable: " + r.reason
}

func primitiveLayout(kind Kind) *Layout {
	return &Layout{Kind: kind}
}
