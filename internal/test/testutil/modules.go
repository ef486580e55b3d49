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

package testutil

import "github.com/blinklabs-io/suidex/sui"

func primType(name string) sui.NormalizedType {
	return sui.NormalizedType{Primitive: name}
}

func vectorType(elem sui.NormalizedType) sui.NormalizedType {
	return sui.NormalizedType{Vector: &elem}
}

func structType(
	addr string,
	module string,
	name string,
	args ...sui.NormalizedType,
) sui.NormalizedType {
	return sui.NormalizedType{
		Struct: &sui.NormalizedStructType{
			Address:       addr,
			Module:        module,
			Name:          name,
			TypeArguments: args,
		},
	}
}

func typeParam(idx uint16) sui.NormalizedType {
	return sui.NormalizedType{TypeParameter: &idx}
}

func fields(pairs ...any) []sui.NormalizedField {
	ret := make([]sui.NormalizedField, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		ret = append(ret, sui.NormalizedField{
			Name: pairs[i].(string),
			Type: pairs[i+1].(sui.NormalizedType),
		})
	}
	return ret
}

var phantomParam = []sui.StructTypeParameter{{IsPhantom: true}}

// FrameworkModules returns the normalized framework modules needed to
// decode coins and devnet NFTs
func FrameworkModules() []*sui.NormalizedModule {
	stringType := structType("0x1", "string", "String")
	uidType := structType("0x2", "object", "UID")
	return []*sui.NormalizedModule{
		{
			Address: "0x1",
			Name:    "string",
			Structs: map[string]sui.NormalizedStruct{
				"String": {Fields: fields("bytes", vectorType(primType("U8")))},
			},
		},
		{
			Address: "0x1",
			Name:    "ascii",
			Structs: map[string]sui.NormalizedStruct{
				"String": {Fields: fields("bytes", vectorType(primType("U8")))},
			},
		},
		{
			Address: "0x1",
			Name:    "option",
			Structs: map[string]sui.NormalizedStruct{
				"Option": {
					TypeParameters: []sui.StructTypeParameter{{}},
					Fields:         fields("vec", vectorType(typeParam(0))),
				},
			},
		},
		{
			Address: "0x2",
			Name:    "object",
			Structs: map[string]sui.NormalizedStruct{
				"UID": {Fields: fields("id", structType("0x2", "object", "ID"))},
				"ID":  {Fields: fields("bytes", primType("Address"))},
			},
		},
		{
			Address: "0x2",
			Name:    "balance",
			Structs: map[string]sui.NormalizedStruct{
				"Balance": {
					TypeParameters: phantomParam,
					Fields:         fields("value", primType("U64")),
				},
			},
		},
		{
			Address: "0x2",
			Name:    "coin",
			Structs: map[string]sui.NormalizedStruct{
				"Coin": {
					TypeParameters: phantomParam,
					Fields: fields(
						"id", uidType,
						"balance", structType("0x2", "balance", "Balance", typeParam(0)),
					),
				},
			},
		},
		{
			Address: "0x2",
			Name:    "sui",
			Structs: map[string]sui.NormalizedStruct{
				"SUI": {Fields: fields("dummy_field", primType("Bool"))},
			},
		},
		{
			Address: "0x2",
			Name:    "url",
			Structs: map[string]sui.NormalizedStruct{
				"Url": {Fields: fields("url", structType("0x1", "ascii", "String"))},
			},
		},
		{
			Address: "0x2",
			Name:    "devnet_nft",
			Structs: map[string]sui.NormalizedStruct{
				"DevNetNFT": {Fields: fields(
					"id", uidType,
					"name", stringType,
					"description", stringType,
					"url", structType("0x2", "url", "Url"),
				)},
				"MintNFTEvent": {Fields: fields(
					"object_id", structType("0x2", "object", "ID"),
					"creator", primType("Address"),
					"name", stringType,
				)},
			},
		},
	}
}
