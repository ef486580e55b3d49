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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/suidex/sui"
	"github.com/prometheus/client_golang/prometheus"
)

// maxResolveDepth bounds struct nesting during resolution
const maxResolveDepth = 32

var ErrUnresolvable = errors.New("type layout unresolvable")

// ModuleSource provides normalized Move modules. Implementations return an
// error wrapping sui.ErrModuleNotFound when the module does not exist.
type ModuleSource interface {
	GetNormalizedModule(
		ctx context.Context,
		pkg sui.Address,
		module string,
	) (*sui.NormalizedModule, error)
}

// Resolver turns type tags into layouts, fetching module metadata lazily.
// Layouts and modules are cached for the life of the resolver. It is safe
// for concurrent use; racing misses may resolve the same type twice.
type Resolver struct {
	source  ModuleSource
	logger  *slog.Logger
	layouts *cowMap[Resolution]
	modules *cowMap[*sui.NormalizedModule]
	metrics *Metrics
}

type ResolverOption func(*Resolver)

func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithPromRegistry(registry prometheus.Registerer) ResolverOption {
	return func(r *Resolver) {
		r.metrics.Register(registry)
	}
}

func NewResolver(source ModuleSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		source:  source,
		layouts: newCowMap[Resolution](),
		modules: newCowMap[*sui.NormalizedModule](),
		metrics: &Metrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return r
}

// Metrics returns the resolver cache metrics
func (r *Resolver) Metrics() *Metrics {
	return r.metrics
}

// CacheSize returns the number of cached struct resolutions
func (r *Resolver) CacheSize() int {
	return r.layouts.Len()
}

// Resolve returns the layout for a type tag
func (r *Resolver) Resolve(ctx context.Context, tag TypeTag) Resolution {
	ret, _ := r.resolve(ctx, tag, 0)
	return ret
}

// ResolveType parses and resolves a type string
func (r *Resolver) ResolveType(ctx context.Context, typ string) Resolution {
	tag, err := ParseTypeTag(typ)
	if err != nil {
		return Unresolvable(err.Error())
	}
	return r.Resolve(ctx, tag)
}

// DecodeObject resolves the type of an object and decodes its BCS contents.
// An unresolvable type yields an error wrapping ErrUnresolvable.
func (r *Resolver) DecodeObject(
	ctx context.Context,
	typ string,
	contents []byte,
) (Value, error) {
	res := r.ResolveType(ctx, typ)
	l, ok := res.Layout()
	if !ok {
		return nil, fmt.Errorf("%w: %s: %s", ErrUnresolvable, typ, res.Reason())
	}
	return Decode(l, contents)
}

// resolve returns the resolution and whether it is definitive. Only
// definitive outcomes are cached; a failure to reach the module source is
// not.
func (r *Resolver) resolve(
	ctx context.Context,
	tag TypeTag,
	depth int,
) (Resolution, bool) {
	if depth > maxResolveDepth {
		return Unresolvable("type nesting too deep"), true
	}
	switch tag.Kind {
	case KindBool, KindU8, KindU16, KindU32, KindU64, KindU128, KindU256,
		KindAddress, KindSigner:
		return Resolved(primitiveLayout(tag.Kind)), true
	case KindVector:
		if tag.Elem == nil {
			return Unresolvable("vector without element type"), true
		}
		elem, definitive := r.resolve(ctx, *tag.Elem, depth+1)
		elemLayout, ok := elem.Layout()
		if !ok {
			return elem, definitive
		}
		return Resolved(&Layout{Kind: KindVector, Elem: elemLayout}), true
	case KindStruct:
		if tag.Struct == nil {
			return Unresolvable("struct without tag"), true
		}
		key := tag.String()
		if cached, ok := r.layouts.Get(key); ok {
			r.metrics.incHit()
			return cached, true
		}
		r.metrics.incMiss()
		ret, definitive := r.resolveStruct(ctx, tag.Struct, depth)
		if definitive {
			r.layouts.Put(key, ret)
		}
		if !ret.IsResolved() {
			r.logger.Debug(
				"type layout unresolvable",
				"component", "layout",
				"type", key,
				"reason", ret.Reason(),
			)
		}
		return ret, definitive
	}
	return Unresolvable(fmt.Sprintf("unknown type kind %d", tag.Kind)), true
}

func (r *Resolver) resolveStruct(
	ctx context.Context,
	tag *StructTag,
	depth int,
) (Resolution, bool) {
	module, err := r.module(ctx, tag.Address, tag.Module)
	if err != nil {
		if errors.Is(err, sui.ErrModuleNotFound) {
			return Unresolvable(
				fmt.Sprintf(
					"module %s::%s not found",
					tag.Address.Short(),
					tag.Module,
				),
			), true
		}
		return Unresolvable(fmt.Sprintf("module lookup failed: %s", err)), false
	}
	def, ok := module.Structs[tag.Name]
	if !ok {
		return Unresolvable(
			fmt.Sprintf("struct %s not found in module", tag.Name),
		), true
	}
	if len(def.TypeParameters) != len(tag.TypeParams) {
		return Unresolvable(
			fmt.Sprintf(
				"struct %s expects %d type arguments, got %d",
				tag.Name,
				len(def.TypeParameters),
				len(tag.TypeParams),
			),
		), true
	}
	ret := &StructLayout{
		Type:   *tag,
		Fields: make([]FieldLayout, 0, len(def.Fields)),
	}
	for _, field := range def.Fields {
		fieldTag, err := instantiate(field.Type, tag.TypeParams)
		if err != nil {
			return Unresolvable(
				fmt.Sprintf("field %s: %s", field.Name, err),
			), true
		}
		fieldRes, definitive := r.resolve(ctx, fieldTag, depth+1)
		fieldLayout, ok := fieldRes.Layout()
		if !ok {
			return fieldRes, definitive
		}
		ret.Fields = append(
			ret.Fields,
			FieldLayout{Name: field.Name, Layout: fieldLayout},
		)
	}
	return Resolved(&Layout{Kind: KindStruct, Struct: ret}), true
}

func (r *Resolver) module(
	ctx context.Context,
	pkg sui.Address,
	name string,
) (*sui.NormalizedModule, error) {
	key := pkg.String() + "::" + name
	if ret, ok := r.modules.Get(key); ok {
		return ret, nil
	}
	if r.source == nil {
		return nil, fmt.Errorf("%w: no module source", sui.ErrModuleNotFound)
	}
	r.metrics.incModuleFetch()
	ret, err := r.source.GetNormalizedModule(ctx, pkg, name)
	if err != nil {
		return nil, err
	}
	r.modules.Put(key, ret)
	return ret, nil
}

var normalizedPrimitives = map[string]Kind{
	"Bool":    KindBool,
	"U8":      KindU8,
	"U16":     KindU16,
	"U32":     KindU32,
	"U64":     KindU64,
	"U128":    KindU128,
	"U256":    KindU256,
	"Address": KindAddress,
	"Signer":  KindSigner,
}

// instantiate converts a normalized field type into a concrete type tag,
// substituting type parameters with the given arguments
func instantiate(t sui.NormalizedType, args []TypeTag) (TypeTag, error) {
	switch {
	case t.Primitive != "":
		kind, ok := normalizedPrimitives[t.Primitive]
		if !ok {
			return TypeTag{}, fmt.Errorf("unknown primitive %q", t.Primitive)
		}
		return TypeTag{Kind: kind}, nil
	case t.Vector != nil:
		elem, err := instantiate(*t.Vector, args)
		if err != nil {
			return TypeTag{}, err
		}
		return TypeTag{Kind: KindVector, Elem: &elem}, nil
	case t.Struct != nil:
		addr, err := sui.ParseAddress(t.Struct.Address)
		if err != nil {
			return TypeTag{}, err
		}
		ret := &StructTag{
			Address: addr,
			Module:  t.Struct.Module,
			Name:    t.Struct.Name,
		}
		for _, arg := range t.Struct.TypeArguments {
			tmp, err := instantiate(arg, args)
			if err != nil {
				return TypeTag{}, err
			}
			ret.TypeParams = append(ret.TypeParams, tmp)
		}
		return TypeTag{Kind: KindStruct, Struct: ret}, nil
	case t.TypeParameter != nil:
		idx := int(*t.TypeParameter)
		if idx >= len(args) {
			return TypeTag{}, fmt.Errorf("type parameter %d out of range", idx)
		}
		return args[idx], nil
	case t.Reference != nil, t.MutableReference != nil:
		return TypeTag{}, errors.New("reference types cannot be stored")
	}
	return TypeTag{}, errors.New("empty type")
}
