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

package query

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/suidex/database/types"
	"github.com/blinklabs-io/suidex/layout"
	"github.com/blinklabs-io/suidex/sui"
)

var (
	ErrInvalidFilter   = errors.New("invalid filter")
	ErrInvalidLimit    = errors.New("invalid limit")
	ErrInvalidCursor   = errors.New("invalid cursor")
	ErrInvalidArgument = errors.New("invalid argument")
)

// TransactionFilter selects transactions. Values are checked and normalized
// when the query runs, so constructing a filter never fails.
type TransactionFilter struct {
	kind     types.TransactionFilterKind
	address  string
	objectID string
	pkg      string
	module   string
	function string
	digest   string
}

// AllTransactions matches every transaction
func AllTransactions() TransactionFilter {
	return TransactionFilter{kind: types.TransactionFilterAll}
}

// FromAddress matches transactions sent by addr
func FromAddress(addr string) TransactionFilter {
	return TransactionFilter{kind: types.TransactionFilterFromAddress, address: addr}
}

// ToAddress matches transactions that left addr owning an object
func ToAddress(addr string) TransactionFilter {
	return TransactionFilter{kind: types.TransactionFilterToAddress, address: addr}
}

// ChangedObject matches transactions whose effects touch the object
func ChangedObject(objectID string) TransactionFilter {
	return TransactionFilter{kind: types.TransactionFilterChangedObject, objectID: objectID}
}

// InputObject matches transactions that take the object as an input or
// pay gas with it
func InputObject(objectID string) TransactionFilter {
	return TransactionFilter{kind: types.TransactionFilterInputObject, objectID: objectID}
}

// MoveFunction matches transactions calling into a module, or into one
// function of it when function is not empty
func MoveFunction(pkg, module, function string) TransactionFilter {
	return TransactionFilter{
		kind:     types.TransactionFilterMoveFunction,
		pkg:      pkg,
		module:   module,
		function: function,
	}
}

// TransactionDigest matches a single transaction
func TransactionDigest(digest string) TransactionFilter {
	return TransactionFilter{kind: types.TransactionFilterDigest, digest: digest}
}

func (f TransactionFilter) normalize() (types.TransactionFilter, error) {
	ret := types.TransactionFilter{Kind: f.kind}
	var err error
	switch f.kind {
	case types.TransactionFilterAll:
	case types.TransactionFilterFromAddress, types.TransactionFilterToAddress:
		ret.Address, err = normalizeAddress(f.address)
	case types.TransactionFilterChangedObject, types.TransactionFilterInputObject:
		ret.ObjectID, err = normalizeAddress(f.objectID)
	case types.TransactionFilterMoveFunction:
		ret.Package, err = normalizeAddress(f.pkg)
		if err == nil {
			err = checkIdentifier("module", f.module, false)
		}
		if err == nil {
			err = checkIdentifier("function", f.function, true)
		}
		ret.Module = f.module
		ret.Function = f.function
	case types.TransactionFilterDigest:
		ret.Digest, err = normalizeDigest(f.digest)
	default:
		err = fmt.Errorf("unknown transaction filter %d", f.kind)
	}
	if err != nil {
		return ret, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return ret, nil
}

// EventFilter selects events
type EventFilter struct {
	kind      types.EventFilterKind
	sender    string
	txDigest  string
	pkg       string
	module    string
	eventType string
}

// AllEvents matches every event
func AllEvents() EventFilter {
	return EventFilter{kind: types.EventFilterAll}
}

// Sender matches events emitted by transactions sent by addr
func Sender(addr string) EventFilter {
	return EventFilter{kind: types.EventFilterSender, sender: addr}
}

// Transaction matches the events of one transaction
func Transaction(digest string) EventFilter {
	return EventFilter{kind: types.EventFilterTransaction, txDigest: digest}
}

// MoveModule matches events emitted from calls into a module
func MoveModule(pkg, module string) EventFilter {
	return EventFilter{kind: types.EventFilterMoveModule, pkg: pkg, module: module}
}

// MoveEventType matches events of exactly the given type
func MoveEventType(eventType string) EventFilter {
	return EventFilter{kind: types.EventFilterMoveEventType, eventType: eventType}
}

func (f EventFilter) normalize() (types.EventFilter, error) {
	ret := types.EventFilter{Kind: f.kind}
	var err error
	switch f.kind {
	case types.EventFilterAll:
	case types.EventFilterSender:
		ret.Sender, err = normalizeAddress(f.sender)
	case types.EventFilterTransaction:
		ret.TxDigest, err = normalizeDigest(f.txDigest)
	case types.EventFilterMoveModule:
		ret.Package, err = normalizeAddress(f.pkg)
		if err == nil {
			err = checkIdentifier("module", f.module, false)
		}
		ret.Module = f.module
	case types.EventFilterMoveEventType:
		var tag *layout.StructTag
		tag, err = layout.ParseStructTag(f.eventType)
		if err == nil {
			ret.EventType = tag.String()
		}
	default:
		err = fmt.Errorf("unknown event filter %d", f.kind)
	}
	if err != nil {
		return ret, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return ret, nil
}

func normalizeAddress(s string) (string, error) {
	addr, err := sui.ParseAddress(s)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

func normalizeDigest(s string) (string, error) {
	digest, err := sui.ParseDigest(s)
	if err != nil {
		return "", err
	}
	return digest.String(), nil
}

// checkIdentifier validates a Move identifier
func checkIdentifier(what, s string, optional bool) error {
	if s == "" {
		if optional {
			return nil
		}
		return fmt.Errorf("missing %s", what)
	}
	for i, c := range s {
		switch {
		case c == '_',
			c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return fmt.Errorf("invalid %s %q", what, s)
		}
	}
	return nil
}
