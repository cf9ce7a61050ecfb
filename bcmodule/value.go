// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package bcmodule

import (
	"math"

	"golang.org/x/exp/slices"

	"github.com/libpbc/pbc/diag"
)

// ValueID indexes a ValueList.
type ValueID int32

// ValueKind classifies a slot in a ValueList.
type ValueKind uint8

const (
	// ValuePending is a reserved slot awaiting its real definition:
	// either a typed forward reference within a function body
	// (Type is meaningful, installed via FORWARDTYPEREF or an early
	// operand reference), or an untyped global-variable relocation
	// placeholder (Type is unused).
	ValuePending ValueKind = iota
	ValueGlobal
	ValueFunction
	ValueConstant
	ValueArgument
	ValueInstruction
)

// Value is one entry in a ValueList.
type Value struct {
	Kind ValueKind
	Type TypeID
	// Ref indexes into the slice Kind names: the module's Globals or
	// Functions, or (for ValueArgument/ValueInstruction) the owning
	// function's Params or flattened instruction stream. For a
	// ValueConstant it holds the decoded literal itself.
	Ref int
}

// ValueList is an ordered sequence of value handles indexed by
// monotonically assigned ids (§3). Forward references are handled by
// reserving a slot up front and Install-ing the real value into it
// later: because every consumer stores only the ValueID and looks up
// the Value by index whenever it needs it, overwriting the reserved
// slot *is* "rewriting every pending use" — there is no separate
// use-site patch list to maintain, just a standard slice-of-slots
// indirection.
type ValueList struct {
	values  []Value
	pending map[ValueID]struct{}
}

// Reserve allocates a new pending slot with the given type (or -1 if
// the forward reference is untyped, as for a global-variable
// relocation) and returns its id.
func (vl *ValueList) Reserve(ty TypeID) ValueID {
	id := ValueID(len(vl.values))
	vl.values = append(vl.values, Value{Kind: ValuePending, Type: ty})
	vl.markPending(id)
	return id
}

// ReserveAt ensures a (possibly already-referenced) id has a slot,
// without overwriting an existing definition, and records ty as the
// slot's type (-1 if the forward reference is untyped, as for a
// global-variable relocation). It is used when an instruction operand
// references an id beyond the current end of the value list, or when
// a FORWARDTYPEREF or PHI incoming value pre-declares a typed forward
// reference that a later instruction must be able to type-check
// before it is installed.
func (vl *ValueList) ReserveAt(id ValueID, ty TypeID) {
	for ValueID(len(vl.values)) <= id {
		next := ValueID(len(vl.values))
		t := TypeID(-1)
		if next == id {
			t = ty
		}
		vl.values = append(vl.values, Value{Kind: ValuePending, Type: t})
		vl.markPending(next)
	}
	if _, stillPending := vl.pending[id]; stillPending {
		vl.values[id].Type = ty
	}
}

// Append installs v as a brand-new entry and returns its id.
func (vl *ValueList) Append(v Value) ValueID {
	id := ValueID(len(vl.values))
	vl.values = append(vl.values, v)
	return id
}

// Install overwrites the slot at id with v, resolving it if it was
// pending. id must already exist (via Reserve, ReserveAt, or a prior
// Append/Install).
func (vl *ValueList) Install(id ValueID, v Value) {
	for ValueID(len(vl.values)) <= id {
		vl.values = append(vl.values, Value{Kind: ValuePending, Type: -1})
		vl.markPending(ValueID(len(vl.values) - 1))
	}
	vl.values[id] = v
	delete(vl.pending, id)
}

func (vl *ValueList) markPending(id ValueID) {
	if vl.pending == nil {
		vl.pending = make(map[ValueID]struct{})
	}
	vl.pending[id] = struct{}{}
}

// Len returns the number of ids assigned so far.
func (vl *ValueList) Len() int { return len(vl.values) }

// At returns the value at id.
func (vl *ValueList) At(id ValueID) (Value, error) {
	if id < 0 || int(id) >= len(vl.values) {
		return Value{}, diag.Unresolved("value id %d was never defined", id)
	}
	return vl.values[id], nil
}

// IsPending reports whether id names a reserved-but-undefined slot.
func (vl *ValueList) IsPending(id ValueID) bool {
	_, ok := vl.pending[id]
	return ok
}

// CheckResolved returns an UnresolvedReference error naming the
// smallest still-pending id, or nil if every reserved slot has been
// installed. Called at the end of function-body parsing and at the
// end of module parsing (for the global-variable relocation
// placeholders), per §3's invariants.
func (vl *ValueList) CheckResolved() error {
	if len(vl.pending) == 0 {
		return nil
	}
	ids := make([]int, 0, len(vl.pending))
	for id := range vl.pending {
		ids = append(ids, int(id))
	}
	slices.Sort(ids)
	return diag.Unresolved("value id %d referenced but never defined", ids[0])
}

// decodeRelativeValueID turns the bitstream's "base id minus operand"
// relative encoding into an absolute id.
func decodeRelativeValueID(base ValueID, rel uint64) ValueID {
	return base - ValueID(rel)
}

// decodeSignedVBR decodes a signed integer whose low bit is the sign
// and whose remaining bits are the magnitude (so 1 decodes to 0), used by
// CONSTANTS block integer and float-bits literals.
func decodeSignedVBR(raw uint64) int64 {
	if raw&1 == 0 {
		return int64(raw >> 1)
	}
	return -int64(raw >> 1)
}

// decodeSignRotatedValueID decodes a sign-rotated relative id, used
// only by PHI incoming values so that forward references (which
// resolve to an id *greater* than the current base) can be encoded
// compactly as a small signed delta: the low bit carries the sign.
func decodeSignRotatedValueID(base ValueID, encoded uint64) ValueID {
	if encoded&1 == 0 {
		return base - ValueID(encoded>>1)
	}
	if encoded != 1 {
		return base + ValueID(encoded>>1)
	}
	return base + math.MinInt32
}
