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

import "github.com/libpbc/pbc/diag"

// TypeID indexes into a Module's type table.
type TypeID int32

// TypeKind is the closed set of type shapes this dialect's type
// table can hold.
type TypeKind uint8

const (
	TypeVoid TypeKind = iota
	TypeFloat32
	TypeFloat64
	TypeInteger
	TypeFunction
	// TypeStructPlaceholder marks a forward-referenced struct id used
	// only as a function type parameter or return; this dialect never
	// completes it, and the ABI verifier rejects any instruction-level
	// use of it.
	TypeStructPlaceholder
)

// Type is one entry in the type table.
type Type struct {
	Kind TypeKind
	// IntWidth is the bit width for TypeInteger (e.g. 1, 8, 16, 32, 64).
	IntWidth int
	// Returns and Params apply to TypeFunction.
	Returns TypeID
	Params  []TypeID
	Vararg  bool
	// ParamIsPointer and ReturnIsPointer mark, for a TypeFunction that
	// rewriteIntrinsicSignatures has matched against a known intrinsic
	// name (§4.2.6), which parameter and return positions are actually
	// elided pointers rather than plain scalars of the declared type.
	// nil/false for every ordinary function type.
	ParamIsPointer  []bool
	ReturnIsPointer bool
}

// TypeTable is the module's ordered, pre-sized sequence of type
// handles (§3 Type table).
type TypeTable struct {
	types []Type
	// sized is true once a NUMENTRY record has set the table's
	// final length.
	sized bool
	// declared is the NUMENTRY operand itself, checked against
	// len(types) by Finish.
	declared int
}

// Reserve pre-sizes the table from a TYPE_CODE_NUMENTRY record. It is
// an error to call this more than once.
func (t *TypeTable) Reserve(n int) error {
	if t.sized {
		return diag.Invalid(-1, "duplicate TYPE_CODE_NUMENTRY record")
	}
	if n < 0 {
		return diag.Invalid(-1, "negative type table size %d", n)
	}
	t.types = make([]Type, 0, n)
	t.sized = true
	t.declared = n
	return nil
}

// Append adds ty to the table and returns its TypeID.
func (t *TypeTable) Append(ty Type) TypeID {
	id := TypeID(len(t.types))
	t.types = append(t.types, ty)
	return id
}

// Len returns the number of types currently in the table.
func (t *TypeTable) Len() int { return len(t.types) }

// At returns the type at id, or an UnresolvedReference error if id is
// out of range (forward reference never defined).
func (t *TypeTable) At(id TypeID) (Type, error) {
	if id < 0 || int(id) >= len(t.types) {
		return Type{}, diag.Unresolved("type id %d was never defined", id)
	}
	return t.types[id], nil
}

// Finish verifies that the number of type records actually seen
// matches the block's declared NUMENTRY count, and that every function
// type's parameter/return ids resolve to already-defined entries (no
// forward references past the end of the type block).
func (t *TypeTable) Finish() error {
	if t.sized && len(t.types) != t.declared {
		return diag.Invalid(-1, "TYPE_CODE_NUMENTRY declared %d entries, block defined %d", t.declared, len(t.types))
	}
	for id, ty := range t.types {
		if ty.Kind == TypeFunction {
			if int(ty.Returns) >= len(t.types) {
				return diag.Unresolved("function type %d returns undefined type id %d", id, ty.Returns)
			}
			for _, p := range ty.Params {
				if int(p) >= len(t.types) {
					return diag.Unresolved("function type %d has undefined parameter type id %d", id, p)
				}
			}
		}
	}
	return nil
}

// IsValidScalar reports whether ty is one of the portable dialect's
// valid scalar types: i1, i8, i16, i32, i64, float, double.
func (ty Type) IsValidScalar() bool {
	switch ty.Kind {
	case TypeFloat32, TypeFloat64:
		return true
	case TypeInteger:
		switch ty.IntWidth {
		case 1, 8, 16, 32, 64:
			return true
		}
	}
	return false
}
