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

// Global is one module-scope global variable (§3 Globals). Its
// address is always treated as an inherent pointer by the ABI
// verifier, even though the dialect's type table carries no pointer
// type for it.
type Global struct {
	Name        string
	IsConstant  bool
	Align       int // byte alignment, 0 if unspecified

	// Fragments is the global's initializer, decoded as one or more
	// pieces laid out back to back: GLOBALVAR_COMPOUND announces how
	// many ZEROFILL/DATA/RELOC fragments follow, and more than one
	// fragment packs into an anonymous aggregate exactly as
	// NaClBitcodeReader's ConstantStruct::getAnon(..., true) does. A
	// single fragment is the common case of a scalar or single-blob
	// initializer.
	Fragments []Initializer
}

// Initializer is one piece of an emitted global variable's
// initializer.
type Initializer interface {
	isInitializer()
}

// ZeroFillInit zero-initializes Size bytes.
type ZeroFillInit struct {
	Size uint64
}

func (ZeroFillInit) isInitializer() {}

// DataInit supplies the initializer's raw bytes directly.
type DataInit struct {
	Bytes []byte
}

func (DataInit) isInitializer() {}

// RelocInit is a pointer-sized initializer that holds the address of
// another global (by ValueID, which may be a forward-reference
// placeholder at decode time) plus an additive offset.
type RelocInit struct {
	Target ValueID
	Addend int64
}

func (RelocInit) isInitializer() {}
