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

import "github.com/libpbc/pbc/bitstream"

// Function is one module-scope function: its prototype is always
// available after the skeleton pass; its body is decoded eagerly or
// lazily depending on the Module's streaming mode (§6).
type Function struct {
	Name        string
	Type        TypeID // a TypeFunction entry
	Calling     CallingConv
	IsDeclOnly  bool // true for an external declaration with no body
	Align       int

	// bodyBitOffset is the bit position of the FUNCTION block's
	// ENTER_SUBBLOCK for this function, recorded during the skeleton
	// pass so Materialize can recognize that block when it re-walks the
	// MODULE block.
	bodyBitOffset int64
	materialized  bool

	Params []ValueID

	// BasicBlockBounds[i] is the exclusive upper bound (into
	// Instructions) of basic block i; BasicBlockBounds[0] is the end
	// of block 0, and so on. The decoder appends one entry per
	// terminator it decodes; the count declared by DECLAREBLOCKS is not
	// consulted.
	BasicBlockBounds []int
	Instructions     []Instruction

	// Values is the function-local value list: it begins pre-seeded
	// with the module's global-scope entries (so a function body can
	// reference a global or another function without any renumbering)
	// and is then extended by Params and by each instruction that
	// yields a result, mirroring how NaClBitcodeReader continues
	// numbering values from ValueList.size() at function-entry.
	Values ValueList

	// VST maps a value symbol table name to the ValueID it names
	// within this function (local names only; global names live on
	// Module.ValueNames).
	VST map[string]ValueID
	// BlockNames maps a declared basic block index to its VST_CODE_BBENTRY name.
	BlockNames map[int]string
}

// Materialized reports whether the function body has been parsed.
func (f *Function) Materialized() bool { return f.materialized }

// Module is a fully- (or partially-, in streaming mode) decoded
// bitcode module (§3).
type Module struct {
	Version uint64

	Types TypeTable

	Globals []Global
	// GlobalValues is the module-scope value list: one entry for each
	// Global, each Function, and each module-level constant, giving
	// every one of them an id visible from any function body.
	GlobalValues ValueList

	Functions []Function

	// ValueNames holds module-scope (global/function) value symbol
	// table entries, keyed by name.
	ValueNames map[string]ValueID

	// streaming records whether function bodies are parsed lazily;
	// see materialize.go. src is retained only so Materialize can open
	// a fresh Cursor and redescend to a deferred function body's
	// recorded bit offset, since a Cursor's block-scope stack can't be
	// rewound independently of replaying the descent that built it.
	streaming bool
	src       bitstream.Source
}

// Streaming reports whether this Module was decoded in streaming mode
// (function bodies are parsed on demand via Materialize).
func (m *Module) Streaming() bool { return m.streaming }
