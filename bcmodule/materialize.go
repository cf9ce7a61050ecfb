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
	"github.com/libpbc/pbc/bitstream"
	"github.com/libpbc/pbc/diag"
)

// Materialize parses f's body on demand when m was decoded with
// DecodeOptions.Streaming. It is a no-op if the body was already
// parsed (eagerly, or by an earlier Materialize call).
//
// A Cursor's block-scope stack can't be rewound independently of
// replaying the descent that built it, so Materialize opens a fresh
// Cursor over the same Source, redescends to MODULE scope exactly as
// Decode did, and then walks the MODULE block until it reaches the
// FUNCTION block that starts at f's recorded body offset. Sub-blocks
// before it are skipped by their declared length, but each BLOCKINFO
// block and each module-level record on the way is read again.
func Materialize(m *Module, f *Function, rep *diag.Reporter) error {
	if f.materialized {
		return nil
	}
	if !m.streaming {
		return diag.Malformed(-1, "Materialize called on a module that was not decoded in streaming mode")
	}

	cur, err := bitstream.NewCursor(m.src)
	if err != nil {
		return err
	}
	e, err := cur.Advance()
	if err != nil {
		return err
	}
	if e.Kind != bitstream.EntrySubBlock || e.ID != BlockModule {
		return diag.Malformed(cur.GetCurrentBit(), "expected top-level MODULE block while materializing a function body")
	}
	if err := cur.EnterSubBlock(e.ID); err != nil {
		return err
	}

	// A fresh Cursor has no BLOCKINFO-registered abbreviations yet, and
	// function bodies routinely use them, so re-scan from the top of
	// the MODULE block rather than jumping straight to f's recorded
	// offset: every BLOCKINFO block along the way is reprocessed
	// exactly as Decode did, and everything else is skipped until the
	// target FUNCTION block is reached.
	var found bool
	for !found {
		preBit := cur.GetCurrentBit()
		e, err = cur.Advance()
		if err != nil {
			return err
		}
		switch e.Kind {
		case bitstream.EntryEndBlock:
			return diag.Malformed(preBit, "reached end of MODULE block before recorded function body offset")
		case bitstream.EntrySubBlock:
			if err := cur.EnterSubBlock(e.ID); err != nil {
				return err
			}
			switch {
			case e.ID == bitstream.BlockInfoBlockID:
				if err := cur.ReadBlockInfoBlock(); err != nil {
					return err
				}
			case preBit == f.bodyBitOffset && e.ID == BlockFunction:
				found = true
			default:
				if err := cur.SkipBlock(); err != nil {
					return err
				}
			}
		case bitstream.EntryRecord:
			if _, err := cur.ReadRecord(e.ID); err != nil {
				return err
			}
		}
	}

	if f.Values.Len() == 0 {
		seedFunctionValues(m, f)
	}
	if err := decodeFunctionBody(cur, m, f, rep); err != nil {
		return err
	}
	f.materialized = true
	return nil
}

// Discard drops f's flattened instruction stream and value list,
// reverting it to the unmaterialized state, to bound peak memory when
// DecodeOptions.ReduceMemoryFootprint is set and the caller has
// already consumed what it needs from f (§6).
func Discard(f *Function) {
	f.Instructions = nil
	f.BasicBlockBounds = nil
	f.Values = ValueList{}
	f.VST = nil
	f.BlockNames = nil
	f.materialized = false
}
