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

package bitstream

import "github.com/libpbc/pbc/diag"

// OpKind is the encoding an abbreviation operand descriptor uses.
type OpKind uint8

const (
	// OpLiteral contributes a fixed value without reading any bits.
	OpLiteral OpKind = iota
	// OpFixed reads Val bits as a plain unsigned integer.
	OpFixed
	// OpVBR reads a VBR-encoded integer in Val-bit chunks.
	OpVBR
	// OpArray reads a VBR-6 count followed by that many elements
	// encoded per the following operand descriptor (which must be
	// the last operand in the abbreviation).
	OpArray
	// OpChar6 reads a 6-bit character from the alphabetic/digit/'.'/'_'
	// subset.
	OpChar6
	// OpBlob reads a byte-aligned, VBR-6-length-prefixed byte run.
	OpBlob
)

// AbbrevOp is one operand descriptor in an abbreviation. It is
// immutable after DefineAbbrev parses it.
type AbbrevOp struct {
	Kind OpKind
	// Val is the literal value (OpLiteral) or chunk/field width
	// (OpFixed, OpVBR). Unused for OpArray, OpChar6, OpBlob.
	Val uint64
}

// Abbrev is an ordered sequence of operand descriptors, referenced by
// a small integer selector (>= FirstApplicationAbbrev) within the
// enclosing block.
type Abbrev struct {
	Ops []AbbrevOp
}

// validate rejects Array-of-Array and Array-as-non-last-operand by
// construction, per the bitstream cursor's responsibility to reject
// malformed abbreviation definitions eagerly.
func (a Abbrev) validate() error {
	for i, op := range a.Ops {
		if op.Kind != OpArray {
			continue
		}
		if i+2 != len(a.Ops) {
			return diag.Malformed(-1, "array operand must be followed by exactly one element descriptor as the last operand")
		}
		if a.Ops[i+1].Kind == OpArray {
			return diag.Malformed(-1, "array of array is not allowed")
		}
	}
	return nil
}

// char6Decode maps a 6-bit value to its character, per the
// [a-zA-Z0-9._] alphabet.
func char6Decode(v uint64) byte {
	switch {
	case v < 26:
		return byte(v) + 'a'
	case v < 52:
		return byte(v-26) + 'A'
	case v < 62:
		return byte(v-52) + '0'
	case v == 62:
		return '.'
	default:
		return '_'
	}
}

func char6Encode(c byte) (uint64, bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return uint64(c - 'a'), true
	case c >= 'A' && c <= 'Z':
		return uint64(c-'A') + 26, true
	case c >= '0' && c <= '9':
		return uint64(c-'0') + 52, true
	case c == '.':
		return 62, true
	case c == '_':
		return 63, true
	default:
		return 0, false
	}
}
