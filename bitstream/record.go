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

// ReadRecord materializes the record most recently announced by
// Advance as EntryRecord{ID: abbrevID}, via the matching abbreviation
// or, for abbrevID == UnabbrevRecord, the unabbreviated format: a
// VBR-6 record code, a VBR-6 operand count, and that many VBR-6
// operands.
func (c *Cursor) ReadRecord(abbrevID uint64) (Record, error) {
	if abbrevID == UnabbrevRecord {
		return c.readUnabbrevRecord()
	}
	if abbrevID < FirstApplicationAbbrev {
		return Record{}, diag.Invalid(c.bitOff, "%d is not a record abbreviation id", abbrevID)
	}
	idx := int(abbrevID - FirstApplicationAbbrev)
	if idx >= len(c.abbrevs) {
		return Record{}, diag.Invalid(c.bitOff, "abbreviation id %d is not defined in this block", abbrevID)
	}
	return c.readAbbreviatedRecord(c.abbrevs[idx])
}

func (c *Cursor) readUnabbrevRecord() (Record, error) {
	code, err := c.ReadVBR(6)
	if err != nil {
		return Record{}, err
	}
	numOps, err := c.ReadVBR(6)
	if err != nil {
		return Record{}, err
	}
	rec := Record{Code: code, Values: make([]uint64, numOps)}
	for i := range rec.Values {
		v, err := c.ReadVBR(6)
		if err != nil {
			return Record{}, err
		}
		rec.Values[i] = v
	}
	return rec, nil
}

func (c *Cursor) readAbbreviatedRecord(ab Abbrev) (Record, error) {
	var rec Record
	first := true
	for i := 0; i < len(ab.Ops); i++ {
		op := ab.Ops[i]
		switch op.Kind {
		case OpLiteral:
			c.assignScalar(&rec, first, op.Val)
		case OpFixed:
			v, err := c.ReadFixed(uint(op.Val))
			if err != nil {
				return Record{}, err
			}
			c.assignScalar(&rec, first, v)
		case OpVBR:
			v, err := c.ReadVBR(uint(op.Val))
			if err != nil {
				return Record{}, err
			}
			c.assignScalar(&rec, first, v)
		case OpChar6:
			v, err := c.ReadFixed(6)
			if err != nil {
				return Record{}, err
			}
			c.assignScalar(&rec, first, uint64(char6Decode(v)))
		case OpArray:
			i++ // the next op is the element descriptor; consumed here
			if i >= len(ab.Ops) {
				return Record{}, diag.Malformed(c.bitOff, "array operand missing element descriptor")
			}
			elt := ab.Ops[i]
			count, err := c.ReadVBR(6)
			if err != nil {
				return Record{}, err
			}
			if elt.Kind == OpChar6 {
				buf := make([]byte, count)
				for k := range buf {
					v, err := c.ReadFixed(6)
					if err != nil {
						return Record{}, err
					}
					buf[k] = char6Decode(v)
				}
				rec.Text = string(buf)
			} else {
				for k := uint64(0); k < count; k++ {
					v, err := c.readArrayElement(elt)
					if err != nil {
						return Record{}, err
					}
					rec.Values = append(rec.Values, v)
				}
			}
		case OpBlob:
			c.align32()
			length, err := c.ReadVBR(6)
			if err != nil {
				return Record{}, err
			}
			blob := make([]byte, length)
			for k := range blob {
				b, err := c.ReadFixed(8)
				if err != nil {
					return Record{}, err
				}
				blob[k] = byte(b)
			}
			c.align32()
			rec.Blob = blob
		}
		first = false
	}
	return rec, nil
}

func (c *Cursor) readArrayElement(elt AbbrevOp) (uint64, error) {
	switch elt.Kind {
	case OpLiteral:
		return elt.Val, nil
	case OpFixed:
		return c.ReadFixed(uint(elt.Val))
	case OpVBR:
		return c.ReadVBR(uint(elt.Val))
	default:
		return 0, diag.Malformed(c.bitOff, "array element encoding %d is not supported", elt.Kind)
	}
}

// assignScalar sets the record code from the first operand and
// appends every subsequent scalar operand to Values.
func (c *Cursor) assignScalar(rec *Record, first bool, v uint64) {
	if first {
		rec.Code = v
		return
	}
	rec.Values = append(rec.Values, v)
}
