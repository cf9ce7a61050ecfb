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

// rawNext reads the next abbreviation id and classifies it, without
// transparently consuming DEFINE_ABBREV (Advance does that). Advance
// and ReadBlockInfoBlock both build on top of this.
func (c *Cursor) rawNext() (Entry, error) {
	abbrevID, err := c.ReadFixed(c.abbrevWidth)
	if err != nil {
		return Entry{Kind: EntryError}, err
	}
	switch abbrevID {
	case EndBlock:
		c.align32()
		return Entry{Kind: EntryEndBlock}, nil
	case EnterSubblock:
		blockID, err := c.ReadVBR(8)
		if err != nil {
			return Entry{Kind: EntryError}, err
		}
		c.pendingBlockID = int64(blockID)
		return Entry{Kind: EntrySubBlock, ID: blockID}, nil
	case DefineAbbrev:
		return Entry{Kind: entryDefineAbbrev}, nil
	default:
		return Entry{Kind: EntryRecord, ID: abbrevID}, nil
	}
}

// Advance returns the next entry in the current block: a sub-block
// about to be entered, a record, or the end of the block.
// DEFINE_ABBREV entries are consumed transparently and folded into
// the current block's abbreviation table.
func (c *Cursor) Advance() (Entry, error) {
	for {
		e, err := c.rawNext()
		if err != nil {
			return Entry{Kind: EntryError}, err
		}
		if e.Kind != entryDefineAbbrev {
			return e, nil
		}
		if err := c.defineAbbrev(c.curBlockID, false); err != nil {
			return Entry{Kind: EntryError}, err
		}
	}
}

// AdvanceSkippingSubblocks behaves like Advance, except that when it
// would return a sub-block entry, it instead transparently enters and
// skips that block (and any blocks nested within it) and continues
// looking for the next record or end-of-block in the current scope.
func (c *Cursor) AdvanceSkippingSubblocks() (Entry, error) {
	for {
		e, err := c.Advance()
		if err != nil || e.Kind != EntrySubBlock {
			return e, err
		}
		if err := c.EnterSubBlock(e.ID); err != nil {
			return Entry{Kind: EntryError}, err
		}
		if err := c.SkipBlock(); err != nil {
			return Entry{Kind: EntryError}, err
		}
	}
}

// EnterSubBlock enters the sub-block most recently announced by
// Advance (or rawNext), asserting that its block id matches
// expectedID. It reads the code-length selector and the 32-bit-aligned
// block length, pushes the enclosing block's abbreviation width and
// table, and installs any abbreviations registered for expectedID via
// the BLOCKINFO block.
func (c *Cursor) EnterSubBlock(expectedID uint64) error {
	if c.pendingBlockID < 0 || uint64(c.pendingBlockID) != expectedID {
		return diag.Malformed(c.bitOff, "EnterSubBlock(%d): no matching pending sub-block", expectedID)
	}
	c.pendingBlockID = -1

	codeLen, err := c.ReadVBR(4)
	if err != nil {
		return err
	}
	if uint(codeLen) < minAbbrevWidth {
		return diag.Malformed(c.bitOff, "block %d declares abbreviation width %d, need at least %d", expectedID, codeLen, minAbbrevWidth)
	}
	c.align32()
	lengthWords, err := c.ReadFixed(32)
	if err != nil {
		return err
	}
	endBit := c.bitOff + int64(lengthWords)*32

	c.blocks = append(c.blocks, blockScope{
		abbrevWidth: c.abbrevWidth,
		endBit:      endBit,
		blockID:     c.curBlockID,
		abbrevs:     c.abbrevs,
	})
	c.curBlockID = expectedID
	c.abbrevWidth = uint(codeLen)
	c.abbrevs = append([]Abbrev(nil), c.blockInfoAbbrevs[expectedID]...)
	return nil
}

// popBlock restores the enclosing block's abbreviation width and
// table. It does not check the bit position; callers that rely on
// the declared block length (SkipBlock) or on having consumed an
// EndBlock entry (the normal path) are responsible for that.
func (c *Cursor) popBlock() {
	n := len(c.blocks) - 1
	top := c.blocks[n]
	c.blocks = c.blocks[:n]
	c.abbrevWidth = top.abbrevWidth
	c.abbrevs = top.abbrevs
	c.curBlockID = top.blockID
}

// ExitBlock pops the current block scope after the caller has
// consumed its EndBlock entry via Advance. It is an error to call
// this with no open block.
func (c *Cursor) ExitBlock() error {
	if len(c.blocks) == 0 {
		return diag.Malformed(c.bitOff, "ExitBlock called with no open block")
	}
	c.popBlock()
	return nil
}

// SkipBlock advances the cursor past the current block using only
// its declared bit length, without parsing any inner records or
// sub-blocks. Used to defer function bodies.
func (c *Cursor) SkipBlock() error {
	if len(c.blocks) == 0 {
		return diag.Malformed(c.bitOff, "SkipBlock called with no open block")
	}
	top := c.blocks[len(c.blocks)-1]
	if err := c.JumpToBit(top.endBit); err != nil {
		return err
	}
	c.popBlock()
	return nil
}

// ReadBlockInfoBlock processes the standardized BLOCKINFO block
// (entered via EnterSubBlock(BlockInfoBlockID) by the caller): it
// installs abbreviations and optional names for application block ids
// before they occur, and pops the block scope once EndBlock is seen.
func (c *Cursor) ReadBlockInfoBlock() error {
	const noTarget = ^uint64(0)
	target := noTarget
	for {
		e, err := c.rawNext()
		if err != nil {
			return err
		}
		switch e.Kind {
		case EntryEndBlock:
			c.popBlock()
			return nil
		case EntrySubBlock:
			return diag.Malformed(c.bitOff, "unexpected sub-block inside BLOCKINFO")
		case entryDefineAbbrev:
			if target == noTarget {
				return diag.Malformed(c.bitOff, "DEFINE_ABBREV in BLOCKINFO before SETBID")
			}
			if err := c.defineAbbrev(target, true); err != nil {
				return err
			}
		case EntryRecord:
			rec, err := c.ReadRecord(e.ID)
			if err != nil {
				return err
			}
			switch rec.Code {
			case blockInfoCodeSetBID:
				if len(rec.Values) < 1 {
					return diag.Invalid(c.bitOff, "SETBID record has no operand")
				}
				target = rec.Values[0]
			case blockInfoCodeBlockName:
				if target != noTarget {
					c.blockInfoNames[target] = rec.Text
				}
			case blockInfoCodeSetRecordName:
				// record names are purely cosmetic; nothing in this
				// dialect consults them.
			}
		}
	}
}

// defineAbbrev parses a DEFINE_ABBREV record's operand-descriptor
// list and installs it either in the current block's abbreviation
// table, or (when fromBlockInfo is true) in the BLOCKINFO-registered
// table for targetBlockID.
func (c *Cursor) defineAbbrev(targetBlockID uint64, fromBlockInfo bool) error {
	numOps, err := c.ReadVBR(5)
	if err != nil {
		return err
	}
	ops := make([]AbbrevOp, 0, numOps)
	for i := uint64(0); i < numOps; i++ {
		isLiteral, err := c.ReadFixed(1)
		if err != nil {
			return err
		}
		if isLiteral != 0 {
			val, err := c.ReadVBR(8)
			if err != nil {
				return err
			}
			ops = append(ops, AbbrevOp{Kind: OpLiteral, Val: val})
			continue
		}
		enc, err := c.ReadFixed(3)
		if err != nil {
			return err
		}
		switch enc {
		case 1, 2: // Fixed, VBR both carry a width operand
			data, err := c.ReadVBR(5)
			if err != nil {
				return err
			}
			kind := OpFixed
			if enc == 2 {
				kind = OpVBR
			}
			ops = append(ops, AbbrevOp{Kind: kind, Val: data})
		case 3:
			ops = append(ops, AbbrevOp{Kind: OpArray})
		case 4:
			ops = append(ops, AbbrevOp{Kind: OpChar6})
		case 5:
			ops = append(ops, AbbrevOp{Kind: OpBlob})
		default:
			return diag.Malformed(c.bitOff, "unknown abbreviation operand encoding %d", enc)
		}
	}
	ab := Abbrev{Ops: ops}
	if err := ab.validate(); err != nil {
		return err
	}
	if fromBlockInfo {
		c.blockInfoAbbrevs[targetBlockID] = append(c.blockInfoAbbrevs[targetBlockID], ab)
	} else {
		c.abbrevs = append(c.abbrevs, ab)
	}
	return nil
}
