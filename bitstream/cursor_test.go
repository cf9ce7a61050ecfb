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

import "testing"

// bitWriter is a minimal test-only mirror of Cursor's bit layout,
// used to hand-assemble bitstreams the way ion/write_test.go
// hand-assembles ion buffers for round-trip comparisons.
type bitWriter struct {
	bytes  []byte
	bitOff uint
}

func (w *bitWriter) writeFixed(n uint, v uint64) {
	for i := uint(0); i < n; i++ {
		bit := (v >> i) & 1
		byteIdx := int(w.bitOff / 8)
		for byteIdx >= len(w.bytes) {
			w.bytes = append(w.bytes, 0)
		}
		if bit != 0 {
			w.bytes[byteIdx] |= 1 << (w.bitOff % 8)
		}
		w.bitOff++
	}
}

func (w *bitWriter) writeVBR(n uint, v uint64) {
	hi := uint64(1) << (n - 1)
	mask := hi - 1
	for {
		chunk := v & mask
		v >>= (n - 1)
		if v != 0 {
			chunk |= hi
		}
		w.writeFixed(n, chunk)
		if v == 0 {
			return
		}
	}
}

func (w *bitWriter) align32() {
	for w.bitOff%32 != 0 {
		w.writeFixed(1, 0)
	}
}

func (w *bitWriter) finish() []byte {
	w.align32()
	return w.bytes
}

// buildModuleSkeleton builds: header, then a top-level block (id 8)
// containing a single unabbreviated record {code: 7, values: [42, 1000]}.
func buildModuleSkeleton(t *testing.T) []byte {
	t.Helper()
	w := &bitWriter{bytes: append([]byte(nil), Magic[:]...), bitOff: HeaderSize * 8}

	// ENTER_SUBBLOCK at the initial abbrev width (2 bits).
	w.writeFixed(2, EnterSubblock)
	w.writeVBR(8, FirstApplicationBlockID)
	w.writeVBR(4, 2) // inner abbrev width
	w.align32()
	lenOff := w.bitOff
	w.writeFixed(32, 0) // placeholder block length in words

	bodyStart := w.bitOff
	// UNABBREV_RECORD: code=7, 2 operands: 42, 1000
	w.writeFixed(2, UnabbrevRecord)
	w.writeVBR(6, 7)
	w.writeVBR(6, 2)
	w.writeVBR(6, 42)
	w.writeVBR(6, 1000)

	// END_BLOCK
	w.writeFixed(2, EndBlock)
	w.align32()
	bodyEnd := w.bitOff

	buf := w.finish()
	words := (bodyEnd - bodyStart) / 32
	byteOff := lenOff / 8
	buf[byteOff] = byte(words)
	buf[byteOff+1] = byte(words >> 8)
	buf[byteOff+2] = byte(words >> 16)
	buf[byteOff+3] = byte(words >> 24)
	return buf
}

func TestCursorEntersBlockAndReadsUnabbrevRecord(t *testing.T) {
	buf := buildModuleSkeleton(t)
	src, err := NewBufferSource(buf)
	if err != nil {
		t.Fatalf("NewBufferSource: %s", err)
	}
	cur, err := NewCursor(src)
	if err != nil {
		t.Fatalf("NewCursor: %s", err)
	}

	e, err := cur.Advance()
	if err != nil {
		t.Fatalf("Advance: %s", err)
	}
	if e.Kind != EntrySubBlock || e.ID != FirstApplicationBlockID {
		t.Fatalf("Advance() = %+v, want SubBlock(%d)", e, FirstApplicationBlockID)
	}
	if err := cur.EnterSubBlock(FirstApplicationBlockID); err != nil {
		t.Fatalf("EnterSubBlock: %s", err)
	}

	e, err = cur.Advance()
	if err != nil {
		t.Fatalf("Advance (record): %s", err)
	}
	if e.Kind != EntryRecord {
		t.Fatalf("Advance() = %+v, want Record", e)
	}
	rec, err := cur.ReadRecord(e.ID)
	if err != nil {
		t.Fatalf("ReadRecord: %s", err)
	}
	if rec.Code != 7 || len(rec.Values) != 2 || rec.Values[0] != 42 || rec.Values[1] != 1000 {
		t.Fatalf("ReadRecord() = %+v, want code 7, values [42 1000]", rec)
	}

	e, err = cur.Advance()
	if err != nil {
		t.Fatalf("Advance (end): %s", err)
	}
	if e.Kind != EntryEndBlock {
		t.Fatalf("Advance() = %+v, want EndBlock", e)
	}
	if err := cur.ExitBlock(); err != nil {
		t.Fatalf("ExitBlock: %s", err)
	}
}

func TestCursorSkipBlockUsesDeclaredLength(t *testing.T) {
	buf := buildModuleSkeleton(t)
	src, err := NewBufferSource(buf)
	if err != nil {
		t.Fatalf("NewBufferSource: %s", err)
	}
	cur, err := NewCursor(src)
	if err != nil {
		t.Fatalf("NewCursor: %s", err)
	}
	e, err := cur.Advance()
	if err != nil || e.Kind != EntrySubBlock {
		t.Fatalf("Advance: %+v, %s", e, err)
	}
	if err := cur.EnterSubBlock(e.ID); err != nil {
		t.Fatalf("EnterSubBlock: %s", err)
	}
	if err := cur.SkipBlock(); err != nil {
		t.Fatalf("SkipBlock: %s", err)
	}
	if got, want := cur.GetCurrentBit(), int64(len(buf))*8; got != want {
		t.Fatalf("after SkipBlock, bit offset = %d, want %d (end of stream)", got, want)
	}
}

func TestBadMagicRejected(t *testing.T) {
	buf := append([]byte{0, 0, 0, 0}, make([]byte, 28)...)
	src, _ := NewBufferSource(buf)
	if _, err := NewCursor(src); err == nil {
		t.Fatalf("expected NewCursor to reject bad magic")
	}
}

func TestVBRRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 31, 32, 1000, 1 << 20, 1<<35 + 7}
	w := &bitWriter{bytes: append([]byte(nil), Magic[:]...), bitOff: HeaderSize * 8}
	for _, v := range values {
		w.writeVBR(6, v)
	}
	buf := w.finish()
	src, _ := NewBufferSource(buf)
	cur, err := NewCursor(src)
	if err != nil {
		t.Fatalf("NewCursor: %s", err)
	}
	for _, want := range values {
		got, err := cur.ReadVBR(6)
		if err != nil {
			t.Fatalf("ReadVBR: %s", err)
		}
		if got != want {
			t.Fatalf("ReadVBR() = %d, want %d", got, want)
		}
	}
}
