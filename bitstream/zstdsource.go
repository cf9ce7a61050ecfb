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

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// OpenZstdSource decompresses a zstd-compressed bitcode file fully
// into memory and wraps it as a random-access Source. Bitcode modules
// are small enough in practice (and the bitstream format requires
// random access for block-length skipping and lazy function
// materialization) that streaming decompression isn't worth the
// added complexity here.
func OpenZstdSource(r io.Reader) (*BufferSource, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	if rem := len(data) % 4; rem != 0 {
		data = append(data, make([]byte, 4-rem)...)
	}
	return NewBufferSource(data)
}
