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

//go:build !unix

package bitstream

import "os"

// MmapSource falls back to a full-file read on platforms without a
// unix mmap syscall; it still satisfies the same Source contract as
// the unix build's memory-mapped implementation.
type MmapSource struct {
	*BufferSource
}

// OpenMmapSource reads path's entire contents into memory.
func OpenMmapSource(path string) (*MmapSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	buf, err := NewBufferSource(data)
	if err != nil {
		return nil, err
	}
	return &MmapSource{BufferSource: buf}, nil
}

// Close is a no-op on this platform; there is no mapping to release.
func (s *MmapSource) Close() error { return nil }
