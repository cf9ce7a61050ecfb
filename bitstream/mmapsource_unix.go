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

//go:build unix

package bitstream

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// MmapSource is a Source backed by a read-only memory mapping of a
// file, avoiding a full-file copy for large modules. Close unmaps the
// region; the Source must not be used afterward.
type MmapSource struct {
	data []byte
}

// OpenMmapSource maps path's contents read-only. path's length must
// be a multiple of four bytes, matching the bitstream's 32-bit word
// alignment.
func OpenMmapSource(path string) (*MmapSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return &MmapSource{}, nil
	}
	if size%4 != 0 {
		return nil, fmt.Errorf("bitstream: file length %d is not a multiple of 4", size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &MmapSource{data: data}, nil
}

// Len returns the mapped region's size in bytes.
func (s *MmapSource) Len() int { return len(s.data) }

// ReadAt implements io.ReaderAt directly against the mapped pages.
func (s *MmapSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("bitstream: negative offset %d", off)
	}
	if off >= int64(len(s.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the region.
func (s *MmapSource) Close() error {
	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data = nil
	return err
}
