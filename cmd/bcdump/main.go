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

// Command bcdump decodes a portable bitcode module and prints a
// human-readable summary of its type table, globals, and functions,
// optionally running the ABI verifier over it first.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/libpbc/pbc/abi"
	"github.com/libpbc/pbc/bcmodule"
	"github.com/libpbc/pbc/bitstream"
	"github.com/libpbc/pbc/diag"
)

var (
	bitcodeFormat         string
	outPath               string
	streamingBitcode      bool
	reduceMemoryFootprint bool
	verify                bool
	verifyFatalErrors     bool
	disableVerify         bool
	optLevel              int
	mtriple               string
)

func init() {
	flag.StringVar(&bitcodeFormat, "bitcode-format", "auto", "input encoding: auto, raw, or zstd")
	flag.StringVar(&outPath, "o", "-", "output path, or - for stdout")
	flag.BoolVar(&streamingBitcode, "streaming-bitcode", false, "defer function body materialization until needed")
	flag.BoolVar(&reduceMemoryFootprint, "reduce-memory-footprint", false, "passed to the decoder as DecodeOptions.ReduceMemoryFootprint; bcdump keeps every decoded body in memory")
	flag.BoolVar(&verify, "verify", true, "run the ABI verifier before dumping")
	flag.BoolVar(&verifyFatalErrors, "verify-fatal-errors", false, "abort on the first ABI violation instead of accumulating")
	flag.BoolVar(&disableVerify, "disable-verify", false, "skip ABI verification entirely (overrides -verify)")
	flag.IntVar(&optLevel, "O", 0, "optimization level recorded in the run log (0-3); bcdump does not itself transform the module")
	flag.StringVar(&mtriple, "mtriple", "", "target triple recorded in the run log")
}

func main() {
	flag.Parse()
	runID := uuid.New()

	args := flag.Args()
	path := "-"
	if len(args) > 0 {
		path = args[0]
	}

	out := os.Stdout
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bcdump[%s]: can't create %q: %s\n", runID, outPath, err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	defer w.Flush()

	fmt.Fprintf(os.Stderr, "bcdump[%s]: decoding %s (mtriple=%q, O%d)\n", runID, path, mtriple, optLevel)

	src, closer, err := openSource(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bcdump[%s]: %s\n", runID, err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer()
	}

	rep := &diag.Reporter{FatalErrors: verifyFatalErrors && !disableVerify}
	opts := bcmodule.DecodeOptions{
		Streaming:             streamingBitcode,
		ReduceMemoryFootprint: reduceMemoryFootprint,
	}

	m, err := decodeWithRecover(src, opts, rep)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bcdump[%s]: decode failed: %s\n", runID, err)
		os.Exit(1)
	}

	if verify && !disableVerify {
		v := abi.NewVerifier(m)
		for i := range m.Functions {
			fn := &m.Functions[i]
			if fn.IsDeclOnly {
				continue
			}
			if streamingBitcode && !fn.Materialized() {
				if err := bcmodule.Materialize(m, fn, rep); err != nil {
					rep.AddError(err)
					continue
				}
			}
		}
		v.VerifyModule(rep)
	}

	if err := dump(w, m, runID.String()); err != nil {
		fmt.Fprintf(os.Stderr, "bcdump[%s]: writing output: %s\n", runID, err)
		os.Exit(1)
	}

	if n := rep.ErrorCount(); n > 0 {
		fmt.Fprintf(os.Stderr, "bcdump[%s]: %d diagnostic(s):\n", runID, n)
		rep.PrintErrors(os.Stderr)
		os.Exit(1)
	}
}

// decodeWithRecover turns a --verify-fatal-errors panic (raised by
// Reporter.AddError) back into a plain error, matching the non-fatal
// caller's expectations.
func decodeWithRecover(src bitstream.Source, opts bcmodule.DecodeOptions, rep *diag.Reporter) (m *bcmodule.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()
	return bcmodule.Decode(src, opts, rep)
}

func openSource(path string) (bitstream.Source, func(), error) {
	format := bitcodeFormat
	if format == "auto" {
		format = "raw"
		if strings.HasSuffix(path, ".zst") {
			format = "zstd"
		}
	}

	if format == "zstd" {
		var r *os.File
		var err error
		if path == "-" {
			r = os.Stdin
		} else {
			r, err = os.Open(path)
			if err != nil {
				return nil, nil, err
			}
			defer r.Close()
		}
		src, err := bitstream.OpenZstdSource(r)
		if err != nil {
			return nil, nil, fmt.Errorf("decompressing %s: %w", path, err)
		}
		return src, nil, nil
	}

	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, nil, err
		}
		src, err := bitstream.NewBufferSource(pad4(data))
		return src, nil, err
	}

	src, err := bitstream.OpenMmapSource(path)
	if err != nil {
		return nil, nil, err
	}
	return src, func() { src.Close() }, nil
}

func pad4(data []byte) []byte {
	if rem := len(data) % 4; rem != 0 {
		data = append(data, make([]byte, 4-rem)...)
	}
	return data
}
