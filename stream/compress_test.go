// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/blockserve/lib/testutil"
)

func TestCompressBlockAcceptsCompressible(t *testing.T) {
	t.Parallel()
	src := make([]byte, BlockSize)
	scratch := make([]byte, compressScratchSize)

	compressed, err := compressBlock(src, scratch)
	if err != nil {
		t.Fatalf("compressBlock on zeros: %v", err)
	}
	if len(compressed) >= compressedSizeMax {
		t.Fatalf("compressed size %d not under acceptance bound %d", len(compressed), compressedSizeMax)
	}

	decompressed := make([]byte, BlockSize)
	n, err := lz4.UncompressBlock(compressed, decompressed)
	if err != nil {
		t.Fatalf("UncompressBlock: %v", err)
	}
	if n != BlockSize || !bytes.Equal(decompressed[:n], src) {
		t.Fatalf("round trip: got %d bytes, want %d zero bytes", n, BlockSize)
	}
}

func TestCompressBlockRejectsIncompressible(t *testing.T) {
	t.Parallel()
	src := testutil.Incompressible(BlockSize)
	scratch := make([]byte, compressScratchSize)

	if _, err := compressBlock(src, scratch); !errors.Is(err, errIncompressible) {
		t.Fatalf("compressBlock on random bytes: got %v, want errIncompressible", err)
	}
}

func TestCompressBlockShortFinalBlock(t *testing.T) {
	t.Parallel()
	src := make([]byte, 100)
	scratch := make([]byte, compressScratchSize)

	compressed, err := compressBlock(src, scratch)
	if err != nil {
		t.Fatalf("compressBlock on a short block of zeros: %v", err)
	}

	decompressed := make([]byte, BlockSize)
	n, err := lz4.UncompressBlock(compressed, decompressed)
	if err != nil {
		t.Fatalf("UncompressBlock: %v", err)
	}
	if n != len(src) {
		t.Fatalf("round trip length: got %d, want %d", n, len(src))
	}
}

func TestAcceptanceBoundValue(t *testing.T) {
	t.Parallel()
	// 95% of a block, floored. A protocol constant shared with the
	// device decoder.
	if compressedSizeMax != 3891 {
		t.Fatalf("compressedSizeMax: got %d, want 3891", compressedSizeMax)
	}
}
