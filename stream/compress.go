// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"errors"

	"github.com/pierrec/lz4/v4"
)

// compressedSizeMax is the acceptance bound for compressed blocks: the
// compressed form is used only when strictly smaller than 95% of a
// block rounded down (3891 bytes). Above that, the decode cost on the device is not worth the
// transfer savings, and the raw form can never inflate.
const compressedSizeMax = BlockSize * 95 / 100

// errIncompressible reports that a block did not compress under the
// acceptance bound and must be sent raw.
var errIncompressible = errors.New("block is incompressible")

// compressScratchSize is the scratch buffer size for LZ4 output: the
// worst-case bound for one block, never less than the block itself.
var compressScratchSize = max(BlockSize, lz4.CompressBlockBound(BlockSize))

// compressBlock LZ4-compresses src into scratch and returns the
// compressed slice (aliasing scratch). Returns errIncompressible when
// the compressor gives up or the result does not clear the acceptance
// bound; any other error is a compressor failure.
func compressBlock(src, scratch []byte) ([]byte, error) {
	// CompressBlock returns 0 when it determines the data is
	// incompressible.
	written, err := lz4.CompressBlock(src, scratch, nil)
	if err != nil {
		return nil, err
	}
	if written == 0 || written >= compressedSizeMax {
		return nil, errIncompressible
	}
	return scratch[:written], nil
}
