// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"github.com/bureau-foundation/blockserve/lib/blockfile"
)

// sendResult classifies the outcome of one block send attempt.
type sendResult int

const (
	// sendSent: the block was read, encoded, and handed to the batcher.
	sendSent sendResult = iota

	// sendSkipped: the block was already transmitted this session; no
	// bytes were emitted.
	sendSkipped

	// sendError: the index was out of range or the read failed. The
	// block remains unsent.
	sendError
)

// sendBlock encodes and emits one block: read, try-compress, pick the
// smaller form, mark sent, hand header plus payload to the batcher.
// The flush flag propagates to the batcher — miss responses flush so
// the device unblocks immediately, prefetch responses coalesce.
func (s *Server) sendBlock(file *blockfile.File, blockIdx int32, flush bool) sendResult {
	if blockIdx < 0 || blockIdx >= file.BlockCount() {
		s.logger.Error("block index past end of file", "path", file.Path, "block_idx", blockIdx, "block_count", file.BlockCount())
		return sendError
	}
	if file.IsSent(blockIdx) {
		return sendSkipped
	}

	bytesRead, err := file.ReadBlock(blockIdx, s.blockScratch[:])
	if err != nil {
		s.logger.Error("reading block", "path", file.Path, "block_idx", blockIdx, "error", err)
		return sendError
	}
	raw := s.blockScratch[:bytesRead]

	payload := raw
	compression := CompressionNone
	if !file.Precompressed(blockIdx) {
		if compressed, err := compressBlock(raw, s.compressScratch); err == nil {
			payload = compressed
			compression = CompressionLZ4
		}
	}
	if compression == CompressionLZ4 {
		s.compressedBlocks++
	} else {
		s.uncompressedBlocks++
	}

	header := ResponseHeader{
		FileID:      file.ID,
		Compression: compression,
		BlockIdx:    blockIdx,
		BlockSize:   int16(len(payload)),
	}
	s.recordScratch = header.appendTo(s.recordScratch[:0])
	s.recordScratch = append(s.recordScratch, payload...)

	file.MarkSent(blockIdx)
	s.batcher.send(s.recordScratch, flush)
	return sendSent
}

// sendDone emits the end-of-stream sentinel — file id -1, zero-length
// payload — and forces the chunk out. The device reads it as "every
// expected block has been delivered".
func (s *Server) sendDone() {
	header := ResponseHeader{FileID: sentinelFileID}
	s.recordScratch = header.appendTo(s.recordScratch[:0])
	s.batcher.send(s.recordScratch, true)
}
