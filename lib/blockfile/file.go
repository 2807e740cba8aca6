// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blockfile

import (
	"fmt"
	"io"
	"math/bits"
)

// BlockSize is the fixed payload unit of the delivery protocol. Every
// block except possibly the last of a file is exactly this long.
const BlockSize = 4096

// NumBlocks returns the number of blocks needed to cover size bytes.
func NumBlocks(size int64) int32 {
	return int32((size + BlockSize - 1) / BlockSize)
}

// BlockOffset returns the byte offset of the given block index.
func BlockOffset(blockIdx int32) int64 {
	return int64(blockIdx) * BlockSize
}

// PrecompressedFunc reports whether the data of a block is already in
// a form the client decodes without further repacking. When it returns
// true the server transmits the block verbatim and skips LZ4. The
// default (nil hook) never signals it.
type PrecompressedFunc func(blockIdx int32) bool

// File holds the streaming state for one served file: a positional
// reader, the sent-block bitmap, and its cached cardinality.
//
// File is not safe for concurrent use; the serving loop is
// single-threaded by construction.
type File struct {
	// ID is the file's index in the server's file table, stable for
	// the session. It appears in every response header.
	ID int16

	// Path is the originating filesystem path. Opaque to the
	// protocol; used in diagnostics only.
	Path string

	// Size is the total file length in bytes.
	Size int64

	handle        io.ReaderAt
	precompressed PrecompressedFunc

	blockCount int32
	sent       []uint64
	sentCount  int32
}

// New creates a File over the given positional reader. The hook may be
// nil; see [PrecompressedFunc].
func New(id int16, path string, size int64, handle io.ReaderAt, hook PrecompressedFunc) (*File, error) {
	if size < 0 {
		return nil, fmt.Errorf("file %s: negative size %d", path, size)
	}
	blockCount := NumBlocks(size)
	return &File{
		ID:            id,
		Path:          path,
		Size:          size,
		handle:        handle,
		precompressed: hook,
		blockCount:    blockCount,
		sent:          make([]uint64, (blockCount+63)/64),
	}, nil
}

// BlockCount returns the number of blocks in the file.
func (f *File) BlockCount() int32 { return f.blockCount }

// BlockLength returns the payload length of the given block: BlockSize
// for every block except a short final one.
func (f *File) BlockLength(blockIdx int32) int {
	if remaining := f.Size - BlockOffset(blockIdx); remaining < BlockSize {
		return int(remaining)
	}
	return BlockSize
}

// ReadBlock reads block blockIdx into buf, which must hold at least
// BlockSize bytes. Returns the number of bytes read: BlockSize for all
// blocks except a short final one. A read that comes up short anywhere
// else is an error, as is any underlying I/O failure.
func (f *File) ReadBlock(blockIdx int32, buf []byte) (int, error) {
	if blockIdx < 0 || blockIdx >= f.blockCount {
		return 0, fmt.Errorf("read %s: block %d out of range (have %d)", f.Path, blockIdx, f.blockCount)
	}
	want := f.BlockLength(blockIdx)
	n, err := f.handle.ReadAt(buf[:want], BlockOffset(blockIdx))
	if n == want {
		// ReadAt reports io.EOF alongside a full read of the final
		// block; a complete read is success regardless.
		return n, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return n, fmt.Errorf("read %s block %d: %w", f.Path, blockIdx, err)
}

// Precompressed reports whether the block's bytes are already
// client-decodable without compression. Nil hooks never signal it.
func (f *File) Precompressed(blockIdx int32) bool {
	return f.precompressed != nil && f.precompressed(blockIdx)
}

// IsSent reports whether the block has been transmitted this session.
func (f *File) IsSent(blockIdx int32) bool {
	return f.sent[blockIdx/64]&(1<<(uint(blockIdx)%64)) != 0
}

// MarkSent records the block as transmitted and returns true, or
// returns false if it was already marked. This is the only mutator of
// the bitmap, which keeps the cached count coherent with it.
func (f *File) MarkSent(blockIdx int32) bool {
	word, bit := blockIdx/64, uint64(1)<<(uint(blockIdx)%64)
	if f.sent[word]&bit != 0 {
		return false
	}
	f.sent[word] |= bit
	f.sentCount++
	return true
}

// SentCount returns the number of distinct blocks transmitted.
func (f *File) SentCount() int32 { return f.sentCount }

// FullySent reports whether every block has been transmitted. Empty
// files are trivially fully sent.
func (f *File) FullySent() bool { return f.sentCount == f.blockCount }

// popcount recomputes the bitmap cardinality from scratch. Test seam
// for the sentCount coherence invariant.
func (f *File) popcount() int32 {
	var total int
	for _, word := range f.sent {
		total += bits.OnesCount64(word)
	}
	return int32(total)
}
