// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"encoding/binary"
	"fmt"

	"github.com/bureau-foundation/blockserve/lib/blockfile"
)

// Wire constants for the incremental delivery protocol. All multi-byte
// integers on the wire are big-endian. These values are protocol
// constants shared with the client's device driver — changing any of
// them breaks interoperability.
const (
	// Magic precedes every inbound request record. The bytes spell
	// "INCR" on the wire.
	Magic uint32 = 0x494E4352

	// magicLength and requestLength frame one inbound request:
	// 4 bytes of magic followed by an 8-byte record.
	magicLength   = 4
	requestLength = 8

	// responseHeaderLength is the fixed prefix of every outbound
	// response record: file id, compression, block index, block size.
	responseHeaderLength = 10

	// chunkHeaderLength frames a batch of concatenated response
	// records: a u32 payload byte length.
	chunkHeaderLength = 4
)

// Compression tags carried in response headers.
const (
	// CompressionNone marks a raw block payload.
	CompressionNone int16 = 0

	// CompressionLZ4 marks an LZ4 block-compressed payload.
	CompressionLZ4 int16 = 1
)

// sentinelFileID marks the end-of-stream response: every expected
// block has been delivered.
const sentinelFileID int16 = -1

// RequestKind discriminates inbound request records.
type RequestKind int16

const (
	// ServingComplete is the client's acknowledgment that it has
	// received everything it needs. The server keeps serving: late
	// requests may still arrive until the connection is torn down.
	ServingComplete RequestKind = 0

	// BlockMissing asks for one block the client page-faulted on.
	BlockMissing RequestKind = 1

	// Prefetch asks the server to stream a whole file in the
	// background.
	Prefetch RequestKind = 2

	// Destroy tears the session down. Also synthesized by the frame
	// reader on transport EOF or a terminal timeout.
	Destroy RequestKind = 3
)

// String returns the request kind's wire name for diagnostics.
func (k RequestKind) String() string {
	switch k {
	case ServingComplete:
		return "serving-complete"
	case BlockMissing:
		return "block-missing"
	case Prefetch:
		return "prefetch"
	case Destroy:
		return "destroy"
	default:
		return fmt.Sprintf("unknown(%d)", int16(k))
	}
}

// Request is one decoded inbound request record. The trailing 4 wire
// bytes are meaningful only for BlockMissing, where they carry the
// faulted block index; the typed accessor keeps that coupling in one
// place instead of a struct field that is sometimes garbage.
type Request struct {
	Kind   RequestKind
	FileID int16

	blockIdx int32
}

// BlockIdx returns the faulted block index of a BlockMissing request.
// Panics on any other kind: reading the payload of a request that has
// none is a programming error, not a protocol condition.
func (r Request) BlockIdx() int32 {
	if r.Kind != BlockMissing {
		panic("stream: BlockIdx on " + r.Kind.String() + " request")
	}
	return r.blockIdx
}

// NewBlockMissing constructs a BlockMissing request. Used by tests and
// client-side tooling; the server only decodes.
func NewBlockMissing(fileID int16, blockIdx int32) Request {
	return Request{Kind: BlockMissing, FileID: fileID, blockIdx: blockIdx}
}

// NewPrefetch constructs a Prefetch request for a whole file.
func NewPrefetch(fileID int16) Request {
	return Request{Kind: Prefetch, FileID: fileID}
}

// decodeRequest decodes the 8-byte request record following the magic.
func decodeRequest(record []byte) Request {
	return Request{
		Kind:     RequestKind(binary.BigEndian.Uint16(record[0:2])),
		FileID:   int16(binary.BigEndian.Uint16(record[2:4])),
		blockIdx: int32(binary.BigEndian.Uint32(record[4:8])),
	}
}

// EncodeRequest appends the magic-prefixed wire form of a request.
func EncodeRequest(dst []byte, request Request) []byte {
	var frame [magicLength + requestLength]byte
	binary.BigEndian.PutUint32(frame[0:4], Magic)
	binary.BigEndian.PutUint16(frame[4:6], uint16(request.Kind))
	binary.BigEndian.PutUint16(frame[6:8], uint16(request.FileID))
	binary.BigEndian.PutUint32(frame[8:12], uint32(request.blockIdx))
	return append(dst, frame[:]...)
}

// ResponseHeader is the fixed prefix of one outbound response record.
type ResponseHeader struct {
	FileID      int16
	Compression int16
	BlockIdx    int32
	BlockSize   int16
}

// appendTo appends the header's 10-byte big-endian wire form.
func (h ResponseHeader) appendTo(dst []byte) []byte {
	var buf [responseHeaderLength]byte
	binary.BigEndian.PutUint16(buf[0:2], uint16(h.FileID))
	binary.BigEndian.PutUint16(buf[2:4], uint16(h.Compression))
	binary.BigEndian.PutUint32(buf[4:8], uint32(h.BlockIdx))
	binary.BigEndian.PutUint16(buf[8:10], uint16(h.BlockSize))
	return append(dst, buf[:]...)
}

// DecodeResponseHeader decodes a 10-byte response header. Used by
// tests and client-side tooling.
func DecodeResponseHeader(buf []byte) (ResponseHeader, error) {
	if len(buf) < responseHeaderLength {
		return ResponseHeader{}, fmt.Errorf("response header: have %d bytes, need %d", len(buf), responseHeaderLength)
	}
	return ResponseHeader{
		FileID:      int16(binary.BigEndian.Uint16(buf[0:2])),
		Compression: int16(binary.BigEndian.Uint16(buf[2:4])),
		BlockIdx:    int32(binary.BigEndian.Uint32(buf[4:8])),
		BlockSize:   int16(binary.BigEndian.Uint16(buf[8:10])),
	}, nil
}

// IsSentinel reports whether the header is the end-of-stream marker.
func (h ResponseHeader) IsSentinel() bool {
	return h.FileID == sentinelFileID && h.BlockSize == 0
}

// BlockSize re-exported so callers of the stream package do not need a
// second import for the one constant they share with blockfile.
const BlockSize = blockfile.BlockSize
