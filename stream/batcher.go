// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"encoding/binary"
	"io"
	"log/slog"
)

// chunkFlushSize is the pending-payload threshold that forces a chunk
// out: 31 blocks' worth of bytes. Large enough to amortize syscalls,
// small enough to keep a single chunk within one receive window on the
// device side.
const chunkFlushSize = 31 * BlockSize

// batcher coalesces outbound response records into length-prefixed
// chunks. Records accumulate after a reserved 4-byte chunk header
// until a flush is requested or the payload crosses chunkFlushSize.
//
// A write failure is logged and does not abort serving: the next read
// on the connection will surface the broken transport and terminate
// the session through the reader.
type batcher struct {
	conn   io.Writer
	logger *slog.Logger

	// pending holds the chunk header placeholder followed by the
	// accumulated records. Empty between chunks.
	pending []byte

	// sentBytes counts everything handed to the connection,
	// chunk headers included. Reported in serving statistics.
	sentBytes int64
}

// send appends one record to the pending chunk and flushes when asked
// to or when the payload crosses the size threshold.
func (b *batcher) send(record []byte, flush bool) {
	if len(b.pending) == 0 {
		b.pending = append(b.pending, make([]byte, chunkHeaderLength)...)
	}
	b.pending = append(b.pending, record...)
	if flush || len(b.pending)-chunkHeaderLength > chunkFlushSize {
		b.flush()
	}
}

// flush stamps the chunk header and writes header plus payload to the
// connection in one call, then resets. A no-op when nothing is
// pending.
func (b *batcher) flush() {
	if len(b.pending) == 0 {
		return
	}
	payloadLength := len(b.pending) - chunkHeaderLength
	binary.BigEndian.PutUint32(b.pending[:chunkHeaderLength], uint32(payloadLength))
	if _, err := b.conn.Write(b.pending); err != nil {
		b.logger.Error("writing chunk to connection", "bytes", len(b.pending), "error", err)
	}
	b.sentBytes += int64(len(b.pending))
	b.pending = b.pending[:0]
}
