// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bureau-foundation/blockserve/lib/blockfile"
	"github.com/bureau-foundation/blockserve/lib/clock"
)

// handshakeToken is the one-shot readiness acknowledgment written to
// the connection before the framing loop begins. Transport-level, not
// part of the framed protocol.
const handshakeToken = "OKAY"

// defaultPollTimeout bounds a blocking wait for device data. A timeout
// is terminal only once the device has signaled serving-complete;
// before that it is reported and the loop keeps waiting.
const defaultPollTimeout = 300 * time.Second

// Options configures a Server. The zero value selects production
// defaults.
type Options struct {
	// Logger receives server diagnostics. Defaults to slog.Default().
	// Distinct from the log sink, which carries the device's own
	// interleaved text verbatim.
	Logger *slog.Logger

	// Clock drives session timing (serving statistics). Defaults to
	// clock.Real().
	Clock clock.Clock

	// PollTimeout overrides the blocking-read timeout. Defaults to
	// defaultPollTimeout.
	PollTimeout time.Duration
}

// Server streams file blocks to one device over one connection. The
// core is single-threaded: all suspension happens in the frame
// reader's deadline-bounded poll, and every resource — file table,
// inbound buffer, prefetch queue, pending chunk — is uniquely owned by
// the serving loop.
type Server struct {
	conn   Conn
	files  []*blockfile.File
	logger *slog.Logger
	clock  clock.Clock

	reader     frameReader
	batcher    batcher
	prefetches prefetchQueue

	// Serving statistics, logged on serving-complete, or at shutdown
	// if serving-complete never arrived.
	compressedBlocks   int
	uncompressedBlocks int
	missesReceived     int
	missesSent         int

	servingComplete bool

	// Scratch buffers reused across block sends. Single-threaded
	// ownership makes reuse safe.
	blockScratch    [BlockSize]byte
	compressScratch []byte
	recordScratch   []byte
}

// New creates a Server owning the connection, the log sink, and the
// file table. The files slice is indexed by wire file id; entries must
// have IDs matching their position.
func New(conn Conn, logSink io.Writer, files []*blockfile.File, options Options) *Server {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	pollTimeout := options.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	server := &Server{
		conn:            conn,
		files:           files,
		logger:          logger,
		clock:           clk,
		compressScratch: make([]byte, compressScratchSize),
	}
	server.reader = frameReader{
		conn:        conn,
		logSink:     logSink,
		logger:      logger,
		pollTimeout: pollTimeout,
	}
	server.batcher = batcher{conn: conn, logger: logger}
	return server
}

// Serve runs the session until the device destroys it or the
// transport ends. Returns nil on any orderly shutdown — device
// Destroy, transport EOF, or a post-completion idle timeout — and an
// error only when the readiness handshake cannot be written.
func (s *Server) Serve() error {
	if _, err := io.WriteString(s.conn, handshakeToken); err != nil {
		return fmt.Errorf("writing readiness token: %w", err)
	}

	prefetchedFiles := make(map[int16]bool)
	doneSent := false
	var startTime time.Time

	for {
		if !doneSent && s.prefetches.empty() && s.allFilesSent() {
			s.logger.Info("all blocks delivered, notifying the device")
			s.sendDone()
			doneSent = true
		}

		// About to wait arbitrarily long: push pending responses out
		// first so they are not held hostage to device silence.
		blocking := s.prefetches.empty()
		if blocking {
			s.batcher.flush()
		}

		request, ok := s.reader.readRequest(blocking, s.servingComplete)

		if startTime.IsZero() {
			startTime = s.clock.Now()
		}

		if ok {
			switch request.Kind {
			case Destroy:
				if !s.servingComplete {
					s.logServingStats("session ended", startTime)
				}
				return nil

			case ServingComplete:
				// The device may still fault on trailing blocks, and
				// the connection stays up until it tears down; keep
				// serving.
				s.servingComplete = true
				s.logServingStats("serving complete", startTime)

			case BlockMissing:
				s.missesReceived++
				s.handleMiss(request)

			case Prefetch:
				s.handlePrefetch(request, prefetchedFiles)

			default:
				s.logger.Error("invalid request", "kind", int16(request.Kind), "file_id", request.FileID)
			}
		}

		s.runPrefetching()
	}
}

// handleMiss serves one faulted block with an immediate flush, then
// queues a short readahead window behind it at the front of the
// prefetch queue.
func (s *Server) handleMiss(request Request) {
	fileID, blockIdx := request.FileID, request.BlockIdx()
	if fileID < 0 || int(fileID) >= len(s.files) {
		s.logger.Error("miss for unknown file", "file_id", fileID, "block_idx", blockIdx)
		return
	}
	file := s.files[fileID]
	if blockIdx < 0 || blockIdx >= file.BlockCount() {
		s.logger.Error("miss past end of file", "path", file.Path, "file_id", fileID, "block_idx", blockIdx, "block_count", file.BlockCount())
		return
	}
	switch s.sendBlock(file, blockIdx, true) {
	case sendSent:
		s.missesSent++
		// The device kernel may be faulting a window larger than one
		// page; stream the next few blocks before anything else.
		s.prefetches.pushFront(readaheadPrefetch(file, blockIdx+1, readaheadBlocks))
	case sendError:
		s.logger.Error("failed to send missing block", "path", file.Path, "block_idx", blockIdx)
	}
}

// handlePrefetch enqueues a full-file prefetch at the back of the
// queue, once per file per session.
func (s *Server) handlePrefetch(request Request, prefetchedFiles map[int16]bool) {
	fileID := request.FileID
	if fileID < 0 || int(fileID) >= len(s.files) {
		s.logger.Error("prefetch for unknown file", "file_id", fileID)
		return
	}
	if prefetchedFiles[fileID] {
		s.logger.Error("duplicate prefetch request", "file_id", fileID)
		return
	}
	prefetchedFiles[fileID] = true
	s.logger.Debug("prefetch requested", "file_id", fileID, "path", s.files[fileID].Path)
	s.prefetches.pushBack(fullFilePrefetch(s.files[fileID]))
}

// allFilesSent reports whether every file's block has been
// transmitted.
func (s *Server) allFilesSent() bool {
	for _, file := range s.files {
		if !file.FullySent() {
			return false
		}
	}
	return true
}

// logServingStats reports the session counters. startTime is stamped
// when the first poll of the connection returns, whether or not it
// delivered a request; a zero startTime reports zero elapsed time.
func (s *Server) logServingStats(message string, startTime time.Time) {
	var elapsed time.Duration
	if !startTime.IsZero() {
		elapsed = s.clock.Now().Sub(startTime)
	}
	s.logger.Info(message,
		"misses", s.missesReceived,
		"unique_misses", s.missesSent,
		"compressed_blocks", s.compressedBlocks,
		"uncompressed_blocks", s.uncompressedBlocks,
		"bytes_sent", s.batcher.sentBytes,
		"elapsed", elapsed,
	)
}
