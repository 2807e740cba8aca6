// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/bureau-foundation/blockserve/lib/blockfile"
	"github.com/bureau-foundation/blockserve/lib/testutil"
)

// newPrefetchServer builds a server over in-memory files sized in
// blocks, with the connection and log sink discarded.
func newPrefetchServer(t *testing.T, blockCounts ...int32) *Server {
	t.Helper()
	var files []*blockfile.File
	for i, blocks := range blockCounts {
		size := int64(blocks) * BlockSize
		file, err := blockfile.New(int16(i), "mem", size, bytes.NewReader(make([]byte, size)), nil)
		if err != nil {
			t.Fatalf("blockfile.New: %v", err)
		}
		files = append(files, file)
	}
	return New(testutil.NewBufferConn(), io.Discard, files, Options{Logger: testLogger()})
}

func TestPrefetchPassRespectsBudget(t *testing.T) {
	t.Parallel()
	server := newPrefetchServer(t, 200)
	server.prefetches.pushBack(fullFilePrefetch(server.files[0]))

	server.runPrefetching()
	if got := server.files[0].SentCount(); got != prefetchBudget {
		t.Fatalf("after one pass: sent %d blocks, want budget %d", got, prefetchBudget)
	}
	if server.prefetches.empty() {
		t.Fatalf("unfinished prefetch discarded from the queue")
	}
	if got := server.prefetches.front().cursor; got != prefetchBudget {
		t.Fatalf("cursor after one pass: got %d, want %d", got, prefetchBudget)
	}

	server.runPrefetching()
	if got := server.files[0].SentCount(); got != 200 {
		t.Fatalf("after two passes: sent %d blocks, want 200", got)
	}
	if !server.prefetches.empty() {
		t.Fatalf("drained prefetch still queued")
	}
}

func TestPrefetchSkippedBlocksDoNotConsumeBudget(t *testing.T) {
	t.Parallel()
	server := newPrefetchServer(t, 150)
	file := server.files[0]

	// Pre-mark the first 100 blocks sent: the pass must still deliver
	// the full budget from the remaining 50... which is all of them.
	for i := int32(0); i < 100; i++ {
		file.MarkSent(i)
	}
	server.prefetches.pushBack(fullFilePrefetch(file))

	server.runPrefetching()
	if got := file.SentCount(); got != 150 {
		t.Fatalf("sent count: got %d, want 150 (skips must not eat the budget)", got)
	}
	if !server.prefetches.empty() {
		t.Fatalf("drained prefetch still queued")
	}
}

func TestPrefetchQueueOrdering(t *testing.T) {
	t.Parallel()
	server := newPrefetchServer(t, 1, 1, 1)

	server.prefetches.pushBack(fullFilePrefetch(server.files[0]))
	server.prefetches.pushBack(fullFilePrefetch(server.files[1]))
	// A miss readahead jumps the line.
	server.prefetches.pushFront(fullFilePrefetch(server.files[2]))

	wantOrder := []int16{2, 0, 1}
	for _, want := range wantOrder {
		if got := server.prefetches.front().file.ID; got != want {
			t.Fatalf("queue head: got file %d, want %d", got, want)
		}
		server.prefetches.popFront()
	}
	if !server.prefetches.empty() {
		t.Fatalf("queue not empty after draining")
	}
}

func TestReadaheadPrefetchClampsToFileEnd(t *testing.T) {
	t.Parallel()
	file, err := blockfile.New(0, "mem", 4*BlockSize, bytes.NewReader(make([]byte, 4*BlockSize)), nil)
	if err != nil {
		t.Fatalf("blockfile.New: %v", err)
	}

	state := readaheadPrefetch(file, 2, readaheadBlocks)
	if state.cursor != 2 || state.end != 4 {
		t.Fatalf("readahead range: got [%d, %d), want [2, 4)", state.cursor, state.end)
	}

	past := readaheadPrefetch(file, 4, readaheadBlocks)
	if !past.done() {
		t.Fatalf("readahead starting at file end should be immediately done")
	}
}

func TestPrefetchEmptyFileDrainsImmediately(t *testing.T) {
	t.Parallel()
	server := newPrefetchServer(t, 0)
	server.prefetches.pushBack(fullFilePrefetch(server.files[0]))

	server.runPrefetching()
	if !server.prefetches.empty() {
		t.Fatalf("empty-file prefetch not discarded")
	}
	if got := server.files[0].SentCount(); got != 0 {
		t.Fatalf("empty file sent %d blocks", got)
	}
}
