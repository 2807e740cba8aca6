// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import "github.com/bureau-foundation/blockserve/lib/blockfile"

// prefetchBudget caps how many blocks one prefetch pass actually sends.
// The pass runs between two reads of the connection, so the budget
// bounds how long an incoming miss can wait behind background work.
const prefetchBudget = 128

// readaheadBlocks is how many blocks past a served miss are queued for
// immediate prefetch. The device kernel often faults a larger window
// than one page; pushing the next few blocks saves the round trips.
const readaheadBlocks = 7

// prefetchState is a half-open range of blocks still to be streamed
// from one file. It borrows the file; the server's table owns it.
type prefetchState struct {
	file *blockfile.File

	// cursor is the next block index to attempt. Monotonically
	// non-decreasing.
	cursor int32

	// end is the exclusive upper bound, clamped to the file's block
	// count.
	end int32
}

// fullFilePrefetch covers every block of the file.
func fullFilePrefetch(file *blockfile.File) prefetchState {
	return prefetchState{file: file, end: file.BlockCount()}
}

// readaheadPrefetch covers count blocks starting at start, clamped to
// the end of the file.
func readaheadPrefetch(file *blockfile.File, start int32, count int32) prefetchState {
	return prefetchState{file: file, cursor: start, end: min(start+count, file.BlockCount())}
}

// done reports whether the range is drained.
func (p *prefetchState) done() bool { return p.cursor >= p.end }

// prefetchQueue is a FIFO of prefetch ranges. Full-file prefetches
// join at the back; miss readahead jumps the line at the front. No
// priority structure beyond that: the per-pass budget and the miss
// flush already bound latency.
type prefetchQueue struct {
	states []prefetchState
}

func (q *prefetchQueue) empty() bool { return len(q.states) == 0 }

func (q *prefetchQueue) pushBack(state prefetchState) {
	q.states = append(q.states, state)
}

func (q *prefetchQueue) pushFront(state prefetchState) {
	q.states = append([]prefetchState{state}, q.states...)
}

// front returns the head state for in-place cursor advancement.
func (q *prefetchQueue) front() *prefetchState { return &q.states[0] }

func (q *prefetchQueue) popFront() {
	q.states = q.states[1:]
}

// runPrefetching drains queued prefetch ranges, sending up to
// prefetchBudget blocks. Skipped blocks (already sent) do not consume
// budget; send errors are logged by the sender and do not stop the
// pass. A head state left unfinished by the budget stays at the front
// for the next pass.
func (s *Server) runPrefetching() {
	blocksToSend := prefetchBudget
	for !s.prefetches.empty() && blocksToSend > 0 {
		prefetch := s.prefetches.front()
		file := prefetch.file
		for ; blocksToSend > 0 && prefetch.cursor < prefetch.end; prefetch.cursor++ {
			switch s.sendBlock(file, prefetch.cursor, false) {
			case sendSent:
				blocksToSend--
			case sendError:
				s.logger.Error("prefetch block send failed", "path", file.Path, "block_idx", prefetch.cursor)
			}
		}
		if prefetch.done() {
			s.prefetches.popFront()
		}
	}
}
