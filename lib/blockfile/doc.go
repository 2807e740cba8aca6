// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package blockfile tracks per-file streaming state for the block
// delivery server.
//
// A [File] pairs a positional reader with a sent-block bitmap. Blocks
// are fixed 4096-byte windows indexed from zero; the final block of a
// file whose size is not a multiple of the block size is short. The
// bitmap and its cached cardinality are kept coherent through a single
// mutator, [File.MarkSent], so the two can never drift.
//
// The package owns no I/O policy beyond positional reads: compression,
// framing, and transmission order belong to the stream package.
package blockfile
