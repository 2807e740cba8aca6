// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package stream implements the host side of the incremental block
// delivery protocol: a device lazily mounts a set of files and pulls
// 4096-byte blocks on demand over a single bidirectional byte stream.
//
// The package is organized around the serving data flow:
//
//   - wire.go: wire format for requests, responses, and chunk framing
//   - reader.go: inbound demultiplexer (magic-delimited requests vs. log text)
//   - compress.go: per-block LZ4 with the never-inflate acceptance rule
//   - sender.go: block read / compress / encode pipeline
//   - batcher.go: outbound chunk coalescing
//   - prefetch.go: background full-file streaming with a per-pass budget
//   - server.go: the single-threaded serving loop
//
// The serving loop arbitrates between latency-critical miss responses
// and background prefetch: a miss is answered and flushed before the
// next request is read, a prefetch pass is bounded by a block budget,
// and the loop only blocks on the connection when no background work
// remains. Inbound bytes that are not protocol framing are the
// device's own log text and are forwarded verbatim to a separate sink.
package stream
