// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// blockserve streams file blocks to a device over one connection.
//
// The binary is a thin launcher around the stream package: it opens
// the served files (positional arguments, or a YAML manifest with
// optional BLAKE3 content pinning via --manifest), establishes the
// connection (--listen accepts one peer, --connect dials out), opens
// the log sink that receives the device's interleaved text
// (--log-output, default stderr), and hands all three to the server.
//
// File ids on the wire are argument positions (or manifest order), so
// the device and the operator must agree on the file list ordering.
//
// Exit status is 0 on any orderly shutdown — device destroy, transport
// EOF, or post-completion idle timeout — and 1 on setup or handshake
// failure.
package main
