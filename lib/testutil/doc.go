// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for blockserve
// packages.
//
// [BufferConn] is an in-memory, deadline-capable connection double.
// Tests script a session by feeding the device's bytes in with
// [BufferConn.FeedInput], closing the inbound side with
// [BufferConn.CloseInput], and inspecting everything the server wrote
// with [BufferConn.Output]. Reads honor SetReadDeadline the way
// net.Conn does — an expired deadline fails the read with
// os.ErrDeadlineExceeded even when data is buffered — so the serving
// loop's poll behavior is exercised faithfully without real sockets.
//
// [SocketDir] creates a temporary directory in /tmp suitable for Unix
// domain sockets, which have a 108-byte path limit (sun_path in
// sockaddr_un) that deeply nested test temp directories can exceed.
//
// [TempFile] writes fixture content to disk and reopens it read-only,
// the way the launcher hands files to the server. [Incompressible]
// produces deterministic bytes that LZ4 cannot usefully compress, for
// tests that pin down the compression acceptance rule.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no blockserve-internal dependencies.
package testutil
