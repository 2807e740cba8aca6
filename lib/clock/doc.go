// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of calling
// time.Now directly. In production, Real() provides the standard library
// behavior. In tests, Fake() provides a deterministic clock that advances
// only when Advance is called.
//
// The interface is read-only: the server observes time (session start,
// elapsed serving duration) but never schedules against it. Socket read
// deadlines are transport-level and use the real wall clock directly,
// matching how connection handlers elsewhere treat deadlines as an I/O
// concern rather than program logic.
package clock
