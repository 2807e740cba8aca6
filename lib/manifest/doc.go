// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest loads the served file set from a YAML manifest.
//
// The manifest is the launcher-facing alternative to positional file
// arguments: an operator-edited file naming each served path in table
// order, optionally pinned to a BLAKE3 content digest that is verified
// before serving starts. File ids on the wire are the entries'
// positions in the manifest, so the manifest order is part of the
// session contract with the device.
//
// There is one explicit manifest path and no discovery fallbacks.
// This ensures deterministic, auditable configuration with no hidden
// overrides.
package manifest
