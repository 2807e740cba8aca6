// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// TempFile writes data to a fresh file under t.TempDir and reopens it
// read-only, the way the launcher hands files to the server. The file
// is closed when the test completes.
func TempFile(t *testing.T, data []byte) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "served")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { file.Close() })
	return file
}

// Incompressible returns n bytes that LZ4 cannot usefully compress.
// Deterministic (fixed seed) so tests are reproducible.
func Incompressible(n int) []byte {
	generator := rand.New(rand.NewSource(0x494E4352))
	data := make([]byte, n)
	generator.Read(data)
	return data
}
