// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "serve.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeManifest(t, dir, "files:\n  - path: base.apk\n  - path: /abs/other.apk\n")

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Files) != 2 {
		t.Fatalf("Files: got %d entries, want 2", len(m.Files))
	}
	if want := filepath.Join(dir, "base.apk"); m.Files[0].Path != want {
		t.Errorf("entry 0 path: got %q, want %q", m.Files[0].Path, want)
	}
	if m.Files[1].Path != "/abs/other.apk" {
		t.Errorf("entry 1 path: got %q, want unchanged absolute", m.Files[1].Path)
	}
}

func TestLoadRejectsEmptyAndMalformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{"no files", "files: []\n"},
		{"missing path", "files:\n  - blake3: abc\n"},
		{"bad digest", "files:\n  - path: x\n    blake3: nothex\n"},
		{"short digest", "files:\n  - path: x\n    blake3: abcd\n"},
		{"not yaml", "files: [unclosed\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test := test
			t.Parallel()
			path := writeManifest(t, t.TempDir(), test.content)
			if _, err := Load(path); err == nil {
				t.Fatalf("Load accepted %q", test.content)
			}
		})
	}
}

func TestVerifyDigest(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	served := filepath.Join(dir, "payload")
	if err := os.WriteFile(served, []byte("block content"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	digest, err := HashFile(served)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}

	good := Entry{Path: served, Digest: FormatDigest(digest)}
	if err := good.Verify(); err != nil {
		t.Fatalf("Verify with matching digest: %v", err)
	}

	var wrong Digest
	wrong[0] = ^digest[0]
	bad := Entry{Path: served, Digest: FormatDigest(wrong)}
	err = bad.Verify()
	if err == nil {
		t.Fatalf("Verify with wrong digest: expected error")
	}
	if !strings.Contains(err.Error(), "digest mismatch") {
		t.Errorf("error %q does not name the mismatch", err)
	}

	unpinned := Entry{Path: served}
	if err := unpinned.Verify(); err != nil {
		t.Fatalf("Verify without digest: %v", err)
	}
}

func TestDigestRoundTrip(t *testing.T) {
	t.Parallel()
	var digest Digest
	for i := range digest {
		digest[i] = byte(i * 7)
	}
	parsed, err := ParseDigest(FormatDigest(digest))
	if err != nil {
		t.Fatalf("ParseDigest: %v", err)
	}
	if parsed != digest {
		t.Fatalf("round trip changed digest: %x != %x", parsed, digest)
	}
}
