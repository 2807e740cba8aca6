// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Entry names one served file. Position in the manifest determines
// the wire file id.
type Entry struct {
	// Path is the filesystem path of the served file. Relative paths
	// resolve against the manifest's directory.
	Path string `yaml:"path"`

	// Digest, when set, is the hex-encoded keyed BLAKE3 digest the
	// file content must match at startup. Empty skips verification.
	Digest string `yaml:"blake3,omitempty"`
}

// Manifest is the served file set.
type Manifest struct {
	// Files lists the served files in file-id order.
	Files []Entry `yaml:"files"`
}

// Load reads and validates the manifest at path. Relative entry paths
// are resolved against the manifest's directory; digests are parsed
// but not verified — call [Entry.Verify] after opening each file.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if len(m.Files) == 0 {
		return nil, fmt.Errorf("manifest %s: no files listed", path)
	}

	base := filepath.Dir(path)
	for i := range m.Files {
		entry := &m.Files[i]
		if entry.Path == "" {
			return nil, fmt.Errorf("manifest %s: entry %d has no path", path, i)
		}
		if !filepath.IsAbs(entry.Path) {
			entry.Path = filepath.Join(base, entry.Path)
		}
		if entry.Digest != "" {
			if _, err := ParseDigest(entry.Digest); err != nil {
				return nil, fmt.Errorf("manifest %s: entry %d (%s): %w", path, i, entry.Path, err)
			}
		}
	}
	return &m, nil
}

// Verify checks the entry's file content against its pinned digest.
// A no-op for entries without one.
func (e *Entry) Verify() error {
	if e.Digest == "" {
		return nil
	}
	want, err := ParseDigest(e.Digest)
	if err != nil {
		return err
	}
	got, err := HashFile(e.Path)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("digest mismatch for %s: file is %s, manifest pins %s",
			e.Path, FormatDigest(got), e.Digest)
	}
	return nil
}
