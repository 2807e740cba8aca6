// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte keyed BLAKE3 digest of a served file's content.
type Digest [32]byte

// fileDomainKey is the BLAKE3 key for file digests. Domain separation
// ensures the same bytes hashed in another context produce a different
// digest. The value is the ASCII domain name zero-padded to 32 bytes —
// readable in hex dumps without sacrificing any property of keyed mode.
var fileDomainKey = [32]byte{
	'b', 'l', 'o', 'c', 'k', 's', 'e', 'r', 'v', 'e', '.', 'f', 'i', 'l', 'e',
}

// HashFile computes the file-domain digest of the file at path. The
// content is streamed through the hasher so memory stays constant
// regardless of file size.
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher, err := blake3.NewKeyed(fileDomainKey[:])
	if err != nil {
		return Digest{}, fmt.Errorf("initializing hasher: %w", err)
	}
	if _, err := io.Copy(hasher, file); err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// FormatDigest returns the canonical hex encoding of a digest, the
// form used in manifests and log output.
func FormatDigest(digest Digest) string {
	return hex.EncodeToString(digest[:])
}

// ParseDigest parses the hex encoding of a digest. Returns an error
// if the string is not a 64-character hex encoding of 32 bytes.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}
