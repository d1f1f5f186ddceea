package install

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// ErrChecksumMismatch is returned when a file does not hash to the expected value.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// NewHash returns the hash for a download_checksum_type value.
func NewHash(checksumType string) (hash.Hash, error) {
	switch checksumType {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum type %q", checksumType)
	}
}

// VerifyChecksum hashes the file at path and compares it with expected
// (hex, case-insensitive).
func VerifyChecksum(path, checksumType, expected string) error {
	h, err := NewHash(checksumType)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	got := hex.EncodeToString(h.Sum(nil))
	if got != strings.ToLower(strings.TrimSpace(expected)) {
		return fmt.Errorf("%w: %s %s, expected %s", ErrChecksumMismatch, checksumType, got, expected)
	}
	return nil
}
