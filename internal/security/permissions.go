package security

import (
	"fmt"
	"os"
)

const (
	// PermSecretFile is for artifacts holding credentials only the service reads.
	// rw------- (0600)
	PermSecretFile os.FileMode = 0600

	// PermConfigFile is for configuration files read by the service group.
	// rw-r----- (0640)
	PermConfigFile os.FileMode = 0640

	// PermPublicFile is for files that can be read by anyone.
	// rw-r--r-- (0644)
	PermPublicFile os.FileMode = 0644

	// PermExecutable is for generated scripts.
	// rwxr-x--- (0750)
	PermExecutable os.FileMode = 0750

	// PermDirectory is for directories created while writing artifacts.
	// rwxr-x--- (0750)
	PermDirectory os.FileMode = 0750
)

// CreateSecureDir creates a directory with the given permissions.
// If the directory already exists, it updates the permissions.
func CreateSecureDir(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("failed to create secure directory: %w", err)
	}

	// MkdirAll is subject to umask
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("failed to set directory permissions: %w", err)
	}

	return nil
}

// EnsureSecurePermissions checks that a file is not more permissive than expected.
func EnsureSecurePermissions(path string, expectedPerm os.FileMode) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	actualPerm := info.Mode().Perm()
	if actualPerm&^expectedPerm != 0 {
		return fmt.Errorf("file %s has too permissive permissions: %04o (expected: %04o)",
			path, actualPerm, expectedPerm)
	}

	return nil
}

// IsWorldReadable reports whether perm grants read access to others.
func IsWorldReadable(perm os.FileMode) bool {
	return perm&0004 != 0
}

// IsWorldWritable reports whether perm grants write access to others.
func IsWorldWritable(perm os.FileMode) bool {
	return perm&0002 != 0
}
