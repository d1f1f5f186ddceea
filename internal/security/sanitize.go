package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	systemNamePattern     = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)
	deploymentNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateSystemName ensures a user or group name is safe to hand to
// useradd/chown and to embed in unit files.
func ValidateSystemName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > 32 {
		return fmt.Errorf("name longer than 32 characters")
	}
	if !systemNamePattern.MatchString(name) {
		return fmt.Errorf("name %q contains invalid characters (only a-z, 0-9, _, - allowed, must not start with a digit or '-')", name)
	}
	return nil
}

// ValidateDeploymentName ensures a deployment name is safe to use in URLs
// and history records.
func ValidateDeploymentName(name string) error {
	if name == "" {
		return fmt.Errorf("deployment name cannot be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("deployment name longer than 64 characters")
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("deployment name cannot start with '-'")
	}
	if !deploymentNamePattern.MatchString(name) {
		return fmt.Errorf("deployment name contains invalid characters (only a-z, A-Z, 0-9, _, - allowed)")
	}
	return nil
}

// SanitizePathWithin prevents path traversal when writing below a root.
// It returns the cleaned joined path, or an error if rel escapes root.
func SanitizePathWithin(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root path: %w", err)
	}

	target := filepath.Join(absRoot, rel)

	relPath, err := filepath.Rel(absRoot, target)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: target '%s' is outside root '%s'", target, absRoot)
	}

	return target, nil
}

// SanitizePath ensures a path is absolute and doesn't contain traversal attempts.
func SanitizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("path must be absolute: %s", path)
	}

	// Check for .. before cleaning (filepath.Clean removes them)
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return "", fmt.Errorf("path contains traversal elements: %s", path)
		}
	}

	return filepath.Clean(path), nil
}
