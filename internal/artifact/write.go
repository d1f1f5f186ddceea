package artifact

import (
	"fmt"
	"path/filepath"

	"netboxdeploy/internal/security"
	"netboxdeploy/pkg/fileutil"
)

// Write places every artifact below root, creating parent directories.
// Each file is replaced atomically with its own mode. It stops at the first
// failure and returns the paths written so far.
func Write(root string, set Set) ([]string, error) {
	written := make([]string, 0, len(set))
	for _, a := range set {
		target, err := security.SanitizePathWithin(root, a.Path)
		if err != nil {
			return written, fmt.Errorf("artifact %s: %w", a.Name, err)
		}

		if err := security.CreateSecureDir(filepath.Dir(target), security.PermDirectory); err != nil {
			return written, fmt.Errorf("artifact %s: %w", a.Name, err)
		}

		if err := fileutil.WriteFileAtomic(target, []byte(a.Content), a.Mode.Perm()); err != nil {
			return written, fmt.Errorf("artifact %s: %w", a.Name, err)
		}
		if err := security.EnsureSecurePermissions(target, a.Mode.Perm()); err != nil {
			return written, fmt.Errorf("artifact %s: %w", a.Name, err)
		}
		written = append(written, target)
	}
	return written, nil
}
