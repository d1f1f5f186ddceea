package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"netboxdeploy/internal/security"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff compares the set with the files currently below root and returns a
// unified diff. Missing files diff against empty content; mode changes are
// reported as a header line. An empty string means nothing would change.
func Diff(root string, set Set) (string, error) {
	var b strings.Builder
	for _, a := range set {
		target, err := security.SanitizePathWithin(root, a.Path)
		if err != nil {
			return "", fmt.Errorf("artifact %s: %w", a.Name, err)
		}

		current := ""
		fromFile := a.Path
		data, err := os.ReadFile(target)
		switch {
		case err == nil:
			current = string(data)
			if info, statErr := os.Stat(target); statErr == nil && info.Mode().Perm() != a.Mode.Perm() {
				fmt.Fprintf(&b, "mode %s: %04o -> %04o%s\n", a.Path, info.Mode().Perm(), a.Mode.Perm(),
					exposure(info.Mode().Perm(), a.Mode.Perm()))
			}
		case errors.Is(err, fs.ErrNotExist):
			fromFile = "/dev/null"
		default:
			return "", fmt.Errorf("artifact %s: %w", a.Name, err)
		}

		ud := difflib.UnifiedDiff{
			A:        difflib.SplitLines(current),
			B:        difflib.SplitLines(a.Content),
			FromFile: fromFile,
			ToFile:   a.Path,
			Context:  3,
		}
		diff, err := difflib.GetUnifiedDiffString(ud)
		if err != nil {
			return "", fmt.Errorf("artifact %s: %w", a.Name, err)
		}
		if diff == "" {
			continue
		}
		b.WriteString(diff)
		if !strings.HasSuffix(diff, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// exposure flags an on-disk mode that grants others more than the artifact.
func exposure(current, want os.FileMode) string {
	switch {
	case security.IsWorldWritable(current) && !security.IsWorldWritable(want):
		return " (world-writable)"
	case security.IsWorldReadable(current) && !security.IsWorldReadable(want):
		return " (world-readable)"
	}
	return ""
}
