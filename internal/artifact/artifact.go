// Package artifact holds rendered deployment files and the operations that
// hand them to the host: writing them below a root and diffing them against
// what is already there.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// Artifact is one rendered file.
type Artifact struct {
	// Name identifies the concern, e.g. "database" or "redis.caching".
	Name string
	// Path is the absolute path on the target host.
	Path    string
	Mode    os.FileMode
	Content string
}

// Set is an ordered collection of artifacts. Order is part of the output.
type Set []Artifact

// Get returns the artifact with the given name.
func (s Set) Get(name string) (Artifact, bool) {
	for _, a := range s {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

// Names returns the artifact names in order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, a := range s {
		names[i] = a.Name
	}
	return names
}

// Digest is a sha256 over names, paths, modes and contents.
// Identical sets always produce the same digest.
func (s Set) Digest() string {
	h := sha256.New()
	for _, a := range s {
		fmt.Fprintf(h, "%s\x00%s\x00%04o\x00%d\x00", a.Name, a.Path, a.Mode.Perm(), len(a.Content))
		h.Write([]byte(a.Content))
	}
	return hex.EncodeToString(h.Sum(nil))
}
