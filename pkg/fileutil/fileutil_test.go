package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSearchPaths(t *testing.T) {
	tmpDir := t.TempDir()

	file1 := filepath.Join(tmpDir, "file1.yaml")
	file2 := filepath.Join(tmpDir, "file2.yaml")
	dir := filepath.Join(tmpDir, "dir.yaml")
	if err := os.WriteFile(file1, []byte("secret_key: x"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("Failed to create test dir: %v", err)
	}

	tests := []struct {
		name    string
		paths   []string
		want    string
		wantErr bool
	}{
		{
			"finds first existing file",
			[]string{file1, file2},
			file1,
			false,
		},
		{
			"skips missing files",
			[]string{file2, file1},
			file1,
			false,
		},
		{
			"skips directories",
			[]string{dir, file1},
			file1,
			false,
		},
		{
			"returns error when no files exist",
			[]string{file2, filepath.Join(tmpDir, "nonexistent.yaml")},
			"",
			true,
		},
		{
			"empty paths",
			[]string{},
			"",
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SearchPaths(tt.paths)
			if (err != nil) != tt.wantErr {
				t.Errorf("SearchPaths() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("SearchPaths() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultConfigPaths(t *testing.T) {
	paths := DefaultConfigPaths("netbox.yaml")

	if len(paths) != 3 {
		t.Errorf("DefaultConfigPaths() returned %d paths, want 3", len(paths))
	}

	for i, path := range paths {
		if !strings.HasSuffix(path, "netbox.yaml") {
			t.Errorf("DefaultConfigPaths()[%d] = %v, should end with 'netbox.yaml'", i, path)
		}
	}

	if !strings.HasPrefix(paths[2], "/etc/netboxdeploy") {
		t.Errorf("DefaultConfigPaths()[2] should start with /etc/netboxdeploy, got %v", paths[2])
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"existing file", testFile, true},
		{"directory", tmpDir, false},
		{"missing file", filepath.Join(tmpDir, "missing.txt"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileExists(tt.path); got != tt.want {
				t.Errorf("FileExists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "configuration.py")

	if err := WriteFileAtomic(path, []byte("DEBUG = False\n"), 0640); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	if string(got) != "DEBUG = False\n" {
		t.Errorf("WriteFileAtomic() wrote %q", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat written file: %v", err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("WriteFileAtomic() mode = %04o, want 0640", info.Mode().Perm())
	}

	// Overwrite with a stricter mode
	if err := WriteFileAtomic(path, []byte("DEBUG = True\n"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic() overwrite error = %v", err)
	}
	got, _ = os.ReadFile(path)
	if string(got) != "DEBUG = True\n" {
		t.Errorf("WriteFileAtomic() overwrite wrote %q", got)
	}
	info, _ = os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("WriteFileAtomic() overwrite mode = %04o, want 0600", info.Mode().Perm())
	}

	// No temp files left behind
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("WriteFileAtomic() left %d entries, want 1", len(entries))
	}
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "file")
	if err := WriteFileAtomic(path, []byte("x"), 0644); err == nil {
		t.Error("WriteFileAtomic() should fail when the parent directory is missing")
	}
}
