package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"data/pair01/frame_001.png", "frame_001"},
		{"frame.tar.gz", "frame.tar"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := BaseName(tt.path); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMirrorTree(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	write(t, filepath.Join(src, "pair01", "frame_001.png"), "v1")
	write(t, filepath.Join(src, "pair01", "frame_002.png"), "v1")

	if err := MirrorTree(src, dst); err != nil {
		t.Fatalf("MirrorTree() error = %v", err)
	}
	if !FileExists(filepath.Join(dst, "pair01", "frame_001.png")) {
		t.Fatal("file not mirrored")
	}

	// Existing destination files are left alone on a second pass.
	write(t, filepath.Join(dst, "pair01", "frame_001.png"), "edited")
	write(t, filepath.Join(src, "pair01", "frame_003.png"), "v1")
	if err := MirrorTree(src, dst); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dst, "pair01", "frame_001.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "edited" {
		t.Error("mirror overwrote an existing destination file")
	}
	if !FileExists(filepath.Join(dst, "pair01", "frame_003.png")) {
		t.Error("new file not mirrored on second pass")
	}
}

func TestRemoveEmptyDirs(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0o755); err != nil {
		t.Fatal(err)
	}
	write(t, filepath.Join(root, "keep", "frame.png"), "x")

	if err := RemoveEmptyDirs(root); err != nil {
		t.Fatalf("RemoveEmptyDirs() error = %v", err)
	}

	if DirExists(filepath.Join(root, "a")) {
		t.Error("empty directory chain not pruned")
	}
	if !DirExists(filepath.Join(root, "keep")) {
		t.Error("non-empty directory removed")
	}
	if !DirExists(root) {
		t.Error("root removed")
	}
}
