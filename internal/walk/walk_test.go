package walk

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func relPaths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.RelativePath
	}
	sort.Strings(out)
	return out
}

func TestDirCollectsFilesAndSubdirs(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	if err := os.MkdirAll(filepath.Join(src, "nested"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "nested", "b.txt"), []byte("bb"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := Dir(src)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}

	got := relPaths(entries)
	want := []string{"src", "src/a.txt", "src/nested", "src/nested/b.txt"}
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestDirSkipsSymlinkCycle(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	loop := filepath.Join(src, "loop")
	if err := os.Symlink(src, loop); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	entries, err := Dir(src)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}

	for _, e := range entries {
		if e.RelativePath == "src/loop/loop" {
			t.Fatal("cycle guard failed to stop recursion into the symlinked ancestor")
		}
	}
}
