package userhome

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAbsolutePathUnchanged(t *testing.T) {
	home, err := homeDir("")
	if err != nil {
		t.Skipf("no resolvable home directory in this environment: %v", err)
	}
	_ = home

	got, err := Resolve("/already/absolute/path", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "/already/absolute/path" {
		t.Errorf("got %q, want unchanged absolute path", got)
	}
}

func TestResolveTildeAndRelative(t *testing.T) {
	home, err := homeDir("")
	if err != nil {
		t.Skipf("no resolvable home directory in this environment: %v", err)
	}
	if fi, err := os.Stat(home); err != nil || !fi.IsDir() {
		t.Skipf("home directory %q not usable in this environment", home)
	}

	got, err := Resolve("~/reports/q3.dat", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(home, "reports/q3.dat")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got, err = Resolve("reports/q3.dat", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != want {
		t.Errorf("bare relative path: got %q, want %q", got, want)
	}
}

func TestResolveUnknownUserFails(t *testing.T) {
	if _, err := Resolve("reports/q3.dat", "definitely-not-a-real-xcp-test-user"); err == nil {
		t.Fatal("expected an error resolving an unknown user's home directory")
	}
}
