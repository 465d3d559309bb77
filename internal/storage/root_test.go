package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve_FindsAssetsDataUpwards(t *testing.T) {
	repo := t.TempDir()
	if err := os.MkdirAll(filepath.Join(repo, "assets", "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	work := filepath.Join(repo, "tools", "editor")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatal(err)
	}

	root, err := Resolve(work)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !root.Detected {
		t.Error("expected detected layout")
	}
	if root.RepoRoot != repo {
		t.Errorf("RepoRoot = %s, want %s", root.RepoRoot, repo)
	}
	if root.DataDir != filepath.Join(repo, "assets", "data") {
		t.Errorf("DataDir = %s", root.DataDir)
	}
	if info, err := os.Stat(filepath.Join(repo, "assets", "images")); err != nil || !info.IsDir() {
		t.Errorf("images dir not created: %v", err)
	}
}

func TestResolve_NearestWins(t *testing.T) {
	outer := t.TempDir()
	inner := filepath.Join(outer, "site")
	for _, d := range []string{
		filepath.Join(outer, "assets", "data"),
		filepath.Join(inner, "assets", "data"),
	} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	root, err := Resolve(inner)
	if err != nil {
		t.Fatal(err)
	}
	if root.RepoRoot != inner {
		t.Errorf("RepoRoot = %s, want %s", root.RepoRoot, inner)
	}
}

func TestResolve_Fallback(t *testing.T) {
	work := t.TempDir()
	root, err := Resolve(work)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// A stray assets/data in a parent of the temp dir would be picked up;
	// only assert the fallback shape when nothing was detected.
	if root.Detected {
		t.Skipf("assets/data found above %s", work)
	}
	if root.RepoRoot != work {
		t.Errorf("RepoRoot = %s", root.RepoRoot)
	}
	if root.DataDir != filepath.Join(work, "data") {
		t.Errorf("DataDir = %s", root.DataDir)
	}
	if root.ImagesDir != filepath.Join(work, "assets", "images") {
		t.Errorf("ImagesDir = %s", root.ImagesDir)
	}
	for _, d := range []string{root.DataDir, root.ImagesDir} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			t.Errorf("%s not created", d)
		}
	}
}

func TestRoot_Rel(t *testing.T) {
	root := &Root{RepoRoot: filepath.FromSlash("/repo")}
	got, err := root.Rel(filepath.FromSlash("/repo/assets/images/a.png"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "assets/images/a.png" {
		t.Errorf("got %q", got)
	}
}
