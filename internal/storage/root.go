package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Root is the resolved data layout. It is computed once at startup and not
// changed afterwards.
type Root struct {
	WorkDir   string // process working directory
	RepoRoot  string // parent of assets/, or WorkDir when nothing was found
	DataDir   string // <RepoRoot>/assets/data, or <WorkDir>/data
	ImagesDir string // <RepoRoot>/assets/images
	Detected  bool   // true when an assets/data directory was found
}

// Resolve walks upward from workDir looking for an assets/data directory.
// The first hit decides the layout; otherwise the local fallback under
// workDir is used. Both the data and images directories are created.
func Resolve(workDir string) (*Root, error) {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve work dir: %w", err)
	}

	root := &Root{WorkDir: abs}
	if dataDir, ok := findAssetsData(abs); ok {
		root.Detected = true
		root.DataDir = dataDir
		root.RepoRoot = filepath.Dir(filepath.Dir(dataDir))
		root.ImagesDir = filepath.Join(root.RepoRoot, "assets", "images")
	} else {
		root.RepoRoot = abs
		root.DataDir = filepath.Join(abs, "data")
		root.ImagesDir = filepath.Join(abs, "assets", "images")
	}

	if err := os.MkdirAll(root.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	if err := os.MkdirAll(root.ImagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create images dir: %w", err)
	}
	return root, nil
}

func findAssetsData(start string) (string, bool) {
	cur := start
	for {
		candidate := filepath.Join(cur, "assets", "data")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", false
		}
		cur = parent
	}
}

// Rel returns p relative to the repo root with forward slashes.
func (r *Root) Rel(p string) (string, error) {
	rel, err := filepath.Rel(r.RepoRoot, p)
	if err != nil {
		return "", fmt.Errorf("storage: relativize %s: %w", p, err)
	}
	return filepath.ToSlash(rel), nil
}
