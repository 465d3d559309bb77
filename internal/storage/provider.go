// Package storage resolves the site data root and provides repo-rooted
// file access for collections and assets.
package storage

import (
	"io"

	"github.com/starford/sitedesk/internal/models"
)

// Provider is the interface for file operations relative to the repo root.
type Provider interface {
	// List returns metadata for every file under dir whose name ends in ext.
	// Subdirectories are not descended into.
	List(dir, ext string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// CreateNew writes r to path, failing with fs.ErrExist if it already exists.
	CreateNew(path string, r io.Reader) error
	// Delete removes the file at path.
	Delete(path string) error
}
