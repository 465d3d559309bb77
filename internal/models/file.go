// Package models defines the plain data types shared across sitedesk packages.
package models

import "time"

// FileMetadata is a lightweight description of a file under the repo root.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CollectionEvent describes a change to a collection file.
type CollectionEvent struct {
	Op   string `json:"op"`   // created, updated, deleted
	Kind string `json:"kind"` // collection kind, e.g. "music"
}
