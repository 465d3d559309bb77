// Package audiotag reads the embedded tags of audio files (ID3, MP4, FLAC,
// Ogg) to pre-fill music records.
package audiotag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Info is the subset of tag metadata the editor uses.
type Info struct {
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
	Composer string `json:"composer,omitempty"`
	Album    string `json:"album,omitempty"`
	Year     int    `json:"year,omitempty"`
	Track    int    `json:"track,omitempty"`
	Lyrics   string `json:"lyrics,omitempty"`
	Format   string `json:"format,omitempty"`
	// Tagged is false when no readable tags were found and Title came from
	// the file name.
	Tagged bool `json:"tagged"`
}

// Read parses the tags in r.
func Read(r io.ReadSeeker) (*Info, error) {
	m, err := tag.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("audiotag: %w", err)
	}
	track, _ := m.Track()
	return &Info{
		Title:    strings.TrimSpace(m.Title()),
		Artist:   strings.TrimSpace(m.Artist()),
		Composer: strings.TrimSpace(m.Composer()),
		Album:    strings.TrimSpace(m.Album()),
		Year:     m.Year(),
		Track:    track,
		Lyrics:   m.Lyrics(),
		Format:   string(m.FileType()),
		Tagged:   true,
	}, nil
}

// ReadFile reads the tags of the file at path. Files without readable tags
// yield an untagged Info titled after the file stem; only a file that
// cannot be opened is an error.
func ReadFile(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audiotag: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := Read(f)
	if err != nil {
		return &Info{Title: Stem(path)}, nil
	}
	if info.Title == "" {
		info.Title = Stem(path)
	}
	return info, nil
}

// Stem returns the file name without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
