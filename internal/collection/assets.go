package collection

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/sitedesk/internal/apperr"
)

const (
	lyricsDir    = "lyrics"
	assetsPrefix = "assets/"
)

// ImportImage copies src into the images directory and returns its path
// relative to the repo root. Name collisions get "-1", "-2", ... before the
// extension; an existing file is never replaced.
func (s *Store) ImportImage(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", apperr.Validation("collection: import image", "source path is required")
	}
	in, err := os.Open(src)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrAssetIO, "collection: import image", err)
	}
	defer in.Close()
	if info, err := in.Stat(); err != nil || info.IsDir() {
		return "", apperr.Wrap(apperr.ErrAssetIO, "collection: import image", fmt.Errorf("not a regular file: %s", src))
	}

	name := filepath.Base(src)
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		base, ext = name[:i], name[i:]
	}

	dest := path.Join(s.imagesRel, name)
	for i := 1; ; i++ {
		err = s.fs.CreateNew(dest, in)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", apperr.Wrap(apperr.ErrAssetIO, "collection: import image", err)
		}
		dest = path.Join(s.imagesRel, fmt.Sprintf("%s-%d%s", base, i, ext))
	}

	s.logger.Info("image imported", slog.String("source", src), slog.String("path", dest))
	return dest, nil
}

func (s *Store) lyricsPath(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", apperr.Validation("collection: lyrics", "record id is required for a lyrics file")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", apperr.Validation("collection: lyrics", "record id %q cannot name a file", id)
	}
	return path.Join(s.dataRel, lyricsDir, id+".txt"), nil
}

// LyricsRef returns the reference SaveLyrics would return for id, without
// writing anything. References never carry the leading "assets/" segment
// even though the file lives under assets/data/lyrics.
func (s *Store) LyricsRef(id string) (string, error) {
	p, err := s.lyricsPath(id)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(p, assetsPrefix), nil
}

// SaveLyrics writes text to data/lyrics/<id>.txt, replacing any previous
// content, and returns the reference to store in the record.
func (s *Store) SaveLyrics(id, text string) (string, error) {
	p, err := s.lyricsPath(id)
	if err != nil {
		return "", err
	}
	if err := s.fs.Write(p, []byte(text)); err != nil {
		return "", apperr.Wrap(apperr.ErrAssetIO, "collection: save lyrics "+id, err)
	}
	return strings.TrimPrefix(p, assetsPrefix), nil
}

// RemoveLyrics deletes the lyrics file of id. A missing file is not an error.
func (s *Store) RemoveLyrics(id string) error {
	p, err := s.lyricsPath(id)
	if err != nil {
		return err
	}
	if err := s.fs.Delete(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Wrap(apperr.ErrAssetIO, "collection: remove lyrics "+id, err)
	}
	return nil
}

// ReadLyrics resolves ref against the repo root, then with an "assets/"
// prefix to undo the stripping done by SaveLyrics.
func (s *Store) ReadLyrics(ref string) (string, error) {
	ref = strings.TrimSpace(strings.ReplaceAll(ref, `\`, "/"))
	if ref == "" {
		return "", apperr.Wrap(apperr.ErrNotFound, "collection: read lyrics", nil)
	}
	for _, candidate := range []string{ref, assetsPrefix + ref} {
		if !s.fs.Exists(candidate) {
			continue
		}
		data, err := s.fs.Read(candidate)
		if err != nil {
			return "", apperr.Wrap(apperr.ErrAssetIO, "collection: read lyrics "+ref, err)
		}
		return string(data), nil
	}
	return "", apperr.Wrap(apperr.ErrNotFound, "collection: read lyrics "+ref, nil)
}
