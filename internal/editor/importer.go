package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/audiotag"
	"github.com/starford/sitedesk/internal/parser"
	"github.com/starford/sitedesk/internal/schema"
)

// ImportMarkdown creates a record from a Markdown document. Frontmatter keys
// fill the matching fields; unknown keys are merged as the raw overlay. The
// id comes from frontmatter, else a slug of the title, else a random UUID.
func (s *Service) ImportMarkdown(ctx context.Context, kind string, data []byte) (*RecordDetail, error) {
	spec, err := schema.Lookup(kind)
	if err != nil {
		return nil, err
	}
	doc, err := parser.Parse(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrValidation, "editor: import markdown", err)
	}

	f, raw, err := fieldsFromDocument(spec, doc)
	if err != nil {
		return nil, err
	}
	return s.SaveRecord(ctx, spec.Kind, SaveRequest{Fields: f, Raw: raw, IsNew: true})
}

func fieldsFromDocument(spec *schema.Spec, doc *parser.Document) (schema.Fields, string, error) {
	f := schema.Fields{
		ID:     doc.Text(schema.KeyID),
		Title:  doc.Title,
		Date:   doc.Text(schema.KeyDate),
		Body:   doc.Body,
		Lyrics: doc.Text(schema.KeyLyrics),
	}
	used := map[string]bool{
		schema.KeyID: true, schema.KeyTitle: true, schema.KeyDate: true, schema.KeyLyrics: true,
	}
	if spec.CoverKey != "" {
		for _, k := range []string{spec.CoverKey, spec.CoverAlias} {
			used[k] = true
			if f.Cover == "" {
				f.Cover = doc.Text(k)
			}
		}
	}
	for _, sc := range spec.Scalars {
		used[sc.Key] = true
		sc.Set(&f, doc.Text(sc.Key))
	}
	if spec.Tracks {
		used[schema.KeyTracks] = true
		for _, row := range doc.Rows(schema.KeyTracks) {
			no := row["track_no"]
			if no == "" {
				no = row["no"]
			}
			f.Tracks = append(f.Tracks, schema.Track{
				No:      no,
				Title:   row["title"],
				MusicID: row["musicID"],
				Author:  row["author"],
			})
		}
	}
	if spec.Setlist {
		used[schema.KeySetlist] = true
		for _, row := range doc.Rows(schema.KeySetlist) {
			f.Setlist = append(f.Setlist, schema.SetlistEntry{Title: row["title"], ID: row["id"]})
		}
	}

	if f.ID == "" {
		f.ID = Slug(f.Title)
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	extra := make(map[string]any)
	for _, k := range doc.Keys() {
		if !used[k] {
			extra[k] = doc.Frontmatter[k]
		}
	}
	if len(extra) == 0 {
		return f, "", nil
	}
	raw, err := json.Marshal(extra)
	if err != nil {
		return f, "", apperr.Validation("editor: import markdown", "frontmatter cannot be stored as JSON: %v", err)
	}
	return f, string(raw), nil
}

// Slug lowercases s, folds accents ("é" becomes "e") and keeps ASCII letters
// and digits, joining the runs with "-". Text without any such characters
// gives "".
func Slug(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// Suggestion is a pre-filled music record derived from an audio file.
type Suggestion struct {
	Fields schema.Fields  `json:"fields"`
	Tags   *audiotag.Info `json:"tags"`
}

// SuggestFromAudio reads the tags of an audio file and maps them onto music
// fields. Nothing is saved.
func (s *Service) SuggestFromAudio(_ context.Context, path string) (*Suggestion, error) {
	info, err := audiotag.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrAssetIO, "editor: probe audio", err)
	}

	var credits []string
	for _, name := range []string{info.Artist, info.Composer} {
		if name != "" && !containsFold(credits, name) {
			credits = append(credits, name)
		}
	}
	f := schema.Fields{
		ID:      Slug(info.Title),
		Title:   info.Title,
		Credits: strings.Join(credits, ", "),
		Albums:  info.Album,
		Lyrics:  info.Lyrics,
	}
	if info.Year > 0 {
		f.Date = fmt.Sprintf("%04d", info.Year)
	}
	if rel, ok := s.repoRelative(path); ok {
		f.AudioFile = rel
	}
	return &Suggestion{Fields: f, Tags: info}, nil
}

// repoRelative returns path relative to the repo root when it lies inside.
func (s *Service) repoRelative(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := s.store.Root().Rel(abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
