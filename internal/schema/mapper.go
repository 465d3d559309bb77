package schema

import (
	"strconv"
	"strings"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/record"
)

// LyricsStore resolves lyrics references. *collection.Store satisfies it.
type LyricsStore interface {
	LyricsRef(id string) (string, error)
	ReadLyrics(ref string) (string, error)
}

// Mapper converts between records and Fields.
type Mapper struct {
	lyrics LyricsStore
}

// NewMapper returns a mapper. A nil store disables lyrics file loading on
// Populate; Serialize then cannot reference lyrics files.
func NewMapper(lyrics LyricsStore) *Mapper {
	return &Mapper{lyrics: lyrics}
}

// Populate builds the editable view of rec. A nil rec yields blank fields.
// Lyrics load failures fall back to the inline lyrics text.
func (m *Mapper) Populate(kind string, rec *record.Record) (Fields, error) {
	s, err := Lookup(kind)
	if err != nil {
		return Fields{}, err
	}
	var f Fields
	if rec == nil {
		return f, nil
	}

	f.ID = rec.Text(KeyID)
	f.Title = rec.Text(KeyTitle)
	f.Date = rec.Text(KeyDate)
	f.Body = rec.Text(s.BodyKey)
	if strings.TrimSpace(f.Body) == "" && s.BodyKey != KeyDescription {
		f.Body = rec.Text(KeyDescription)
	}

	if s.CoverKey != "" {
		f.Cover = rec.Text(s.CoverKey)
		if strings.TrimSpace(f.Cover) == "" && s.CoverAlias != "" {
			f.Cover = rec.Text(s.CoverAlias)
		}
	}

	for _, sc := range s.Scalars {
		v, ok := rec.Get(sc.Key)
		if !ok {
			continue
		}
		*sc.ptr(&f) = joinText(v)
	}

	f.Lyrics = m.loadLyrics(rec)

	if s.Tracks {
		for _, obj := range objectElems(rec, KeyTracks) {
			f.Tracks = append(f.Tracks, Track{
				No:      obj.Text("track_no"),
				Title:   obj.Text(KeyTitle),
				MusicID: obj.Text("musicID"),
				Author:  obj.Text("author"),
			})
		}
	}
	if s.Setlist {
		for _, obj := range objectElems(rec, KeySetlist) {
			f.Setlist = append(f.Setlist, SetlistEntry{
				Title: obj.Text(KeyTitle),
				ID:    obj.Text(KeyID),
			})
		}
	}
	return f, nil
}

func (m *Mapper) loadLyrics(rec *record.Record) string {
	inline := rec.Text(KeyLyrics)
	ref := strings.TrimSpace(rec.Text(KeyLyricsFile))
	if ref == "" || m.lyrics == nil {
		return inline
	}
	text, err := m.lyrics.ReadLyrics(ref)
	if err != nil {
		return inline
	}
	return text
}

// Serialize applies f onto a copy of base (nil for a new record) following
// the kind's rules, then merges the raw JSON overlay. Overlay keys the kind
// manages or strips are skipped; an overlay that is not a JSON object is
// ignored.
//
// Serialize does not write lyrics files. For music with non-blank lyrics it
// sets lyricsFile to the reference the lyrics store will use for f.ID; the
// caller persists the text.
func (m *Mapper) Serialize(kind string, base *record.Record, f Fields, raw string) (*record.Record, error) {
	s, err := Lookup(kind)
	if err != nil {
		return nil, err
	}

	var rec *record.Record
	if base != nil {
		rec = base.Clone()
	} else {
		rec = record.New()
	}

	rec.SetString(KeyID, strings.TrimSpace(f.ID))
	rec.SetString(KeyTitle, strings.TrimSpace(f.Title))
	rec.SetString(KeyDate, strings.TrimSpace(f.Date))
	rec.SetString(s.BodyKey, f.Body)

	for _, sc := range s.Scalars {
		text := strings.TrimSpace(*sc.ptr(&f))
		if sc.List {
			tokens := SplitList(text)
			if len(tokens) == 0 {
				rec.Delete(sc.Key)
				continue
			}
			rec.Set(sc.Key, record.StringsValue(tokens))
			continue
		}
		setOrDelete(rec, sc.Key, text)
	}

	if s.CoverKey != "" {
		setOrDelete(rec, s.CoverKey, strings.TrimSpace(f.Cover))
	}

	if s.Tracks {
		rec.Set(KeyTracks, tracksValue(f.Tracks))
	}
	if s.Setlist {
		rec.Set(KeySetlist, setlistValue(f.Setlist))
	}

	if s.Lyrics {
		if strings.TrimSpace(f.Lyrics) == "" {
			rec.Delete(KeyLyricsFile, KeyLyrics)
		} else {
			ref, err := m.lyricsRef(f.ID)
			if err != nil {
				return nil, err
			}
			rec.SetString(KeyLyricsFile, ref)
			rec.Delete(KeyLyrics)
		}
	}

	rec.Delete(s.Strip...)

	if overlay, ok := ParseOverlay(raw); ok {
		rec.Merge(overlay, s.Reserved)
	}
	return rec, nil
}

func (m *Mapper) lyricsRef(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", apperr.Validation("schema: lyrics", "an id is required to save lyrics")
	}
	if m.lyrics == nil {
		return "", apperr.Validation("schema: lyrics", "no lyrics store configured")
	}
	return m.lyrics.LyricsRef(strings.TrimSpace(id))
}

// ParseOverlay decodes a raw JSON overlay. Blank input and anything that is
// not a JSON object report false.
func ParseOverlay(raw string) (*record.Record, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	v, err := record.Parse([]byte(raw))
	if err != nil {
		return nil, false
	}
	obj, ok := v.Object()
	return obj, ok
}

// SplitList turns "a, b,,c " into ["a" "b" "c"].
func SplitList(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func setOrDelete(rec *record.Record, key, text string) {
	if text == "" {
		rec.Delete(key)
		return
	}
	rec.SetString(key, text)
}

// joinText renders arrays as ", "-joined element text and scalars as text.
func joinText(v record.Value) string {
	arr, ok := v.Array()
	if !ok {
		return v.Text()
	}
	parts := make([]string, 0, len(arr))
	for _, e := range arr {
		parts = append(parts, e.Text())
	}
	return strings.Join(parts, ", ")
}

func objectElems(rec *record.Record, key string) []*record.Record {
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	arr, ok := v.Array()
	if !ok {
		return nil
	}
	var out []*record.Record
	for _, e := range arr {
		if obj, ok := e.Object(); ok {
			out = append(out, obj)
		}
	}
	return out
}

func tracksValue(tracks []Track) record.Value {
	elems := make([]record.Value, 0, len(tracks))
	for _, t := range tracks {
		t = Track{
			No:      strings.TrimSpace(t.No),
			Title:   strings.TrimSpace(t.Title),
			MusicID: strings.TrimSpace(t.MusicID),
			Author:  strings.TrimSpace(t.Author),
		}
		if t == (Track{}) {
			continue
		}
		obj := record.New()
		if n, err := strconv.Atoi(t.No); err == nil {
			obj.Set("track_no", record.IntValue(n))
		} else {
			obj.SetString("track_no", t.No)
		}
		obj.SetString(KeyTitle, t.Title)
		setOrDelete(obj, "musicID", t.MusicID)
		setOrDelete(obj, "author", t.Author)
		elems = append(elems, record.ObjectValue(obj))
	}
	return record.ArrayValue(elems...)
}

func setlistValue(entries []SetlistEntry) record.Value {
	elems := make([]record.Value, 0, len(entries))
	for _, e := range entries {
		e = SetlistEntry{Title: strings.TrimSpace(e.Title), ID: strings.TrimSpace(e.ID)}
		if e == (SetlistEntry{}) {
			continue
		}
		obj := record.New()
		obj.SetString(KeyTitle, e.Title)
		setOrDelete(obj, KeyID, e.ID)
		elems = append(elems, record.ObjectValue(obj))
	}
	return record.ArrayValue(elems...)
}
