// Package schema maps the flat editable field set onto the JSON shape of
// each content kind. Kinds are rows in a declarative table interpreted by a
// single generic mapper; adding a kind means adding a row.
package schema

import (
	"sort"
	"strings"

	"github.com/starford/sitedesk/internal/apperr"
)

// JSON keys shared by every kind.
const (
	KeyID          = "id"
	KeyTitle       = "title"
	KeyDate        = "date"
	KeyDescription = "description"
	KeyLyrics      = "lyrics"
	KeyLyricsFile  = "lyricsFile"
	KeyTracks      = "tracks"
	KeySetlist     = "setlist"
)

// Scalar is an optional field written when non-blank and removed otherwise.
// A List scalar is edited as a comma-separated string and stored as an
// array of strings.
type Scalar struct {
	Key  string
	List bool
	ptr  func(*Fields) *string
}

// Spec is the field rule set of one kind.
type Spec struct {
	Kind       string
	BodyKey    string
	CoverKey   string // empty when the kind has no cover
	CoverAlias string // read-only fallback for CoverKey
	Scalars    []Scalar
	Lyrics     bool // lyrics are side-stored and referenced by lyricsFile
	Tracks     bool
	Setlist    bool
	Strip      []string
}

// Get returns the field value backing the scalar.
func (sc Scalar) Get(f *Fields) string { return *sc.ptr(f) }

// Set stores v in the field backing the scalar.
func (sc Scalar) Set(f *Fields, v string) { *sc.ptr(f) = v }

var specs = []*Spec{
	{
		Kind:    "topics",
		BodyKey: "content",
		Strip:   []string{"cover", KeyLyrics, KeyDescription, "image", KeyLyricsFile},
	},
	{
		Kind:       "music",
		BodyKey:    KeyDescription,
		CoverKey:   "cover",
		CoverAlias: "image",
		Scalars: []Scalar{
			{Key: "duration", ptr: func(f *Fields) *string { return &f.Duration }},
			{Key: "credits", List: true, ptr: func(f *Fields) *string { return &f.Credits }},
			{Key: "albums", List: true, ptr: func(f *Fields) *string { return &f.Albums }},
			{Key: "audioFile", ptr: func(f *Fields) *string { return &f.AudioFile }},
		},
		Lyrics: true,
	},
	{
		Kind:    "movies",
		BodyKey: KeyDescription,
		Scalars: []Scalar{
			{Key: "service", ptr: func(f *Fields) *string { return &f.Service }},
			{Key: "uploader", ptr: func(f *Fields) *string { return &f.Uploader }},
			{Key: "video", ptr: func(f *Fields) *string { return &f.Video }},
			{Key: "musicID", ptr: func(f *Fields) *string { return &f.MusicID }},
		},
		Strip: []string{KeyLyrics, "cover"},
	},
	{
		Kind:       "discography",
		BodyKey:    KeyDescription,
		CoverKey:   "cover",
		CoverAlias: "image",
		Scalars: []Scalar{
			{Key: "artists", List: true, ptr: func(f *Fields) *string { return &f.Artists }},
		},
		Tracks: true,
	},
	{
		Kind:       "live",
		BodyKey:    "note",
		CoverKey:   "image",
		CoverAlias: "cover",
		Scalars: []Scalar{
			{Key: "venue", ptr: func(f *Fields) *string { return &f.Venue }},
		},
		Setlist: true,
		Strip:   []string{KeyLyrics},
	},
}

var aliases = map[string]string{
	"movie": "movies",
}

// Lookup returns the rule set for kind. Matching is case-insensitive and
// accepts legacy singular names.
func Lookup(kind string) (*Spec, error) {
	k := strings.ToLower(strings.TrimSpace(kind))
	if canonical, ok := aliases[k]; ok {
		k = canonical
	}
	for _, s := range specs {
		if s.Kind == k {
			return s, nil
		}
	}
	return nil, apperr.Validation("schema", "unknown kind %q", kind)
}

// Kinds lists the known kinds in table order.
func Kinds() []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Kind
	}
	return out
}

// Managed returns every key the mapper writes for this kind.
func (s *Spec) Managed() []string {
	keys := []string{KeyID, KeyTitle, KeyDate, s.BodyKey}
	if s.CoverKey != "" {
		keys = append(keys, s.CoverKey)
	}
	for _, sc := range s.Scalars {
		keys = append(keys, sc.Key)
	}
	if s.Lyrics {
		keys = append(keys, KeyLyricsFile, KeyLyrics)
	}
	if s.Tracks {
		keys = append(keys, KeyTracks)
	}
	if s.Setlist {
		keys = append(keys, KeySetlist)
	}
	return keys
}

// Reserved reports whether a raw overlay may not set key.
func (s *Spec) Reserved(key string) bool {
	for _, k := range s.Managed() {
		if k == key {
			return true
		}
	}
	for _, k := range s.Strip {
		if k == key {
			return true
		}
	}
	return false
}

// Contract is the public description of a kind's shape.
type Contract struct {
	Kind         string   `json:"kind"`
	BodyKey      string   `json:"body_key"`
	CoverKey     string   `json:"cover_key,omitempty"`
	CoverAlias   string   `json:"cover_alias,omitempty"`
	Fields       []string `json:"fields"`
	ListFields   []string `json:"list_fields,omitempty"`
	Nested       []string `json:"nested,omitempty"`
	Stripped     []string `json:"stripped,omitempty"`
	Reserved     []string `json:"reserved"`
	LyricsStored bool     `json:"lyrics_side_stored"`
}

// Contract describes the kind for API and tool clients.
func (s *Spec) Contract() Contract {
	c := Contract{
		Kind:         s.Kind,
		BodyKey:      s.BodyKey,
		CoverKey:     s.CoverKey,
		CoverAlias:   s.CoverAlias,
		Fields:       []string{KeyID, KeyTitle, KeyDate, s.BodyKey},
		Stripped:     append([]string(nil), s.Strip...),
		LyricsStored: s.Lyrics,
	}
	for _, sc := range s.Scalars {
		c.Fields = append(c.Fields, sc.Key)
		if sc.List {
			c.ListFields = append(c.ListFields, sc.Key)
		}
	}
	if s.CoverKey != "" {
		c.Fields = append(c.Fields, s.CoverKey)
	}
	if s.Tracks {
		c.Nested = append(c.Nested, KeyTracks)
	}
	if s.Setlist {
		c.Nested = append(c.Nested, KeySetlist)
	}
	seen := map[string]bool{}
	for _, k := range append(s.Managed(), s.Strip...) {
		if !seen[k] {
			seen[k] = true
			c.Reserved = append(c.Reserved, k)
		}
	}
	sort.Strings(c.Reserved)
	return c
}

// Contracts describes every kind in table order.
func Contracts() []Contract {
	out := make([]Contract, len(specs))
	for i, s := range specs {
		out[i] = s.Contract()
	}
	return out
}
