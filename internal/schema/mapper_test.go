package schema

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/record"
)

type memLyrics map[string]string

func (m memLyrics) LyricsRef(id string) (string, error) {
	return "data/lyrics/" + id + ".txt", nil
}

func (m memLyrics) ReadLyrics(ref string) (string, error) {
	text, ok := m[ref]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return text, nil
}

func rec(t *testing.T, js string) *record.Record {
	t.Helper()
	r, err := record.FromJSON([]byte(js))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestLookup(t *testing.T) {
	for _, k := range []string{"music", "Music", " live ", "movie", "movies"} {
		if _, err := Lookup(k); err != nil {
			t.Errorf("Lookup(%q): %v", k, err)
		}
	}
	if s, _ := Lookup("movie"); s.Kind != "movies" {
		t.Errorf("alias resolved to %q", s.Kind)
	}
	if _, err := Lookup("podcasts"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v", err)
	}
	want := []string{"topics", "music", "movies", "discography", "live"}
	if got := Kinds(); !reflect.DeepEqual(got, want) {
		t.Errorf("Kinds = %v", got)
	}
}

func TestPopulate_Nil(t *testing.T) {
	m := NewMapper(nil)
	f, err := m.Populate("music", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(f, Fields{}) {
		t.Errorf("fields = %+v", f)
	}
}

func TestPopulate_BodyFallback(t *testing.T) {
	m := NewMapper(nil)
	f, _ := m.Populate("live", rec(t, `{"id":"l1","description":"old text"}`))
	if f.Body != "old text" {
		t.Errorf("live body = %q", f.Body)
	}
	f, _ = m.Populate("live", rec(t, `{"id":"l1","note":"n","description":"d"}`))
	if f.Body != "n" {
		t.Errorf("live body = %q", f.Body)
	}
	f, _ = m.Populate("topics", rec(t, `{"id":"t","content":"","description":"d"}`))
	if f.Body != "d" {
		t.Errorf("topics body = %q", f.Body)
	}
}

func TestPopulate_CoverAlias(t *testing.T) {
	m := NewMapper(nil)
	f, _ := m.Populate("music", rec(t, `{"id":"m","cover":"","image":"assets/images/a.png"}`))
	if f.Cover != "assets/images/a.png" {
		t.Errorf("music cover = %q", f.Cover)
	}
	f, _ = m.Populate("live", rec(t, `{"id":"l","cover":"assets/images/c.png"}`))
	if f.Cover != "assets/images/c.png" {
		t.Errorf("live cover = %q", f.Cover)
	}
	f, _ = m.Populate("topics", rec(t, `{"id":"t","cover":"x.png"}`))
	if f.Cover != "" {
		t.Errorf("topics has no cover, got %q", f.Cover)
	}
}

func TestPopulate_ListsAndNested(t *testing.T) {
	m := NewMapper(nil)
	f, _ := m.Populate("music", rec(t, `{"id":"m","credits":["A","B",3],"albums":"Single","duration":215}`))
	if f.Credits != "A, B, 3" || f.Albums != "Single" || f.Duration != "215" {
		t.Errorf("fields = %+v", f)
	}

	f, _ = m.Populate("discography", rec(t, `{"id":"d","artists":["X"],"tracks":[
		{"track_no":1,"title":"One","musicID":"m1"},
		"junk",
		{"track_no":"Ex","title":"Extra","author":"Y"}]}`))
	want := []Track{{No: "1", Title: "One", MusicID: "m1"}, {No: "Ex", Title: "Extra", Author: "Y"}}
	if !reflect.DeepEqual(f.Tracks, want) {
		t.Errorf("tracks = %+v", f.Tracks)
	}
	if f.Artists != "X" {
		t.Errorf("artists = %q", f.Artists)
	}

	f, _ = m.Populate("live", rec(t, `{"id":"l","venue":"Hall","setlist":[{"title":"S1","id":"m1"},{"title":"S2"},null]}`))
	if f.Venue != "Hall" || len(f.Setlist) != 2 || f.Setlist[1].ID != "" {
		t.Errorf("fields = %+v", f)
	}
}

func TestPopulate_Lyrics(t *testing.T) {
	m := NewMapper(memLyrics{"data/lyrics/m.txt": "from file"})
	f, _ := m.Populate("music", rec(t, `{"id":"m","lyricsFile":"data/lyrics/m.txt","lyrics":"inline"}`))
	if f.Lyrics != "from file" {
		t.Errorf("lyrics = %q", f.Lyrics)
	}
	f, _ = m.Populate("music", rec(t, `{"id":"m","lyricsFile":"data/lyrics/gone.txt","lyrics":"inline"}`))
	if f.Lyrics != "inline" {
		t.Errorf("load failure must fall back to inline, got %q", f.Lyrics)
	}
	f, _ = m.Populate("music", rec(t, `{"id":"m","lyricsFile":"  ","lyrics":"inline"}`))
	if f.Lyrics != "inline" {
		t.Errorf("lyrics = %q", f.Lyrics)
	}
}

func TestSerialize_TopicsIsolation(t *testing.T) {
	m := NewMapper(memLyrics{})
	base := rec(t, `{"id":"t","cover":"c","lyrics":"l","image":"i","lyricsFile":"f","description":"d","tags":["keep"]}`)
	out, err := m.Serialize("topics", base, Fields{ID: "t", Title: "T", Date: "2024", Body: "hello", Cover: "x", Lyrics: "y"},
		`{"cover":"sneak","image":"sneak","extra":1}`)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"cover", "lyrics", "image", "lyricsFile", "description"} {
		if out.Has(k) {
			t.Errorf("topics record contains %q", k)
		}
	}
	if out.Text("content") != "hello" || !out.Has("tags") || out.Text("extra") != "1" {
		t.Errorf("record = %s", mustJSON(t, out))
	}
}

func TestSerialize_MusicLyrics(t *testing.T) {
	m := NewMapper(memLyrics{})
	base := rec(t, `{"id":"m","lyrics":"old inline"}`)
	out, err := m.Serialize("music", base, Fields{ID: "m", Lyrics: "la la"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if out.Has("lyrics") {
		t.Error("inline lyrics must be removed")
	}
	if out.Text("lyricsFile") != "data/lyrics/m.txt" {
		t.Errorf("lyricsFile = %q", out.Text("lyricsFile"))
	}

	out, _ = m.Serialize("music", out, Fields{ID: "m", Lyrics: "  "}, `{"lyrics":"x","lyricsFile":"y"}`)
	if out.Has("lyrics") || out.Has("lyricsFile") {
		t.Errorf("blank lyrics must remove both keys: %s", mustJSON(t, out))
	}

	if _, err := m.Serialize("music", nil, Fields{Lyrics: "text"}, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestSerialize_ScalarsAndLists(t *testing.T) {
	m := NewMapper(memLyrics{})
	base := rec(t, `{"id":"m","duration":"3:00","audioFile":"a.mp3","cover":"c.png"}`)
	out, err := m.Serialize("music", base, Fields{
		ID:       "m",
		Title:    "  Song ",
		Credits:  " A , ,B,",
		Albums:   " , ",
		Duration: "4:00",
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if out.Text("title") != "Song" || out.Text("duration") != "4:00" {
		t.Errorf("record = %s", mustJSON(t, out))
	}
	if out.Has("audioFile") || out.Has("cover") || out.Has("albums") {
		t.Errorf("blank optional fields must be removed: %s", mustJSON(t, out))
	}
	credits, _ := out.Get("credits")
	arr, _ := credits.Array()
	if len(arr) != 2 || arr[0].Text() != "A" || arr[1].Text() != "B" {
		t.Errorf("credits = %s", mustJSON(t, out))
	}
}

func TestSerialize_Tracks(t *testing.T) {
	m := NewMapper(nil)
	base := rec(t, `{"id":"d","tracks":[{"track_no":9,"title":"Old"}]}`)
	out, err := m.Serialize("discography", base, Fields{ID: "d", Tracks: []Track{
		{No: "1", Title: "One", MusicID: "m1"},
		{},
		{No: " ", Title: "  ", MusicID: "\t"},
		{No: "Ex", Title: "Extra", Author: "Y"},
	}}, "")
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"track_no":1,"title":"One","musicID":"m1"},{"track_no":"Ex","title":"Extra","author":"Y"}]`
	v, _ := out.Get("tracks")
	got, _ := v.MarshalJSON()
	if string(got) != want {
		t.Errorf("tracks = %s\nwant %s", got, want)
	}
}

func TestSerialize_LiveSetlistAndCover(t *testing.T) {
	m := NewMapper(nil)
	out, err := m.Serialize("live", rec(t, `{"id":"l","lyrics":"x"}`), Fields{
		ID:      "l",
		Body:    "memo",
		Cover:   "assets/images/p.jpg",
		Setlist: []SetlistEntry{{Title: "S1", ID: "m1"}, {Title: "  ", ID: " "}, {Title: "S2"}},
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if out.Text("note") != "memo" || out.Text("image") != "assets/images/p.jpg" || out.Has("lyrics") {
		t.Errorf("record = %s", mustJSON(t, out))
	}
	v, _ := out.Get("setlist")
	got, _ := v.MarshalJSON()
	if string(got) != `[{"title":"S1","id":"m1"},{"title":"S2"}]` {
		t.Errorf("setlist = %s", got)
	}
}

func TestSerialize_OverlayNeverTouchesReservedKeys(t *testing.T) {
	m := NewMapper(nil)
	for _, kind := range Kinds() {
		t.Run(kind, func(t *testing.T) {
			s, _ := Lookup(kind)
			overlay := record.New()
			for _, k := range append(s.Managed(), s.Strip...) {
				overlay.SetString(k, "overlay")
			}
			overlay.SetString("free", "ok")
			raw, _ := overlay.MarshalJSON()

			out, err := m.Serialize(kind, nil, Fields{ID: "x"}, string(raw))
			if err != nil {
				t.Fatal(err)
			}
			out.Range(func(k string, v record.Value) bool {
				if k != "free" && v.Text() == "overlay" {
					t.Errorf("overlay set reserved key %q", k)
				}
				return true
			})
			if out.Text("free") != "ok" {
				t.Error("free overlay key missing")
			}
		})
	}
}

func TestSerialize_MalformedOverlayIgnored(t *testing.T) {
	m := NewMapper(nil)
	for _, raw := range []string{"{not json", "[1,2]", `"str"`, ""} {
		out, err := m.Serialize("movies", nil, Fields{ID: "v", Title: "V"}, raw)
		if err != nil {
			t.Fatalf("raw %q: %v", raw, err)
		}
		if got := strings.Join(out.Keys(), ","); got != "id,title,date,description" {
			t.Errorf("raw %q: keys = %s", raw, got)
		}
	}
}

func TestPopulateSerializeRoundTrip(t *testing.T) {
	m := NewMapper(nil)
	orig := rec(t, `{"id":"d1","title":"Album","date":"2023-01-01","description":"desc","artists":["A","B"],"cover":"c.png","tracks":[{"track_no":1,"title":"One"}],"extra":{"k":true}}`)
	f, err := m.Populate("discography", orig)
	if err != nil {
		t.Fatal(err)
	}
	out, err := m.Serialize("discography", orig, f, "")
	if err != nil {
		t.Fatal(err)
	}
	if !record.Equal(orig, out) {
		t.Errorf("round trip changed record:\n%s\n%s", mustJSON(t, orig), mustJSON(t, out))
	}
}

func mustJSON(t *testing.T, r *record.Record) string {
	t.Helper()
	b, err := r.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
