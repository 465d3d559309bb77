package audiotag

import (
	"os"
	"path/filepath"
	"testing"
)

// id3v1 builds a file body ending in a 128-byte ID3v1 tag.
func id3v1(title, artist, album, year string) []byte {
	field := func(s string, n int) []byte {
		b := make([]byte, n)
		copy(b, s)
		return b
	}
	out := make([]byte, 256) // audio payload stand-in
	out = append(out, "TAG"...)
	out = append(out, field(title, 30)...)
	out = append(out, field(artist, 30)...)
	out = append(out, field(album, 30)...)
	out = append(out, field(year, 4)...)
	out = append(out, field("", 30)...)
	out = append(out, 0)
	return out
}

func TestReadFile_ID3v1(t *testing.T) {
	p := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(p, id3v1("Blue Hour", "Ruichi", "Nightfall", "2021"), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Tagged {
		t.Fatal("expected tags to be read")
	}
	if info.Title != "Blue Hour" || info.Artist != "Ruichi" || info.Album != "Nightfall" {
		t.Errorf("info = %+v", info)
	}
	if info.Year != 2021 {
		t.Errorf("year = %d", info.Year)
	}
}

func TestReadFile_UntaggedFallsBackToStem(t *testing.T) {
	p := filepath.Join(t.TempDir(), "demo take 3.wav")
	if err := os.WriteFile(p, []byte("not really audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if info.Tagged || info.Title != "demo take 3" {
		t.Errorf("info = %+v", info)
	}
}

func TestReadFile_Missing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.mp3")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStem(t *testing.T) {
	if got := Stem("/a/b/song.final.flac"); got != "song.final" {
		t.Errorf("Stem = %q", got)
	}
}
