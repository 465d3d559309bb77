package schema

// Fields is the flat editable view of a record. Which fields a kind uses is
// decided by its Spec; the others are ignored on Serialize and left blank by
// Populate.
type Fields struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Date   string `json:"date"`
	Body   string `json:"body"`
	Cover  string `json:"cover,omitempty"`
	Lyrics string `json:"lyrics,omitempty"`

	Duration  string `json:"duration,omitempty"`
	Credits   string `json:"credits,omitempty"`
	Albums    string `json:"albums,omitempty"`
	AudioFile string `json:"audioFile,omitempty"`

	Service  string `json:"service,omitempty"`
	Uploader string `json:"uploader,omitempty"`
	Video    string `json:"video,omitempty"`
	MusicID  string `json:"musicID,omitempty"`

	Artists string `json:"artists,omitempty"`
	Venue   string `json:"venue,omitempty"`

	Tracks  []Track        `json:"tracks,omitempty"`
	Setlist []SetlistEntry `json:"setlist,omitempty"`
}

// Track is one row of a discography track list. No is free text: numeric
// values are stored as integers, anything else ("Ex", "Bonus") as a string.
type Track struct {
	No      string `json:"track_no"`
	Title   string `json:"title"`
	MusicID string `json:"musicID,omitempty"`
	Author  string `json:"author,omitempty"`
}

// SetlistEntry is one song of a live setlist.
type SetlistEntry struct {
	Title string `json:"title"`
	ID    string `json:"id,omitempty"`
}
