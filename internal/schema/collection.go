package schema

import "github.com/starford/sitedesk/internal/record"

// IndexOf returns the position of the record with id, or -1.
func IndexOf(list []*record.Record, id string) int {
	for i, r := range list {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

// Upsert replaces the record with the same id in place, or inserts rec at
// the front so new entries come first in file order.
func Upsert(list []*record.Record, rec *record.Record) []*record.Record {
	if i := IndexOf(list, rec.ID()); i >= 0 {
		list[i] = rec
		return list
	}
	return append([]*record.Record{rec}, list...)
}

// Remove drops every record with id and reports whether any was found.
func Remove(list []*record.Record, id string) ([]*record.Record, bool) {
	out := make([]*record.Record, 0, len(list))
	for _, r := range list {
		if r.ID() != id {
			out = append(out, r)
		}
	}
	return out, len(out) != len(list)
}
