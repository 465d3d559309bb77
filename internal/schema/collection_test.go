package schema

import (
	"strings"
	"testing"

	"github.com/starford/sitedesk/internal/record"
)

func ids(list []*record.Record) string {
	out := make([]string, len(list))
	for i, r := range list {
		out[i] = r.ID()
	}
	return strings.Join(out, ",")
}

func withID(id, title string) *record.Record {
	r := record.New()
	r.SetString("id", id)
	r.SetString("title", title)
	return r
}

func TestUpsert(t *testing.T) {
	list := []*record.Record{withID("a", "A"), withID("b", "B"), withID("c", "C")}

	list = Upsert(list, withID("b", "B2"))
	if ids(list) != "a,b,c" || list[1].Text("title") != "B2" {
		t.Errorf("edit moved or missed: %s", ids(list))
	}

	list = Upsert(list, withID("n", "N"))
	if ids(list) != "n,a,b,c" {
		t.Errorf("new record not at front: %s", ids(list))
	}
}

func TestRemove(t *testing.T) {
	list := []*record.Record{withID("a", "A"), withID("b", "B")}
	out, ok := Remove(list, "a")
	if !ok || ids(out) != "b" {
		t.Errorf("Remove = %s, %v", ids(out), ok)
	}
	if _, ok := Remove(out, "zzz"); ok {
		t.Error("missing id reported as removed")
	}
}

func TestContract(t *testing.T) {
	s, _ := Lookup("live")
	c := s.Contract()
	if c.BodyKey != "note" || c.CoverKey != "image" || c.CoverAlias != "cover" {
		t.Errorf("contract = %+v", c)
	}
	if len(c.Nested) != 1 || c.Nested[0] != "setlist" {
		t.Errorf("nested = %v", c.Nested)
	}
	if len(Contracts()) != len(Kinds()) {
		t.Error("one contract per kind")
	}
}
