package record

import (
	"strings"
	"testing"
)

func TestFromJSON_KeepsKeyOrder(t *testing.T) {
	r, err := FromJSON([]byte(`{"id":"a","title":"T","date":"2024-01-01","n":3}`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	got := strings.Join(r.Keys(), ",")
	if got != "id,title,date,n" {
		t.Errorf("keys = %s", got)
	}
	if r.ID() != "a" {
		t.Errorf("id = %q", r.ID())
	}
	if r.Text("n") != "3" {
		t.Errorf("n = %q", r.Text("n"))
	}
}

func TestMarshalJSON_NoHTMLEscape(t *testing.T) {
	r := New()
	r.SetString("id", "x")
	r.SetString("content", "<b>bold</b> & more")
	out, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	want := `{"id":"x","content":"<b>bold</b> & more"}`
	if string(out) != want {
		t.Errorf("got %s, want %s", out, want)
	}
}

func TestValue_RoundTripAllTypes(t *testing.T) {
	in := `{"s":"x","n":1.50,"i":-2,"b":true,"z":null,"a":[1,"two",{"k":"v"}],"o":{"nested":[]}}`
	r, err := FromJSON([]byte(in))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	out, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(out) != in {
		t.Errorf("round trip changed document:\n got %s\nwant %s", out, in)
	}

	v, _ := r.Get("a")
	elems, ok := v.Array()
	if !ok || len(elems) != 3 {
		t.Fatalf("array = %v", elems)
	}
	if elems[2].Type() != Object {
		t.Errorf("third element type = %s", elems[2].Type())
	}
	z, ok := r.Get("z")
	if !ok || !z.IsNull() {
		t.Error("expected present null")
	}
	if r.Text("z") != "" {
		t.Error("null text should be empty")
	}
}

func TestEqual_IgnoresKeyOrder(t *testing.T) {
	a, _ := FromJSON([]byte(`{"id":"1","tags":["x","y"],"n":1}`))
	b, _ := FromJSON([]byte(`{"n":1.0,"tags":["x","y"],"id":"1"}`))
	if !Equal(a, b) {
		t.Error("expected equal")
	}
	c, _ := FromJSON([]byte(`{"n":1,"tags":["y","x"],"id":"1"}`))
	if Equal(a, c) {
		t.Error("array order must matter")
	}
}

func TestSetDeleteMerge(t *testing.T) {
	r := &Record{}
	r.SetString("id", "1")
	r.SetString("title", "old")
	r.SetString("title", "new")
	if strings.Join(r.Keys(), ",") != "id,title" {
		t.Errorf("keys = %v", r.Keys())
	}
	r.Delete("title", "missing")
	if r.Has("title") {
		t.Error("title should be gone")
	}

	overlay, _ := FromJSON([]byte(`{"id":"evil","extra":1}`))
	r.Merge(overlay, func(k string) bool { return k == "id" })
	if r.ID() != "1" {
		t.Errorf("id clobbered: %q", r.ID())
	}
	if r.Text("extra") != "1" {
		t.Error("extra not merged")
	}
}

func TestClone_IsDeep(t *testing.T) {
	r, _ := FromJSON([]byte(`{"o":{"k":"v"}}`))
	c := r.Clone()
	v, _ := c.Get("o")
	obj, _ := v.Object()
	obj.SetString("k", "changed")

	orig, _ := r.Get("o")
	origObj, _ := orig.Object()
	if origObj.Text("k") != "v" {
		t.Error("clone shares nested object")
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{``, `[1,`, "\xef\xbb\xbf[]", `{"a":}`} {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestMarshalIndent(t *testing.T) {
	r := New()
	r.SetString("id", "a")
	out, err := MarshalIndent(ObjectValue(r))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "{\n  \"id\": \"a\"\n}" {
		t.Errorf("got %q", out)
	}
}

func TestInt(t *testing.T) {
	if n, ok := IntValue(7).Int(); !ok || n != 7 {
		t.Errorf("IntValue = %d %v", n, ok)
	}
	if n, ok := StringValue("12").Int(); !ok || n != 12 {
		t.Errorf("numeric string = %d %v", n, ok)
	}
	if _, ok := StringValue("Ex").Int(); ok {
		t.Error("Ex should not be numeric")
	}
}
