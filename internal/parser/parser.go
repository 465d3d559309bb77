// Package parser splits Markdown documents into YAML frontmatter and body
// for importing them as records.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// ErrNotUTF8 is returned for input that is not valid UTF-8 text.
var ErrNotUTF8 = errors.New("parser: input is not valid UTF-8")

// Document holds a parsed Markdown file.
type Document struct {
	Frontmatter map[string]any
	Body        string
	Title       string
}

// Parse extracts frontmatter, body and title from raw Markdown bytes.
func Parse(data []byte) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, ErrNotUTF8
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	fm, body := splitFrontmatter(data)
	return &Document{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- lines)
// from the body. Without a closing delimiter, or with invalid YAML, the
// whole input is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	normalized := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	trimmed := bytes.TrimLeft(normalized, "\n")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(normalized)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(normalized)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(normalized)
	}
	return fm, body
}

// deriveTitle returns the frontmatter title, else the first H1 heading.
func deriveTitle(fm map[string]any, body string) string {
	if t := Text(fm["title"]); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// Text returns the frontmatter value under key as display text.
func (d *Document) Text(key string) string {
	return Text(d.Frontmatter[key])
}

// Rows returns the frontmatter value under key as a list of string maps,
// keeping only mapping elements. Used for nested lists such as tracks.
func (d *Document) Rows(key string) []map[string]string {
	list, ok := d.Frontmatter[key].([]any)
	if !ok {
		return nil
	}
	var out []map[string]string
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		row := make(map[string]string, len(m))
		for k, v := range m {
			row[k] = Text(v)
		}
		out = append(out, row)
	}
	return out
}

// Keys returns the frontmatter keys in sorted order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.Frontmatter))
	for k := range d.Frontmatter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Text renders a decoded YAML value: scalars as text, sequences joined with
// ", ", dates without a time part as YYYY-MM-DD. Mappings and nil yield "".
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s := Text(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
