package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/sitedesk/internal/schema"
)

// recordGuide explains to LLM consumers how records are edited.
const recordGuide = `# Site Collection Record Guide

Every content kind (topics, music, movies, discography, live) is one JSON
collection file under assets/data. Records are edited through flat fields;
the server maps them onto the kind's JSON shape.

## Rules

1. **id is required** and unique within its collection. Use lowercase
   kebab-case in English (e.g. ` + "`" + `summer-tour-2024` + "`" + `).
2. **New records go to the front** of the collection; edits stay in place.
3. **List fields** (credits, albums, artists) are written as one
   comma-separated string: ` + "`" + `"Alice, Bob"` + "`" + `.
4. **Nested rows** (discography tracks, live setlist) replace the whole
   list on save. ` + "`" + `track_no` + "`" + ` may be a number or text such as "Bonus".
5. **Music lyrics** are stored in a side file; pass the text in ` + "`" + `lyrics` + "`" + `.
   Blank lyrics remove the reference.
6. **raw** is an optional JSON object for keys the fields do not cover.
   Keys listed as reserved for the kind are ignored.
7. Dates are free text; prefer ` + "`" + `YYYY-MM-DD` + "`" + `.

## Images

- Import images with the ` + "`" + `import_asset` + "`" + ` tool and put the returned path
  in the record's cover field.
- Supported formats: png, jpg, jpeg, gif, webp, svg.
`

// Guide returns the record guide followed by one section per kind.
func Guide() string {
	var b strings.Builder
	b.WriteString(recordGuide)
	b.WriteString("\n## Kinds\n")
	for _, c := range schema.Contracts() {
		fmt.Fprintf(&b, "\n### %s\n\n", c.Kind)
		fmt.Fprintf(&b, "- body field maps to `%s`\n", c.BodyKey)
		if c.CoverKey != "" {
			fmt.Fprintf(&b, "- cover field maps to `%s` (also read from `%s`)\n", c.CoverKey, c.CoverAlias)
		}
		fmt.Fprintf(&b, "- fields: %s\n", strings.Join(c.Fields, ", "))
		if len(c.ListFields) > 0 {
			fmt.Fprintf(&b, "- comma lists: %s\n", strings.Join(c.ListFields, ", "))
		}
		if len(c.Nested) > 0 {
			fmt.Fprintf(&b, "- nested rows: %s\n", strings.Join(c.Nested, ", "))
		}
		if c.LyricsStored {
			b.WriteString("- lyrics are side-stored\n")
		}
		fmt.Fprintf(&b, "- reserved raw keys: %s\n", strings.Join(c.Reserved, ", "))
	}
	return b.String()
}
