package editor

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/record"
	"github.com/starford/sitedesk/internal/schema"
)

var errFileUnsafe = errors.New("must not contain path separators or \"..\"")

func fileSafe(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") {
		return errFileUnsafe
	}
	return nil
}

// validateFields checks f before anything is written. A music record with
// lyrics also needs an id that can name the lyrics file.
func validateFields(spec *schema.Spec, f *schema.Fields) error {
	hasLyrics := spec.Lyrics && strings.TrimSpace(f.Lyrics) != ""
	err := validation.ValidateStruct(f,
		validation.Field(&f.ID,
			validation.Required.Error("id is required"),
			validation.When(hasLyrics, validation.By(fileSafe)),
		),
	)
	if err != nil {
		return apperr.Wrap(apperr.ErrValidation, "editor: "+spec.Kind, err)
	}
	return nil
}

// validateCollection rejects blank and duplicate ids.
func validateCollection(records []*record.Record) error {
	seen := make(map[string]int, len(records))
	for i, r := range records {
		id := strings.TrimSpace(r.ID())
		if id == "" {
			return apperr.Validation("editor: save collection", "record %d has no id", i)
		}
		if j, dup := seen[id]; dup {
			return apperr.Validation("editor: save collection", "records %d and %d share id %q", j, i, id)
		}
		seen[id] = i
	}
	return nil
}
