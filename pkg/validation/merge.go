package validation

import (
	"strings"

	"github.com/aretw0/storewizard/pkg/domain"
)

// MergeErrors combines error lists preserving first-seen order. Blank and
// duplicate messages are dropped, and generic messages for a field are
// discarded when a field-specific message for the same field exists.
func MergeErrors(lists ...[]domain.FieldError) []domain.FieldError {
	specific := make(map[string]bool)
	for _, list := range lists {
		for _, e := range list {
			if !e.Generic && strings.TrimSpace(e.Message) != "" {
				specific[e.Field] = true
			}
		}
	}

	type key struct{ field, message string }
	seen := make(map[key]struct{})
	var out []domain.FieldError
	for _, list := range lists {
		for _, e := range list {
			msg := strings.TrimSpace(e.Message)
			if msg == "" {
				continue
			}
			if e.Generic && specific[e.Field] {
				continue
			}
			k := key{e.Field, msg}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			e.Message = msg
			out = append(out, e)
		}
	}
	return out
}
