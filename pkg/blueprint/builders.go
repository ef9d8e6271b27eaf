package blueprint

import (
	"fmt"
	"html"
	"strings"

	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/submission"
	"github.com/aretw0/storewizard/pkg/validation"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mitchellh/mapstructure"
)

// Builders returns the payload builders the blueprint's plan refers to.
func (b Blueprint) Builders() map[string]submission.PayloadBuilder {
	rich := make(map[string]struct{}, len(b.RichTextFields))
	for _, f := range b.RichTextFields {
		rich[f] = struct{}{}
	}
	return map[string]submission.PayloadBuilder{
		BuilderPrimary:        primaryBuilder(rich),
		BuilderPreviewVariant: previewVariant,
		BuilderAvailability:   availability,
	}
}

// primaryBuilder takes the top-level fields of the draft. Rich-text fields keep
// safe user HTML; every other string is reduced to plain text.
func primaryBuilder(rich map[string]struct{}) submission.PayloadBuilder {
	ugc := bluemonday.UGCPolicy()
	strict := bluemonday.StrictPolicy()
	return func(draft domain.Draft, step domain.SubmissionStep) (map[string]any, error) {
		payload := submission.SourcePayload(draft, step)
		for k, v := range payload {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if _, isRich := rich[k]; isRich {
				payload[k] = ugc.Sanitize(s)
				continue
			}
			payload[k] = strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
		}
		return payload, nil
	}
}

type productSummary struct {
	Name     string   `mapstructure:"name"`
	Currency string   `mapstructure:"currency"`
	Files    []string `mapstructure:"files"`
}

// previewVariant creates a free variant exposing the first file as a sample.
func previewVariant(draft domain.Draft, _ domain.SubmissionStep) (map[string]any, error) {
	var summary productSummary
	if err := weakDecode(map[string]any(draft), &summary); err != nil {
		return nil, fmt.Errorf("preview variant: %w", err)
	}
	if len(summary.Files) == 0 {
		return nil, fmt.Errorf("preview variant: product has no files")
	}
	return map[string]any{
		"name":     summary.Name + " (preview)",
		"price":    0,
		"currency": summary.Currency,
		"preview":  true,
		"files":    []any{summary.Files[0]},
	}, nil
}

type availabilitySection struct {
	Timezone string            `mapstructure:"timezone"`
	Slots    []validation.Slot `mapstructure:"slots"`
}

// availability normalises the weekly schedule into lowercase day slots.
func availability(draft domain.Draft, step domain.SubmissionStep) (map[string]any, error) {
	var section availabilitySection
	if err := weakDecode(draft.Section(step.Source), &section); err != nil {
		return nil, fmt.Errorf("availability: %w", err)
	}
	slots := make([]any, 0, len(section.Slots))
	for _, s := range section.Slots {
		slots = append(slots, map[string]any{
			"day":   strings.ToLower(s.Day),
			"start": s.Start,
			"end":   s.End,
		})
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("availability: no slots")
	}
	return map[string]any{"timezone": section.Timezone, "slots": slots}, nil
}

func weakDecode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
