package validation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	clockPattern    = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

var weekdays = map[string]struct{}{
	"mon": {}, "tue": {}, "wed": {}, "thu": {}, "fri": {}, "sat": {}, "sun": {},
}

// Slot is one availability window of a schedule field.
type Slot struct {
	Day   string `mapstructure:"day"`
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// FormatChecker validates a non-empty value and returns a message, or "" when valid.
type FormatChecker func(value any) string

var builtinFormats = map[string]FormatChecker{
	domain.FormatURL:      checkURL,
	domain.FormatSlug:     checkSlug,
	domain.FormatEmail:    checkEmail,
	domain.FormatCurrency: checkCurrency,
	domain.FormatSchedule: checkSchedule,
}

// CheckStep runs the local structural tier for a step and returns its errors in
// field declaration order. Only the first failing rule of each field is reported.
func CheckStep(step domain.StepDefinition, draft domain.Draft) []domain.FieldError {
	return checkStep(step, draft, builtinFormats)
}

func checkStep(step domain.StepDefinition, draft domain.Draft, formats map[string]FormatChecker) []domain.FieldError {
	var errs []domain.FieldError
	for _, rule := range step.Fields {
		if msg := checkField(rule, draft, formats); msg != "" {
			errs = append(errs, domain.FieldError{Field: rule.Key, Message: msg})
		}
	}
	return errs
}

func checkField(rule domain.FieldRule, draft domain.Draft, formats map[string]FormatChecker) string {
	value, ok := draft.Lookup(rule.Key)
	if !ok || domain.IsEmptyValue(value) {
		if rule.Required {
			return fmt.Sprintf("%s is required", rule.DisplayName())
		}
		return ""
	}

	if rule.Min != nil || rule.Max != nil {
		n, isNum := toFloat(value)
		if !isNum {
			return fmt.Sprintf("%s must be a number", rule.DisplayName())
		}
		if rule.Min != nil && n < *rule.Min {
			return fmt.Sprintf("%s must be at least %s", rule.DisplayName(), formatNumber(*rule.Min))
		}
		if rule.Max != nil && n > *rule.Max {
			return fmt.Sprintf("%s must be at most %s", rule.DisplayName(), formatNumber(*rule.Max))
		}
	}

	if rule.MinLength > 0 || rule.MaxLength > 0 {
		s, isString := value.(string)
		if !isString {
			return fmt.Sprintf("%s must be text", rule.DisplayName())
		}
		n := len([]rune(strings.TrimSpace(s)))
		if rule.MinLength > 0 && n < rule.MinLength {
			return fmt.Sprintf("%s must be at least %d characters", rule.DisplayName(), rule.MinLength)
		}
		if rule.MaxLength > 0 && n > rule.MaxLength {
			return fmt.Sprintf("%s must be at most %d characters", rule.DisplayName(), rule.MaxLength)
		}
	}

	if rule.MinItems > 0 {
		if n := itemCount(value); n < rule.MinItems {
			return fmt.Sprintf("%s needs at least %d item(s)", rule.DisplayName(), rule.MinItems)
		}
	}

	if len(rule.OneOf) > 0 {
		s := strings.TrimSpace(fmt.Sprint(value))
		found := false
		for _, option := range rule.OneOf {
			if option == s {
				found = true
				break
			}
		}
		if !found {
			return fmt.Sprintf("%s must be one of: %s", rule.DisplayName(), strings.Join(rule.OneOf, ", "))
		}
	}

	if rule.Format != "" {
		check, known := formats[rule.Format]
		if !known {
			return fmt.Sprintf("%s has unknown format %q", rule.DisplayName(), rule.Format)
		}
		if msg := check(value); msg != "" {
			return fmt.Sprintf("%s %s", rule.DisplayName(), msg)
		}
	}
	return ""
}

func checkURL(v any) string {
	s, ok := v.(string)
	if !ok {
		return "must be a URL"
	}
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "must be a valid http(s) URL"
	}
	return ""
}

func checkSlug(v any) string {
	s, ok := v.(string)
	if !ok || !slugPattern.MatchString(s) {
		return "may only contain lowercase letters, digits and single hyphens"
	}
	return ""
}

func checkEmail(v any) string {
	s, ok := v.(string)
	if !ok || !emailPattern.MatchString(strings.TrimSpace(s)) {
		return "must be a valid email address"
	}
	return ""
}

func checkCurrency(v any) string {
	s, ok := v.(string)
	if !ok || !currencyPattern.MatchString(s) {
		return "must be a three-letter ISO currency code"
	}
	return ""
}

func checkSchedule(v any) string {
	var slots []Slot
	if err := mapstructure.Decode(v, &slots); err != nil {
		return "must be a list of {day, start, end} slots"
	}
	if len(slots) == 0 {
		return "needs at least one slot"
	}
	for i, slot := range slots {
		if _, ok := weekdays[strings.ToLower(slot.Day)]; !ok {
			return fmt.Sprintf("slot %d has an unknown day %q", i+1, slot.Day)
		}
		if !clockPattern.MatchString(slot.Start) || !clockPattern.MatchString(slot.End) {
			return fmt.Sprintf("slot %d times must use HH:MM", i+1)
		}
		// Zero-padded HH:MM compares correctly as text.
		if slot.Start >= slot.End {
			return fmt.Sprintf("slot %d must end after it starts", i+1)
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func itemCount(v any) int {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	}
	return 1
}
