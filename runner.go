package storewizard

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/storewizard/pkg/domain"
)

// Runner drives one wizard session from line-oriented input.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer transforms markdown before it is written to Output.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner. Input and Output must be set before Run.
func NewRunner() *Runner {
	return &Runner{}
}

const runnerHelp = `Commands:
  set <field>=<value>   update a field (dotted keys address sections, values may be JSON)
  unset <field>         clear a field
  next | back | jump N  navigate
  template <id>         apply a starter template
  show                  print the draft
  submit                create the records
  discard               start over
  quit                  leave (the draft stays autosaved)`

// Run executes the input loop until the session is submitted, the input is
// exhausted or the user quits.
func (r *Runner) Run(ctx context.Context, engine *Engine, sessionKey string) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)

	ctrl, err := engine.Start(ctx, sessionKey)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if !r.Headless {
		title := engine.Blueprint().Title
		if title == "" {
			title = engine.Blueprint().Kind
		}
		fmt.Fprintf(r.Output, "--- %s ---\n", title)
	}

	lastRendered := 0
	for {
		snap := ctrl.Snapshot()
		if snap.CurrentStep != lastRendered {
			r.render(StepMarkdown(engine, snap))
			lastRendered = snap.CurrentStep
		}

		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lineReader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("input error: %w", err)
		}
		clean, sanitizeErr := SanitizeInput(text)
		if sanitizeErr != nil {
			fmt.Fprintf(r.Output, "error: %v\n", sanitizeErr)
			if errors.Is(err, io.EOF) {
				return nil
			}
			continue
		}
		line := strings.TrimSpace(clean)
		if line == "" && errors.Is(err, io.EOF) {
			return nil
		}

		done, cmdErr := r.execute(ctx, engine, ctrl, line)
		if cmdErr != nil {
			fmt.Fprintf(r.Output, "error: %v\n", cmdErr)
		}
		if done {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

func (r *Runner) execute(ctx context.Context, engine *Engine, ctrl *Controller, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return false, nil
	case "quit", "exit":
		fmt.Fprintln(r.Output, "Bye!")
		return true, nil
	case "help":
		fmt.Fprintln(r.Output, runnerHelp)
	case "set":
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return false, errors.New("usage: set <field>=<value>")
		}
		return false, ctrl.UpdateDraft(FieldUpdate(ctrl.Draft(), strings.TrimSpace(key), ParseValue(raw)))
	case "unset":
		if arg == "" {
			return false, errors.New("usage: unset <field>")
		}
		return false, ctrl.UpdateDraft(FieldUpdate(ctrl.Draft(), arg, nil))
	case "next":
		moved, err := ctrl.GoNext(ctx)
		if err != nil {
			return false, err
		}
		if !moved {
			r.printErrors(ctrl)
		}
	case "back":
		if !ctrl.GoBack() {
			fmt.Fprintln(r.Output, "already on the first step")
		}
	case "jump":
		target, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("invalid step number %q", arg)
		}
		moved, err := ctrl.JumpTo(ctx, target)
		if err != nil {
			return false, err
		}
		if !moved {
			r.printErrors(ctrl)
		}
	case "template":
		return false, ctrl.ApplyTemplate(ctx, arg)
	case "show":
		r.render(DraftMarkdown(engine, ctrl.Snapshot()))
	case "discard":
		return false, ctrl.Discard(ctx)
	case "submit":
		result, err := ctrl.Submit(ctx)
		var invalid *domain.StepsInvalidError
		if errors.As(err, &invalid) {
			r.printErrors(ctrl)
			return false, nil
		}
		r.render(ResultMarkdown(result))
		if err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return false, nil
}

func (r *Runner) render(markdown string) {
	output := markdown
	if r.Renderer != nil {
		if rendered, err := r.Renderer(markdown); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(output))
}

func (r *Runner) printErrors(ctrl *Controller) {
	outcome, ok := ctrl.Errors()[ctrl.CurrentStep()]
	if !ok {
		return
	}
	for _, fe := range outcome.Errors {
		fmt.Fprintf(r.Output, "  - %s: %s\n", fe.Field, fe.Message)
	}
}

// ParseValue reads a user-typed value: JSON when it parses, otherwise the trimmed text.
func ParseValue(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// FieldUpdate builds the partial update setting key to value. Dotted keys
// rewrite the whole top-level section, preserving its other fields. A nil
// value removes the field.
func FieldUpdate(draft domain.Draft, key string, value any) map[string]any {
	root, rest, nested := strings.Cut(key, ".")
	if !nested {
		return map[string]any{root: value}
	}
	section := draft.Section(root)
	if section == nil {
		section = make(map[string]any)
	}
	inner := FieldUpdate(domain.Draft(section), rest, value)
	for k, v := range inner {
		if v == nil {
			delete(section, k)
			continue
		}
		section[k] = v
	}
	return map[string]any{root: section}
}

// StepMarkdown describes the current step and its fields.
func StepMarkdown(engine *Engine, snap Snapshot) string {
	var b strings.Builder
	step, ok := engine.Registry().StepAt(snap.CurrentStep)
	if !ok {
		return ""
	}
	title := step.Title
	if title == "" {
		title = step.Name
	}
	fmt.Fprintf(&b, "## Step %d/%d: %s\n\n", snap.CurrentStep, snap.StepCount, title)
	if step.Optional {
		b.WriteString("_Optional._\n\n")
	}
	for _, f := range step.Fields {
		marker := ""
		if f.Required {
			marker = " *"
		}
		current := ""
		if v, ok := snap.Draft.Lookup(f.Key); ok && !domain.IsEmptyValue(v) {
			current = fmt.Sprintf(" = `%v`", v)
		}
		fmt.Fprintf(&b, "- **%s**%s (`%s`)%s\n", f.DisplayName(), marker, f.Key, current)
	}
	return b.String()
}

// DraftMarkdown renders the draft as a markdown table.
func DraftMarkdown(engine *Engine, snap Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Draft (%s)\n\n", engine.Blueprint().Kind)
	keys := make([]string, 0, len(snap.Draft))
	for k := range snap.Draft {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString("| Field | Value |\n|---|---|\n")
	for _, k := range keys {
		v := snap.Draft[k]
		if domain.IsEmptyValue(v) {
			continue
		}
		if raw, err := json.Marshal(v); err == nil {
			fmt.Fprintf(&b, "| %s | `%s` |\n", k, raw)
		}
	}
	return b.String()
}

// ResultMarkdown summarises a submission.
func ResultMarkdown(result domain.SubmissionResult) string {
	var b strings.Builder
	if result.Success() {
		fmt.Fprintf(&b, "## Created `%s`\n\n", result.PrimaryID)
	} else {
		b.WriteString("## Submission failed\n\n")
	}
	for _, rec := range result.Log {
		line := fmt.Sprintf("- %s: %s", rec.Name, rec.Status)
		if rec.EntityID != "" {
			line += fmt.Sprintf(" (`%s`)", rec.EntityID)
		}
		b.WriteString(line + "\n")
	}
	for _, f := range result.FailedSteps {
		fmt.Fprintf(&b, "- **%s** failed: %v\n", f.Name, f.Err)
	}
	return b.String()
}
