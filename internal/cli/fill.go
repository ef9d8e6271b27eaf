package cli

import (
	"context"
	"io"

	"github.com/aretw0/storewizard"
	"github.com/aretw0/storewizard/internal/presentation/tui"
)

// FillOptions configures an interactive fill session.
type FillOptions struct {
	SessionKey string
	Headless   bool
	Fresh      bool
	Input      io.Reader
	Output     io.Writer
}

// RunFill drives one wizard session from Input. With Fresh, any autosaved
// draft for the session is discarded first.
func RunFill(ctx context.Context, stack *Stack, opts FillOptions) error {
	if opts.Fresh {
		key := storewizard.DraftKey(stack.Blueprint.Kind, opts.SessionKey)
		if err := stack.Store.Remove(ctx, key); err != nil {
			return err
		}
	}

	r := storewizard.NewRunner()
	r.Input = opts.Input
	r.Output = opts.Output
	r.Headless = opts.Headless

	pretty := !opts.Headless && IsTerminal(opts.Output)
	if pretty {
		tui.PrintBanner(opts.Output, stack.Blueprint.Title)
		r.Renderer = tui.NewRenderer()
	}
	if !opts.Headless {
		printSystemMessage(opts.Output, "Session '%s' (%s). Type 'help' for commands.", opts.SessionKey, stack.Blueprint.Kind)
	}

	return handleExecutionError(r.Run(ctx, stack.Engine, opts.SessionKey))
}
