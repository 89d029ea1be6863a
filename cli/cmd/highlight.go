package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ardnew/brace/engine"
)

// Highlight renders templates with each construct in its color.
type Highlight struct {
	Input `embed:""`

	HTML bool `help:"Render HTML instead of terminal colors"`
}

// Run executes the highlight command.
func (h *Highlight) Run(ctx context.Context) error {
	templates, err := h.read(os.Stdin)
	if err != nil {
		return err
	}

	e := engine.New(engine.WithLogger(logger(ctx)))
	render := e.HighlightANSI

	if h.HTML {
		render = e.HighlightHTML
	}

	out := stdout(ctx)

	for _, t := range templates {
		code, err := render(t.text)
		if err != nil {
			return ErrEvaluate.With(slog.String("template", t.name)).Wrap(err)
		}

		if _, err := fmt.Fprintln(out, code); err != nil {
			return err
		}
	}

	return nil
}
