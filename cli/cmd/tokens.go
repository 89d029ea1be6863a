package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/brace/lang"
)

// Tokens prints the token tree of templates as YAML documents.
type Tokens struct {
	Input `embed:""`

	Flow bool `help:"Use YAML flow style"`
}

// Run executes the tokens command.
func (c *Tokens) Run(ctx context.Context) error {
	templates, err := c.read(os.Stdin)
	if err != nil {
		return err
	}

	var opts []yaml.EncodeOption
	if c.Flow {
		opts = append(opts, yaml.Flow(true))
	}

	enc := yaml.NewEncoder(stdout(ctx), opts...)
	defer enc.Close()

	for _, t := range templates {
		tok, err := lang.Tokenize(t.text)
		if err != nil {
			return ErrEvaluate.With(slog.String("template", t.name)).Wrap(err)
		}

		if err := enc.Encode(tok); err != nil {
			return err
		}
	}

	return nil
}
