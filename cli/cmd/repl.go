package cmd

import (
	"context"

	"github.com/ardnew/brace/cache"
	"github.com/ardnew/brace/cli/cmd/repl"
	"github.com/ardnew/brace/record"
)

// Repl evaluates templates interactively.
type Repl struct {
	Data `embed:""`
	Eval `embed:""`

	Record string `help:"Initial current record as entity/id" short:"r"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	l := logger(ctx)

	src, closeSource, err := r.open(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = closeSource() }()

	sess := &repl.Session{
		Engine: r.engine(src, cache.New(), l),
		Org:    r.Org,
		Locale: r.Locale,
	}

	if r.Record != "" {
		if sess.Record, err = record.ParseRef(r.Record); err != nil {
			return err
		}
	}

	var cacheDir string
	if ktx := kongContextFrom(ctx); ktx != nil {
		cacheDir = ktx.Model.Vars()[CacheIdentifier]
	}

	return repl.Run(ctx, sess, cacheDir, l)
}
