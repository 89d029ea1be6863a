package cmd

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/ardnew/brace/cache"
	"github.com/ardnew/brace/engine"
	"github.com/ardnew/brace/log"
	"github.com/ardnew/brace/record"
)

// Data selects the record source templates are evaluated against. A DSN
// takes precedence over fixtures; with neither, templates see no records.
type Data struct {
	Fixture []string `help:"YAML fixture file(s) holding records"                 short:"x" type:"existingfile"`
	Driver  string   `help:"SQL driver of --dsn (${enum})"   default:"${defaultDriver}" enum:"${drivers}"`
	DSN     string   `help:"SQL data source name"            name:"dsn"`
}

// open returns the selected source and a function releasing it.
func (d Data) open(ctx context.Context) (record.Source, func() error, error) {
	if d.DSN != "" {
		db, err := record.OpenSQL(ctx, d.Driver, d.DSN)
		if err != nil {
			return nil, nil, ErrOpenSource.With(slog.String("driver", d.Driver)).Wrap(err)
		}

		return db, db.Close, nil
	}

	f, err := readFixtures(d.Fixture)
	if err != nil {
		return nil, nil, err
	}

	m, err := f.Memory()
	if err != nil {
		return nil, nil, ErrOpenSource.Wrap(err)
	}

	return m, func() error { return nil }, nil
}

// readFixtures decodes and merges the named fixture files in order.
func readFixtures(paths []string) (*record.Fixture, error) {
	merged := new(record.Fixture)

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, ErrOpenSource.With(slog.String("file", path)).Wrap(err)
		}

		fx, err := record.DecodeFixture(f)
		_ = f.Close()

		if err != nil {
			return nil, ErrOpenSource.With(slog.String("file", path)).Wrap(err)
		}

		merged.Merge(fx)
	}

	return merged, nil
}

// Eval holds the options of a parse.
type Eval struct {
	Org           string        `default:"default"         help:"Organization namespacing cross-call cache entries"`
	Locale        int           `default:"${defaultLocale}" help:"Initial locale id (LCID)"                          short:"l"`
	CacheDuration time.Duration `default:"1m"              help:"Lifetime of cross-call cache entries"`
}

// engine returns an engine reading src and caching across parses in store.
func (e Eval) engine(src record.Source, store cache.Store, l log.Logger) *engine.Engine {
	return engine.New(
		engine.WithSource(src),
		engine.WithStore(store),
		engine.WithLogger(l),
		engine.WithFallbackDuration(e.CacheDuration),
	)
}

// options returns the parse options of e with the given current record,
// which may be empty.
func (e Eval) options(rec string) ([]engine.ParseOption, error) {
	opts := []engine.ParseOption{
		engine.WithOrganization(e.Org),
		engine.WithLocale(e.Locale),
	}

	if rec != "" {
		ref, err := record.ParseRef(rec)
		if err != nil {
			return nil, err
		}

		opts = append(opts, engine.WithReference(ref))
	}

	return opts, nil
}
