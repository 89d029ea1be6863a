package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/brace/record"
)

// Import loads fixture files into an SQL database, creating its tables
// first. Records already present are replaced.
type Import struct {
	Fixture []string `arg:"" help:"YAML fixture file(s) to import" type:"existingfile"`
	Driver  string   `default:"${defaultDriver}" enum:"${drivers}" help:"SQL driver (${enum})"`
	DSN     string   `help:"SQL data source name" name:"dsn" required:""`
}

// Run executes the import command.
func (c *Import) Run(ctx context.Context) (err error) {
	l := logger(ctx)

	f, err := readFixtures(c.Fixture)
	if err != nil {
		return err
	}

	db, err := record.OpenSQL(ctx, c.Driver, c.DSN)
	if err != nil {
		return ErrOpenSource.With(slog.String("driver", c.Driver)).Wrap(err)
	}

	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return ErrImport.Wrap(err)
	}

	if err := db.Import(ctx, f); err != nil {
		return ErrImport.Wrap(err)
	}

	l.InfoContext(ctx, "imported",
		slog.String("driver", c.Driver),
		slog.Int("records", len(f.Records)),
		slog.Int("labels", len(f.Labels)),
	)

	return nil
}
