package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardnew/brace/cache"
	"github.com/ardnew/brace/server"
)

// Serve answers template requests over HTTP until interrupted.
type Serve struct {
	Data `embed:""`
	Eval `embed:""`

	Addr    string        `default:"localhost:8080" help:"Listen address"                   short:"a"`
	Timeout time.Duration `default:"30s"            help:"Evaluation timeout of one request"`
}

// Run executes the serve command.
func (s *Serve) Run(ctx context.Context) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := logger(ctx)

	src, closeSource, err := s.open(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = closeSource() }()

	store := cache.New()

	janitor, err := store.Janitor(s.CacheDuration)
	if err != nil {
		return err
	}

	defer func() { _ = janitor.Stop() }()

	srv := server.New(s.engine(src, store, l),
		server.WithLogger(l),
		server.WithOrganization(s.Org),
		server.WithLocale(s.Locale),
		server.WithTimeout(s.Timeout),
	)

	err = srv.ListenAndServe(ctx, s.Addr)

	l.InfoContext(ctx, "stopped", slog.Int("cached", store.Len()))

	return err
}
