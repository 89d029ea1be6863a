package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/valyala/fasthttp"

	"github.com/ardnew/brace/engine"
	"github.com/ardnew/brace/lang"
	"github.com/ardnew/brace/log"
	"github.com/ardnew/brace/pkg"
	"github.com/ardnew/brace/record"
)

// DefaultTimeout bounds the evaluation of one request.
const DefaultTimeout = 30 * time.Second

const (
	contentText = "text/plain; charset=utf-8"
	contentHTML = "text/html; charset=utf-8"
	contentJSON = "application/json"
)

// Server answers template requests with one shared engine.
type Server struct {
	engine  *engine.Engine
	logger  log.Logger
	org     string
	locale  int
	timeout time.Duration
	base    context.Context
	http    *fasthttp.Server
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithOrganization sets the organization of requests that name none.
func WithOrganization(org string) Option {
	return func(s *Server) { s.org = org }
}

// WithLocale sets the locale of requests that name none.
func WithLocale(lcid int) Option {
	return func(s *Server) { s.locale = lcid }
}

// WithTimeout bounds the evaluation of one request.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New returns a server evaluating templates with e.
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:  e,
		locale:  record.DefaultLocale,
		timeout: DefaultTimeout,
		base:    context.Background(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.http = &fasthttp.Server{
		Name:               pkg.Name,
		Handler:            s.Handler,
		ReadTimeout:        s.timeout,
		WriteTimeout:       s.timeout,
		MaxRequestBodySize: 4 << 20,
	}

	return s
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.base = ctx

	errc := make(chan error, 1)

	go func() { errc <- s.http.Serve(ln) }()

	s.logger.InfoContext(ctx, "serving", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	if err := s.http.Shutdown(); err != nil {
		return err
	}

	return <-errc
}

// ListenAndServe listens on the TCP address addr and calls [Server.Serve].
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(ctx, ln)
}

// Handler routes one request.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	start := time.Now()

	switch path := string(ctx.Path()); path {
	case "/parse":
		if s.allow(ctx, fasthttp.MethodPost) {
			s.parse(ctx)
		}
	case "/highlight":
		if s.allow(ctx, fasthttp.MethodPost) {
			s.highlight(ctx)
		}
	case "/constructs":
		if s.allow(ctx, fasthttp.MethodGet) {
			s.constructs(ctx)
		}
	case "/health":
		if s.allow(ctx, fasthttp.MethodGet) {
			s.reply(ctx, fasthttp.StatusOK, map[string]string{"status": "ok", "version": pkg.Version})
		}
	default:
		s.fail(ctx, fasthttp.StatusNotFound, errors.New("no route for "+path))
	}

	s.logger.DebugContext(s.base, "request",
		slog.String("method", string(ctx.Method())),
		slog.String("path", string(ctx.Path())),
		slog.Int("status", ctx.Response.StatusCode()),
		slog.Duration("elapsed", time.Since(start)),
	)
}

func (s *Server) allow(ctx *fasthttp.RequestCtx, method string) bool {
	if string(ctx.Method()) == method {
		return true
	}

	ctx.Response.Header.Set(fasthttp.HeaderAllow, method)
	s.fail(ctx, fasthttp.StatusMethodNotAllowed, errors.New(method+" only"))

	return false
}

func (s *Server) parse(ctx *fasthttp.RequestCtx) {
	opts, err := s.parseOptions(ctx.QueryArgs())
	if err != nil {
		s.fail(ctx, fasthttp.StatusBadRequest, err)

		return
	}

	run, cancel := context.WithTimeout(s.base, s.timeout)
	defer cancel()

	out, err := s.engine.Parse(run, string(ctx.PostBody()), opts...)
	if err != nil {
		s.fail(ctx, statusOf(err), err)

		return
	}

	ctx.SetContentType(contentText)
	ctx.SetBodyString(out)
}

func (s *Server) parseOptions(args *fasthttp.Args) ([]engine.ParseOption, error) {
	org := s.org
	if b := args.Peek("org"); len(b) > 0 {
		org = string(b)
	}

	locale := s.locale

	if b := args.Peek("locale"); len(b) > 0 {
		n, err := strconv.Atoi(string(b))
		if err != nil {
			return nil, pkg.ErrInvalidQuery.Wrapf("locale %q", b)
		}

		locale = n
	}

	opts := []engine.ParseOption{
		engine.WithOrganization(org),
		engine.WithLocale(locale),
	}

	if b := args.Peek("record"); len(b) > 0 {
		ref, err := record.ParseRef(string(b))
		if err != nil {
			return nil, err
		}

		opts = append(opts, engine.WithReference(ref))
	}

	return opts, nil
}

func (s *Server) highlight(ctx *fasthttp.RequestCtx) {
	out, err := s.engine.HighlightHTML(string(ctx.PostBody()))
	if err != nil {
		s.fail(ctx, statusOf(err), err)

		return
	}

	ctx.SetContentType(contentHTML)
	ctx.SetBodyString(out)
}

type construct struct {
	Key  string `yaml:"key"`
	Long string `yaml:"long,omitempty"`
	Help string `yaml:"help"`
}

func (s *Server) constructs(ctx *fasthttp.RequestCtx) {
	entries := s.engine.Registry().Constructs()

	out := make([]construct, len(entries))
	for i, e := range entries {
		out[i] = construct{Key: e.Key, Long: e.Long, Help: e.Help}
	}

	s.reply(ctx, fasthttp.StatusOK, out)
}

type failure struct {
	Error    string `yaml:"error"`
	Kind     string `yaml:"kind,omitempty"`
	Location string `yaml:"location,omitempty"`
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, status int, err error) {
	f := failure{Error: err.Error()}

	var le *lang.Error
	if errors.As(err, &le) {
		f.Kind = le.Kind().String()
		f.Location = le.Location()
	}

	if status >= fasthttp.StatusInternalServerError {
		s.logger.ErrorContext(s.base, "request failed", slog.Any("error", err))
	}

	s.reply(ctx, status, f)
}

func (s *Server) reply(ctx *fasthttp.RequestCtx, status int, v any) {
	b, err := yaml.MarshalWithOptions(v, yaml.JSON())
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)

		return
	}

	ctx.SetStatusCode(status)
	ctx.SetContentType(contentJSON)
	ctx.SetBody(b)
}

// statusOf maps an evaluation error to a response status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fasthttp.StatusGatewayTimeout
	case errors.Is(err, lang.ErrFormat):
		return fasthttp.StatusBadRequest
	case errors.Is(err, lang.ErrLookup):
		return fasthttp.StatusNotFound
	case errors.Is(err, lang.ErrUnsupported):
		return fasthttp.StatusUnprocessableEntity
	case errors.Is(err, lang.ErrExternal):
		return fasthttp.StatusBadGateway
	default:
		return fasthttp.StatusInternalServerError
	}
}
