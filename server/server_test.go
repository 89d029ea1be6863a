package server

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/ardnew/brace/engine"
	"github.com/ardnew/brace/record"
)

const testFixture = `
user: user/u1
records:
  - entity: user
    id: u1
    fields: {name: Ada Lovelace}
  - entity: account
    id: a1
    fields: {name: Contoso}
  - entity: keyvalue
    id: k1
    fields: {name: greeting, value: Hello, value_1036: Bonjour}
`

func testServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	src, err := record.LoadMemory(strings.NewReader(testFixture))
	if err != nil {
		t.Fatalf("LoadMemory: %v", err)
	}

	return New(engine.New(engine.WithSource(src)), opts...)
}

func do(s *Server, method, uri, body string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx

	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	ctx.Request.SetBodyString(body)

	s.Handler(&ctx)

	return &ctx
}

func TestHandler(t *testing.T) {
	t.Parallel()

	s := testServer(t, WithOrganization("contoso"))

	tests := []struct {
		name   string
		method string
		uri    string
		body   string
		status int
		want   string
	}{
		{"parse_plain", "POST", "/parse", "hello", 200, "hello"},
		{"parse_record", "POST", "/parse?record=account/a1", "{c|name|}", 200, "Contoso"},
		{"parse_user", "POST", "/parse", "{u|name|}", 200, "Ada Lovelace"},
		{"parse_locale", "POST", "/parse?locale=1036", "{v|greeting|}", 200, "Bonjour"},
		{"parse_bad_locale", "POST", "/parse?locale=fr", "x", 400, `"error"`},
		{"parse_bad_record", "POST", "/parse?record=nope", "x", 400, `"error"`},
		{"parse_format_error", "POST", "/parse", "{c|name|", 400, `"kind"`},
		{"parse_unknown_key", "POST", "/parse", "{zz}", 404, "lookup"},
		{"parse_method", "GET", "/parse", "", 405, "POST only"},
		{"highlight", "POST", "/highlight", "a{c|name|}", 200, "<span"},
		{"constructs", "GET", "/constructs", "", 200, `"column"`},
		{"health", "GET", "/health", "", 200, `"ok"`},
		{"not_found", "GET", "/nope", "", 404, "no route"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := do(s, tt.method, tt.uri, tt.body)

			if got := ctx.Response.StatusCode(); got != tt.status {
				t.Errorf("status = %d, want %d (body %q)", got, tt.status, ctx.Response.Body())
			}

			if got := string(ctx.Response.Body()); !strings.Contains(got, tt.want) {
				t.Errorf("body = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestHandler_FailureBody(t *testing.T) {
	t.Parallel()

	ctx := do(testServer(t), "POST", "/parse", "{c|name|")

	var f failure
	if err := yaml.Unmarshal(ctx.Response.Body(), &f); err != nil {
		t.Fatalf("body %q is not JSON: %v", ctx.Response.Body(), err)
	}

	if f.Kind != "format" || f.Error == "" {
		t.Errorf("failure = %+v", f)
	}

	if ct := string(ctx.Response.Header.ContentType()); ct != contentJSON {
		t.Errorf("content type = %q", ct)
	}
}

func TestServer_Serve(t *testing.T) {
	t.Parallel()

	ln := fasthttputil.NewInmemoryListener()
	s := testServer(t, WithTimeout(time.Second))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	go func() { done <- s.Serve(ctx, ln) }()

	client := &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://brace/parse?record=account:a1")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetBodyString("Hi {c|name|}")

	if err := client.Do(req, resp); err != nil {
		t.Fatalf("Do: %v", err)
	}

	if got := string(resp.Body()); got != "Hi Contoso" {
		t.Errorf("body = %q", got)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
