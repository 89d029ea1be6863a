package engine

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/ardnew/brace/lang"
)

// templateConstruct is the 't' construct. It stores its body under the name
// given as parameter for later expansion by a placeholder. Write the body
// between backticks to keep the constructs it contains unexpanded.
type templateConstruct struct{}

func (templateConstruct) Execute(c *Call, body string) ([]string, error) {
	name := c.Params().Arg(0)
	if name == "" {
		return nil, ErrParam.Detail("template name")
	}

	c.State.Templates[name] = body

	return nil, nil
}

// placeholderConstruct is the 'p' construct. Its body names a template,
// which replaces the body before the preprocessors run. The parameters are
// find and replace pairs applied in order to the template text. The result
// is evaluated as a template.
type placeholderConstruct struct{}

func (placeholderConstruct) PreExecute(c *Call, body string) (string, error) {
	args := c.Params().Args
	if len(args)%2 != 0 {
		return "", ErrParam.Detail("placeholder replacements must be pairs")
	}

	text, ok := c.State.Templates[body]
	if !ok {
		return "", ErrTemplate.Detail(body)
	}

	for i := 0; i < len(args); i += 2 {
		if args[i] != "" {
			text = strings.ReplaceAll(text, args[i], args[i+1])
		}
	}

	return text, nil
}

func (placeholderConstruct) Execute(c *Call, body string) ([]string, error) {
	out, err := c.State.render(body)
	if err != nil {
		return nil, err
	}

	return []string{out}, nil
}

// discardConstruct is the '_' construct. It runs its pipeline for the side
// effects and emits nothing.
type discardConstruct struct{}

func (discardConstruct) Execute(*Call, string) ([]string, error) { return nil, nil }

// expressionConstruct is the 'e' construct: it emits its body.
type expressionConstruct struct{}

func (expressionConstruct) Execute(_ *Call, body string) ([]string, error) {
	return []string{body}, nil
}

// settingsConstruct is the 's' construct. Its parameter is a map literal
// configuring the evaluation of its body:
//
//	{s(`{html: true, cache: {enabled: true, global: true, dur: 300}}`)|...|}
//
// Unset keys inherit the enclosing configuration. The cache duration is in
// seconds. With the global parameter the configuration stays in effect
// after the construct.
type settingsConstruct struct{}

func (settingsConstruct) Scoped() {}

func (settingsConstruct) Execute(c *Call, _ string) ([]string, error) {
	params := c.Params()

	cfg, err := inlineConfig(c.State.Inline, params.Arg(0))
	if err != nil {
		return nil, err
	}

	prev := c.State.Inline
	c.State.Inline = cfg

	out, err := c.EvalBody()

	if err != nil || !params.Has("global") {
		c.State.Inline = prev
	}

	if err != nil {
		return nil, err
	}

	return []string{out}, nil
}

// inlineConfig layers the map literal src over base.
func inlineConfig(base *InlineConfig, src string) (*InlineConfig, error) {
	cfg := &InlineConfig{}
	if base != nil {
		*cfg = *base
	}

	if strings.TrimSpace(src) == "" || src == "global" {
		return cfg, nil
	}

	m, err := parseSimpleMap(src)
	if err != nil {
		return nil, err
	}

	if b, ok := boolValue(m["html"]); ok {
		cfg.HTML = b
	}

	cm, ok := m["cache"].(map[string]any)
	if !ok {
		return cfg, nil
	}

	cc := &CacheConfig{Enabled: true}
	if cfg.Cache != nil {
		*cc = *cfg.Cache
	}

	if b, ok := boolValue(cm["enabled"]); ok {
		cc.Enabled = b
	}

	if b, ok := boolValue(cm["global"]); ok {
		cc.Global = b
	}

	if n, ok := intValue(cm["dur"]); ok {
		cc.Duration = time.Duration(n) * time.Second
	}

	cfg.Cache = cc

	return cfg, nil
}

func boolValue(v any) (bool, bool) {
	switch v := v.(type) {
	case bool:
		return v, true
	case string:
		return lang.ParseBool(v)
	default:
		return false, false
	}
}

func intValue(v any) (int, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))

		return n, err == nil
	default:
		return 0, false
	}
}

// replaceConstruct is the 'r' construct: it replaces matches in its body.
//
//	{r(`/regex/`, replacement)|...|}  {r(literal, replacement)|...|}
type replaceConstruct struct{}

func (replaceConstruct) Execute(c *Call, body string) ([]string, error) {
	r, err := newReplacer(c.Params())
	if err != nil {
		return nil, err
	}

	return []string{r.replace(body)}, nil
}

// Character pools of the random construct.
const (
	poolUpper  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	poolLower  = "abcdefghijklmnopqrstuvwxyz"
	poolNumber = "0123456789"
)

// randomConstruct is the '*' construct. It emits a random string:
//
//	{*(length, pool[, letterStart[, numberRatio]])|custom,symbols|}
//
// The pool combines the flags u (upper case), l (lower case), n (digits)
// and c (the comma-separated symbols of the body). numberRatio is the
// percentage of digits when both letters and digits are drawn; letterStart
// forces a letter first.
type randomConstruct struct{}

func (randomConstruct) Execute(c *Call, body string) ([]string, error) {
	x, err := c.Params().Extract(2, false)
	if err != nil {
		return nil, err
	}

	length, err := strconv.Atoi(strings.TrimSpace(x.Param(0)))
	if err != nil || length < 0 {
		return nil, ErrParam.Detail("random length " + x.Param(0))
	}

	var letters, numbers []string

	for _, flag := range x.Param(1) {
		switch flag {
		case 'u':
			letters = append(letters, strings.Split(poolUpper, "")...)
		case 'l':
			letters = append(letters, strings.Split(poolLower, "")...)
		case 'n':
			numbers = append(numbers, strings.Split(poolNumber, "")...)
		case 'c':
			letters = append(letters, splitFields(body)...)
		default:
			return nil, ErrParam.Detail("random pool flag " + string(flag))
		}
	}

	if len(letters)+len(numbers) == 0 {
		return nil, ErrParam.Detail("random pool is empty")
	}

	letterStart := false
	if len(x.Params) > 2 {
		var ok bool
		if letterStart, ok = lang.ParseBool(x.Param(2)); !ok {
			return nil, ErrParam.Detail("random letter start " + x.Param(2))
		}
	}

	ratio := 50
	if len(x.Params) > 3 {
		if ratio, err = strconv.Atoi(strings.TrimSpace(x.Param(3))); err != nil || ratio < 0 || ratio > 100 {
			return nil, ErrParam.Detail("random number ratio " + x.Param(3))
		}
	}

	return []string{randomString(length, letterStart, ratio, letters, numbers)}, nil
}

func randomString(length int, letterStart bool, ratio int, letters, numbers []string) string {
	var sb strings.Builder

	for i := range length {
		pool := letters

		switch {
		case len(letters) == 0:
			pool = numbers
		case len(numbers) == 0, i == 0 && letterStart:
		case rand.IntN(100) < ratio:
			pool = numbers
		}

		sb.WriteString(pool[rand.IntN(len(pool))])
	}

	return sb.String()
}

// dateConstruct is the 'd' construct: the current UTC date and time.
type dateConstruct struct{}

func (dateConstruct) Execute(c *Call, _ string) ([]string, error) {
	return []string{c.State.Now().UTC().Format(lang.DateLayout)}, nil
}
