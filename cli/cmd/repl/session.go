package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ardnew/brace/engine"
	"github.com/ardnew/brace/lang"
	"github.com/ardnew/brace/record"
)

// Session is the evaluation state shared by every line of a REPL run.
type Session struct {
	Engine *engine.Engine
	Record record.Ref
	Org    string
	Locale int

	last string
}

func (s *Session) options() []engine.ParseOption {
	opts := []engine.ParseOption{engine.WithOrganization(s.Org)}

	if s.Locale > 0 {
		opts = append(opts, engine.WithLocale(s.Locale))
	}

	if !s.Record.IsZero() {
		opts = append(opts, engine.WithReference(s.Record))
	}

	return opts
}

// Eval parses input as a template against the session's record, locale
// and organization.
func (s *Session) Eval(ctx context.Context, input string) (string, error) {
	if s.Engine == nil {
		return "", ErrNoEngine
	}

	s.last = input

	return s.Engine.Parse(ctx, input, s.options()...)
}

// Last returns the most recently evaluated template.
func (s *Session) Last() string { return s.last }

// action is the side effect a control command asks of the REPL.
type action int

const (
	actNone action = iota
	actQuit
	actClear
	actEdit
)

func helpMessage() string {
	return `
: Commands (press Esc to toggle mode):

  help                     Print this message
  list [constructs|pre|post]
                           List registered keywords
  record [entity/id|none]  Show or set the current record
  locale [lcid]            Show or set the locale
  org [name]               Show or set the organization
  edit                     Edit the last template in $EDITOR
  clear                    Clear screen
  quit                     Exit REPL

Usage:
  Type a template to evaluate it, e.g. {c|name|} or {e|1+2|}
  Completions appear after {, % and @ as you type
  Press Tab / Shift-Tab to cycle through candidates
  Press Esc to toggle between eval and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Use Alt+Up/Alt+Down to navigate command history only
  Press Ctrl+C on empty line or Ctrl+D to exit
`
}

// control runs one control-mode command and returns its output.
func (s *Session) control(input string) (string, action, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return "", actNone, nil
	}

	name, args := fields[0], fields[1:]

	switch name {
	case "q", "quit", "exit":
		return "", actQuit, nil

	case "h", "help":
		return helpMessage(), actNone, nil

	case "c", "clear":
		return "", actClear, nil

	case "e", "edit":
		return "", actEdit, nil

	case "l", "list":
		out, err := s.list(args)

		return out, actNone, err

	case "record":
		if len(args) > 0 {
			if args[0] == "none" {
				s.Record = record.Ref{}
			} else {
				ref, err := record.ParseRef(args[0])
				if err != nil {
					return "", actNone, err
				}

				s.Record = ref
			}
		}

		if s.Record.IsZero() {
			return "record: none", actNone, nil
		}

		return "record: " + s.Record.String(), actNone, nil

	case "locale":
		if len(args) > 0 {
			lcid, err := strconv.Atoi(args[0])
			if err != nil || lcid <= 0 {
				return "", actNone, fmt.Errorf("%w: locale %q", ErrInvalidArgument, args[0])
			}

			s.Locale = lcid
		}

		return "locale: " + strconv.Itoa(s.Locale), actNone, nil

	case "org":
		if len(args) > 0 {
			s.Org = args[0]
		}

		return "org: " + s.Org, actNone, nil
	}

	return "", actNone, fmt.Errorf("%w: %s (try 'help')", ErrUnknownCommand, name)
}

type listing struct{ key, long, help string }

func (s *Session) list(args []string) (string, error) {
	if s.Engine == nil {
		return "", ErrNoEngine
	}

	reg := s.Engine.Registry()

	var rows []listing

	what := "constructs"
	if len(args) > 0 {
		what = args[0]
	}

	switch what {
	case "constructs", "construct":
		for _, e := range reg.Constructs() {
			rows = append(rows, listing{e.Key, e.Long, e.Help})
		}
	case "pre", "preprocessors":
		for _, e := range reg.Preprocessors() {
			rows = append(rows, listing{e.Key, e.Long, e.Help})
		}
	case "post", "postprocessors":
		for _, e := range reg.Postprocessors() {
			rows = append(rows, listing{e.Key, e.Long, e.Help})
		}
	default:
		return "", fmt.Errorf("%w: list %q", ErrInvalidArgument, what)
	}

	var b strings.Builder

	for _, r := range rows {
		name := r.key
		if r.long != "" && r.long != r.key {
			name += " " + hintStyle.Render("("+r.long+")")
		}

		fmt.Fprintf(&b, "  %s  %s\n", name, hintStyle.Render(r.help))
	}

	return strings.TrimSuffix(b.String(), "\n"), nil
}

// keywordHelp returns the help line of the keyword of type typ named key.
func (s *Session) keywordHelp(typ lang.Type, key string) (string, bool) {
	if s.Engine == nil || key == "" {
		return "", false
	}

	return s.Engine.Registry().Help(typ, key)
}
