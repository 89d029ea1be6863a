package repl

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/brace/log"
)

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

// inputMode is the mode a line is typed in.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	matchStyle      = suggestionStyle.Bold(true).Underline(true)
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
	selectedMatchStyle = selectedStyle.Bold(true)
)

// model is the Bubble Tea model of the REPL.
type model struct {
	ctx     context.Context
	session *Session
	input   textinput.Model
	logger  log.Logger
	history *History
	histIdx int
	width   int
	mode    inputMode

	// Completion state.
	matches    fuzzy.Matches
	candidates []string
	wordStart  int
	wordEnd    int
	suggIdx    int
	tabActive  bool
	preTab     saved

	// Alt+Up/Down navigation state.
	altActive bool
	altOrig   saved
	altMode   inputMode

	// Input of the mode not shown.
	stash [2]saved

	quitting bool
}

// saved is an input line and its cursor.
type saved struct {
	text   string
	cursor int
}

const defaultWidth = 80

// Run starts an interactive session. History is kept in cacheDir, or in
// memory if cacheDir is empty.
func Run(ctx context.Context, sess *Session, cacheDir string, logger log.Logger) error {
	if sess == nil || sess.Engine == nil {
		return ErrNoEngine
	}

	var path string
	if cacheDir != "" {
		path = filepath.Join(cacheDir, baseHistory)
	}

	history := NewHistory(path)
	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "history not loaded",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}

	logger.TraceContext(ctx, "repl start",
		slog.String("history", path),
		slog.Int("entries", history.Len()),
		slog.String("org", sess.Org),
		slog.Int("locale", sess.Locale),
	)

	_, err := tea.NewProgram(newModel(ctx, sess, history, logger), tea.WithContext(ctx)).Run()

	return err
}

func newModel(ctx context.Context, sess *Session, history *History, logger log.Logger) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = defaultWidth

	return model{
		ctx:     ctx,
		session: sess,
		input:   ti,
		logger:  logger,
		history: history,
		histIdx: history.Len(),
		width:   defaultWidth,
		suggIdx: -1,
	}
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil

	case editDoneMsg:
		return m.evaluate(msg.text)

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("edit cancelled"))

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	return m.input.View() + "\n" + m.statusLine() + "\n"
}

// statusLine is the line below the input: history position, completion
// candidates, keyword help or a usage hint.
func (m model) statusLine() string {
	input := m.input.Value()

	if m.histIdx < m.history.Len() {
		pos := lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.histIdx + 1))

		return hintStyle.Render(fmt.Sprintf("%s/%d", pos, m.history.Len()))
	}

	if strings.TrimSpace(input) == "" {
		if m.mode == modeCtrl {
			return hintStyle.Render("Type: " + strings.Join(ctrlCommands, ", ") + " (press Esc to return)")
		}

		return hintStyle.Render("Type a template or press Esc for commands")
	}

	if len(m.matches) > 0 {
		return renderCandidateBar(m.matches, m.suggIdx, m.tabActive, m.width)
	}

	if m.mode == modeEval {
		if typ, key := detectKeyword(input, m.cursor()); typ.IsKeyword() {
			return renderKeywordHint(m.session, typ, key)
		}
	}

	return ""
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive, m.altActive = false, false
		m.histIdx = m.history.Len()
		m.refresh(false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		m.altActive = false

		if m.tabActive && len(m.matches) > 0 {
			m.tabActive = false
			m.refresh(true)

			return m, nil
		}

		return m.submit()

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		if msg.Alt {
			return m.stepCtrl(-1), nil
		}

		return m.step(-1, false), nil

	case tea.KeyDown:
		if msg.Alt {
			return m.stepCtrl(1), nil
		}

		return m.step(1, false), nil

	case tea.KeyShiftUp:
		return m.step(-1, true), nil

	case tea.KeyShiftDown:
		return m.step(1, true), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.restore(m.preTab)
			m.refresh(false)

			return m, nil
		}

		m.altActive = false

		return m.switchTo(1 - m.mode), nil

	case tea.KeyRunes:
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.histIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		m.refresh(true)

		return m, cmd
	}

	var cmd tea.Cmd

	m.tabActive, m.altActive = false, false
	m.histIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	m.refresh(false)

	return m, cmd
}

func (m model) current() saved {
	return saved{text: m.input.Value(), cursor: m.input.Position()}
}

func (m *model) restore(s saved) {
	m.input.SetValue(s.text)
	m.input.SetCursor(s.cursor)
}

// cycle moves the selected candidate by dir and writes it into the input.
// A sole candidate is accepted at once.
func (m model) cycle(dir int) model {
	n := len(m.matches)

	switch {
	case n == 0:
		return m

	case n == 1:
		m.replaceWord(m.matches[0].Str)
		m.tabActive, m.suggIdx, m.matches = false, -1, nil

		return m

	case !m.tabActive:
		m.tabActive = true
		m.preTab = m.current()

		m.suggIdx = 0
		if dir < 0 {
			m.suggIdx = n - 1
		}

	default:
		m.suggIdx = (m.suggIdx + dir + n) % n
	}

	m.replaceWord(m.matches[m.suggIdx].Str)

	return m
}

func (m *model) replaceWord(s string) {
	input := m.input.Value()
	head := input[:m.wordStart] + s

	m.input.SetValue(head + input[m.wordEnd:])
	m.input.SetCursor(utf8.RuneCountInString(head))
	m.wordEnd = len(head)
}

// cursor returns the byte offset of the input cursor.
func (m model) cursor() int {
	runes := []rune(m.input.Value())

	return len(string(runes[:min(m.input.Position(), len(runes))]))
}

// refresh recomputes the completion candidates. With accept set, a word
// already equal to its sole candidate is accepted.
func (m *model) refresh(accept bool) {
	m.matches, m.candidates, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !accept || len(m.matches) != 1 {
		return
	}

	if m.input.Value()[m.wordStart:m.wordEnd] == m.matches[0].Str {
		m.tabActive, m.suggIdx, m.matches = false, -1, nil
	}
}

func (m model) submit() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	mode := m.mode

	m.stash = [2]saved{}
	m.input.SetValue("")

	if err := m.history.Add(input, mode); err != nil {
		m.logger.DebugContext(m.ctx, "history not saved", slog.Any("error", err))
	}

	m.histIdx = m.history.Len()

	if mode == modeCtrl {
		return m.command(input)
	}

	return m.evaluate(input)
}

// evaluate echoes input highlighted and prints its result.
func (m model) evaluate(input string) (model, tea.Cmd) {
	echo := inputStyle.Render(input)
	if hl, err := m.session.Engine.HighlightANSI(input); err == nil {
		echo = hl
	}

	echoCmd := tea.Println(promptStyle.Render(evalPrompt) + echo)

	out, err := m.session.Eval(m.ctx, input)

	m.logger.TraceContext(m.ctx, "repl eval",
		slog.String("template", input),
		slog.Bool("ok", err == nil),
	)

	if err != nil {
		return m, tea.Sequence(echoCmd, tea.Println(errorStyle.Render("error: "+err.Error())))
	}

	return m, tea.Sequence(echoCmd, tea.Println(resultStyle.Render(out)))
}

func (m model) command(input string) (model, tea.Cmd) {
	echoCmd := tea.Println(ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input))

	out, act, err := m.session.control(input)

	m.logger.TraceContext(m.ctx, "repl command",
		slog.String("input", input),
		slog.Int("action", int(act)),
	)

	if err != nil {
		return m, tea.Sequence(echoCmd, tea.Println(errorStyle.Render(err.Error())))
	}

	switch act {
	case actQuit:
		m.quitting = true

		return m, tea.Sequence(echoCmd, tea.Quit)

	case actClear:
		return m, tea.ClearScreen

	case actEdit:
		return m, tea.Sequence(echoCmd, m.edit())
	}

	return m, tea.Sequence(echoCmd, tea.Println(out))
}

func (m model) edit() tea.Cmd {
	c := &editCommand{text: m.session.Last()}

	return tea.Exec(c, func(err error) tea.Msg {
		switch {
		case err != nil:
			return editErrorMsg{err: err}
		case strings.TrimSpace(c.result) == "":
			return editCancelledMsg{}
		}

		return editDoneMsg{text: c.result}
	})
}

// step moves through history by dir, switching mode to follow the entry.
// With sameMode set, entries of the other mode are skipped.
func (m model) step(dir int, sameMode bool) model {
	mode := m.mode

	for i := m.histIdx + dir; i >= 0 && i < m.history.Len(); i += dir {
		e, err := m.history.Entry(i)
		if err != nil || (sameMode && e.Mode != mode) {
			continue
		}

		m.histIdx = i
		if e.Mode != m.mode {
			m = m.switchTo(e.Mode)
		}

		m.restore(saved{text: e.Line, cursor: len(e.Line)})
		m.refresh(false)

		return m
	}

	if dir > 0 && m.histIdx < m.history.Len() {
		m.histIdx = m.history.Len()
		m.input.SetValue("")
		m.refresh(false)
	}

	return m
}

// stepCtrl moves through control-mode history only. Leaving either end
// restores the line and mode that were current before.
func (m model) stepCtrl(dir int) model {
	if !m.altActive {
		m.altActive = true
		m.altMode = m.mode
		m.altOrig = m.current()

		if m.mode != modeCtrl {
			m = m.switchTo(modeCtrl)
		}
	}

	for i := m.histIdx + dir; i >= 0 && i < m.history.Len(); i += dir {
		if e, err := m.history.Entry(i); err == nil && e.Mode == modeCtrl {
			m.histIdx = i
			m.restore(saved{text: e.Line, cursor: len(e.Line)})
			m.refresh(false)

			return m
		}
	}

	m.altActive = false
	if m.altMode != m.mode {
		m = m.switchTo(m.altMode)
	}

	m.restore(m.altOrig)
	m.histIdx = m.history.Len()
	m.refresh(false)

	return m
}

// switchTo changes the input mode, keeping each mode's line.
func (m model) switchTo(mode inputMode) model {
	m.stash[m.mode] = m.current()
	m.mode = mode

	if mode == modeCtrl {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
	} else {
		m.input.Prompt = promptStyle.Render(evalPrompt)
	}

	m.restore(m.stash[mode])
	m.refresh(false)

	return m
}
