package repl

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync"
)

const baseHistory = "history.utf8"

// HistoryEntry is one submitted line and the mode it was submitted in.
type HistoryEntry struct {
	Line string
	Mode inputMode
}

// marker prefixes each line of the history file with its mode.
func (e HistoryEntry) marker() string {
	if e.Mode == modeCtrl {
		return "C:"
	}

	return "E:"
}

// History is the list of submitted lines, persisted to a file. A line
// submitted again moves to the end instead of repeating.
type History struct {
	mu      sync.RWMutex
	path    string
	entries []HistoryEntry
}

// NewHistory returns an empty History persisted at path. An empty path
// keeps the history in memory only.
func NewHistory(path string) *History {
	return &History{path: path}
}

// Load replaces the entries with those of the history file. A missing file
// is an empty history.
func (h *History) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil

	if h.path == "" {
		return nil
	}

	f, err := os.Open(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}

	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		e := HistoryEntry{Line: line, Mode: modeEval}

		if s, ok := strings.CutPrefix(line, "C:"); ok {
			e = HistoryEntry{Line: s, Mode: modeCtrl}
		} else if s, ok := strings.CutPrefix(line, "E:"); ok {
			e.Line = s
		}

		h.entries = append(h.entries, e)
	}

	return sc.Err()
}

// Add appends line in the given mode and persists it.
func (h *History) Add(line string, mode inputMode) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.ContainsAny(line, "\r\n") {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	e := HistoryEntry{Line: line, Mode: mode}

	if n := len(h.entries); n > 0 && h.entries[n-1] == e {
		return nil
	}

	i := slices.Index(h.entries, e)
	if i >= 0 {
		h.entries = slices.Delete(h.entries, i, i+1)
	}

	h.entries = append(h.entries, e)

	if h.path == "" {
		return nil
	}

	if i >= 0 {
		return h.rewrite()
	}

	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	defer f.Close()

	_, err = f.WriteString(e.marker() + e.Line + "\n")

	return err
}

// Entry returns the entry at index i; index 0 is the oldest.
func (h *History) Entry(i int) (HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if i < 0 || i >= len(h.entries) {
		return HistoryEntry{}, ErrOutOfBounds
	}

	return h.entries[i], nil
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// rewrite replaces the history file with the entries. h.mu must be held.
func (h *History) rewrite() error {
	var sb strings.Builder

	for _, e := range h.entries {
		sb.WriteString(e.marker())
		sb.WriteString(e.Line)
		sb.WriteByte('\n')
	}

	return os.WriteFile(h.path, []byte(sb.String()), 0o600)
}
