package repl

import (
	"io"
	"os"
	"os/exec"
	"strings"
)

const defaultEditor = "vi"

// editDoneMsg carries the template saved by the editor.
type editDoneMsg struct{ text string }

// editCancelledMsg is sent when the editor saved an empty file.
type editCancelledMsg struct{}

// editErrorMsg is sent when the editor could not be run.
type editErrorMsg struct{ err error }

// editCommand implements [tea.ExecCommand]. It writes a template to a
// temporary file, opens it in $EDITOR and reads back the result.
type editCommand struct {
	text   string
	result string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c *editCommand) SetStdin(r io.Reader)  { c.stdin = r }
func (c *editCommand) SetStdout(w io.Writer) { c.stdout = w }
func (c *editCommand) SetStderr(w io.Writer) { c.stderr = w }

func (c *editCommand) Run() error {
	f, err := os.CreateTemp("", "brace-repl-*.brace")
	if err != nil {
		return err
	}

	path := f.Name()

	defer os.Remove(path)

	_, err = f.WriteString(c.text)
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		return err
	}

	name, args := editorCommand(os.Getenv("EDITOR"))

	cmd := exec.Command(name, append(args, path)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = c.stdin, c.stdout, c.stderr

	if err := cmd.Run(); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c.result = strings.TrimRight(string(data), "\r\n")

	return nil
}

// editorCommand splits an $EDITOR value such as "code --wait" into the
// program and its arguments.
func editorCommand(env string) (string, []string) {
	fields := strings.Fields(env)
	if len(fields) == 0 {
		return defaultEditor, nil
	}

	return fields[0], fields[1:]
}
