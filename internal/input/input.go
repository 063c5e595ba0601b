// Package input abstracts line-oriented user input. The interactive
// reader adds history navigation and line editing on a TTY; piped and
// CI input falls back to plain buffered reads.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// Reader reads one trimmed line per call. Returns io.EOF when the
// input source is exhausted.
type Reader interface {
	ReadLine() (string, error)
}

// StdinReader reads lines from an io.Reader, normally os.Stdin.
type StdinReader struct {
	reader *bufio.Reader
}

// NewStdinReader wraps r for line-based reading.
func NewStdinReader(r io.Reader) *StdinReader {
	return &StdinReader{reader: bufio.NewReader(r)}
}

func (r *StdinReader) ReadLine() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// InteractiveReader provides up/down history navigation and line
// editing via a terminal UI. History is in-memory only.
type InteractiveReader struct {
	history    []string
	maxHistory int
	prompt     string
}

// NewInteractive returns an InteractiveReader when stdin is a TTY and
// a StdinReader otherwise.
func NewInteractive(prompt string, maxHistory int) Reader {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return NewStdinReader(os.Stdin)
	}
	return &InteractiveReader{
		history:    make([]string, 0, maxHistory),
		maxHistory: maxHistory,
		prompt:     prompt,
	}
}

// ReadLine runs a one-shot terminal prompt. Enter submits, up/down
// walk history, Ctrl+C clears the line, Ctrl+D on an empty line is EOF.
func (r *InteractiveReader) ReadLine() (string, error) {
	ti := textinput.New()
	ti.Prompt = r.prompt
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = 80

	m := promptModel{
		textInput:    ti,
		history:      r.history,
		historyIndex: -1,
	}

	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	result, ok := final.(promptModel)
	if !ok {
		return "", fmt.Errorf("unexpected model type from prompt: %T", final)
	}

	if result.eof && result.textInput.Value() == "" {
		return "", io.EOF
	}

	line := strings.TrimSpace(result.textInput.Value())
	if line != "" {
		r.remember(line)
	}
	return line, nil
}

func (r *InteractiveReader) remember(line string) {
	// Skip duplicates of the most recent entry.
	if len(r.history) > 0 && r.history[len(r.history)-1] == line {
		return
	}
	r.history = append(r.history, line)
	if len(r.history) > r.maxHistory {
		r.history = r.history[1:]
	}
}

// promptModel is the terminal UI model for a single prompt.
type promptModel struct {
	textInput    textinput.Model
	history      []string
	historyIndex int // -1 means editing a fresh line
	pending      string
	done         bool
	eof          bool
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit

		case tea.KeyCtrlC:
			m.textInput.SetValue("")
			m.done = true
			return m, tea.Quit

		case tea.KeyCtrlD:
			m.eof = true
			m.textInput.SetValue("")
			m.done = true
			return m, tea.Quit

		case tea.KeyUp:
			if len(m.history) == 0 {
				return m, nil
			}
			if m.historyIndex == -1 {
				m.pending = m.textInput.Value()
				m.historyIndex = len(m.history) - 1
			} else if m.historyIndex > 0 {
				m.historyIndex--
			}
			m.textInput.SetValue(m.history[m.historyIndex])
			m.textInput.CursorEnd()
			return m, nil

		case tea.KeyDown:
			if m.historyIndex == -1 {
				return m, nil
			}
			if m.historyIndex < len(m.history)-1 {
				m.historyIndex++
				m.textInput.SetValue(m.history[m.historyIndex])
			} else {
				m.historyIndex = -1
				m.textInput.SetValue(m.pending)
			}
			m.textInput.CursorEnd()
			return m, nil
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done {
		return ""
	}
	return m.textInput.View()
}

// ScriptReader replays a fixed sequence of lines, then io.EOF. Used by
// tests that drive interactive loops.
type ScriptReader struct {
	lines []string
	index int
}

// NewScriptReader returns a reader that yields lines in order.
func NewScriptReader(lines []string) *ScriptReader {
	return &ScriptReader{lines: lines}
}

func (r *ScriptReader) ReadLine() (string, error) {
	if r.index >= len(r.lines) {
		return "", io.EOF
	}
	line := r.lines[r.index]
	r.index++
	return line, nil
}
