package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	nimble "github.com/deliteai/nimblecore"
)

// shell wraps a loaded Task for the interactive prompt: each line is either
// a bare function name or `name {json-args}`, evaluated against the task's
// already-initialized main module via Operate.
type shell struct {
	task *nimble.Task
}

func newShell(task *nimble.Task) *shell {
	return &shell{task: task}
}

func (s *shell) run(input []byte) (string, error) {
	line := strings.TrimSpace(string(input))
	name, rawArgs, _ := strings.Cut(line, " ")
	rawArgs = strings.TrimSpace(rawArgs)

	inputs := map[string]nimble.Value{}
	if rawArgs != "" {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(rawArgs), &decoded); err != nil {
			return "", fmt.Errorf("parsing args: %w", err)
		}
		for k, v := range decoded {
			inputs[k] = jsonToValue(v)
		}
	}

	result, err := s.task.Operate(name, inputs)
	if err != nil {
		return "", err
	}
	return result.String(), nil
}

// checkBalanced reports whether input's braces/brackets/parens are still
// open, so the shell can accept a multi-line JSON args blob before
// submitting it. There is no script source to tokenize here (this runtime
// never parses script text, only pre-built ASTs), so this is a plain rune
// count rather than a real scanner.
func checkBalanced(input []byte) bool {
	depth := 0
	for _, r := range string(input) {
		switch r {
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		}
	}
	return depth > 0
}

type model struct {
	input         [][]rune
	line          int
	col           int
	shell         *shell
	quitting      bool
	err           error
	history       [][][]rune
	uncommited    [][][]rune
	uncommitedIdx int
	textStyle     lipgloss.Style
	cursorStyle   lipgloss.Style
}

func newModel(task *nimble.Task) model {
	return model{
		input:         make([][]rune, 1),
		line:          0,
		col:           0,
		quitting:      false,
		shell:         newShell(task),
		err:           nil,
		history:       nil,
		uncommited:    make([][][]rune, 1),
		uncommitedIdx: 0,
		textStyle:     lipgloss.NewStyle().Inline(true),
		cursorStyle:   lipgloss.NewStyle().Inline(true).Reverse(true),
	}
}

func (m *model) reset() {
	clear(m.uncommited)
	m.uncommitedIdx = len(m.uncommited) - 1
	m.input = m.input[:1]
	m.input[0] = m.input[0][:0]
	m.line = 0
	m.col = 0
}

func (m *model) upHistory() {
	if m.uncommitedIdx > 0 {
		m.uncommited[m.uncommitedIdx] = m.input
		m.uncommitedIdx--
		if m.uncommited[m.uncommitedIdx] == nil {
			histItem := slices.Clone(m.history[m.uncommitedIdx])
			for i := range histItem {
				histItem[i] = slices.Clone(histItem[i])
			}
			m.uncommited[m.uncommitedIdx] = histItem
		}
		m.input = m.uncommited[m.uncommitedIdx]
		m.line = len(m.input) - 1
		m.col = len(m.input[m.line])
	}
}

func (m *model) downHistory() {
	if m.uncommitedIdx+1 < len(m.uncommited) {
		m.uncommited[m.uncommitedIdx] = m.input
		m.uncommitedIdx++
		m.input = m.uncommited[m.uncommitedIdx]
		m.line = len(m.input) - 1
		m.col = len(m.input[m.line])
	}
}

func (m *model) prevLineOrUpHistory() {
	if m.line > 0 {
		m.line--
		if m.col >= len(m.input[m.line]) {
			m.col = len(m.input[m.line])
		}
	} else if len(m.input) == 1 {
		m.upHistory()
	}
}

func (m *model) nextLineOrDownHistory() {
	if m.line+1 < len(m.input) {
		m.line++
		if m.col >= len(m.input[m.line]) {
			m.col = len(m.input[m.line])
		}
	} else if len(m.input) == 1 && m.uncommitedIdx+1 < len(m.uncommited) {
		m.downHistory()
	}
}

func (m *model) charForward() {
	if m.col > 0 {
		m.col--
	} else if m.line > 0 {
		m.line--
		m.col = len(m.input[m.line])
	}
}

func (m *model) charBackward() {
	if m.col < len(m.input[m.line]) {
		m.col++
	} else if m.line+1 < len(m.input) {
		m.line++
		m.col = 0
	}
}

func (m *model) deleteCharBefore() {
	if m.col > 0 {
		m.input[m.line] = slices.Delete(m.input[m.line], m.col-1, m.col)
		m.col -= 1
	} else if m.line > 0 {
		m.col = len(m.input[m.line-1])
		m.input[m.line-1] = append(m.input[m.line-1], m.input[m.line]...)
		m.input = slices.Delete(m.input, m.line, m.line+1)
		m.line--
	}
}

func (m *model) deleteCharAfter() {
	if m.col < len(m.input[m.line]) {
		m.input[m.line] = slices.Delete(m.input[m.line], m.col, m.col+1)
	} else if m.line+1 < len(m.input) {
		m.input[m.line] = append(m.input[m.line], m.input[m.line+1]...)
		m.input = slices.Delete(m.input, m.line+1, m.line+2)
	}
}

func (m *model) lineStart() {
	m.col = 0
}

func (m *model) lineEnd() {
	m.col = len(m.input[m.line])
}

// Unicode character ranges that
// are considered to be a part of a word.
var wordRange = []*unicode.RangeTable{
	unicode.L,
	unicode.Nd,
	unicode.Pc,
}

// Looks forward, find a first non-word character
// (while ignoring leading spaces) and moves the cursor
// to that character.
func (m *model) wordForward() {
	skipping := true
	i := m.line
	j := m.col
	for ; i < len(m.input); i++ {
		for ; j < len(m.input[i]); j++ {
			r := m.input[i][j]
			if skipping {
				if unicode.IsSpace(r) {
					continue
				}
				skipping = false
			} else if !unicode.In(r, wordRange...) {
				break
			}
		}
		if !skipping {
			m.line = i
			m.col = j
			return
		}
		j = 0
	}
	m.line = len(m.input) - 1
	m.col = len(m.input[m.line])
}

// Looks backward, find a first non-space character
// (while ignoring leading word characters) and moves the cursor
// to the character after that character.
func (m *model) wordBackward() {
	skipping := true
	i := m.line
	j := m.col - 1
	for ; i >= 0; i-- {
		for ; j >= 0; j-- {
			r := m.input[i][j]
			if skipping {
				if unicode.In(r, wordRange...) {
					continue
				}
				skipping = false
			} else if !unicode.IsSpace(r) {
				break
			}
		}
		if !skipping {
			m.line = i
			m.col = j + 1
			return
		}
		if i > 0 {
			j = len(m.input[i-1]) - 1
		}
		skipping = false
	}
	m.line = 0
	m.col = 0
}

func (m *model) deleteWordBackward() {
	oldLine := m.line
	oldCol := m.col
	m.wordBackward()
	switch {
	case m.line == oldLine && m.col == oldCol:
		return
	case m.line == oldLine:
		m.input[m.line] = slices.Delete(m.input[m.line], m.col, oldCol)
	default:
		m.input[m.line] = append(m.input[m.line][:m.col], m.input[oldLine][oldCol:]...)
		m.input = slices.Delete(m.input, m.line+1, oldLine+1)
	}
}

func (m *model) deleteWordForward() {
	oldLine := m.line
	oldCol := m.col
	m.wordForward()
	switch {
	case m.line == oldLine && m.col == oldCol:
		return
	case m.line == oldLine:
		m.input[oldLine] = slices.Delete(m.input[oldLine], oldCol, m.col)
		m.col = oldCol
	default:
		m.input[oldLine] = append(m.input[oldLine][:oldCol], m.input[m.line][m.col:]...)
		m.input = slices.Delete(m.input, oldLine+1, m.line+1)
		m.line = oldLine
		m.col = oldCol
	}
}

func (m *model) deleteAfterCursor() {
	if m.col != len(m.input[m.line]) {
		m.input[m.line] = m.input[m.line][:m.col]
	} else if m.line+1 < len(m.input) {
		m.input[m.line] = append(m.input[m.line], m.input[m.line+1]...)
		m.input = slices.Delete(m.input, m.line+1, m.line+2)
	}
}

func (m *model) deleteBeforeCursor() {
	if m.col != 0 {
		m.input[m.line] = slices.Delete(m.input[m.line], 0, m.col)
		m.col = 0
	} else if m.line > 0 {
		m.col = len(m.input[m.line-1])
		m.input[m.line-1] = append(m.input[m.line-1], m.input[m.line]...)
		m.input = slices.Delete(m.input, m.line, m.line+1)
		m.line--
	}
}

func (m *model) newLine() {
	m.handleUserInput([]rune("\n"))
}

func (m *model) onEnter() (tea.Model, tea.Cmd) {
	var buf bytes.Buffer
	for i, line := range m.input {
		if i != 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(string(line))
	}

	input := bytes.TrimSpace(buf.Bytes())
	if len(input) == 0 {
		return m, nil
	}

	if checkBalanced(input) {
		m.newLine()
		return m, nil
	}

	output, err := m.shell.run(input)
	if err != nil {
		m.err = err
		return m, nil
	}

	cmds := []tea.Cmd{tea.Println(m.view(true))}
	if output != "" {
		cmds = append(cmds, tea.Println(output))
	}

	m.history = append(m.history, m.input)
	clear(m.uncommited)
	m.uncommited = append(m.uncommited, nil)
	m.uncommitedIdx = len(m.uncommited) - 1

	m.input = make([][]rune, 1)
	m.line = 0
	m.col = 0

	return m, tea.Sequence(cmds...)
}

func (m *model) handleUserInput(runes []rune) {
	var buf, rem []rune
	for _, r := range runes {
		switch {
		case r == '\r' || r == '\n':
			rem = append(rem, m.input[m.line][m.col:]...)
			m.input[m.line] = append(m.input[m.line][:m.col], buf...)
			buf = buf[:0]
			m.col = 0
			m.line++
			if m.line == len(m.input) {
				m.input = append(m.input, nil)
			}
		case r == '\t':
			buf = append(buf, ' ', ' ')
		case unicode.IsPrint(r):
			buf = append(buf, r)
		}
	}
	if len(buf) != 0 || len(rem) != 0 {
		m.input[m.line] = slices.Concat(m.input[m.line][:m.col], buf, rem, m.input[m.line][m.col:])
		m.col += len(buf)
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Printf("nimblerun %s (%s)", version, compilationDate)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.err != nil {
		m.err = nil
	}
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+q":
			m.quitting = true
			return m, tea.Quit
		case "ctrl+d":
			if len(m.input) == 1 && len(m.input[m.line]) == 0 {
				m.quitting = true
				return m, tea.Quit
			}
			m.deleteCharAfter()
		case "ctrl+l":
			return m, tea.ClearScreen
		case "ctrl+c":
			m.reset()
		case "up":
			m.prevLineOrUpHistory()
		case "down":
			m.nextLineOrDownHistory()
		case "ctrl+p":
			m.upHistory()
		case "ctrl+n":
			m.downHistory()
		case "left":
			m.charForward()
		case "right", "ctrl+f":
			m.charBackward()
		case "backspace", "ctrl+h":
			m.deleteCharBefore()
		case "delete":
			m.deleteCharAfter()
		case "home", "ctrl+a":
			m.lineStart()
		case "end", "ctrl+e":
			m.lineEnd()
		case "alt+right", "ctrl+right", "alt+f":
			m.wordForward()
		case "alt+left", "ctrl+left", "alt+b":
			m.wordBackward()
		case "alt+backspace", "ctrl+w":
			m.deleteWordBackward()
		case "alt+delete", "alt+d":
			m.deleteWordForward()
		case "ctrl+k":
			m.deleteAfterCursor()
		case "ctrl+u":
			m.deleteBeforeCursor()
		case "enter":
			return m.onEnter()
		case "tab":
			m.handleUserInput([]rune{' ', ' '})
		default:
			m.handleUserInput(msg.Runes)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *model) view(persist bool) string {
	if persist || m.quitting {
		cursorStyle := m.cursorStyle
		m.cursorStyle = m.textStyle
		defer func() { m.cursorStyle = cursorStyle }()
	}
	var b strings.Builder
	for i, line := range m.input {
		if i == 0 {
			b.WriteString(">>> ")
		} else {
			b.WriteString("\n... ")
		}
		if m.line != i {
			b.WriteString(m.textStyle.Render(string(line)))
			continue
		}
		b.WriteString(m.textStyle.Render(string(line[:m.col])))
		if m.col < len(line) {
			b.WriteString(m.cursorStyle.Render(string(line[m.col])))
			b.WriteString(m.textStyle.Render(string(line[m.col+1:])))
		} else {
			b.WriteString(m.cursorStyle.Render(" "))
		}
	}
	if !persist {
		b.WriteByte('\n')
		if m.err != nil {
			b.WriteString(m.err.Error())
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m *model) View() string {
	return m.view(false)
}

// runShell starts the interactive bubbletea prompt against an already
// loaded task: each line is `functionName [json-args]`, run via
// Task.Operate, with the result (or error) printed below the input.
func runShell(task *nimble.Task, in io.Reader, out io.Writer) error {
	m := newModel(task)
	p := tea.NewProgram(&m, tea.WithInput(in), tea.WithOutput(out))
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
