// Package ui renders the live watch view: a bubbletea model fed by the
// streaming log parser, showing the event flow and reconstructed
// diagnostics as the engine writes its log.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"texel/internal/diag"
	"texel/internal/texlog"
)

// Update carries one batch of freshly parsed state into the view.
type Update struct {
	Events      []texlog.Event
	Diagnostics []diag.Diagnostic
	BufferLen   uint32
	Done        bool
}

const maxVisible = 12

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	fileStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// Model is the watch-mode TUI model.
type Model struct {
	name    string
	sp      spinner.Model
	updates <-chan Update

	events      []texlog.Event
	diagnostics []diag.Diagnostic
	bufLen      uint32
	done        bool
	width       int
}

// NewModel builds the model; updates must be closed when the log ends.
func NewModel(name string, updates <-chan Update) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	return Model{name: name, sp: sp, updates: updates, width: 100}
}

type updateMsg Update
type closedMsg struct{}

func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return closedMsg{}
		}
		return updateMsg(u)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.sp.Tick, m.waitForUpdate())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case updateMsg:
		m.events = msg.Events
		m.diagnostics = msg.Diagnostics
		m.bufLen = msg.BufferLen
		if msg.Done {
			m.done = true
			return m, tea.Quit
		}
		return m, m.waitForUpdate()

	case closedMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.sp, cmd = m.sp.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	status := m.sp.View() + " watching"
	if m.done {
		status = "done"
	}
	fmt.Fprintf(&b, "%s %s  %s\n",
		titleStyle.Render(m.name),
		dimStyle.Render(fmt.Sprintf("(%d bytes, %d events)", m.bufLen, len(m.events))),
		status)

	errors, warnings := 0, 0
	for _, d := range m.diagnostics {
		switch d.Severity {
		case diag.SevError:
			errors++
		case diag.SevWarning:
			warnings++
		}
	}
	fmt.Fprintf(&b, "%s  %s\n\n",
		errStyle.Render(fmt.Sprintf("%d errors", errors)),
		warnStyle.Render(fmt.Sprintf("%d warnings", warnings)))

	start := len(m.events) - maxVisible
	if start < 0 {
		start = 0
	}
	for _, e := range m.events[start:] {
		b.WriteString(renderEvent(e, m.width))
		b.WriteByte('\n')
	}

	if len(m.diagnostics) > 0 {
		b.WriteByte('\n')
		dstart := len(m.diagnostics) - maxVisible/2
		if dstart < 0 {
			dstart = 0
		}
		for _, d := range m.diagnostics[dstart:] {
			b.WriteString(renderDiagnostic(d, m.width))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderEvent(e texlog.Event, width int) string {
	var line string
	switch e.Kind {
	case texlog.EvFileEnter:
		line = fileStyle.Render("▸ " + e.Path)
	case texlog.EvFileExit:
		line = dimStyle.Render("◂ exit")
	case texlog.EvErrorStart:
		line = errStyle.Render("! " + e.Message)
	case texlog.EvErrorLineRef:
		line = errStyle.Render(fmt.Sprintf("  l.%d %s", e.Line, e.Excerpt))
	case texlog.EvWarning:
		line = warnStyle.Render("⚠ " + e.Message)
	case texlog.EvOutputArtifact:
		line = fileStyle.Render("⇒ " + e.Path)
	case texlog.EvBuildSummary:
		if e.Success {
			line = "✓ build finished"
		} else {
			line = errStyle.Render("✗ no output produced")
		}
	default:
		line = dimStyle.Render("· " + e.Message)
	}
	return truncate(line, width)
}

func renderDiagnostic(d diag.Diagnostic, width int) string {
	loc := d.File
	if loc == "" {
		loc = "<unmapped>"
	}
	if d.HasRange {
		loc = fmt.Sprintf("%s:%d", loc, d.Range.Start.Line+1)
	}
	style := warnStyle
	if d.Severity == diag.SevError {
		style = errStyle
	}
	return truncate(style.Render(fmt.Sprintf("%s %s %s", d.Code.ID(), loc, d.Message)), width)
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
