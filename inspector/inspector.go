// Package inspector implements an interactive explorer for the compilation
// pipeline.
//
// The inspector lets the user pick one of the built-in sample programs, flip
// the optimization level, and page through the pipeline's artifacts: the raw
// TAC, the optimized TAC, the optimizer's statistics, and the generated C.
// It uses the Charm libraries (Bubbletea, Bubbles, and Lipgloss) for a
// modern terminal interface; recompilation runs asynchronously with a
// spinner so the UI never blocks.
package inspector

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dr8co/naturec/analyzer"
	"github.com/dr8co/naturec/codegen"
	"github.com/dr8co/naturec/frontend"
	"github.com/dr8co/naturec/irgen"
	"github.com/dr8co/naturec/optimizer"
)

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	sampleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C")).
			Bold(true)

	paneTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	contentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAF00"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))
)

// pane identifies one of the inspector's views.
type pane int

const (
	paneSource pane = iota
	paneTAC
	paneOptimized
	paneStats
	paneC

	paneCount
)

// paneTitles names each pane in display order.
var paneTitles = [paneCount]string{
	"Source",
	"TAC",
	"Optimized TAC",
	"Optimizer Stats",
	"Generated C",
}

// compileResultMsg carries one finished pipeline run back into the UI.
type compileResultMsg struct {
	sample      string
	level       optimizer.Level
	tacText     string
	optText     string
	statsText   string
	cSource     string
	diagnostics []analyzer.Diagnostic
	failed      bool
}

// Options configures the inspector.
type Options struct {
	// NoColor disables styled output.
	NoColor bool
}

// model is the inspector's UI state.
type model struct {
	samples  []frontend.Sample
	selected int
	level    optimizer.Level
	pane     pane

	compiling bool
	spinner   spinner.Model
	result    *compileResultMsg

	options Options
}

// Start runs the inspector until the user quits.
func Start(options Options) error {
	p := tea.NewProgram(initialModel(options))
	_, err := p.Run()
	return err
}

// initialModel creates the starting state and kicks off the first compile.
func initialModel(options Options) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		samples:   frontend.Samples,
		level:     optimizer.LevelFull,
		compiling: true,
		spinner:   s,
		options:   options,
	}
}

// applyStyle applies a lipgloss style to a string, respecting NoColor.
func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

// Init starts the spinner and compiles the first sample.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.compile())
}

// compile runs the pipeline for the current sample and level in the
// background.
func (m model) compile() tea.Cmd {
	sample := m.samples[m.selected]
	level := m.level

	return func() tea.Msg {
		msg := compileResultMsg{sample: sample.Name, level: level}

		program := sample.Program()
		result := analyzer.Analyze(program)
		msg.diagnostics = result.Diagnostics
		if !result.OK() {
			msg.failed = true
			return msg
		}

		tacProgram := irgen.Build(program, nil)
		msg.tacText = tacProgram.String()

		stats := optimizer.Optimize(tacProgram, level, false)
		msg.optText = tacProgram.String()
		msg.statsText = stats.String()

		cSource, err := codegen.Generate(tacProgram)
		if err != nil {
			msg.failed = true
			return msg
		}
		msg.cSource = cSource
		return msg
	}
}

// Update handles all the updates to our model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.compiling {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case compileResultMsg:
		// Ignore stale results from a superseded compile.
		if msg.sample != m.samples[m.selected].Name || msg.level != m.level {
			return m, nil
		}
		m.compiling = false
		result := msg
		m.result = &result
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit

		case "left", "h":
			m.selected = (m.selected + len(m.samples) - 1) % len(m.samples)
			m.compiling = true
			m.result = nil
			return m, tea.Batch(m.spinner.Tick, m.compile())

		case "right", "l":
			m.selected = (m.selected + 1) % len(m.samples)
			m.compiling = true
			m.result = nil
			return m, tea.Batch(m.spinner.Tick, m.compile())

		case "0", "1", "2":
			m.level = optimizer.Level(msg.String()[0] - '0')
			m.compiling = true
			m.result = nil
			return m, tea.Batch(m.spinner.Tick, m.compile())

		case "tab", "down", "j":
			m.pane = (m.pane + 1) % paneCount
			return m, nil

		case "shift+tab", "up", "k":
			m.pane = (m.pane + paneCount - 1) % paneCount
			return m, nil
		}
	}

	if m.compiling {
		return m, m.spinner.Tick
	}
	return m, cmd
}

// View renders the current UI.
func (m model) View() string {
	var s strings.Builder

	s.WriteString(m.applyStyle(titleStyle, " naturec pipeline inspector "))
	s.WriteString("\n\n")

	sample := m.samples[m.selected]
	s.WriteString("sample: ")
	s.WriteString(m.applyStyle(sampleStyle, sample.Name))
	s.WriteString(fmt.Sprintf("  (%d/%d)  %s\n", m.selected+1, len(m.samples), sample.Description))
	s.WriteString(fmt.Sprintf("optimization level: -O%d\n\n", m.level))

	s.WriteString(m.applyStyle(paneTitleStyle, fmt.Sprintf("[ %s ]", paneTitles[m.pane])))
	s.WriteString("\n")

	switch {
	case m.compiling:
		s.WriteString(m.spinner.View())
		s.WriteString(" Compiling...\n")

	case m.result == nil:
		s.WriteString("no result yet\n")

	case m.result.failed:
		s.WriteString(m.applyStyle(errorStyle, "analysis failed:"))
		s.WriteString("\n")
		s.WriteString(m.renderDiagnostics())

	default:
		s.WriteString(m.renderPane(sample))
		if len(m.result.diagnostics) > 0 {
			s.WriteString("\n")
			s.WriteString(m.renderDiagnostics())
		}
	}

	s.WriteString("\n")
	s.WriteString(m.applyStyle(helpStyle,
		"←/→ sample · tab pane · 0/1/2 level · q quit"))
	s.WriteString("\n")
	return s.String()
}

// renderPane renders the selected pane's content.
func (m model) renderPane(sample frontend.Sample) string {
	switch m.pane {
	case paneSource:
		return m.applyStyle(sourceStyle, sample.Source) + "\n"
	case paneTAC:
		return m.applyStyle(contentStyle, m.result.tacText)
	case paneOptimized:
		return m.applyStyle(contentStyle, m.result.optText)
	case paneStats:
		return m.applyStyle(contentStyle, m.result.statsText) + "\n"
	case paneC:
		return m.applyStyle(contentStyle, m.result.cSource)
	}
	return ""
}

// renderDiagnostics renders analyzer findings, warnings dimmer than errors.
func (m model) renderDiagnostics() string {
	var s strings.Builder
	for _, d := range m.result.diagnostics {
		if d.Severity == analyzer.SeverityWarning {
			s.WriteString(m.applyStyle(warningStyle, d.String()))
		} else {
			s.WriteString(m.applyStyle(errorStyle, d.String()))
		}
		s.WriteString("\n")
	}
	return s.String()
}
