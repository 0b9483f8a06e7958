package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/nativebridge/decl"
	"github.com/wippyai/nativebridge/descriptor"
	"github.com/wippyai/nativebridge/verify"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type reportModel struct {
	report   *verify.Report
	rows     []row
	visible  []int
	filter   textinput.Model
	selected int
	tab      reportTab
	state    modelState
}

// row is one line of the browser: a diagnostic or a binding record.
type row struct {
	key    string
	label  string
	detail string
	failed bool
}

type reportTab int

const (
	tabDiagnostics reportTab = iota
	tabRecords
)

type modelState int

const (
	stateList modelState = iota
	stateFilter
	stateDetail
)

func newReportModel(r *verify.Report) *reportModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter by key"
	ti.Width = 40
	m := &reportModel{report: r, filter: ti}
	if len(r.Diagnostics) == 0 {
		m.tab = tabRecords
	}
	m.load()
	return m
}

func (m *reportModel) load() {
	m.rows = m.rows[:0]
	switch m.tab {
	case tabDiagnostics:
		for _, d := range m.report.Diagnostics {
			m.rows = append(m.rows, row{
				key:    d.Key,
				label:  string(d.Kind) + " " + d.Key,
				detail: d.String(),
				failed: true,
			})
		}
	case tabRecords:
		for _, rec := range m.report.Records {
			m.rows = append(m.rows, row{
				key:    rec.Key,
				label:  rec.Key,
				detail: recordDetail(rec),
				failed: rec.Actual == nil,
			})
		}
	}
	m.applyFilter()
}

func (m *reportModel) applyFilter() {
	q := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, r := range m.rows {
		if q == "" || strings.Contains(strings.ToLower(r.key), q) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *reportModel) Init() tea.Cmd {
	return nil
}

func (m *reportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.state == stateFilter {
		switch key.String() {
		case "enter", "esc":
			m.filter.Blur()
			m.state = stateList
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.state == stateList && m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.state == stateList && m.selected < len(m.visible)-1 {
			m.selected++
		}

	case "tab":
		if m.state == stateList {
			m.tab = 1 - m.tab
			m.selected = 0
			m.load()
		}

	case "/":
		if m.state == stateList {
			m.state = stateFilter
			return m, m.filter.Focus()
		}

	case "enter":
		switch m.state {
		case stateList:
			if len(m.visible) > 0 {
				m.state = stateDetail
			}
		case stateDetail:
			m.state = stateList
		}

	case "esc":
		if m.state == stateDetail {
			m.state = stateList
		}
	}
	return m, nil
}

func (m *reportModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Bridge Verify"))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%d expectations, %d bound, %d diagnostics",
		len(m.report.Records), m.report.Bound(), len(m.report.Diagnostics)))
	b.WriteString("\n\n")

	switch m.state {
	case stateList, stateFilter:
		if m.tab == tabDiagnostics {
			b.WriteString("Diagnostics:\n\n")
		} else {
			b.WriteString("Binding records:\n\n")
		}
		if len(m.visible) == 0 {
			b.WriteString(resultStyle.Render("  nothing to show"))
			b.WriteString("\n")
		}
		for i, idx := range m.visible {
			r := m.rows[idx]
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + r.label))
			} else if r.failed {
				b.WriteString("  " + errorStyle.Render(r.label))
			} else {
				b.WriteString("  " + funcStyle.Render(r.label))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateFilter || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("↑/↓ select • enter details • tab switch list • / filter • q quit"))

	case stateDetail:
		r := m.rows[m.visible[m.selected]]
		b.WriteString(funcStyle.Render(r.key))
		b.WriteString("\n\n")
		if r.failed {
			b.WriteString(errorStyle.Render(r.detail))
		} else {
			b.WriteString(r.detail)
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter back • q quit"))
	}

	return b.String()
}

func recordDetail(rec verify.BindingRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "expected  %s  %s\n", formatDecl(rec.Expectation), typeStyle.Render(rec.Expectation.Location.String()))
	if rec.Actual == nil {
		b.WriteString("actual    none")
		return b.String()
	}
	fmt.Fprintf(&b, "actual    %s  %s", formatDecl(*rec.Actual), typeStyle.Render(rec.Actual.Location.String()))
	return b.String()
}

func formatDecl(d decl.Declaration) string {
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		params[i] = p.Name + ": " + typeStyle.Render(sourceTypeStr(p.Type))
	}
	result := ""
	if !d.Return.IsVoid() {
		result = " -> " + typeStyle.Render(sourceTypeStr(d.Return))
	}
	return funcStyle.Render(d.Name) + "(" + strings.Join(params, ", ") + ")" + result
}

func sourceTypeStr(t descriptor.SourceType) string {
	s := t.String()
	if len(t.Mappings) > 0 {
		s += " as " + t.Mappings[len(t.Mappings)-1]
	}
	return s
}

func runInteractive(r *verify.Report) error {
	p := tea.NewProgram(newReportModel(r), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
