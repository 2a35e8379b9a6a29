package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ifps-tools/ifpsdump/bytecode"
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

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	filename string
	codec    string
	unit     *bytecode.Unit
	names    []string
	filtered []string
	filter   textinput.Model
	body     string
	selected int
	state    modelState
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateFilter
	stateShowBody
)

func newInteractiveModel(filename, codec string) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "filter functions"
	ti.Prompt = "/ "
	ti.Width = 40
	return &interactiveModel{
		filename: filename,
		codec:    codec,
		filter:   ti,
		state:    stateSelectFunc,
	}
}

type loadedMsg struct {
	err   error
	unit  *bytecode.Unit
	names []string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadUnit
}

func (m *interactiveModel) loadUnit() tea.Msg {
	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	unit, err := bytecode.ParseUnit(data, bytecode.WithCodec(m.codec))
	if err != nil {
		return loadedMsg{err: err}
	}

	names := make([]string, len(unit.Functions))
	for i, fn := range unit.Functions {
		names[i] = fn.Reference()
	}
	sort.Strings(names)

	return loadedMsg{unit: unit, names: names}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateFilter {
				return m, tea.Quit
			}

		case "/":
			if m.state == stateSelectFunc {
				m.state = stateFilter
				m.filter.Focus()
				return m, nil
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.filtered)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.filtered) > 0 {
					m.body = m.disassembleSelected()
					m.state = stateShowBody
				}
			case stateFilter:
				m.filter.Blur()
				m.state = stateSelectFunc
			}

		case "esc":
			switch m.state {
			case stateFilter:
				m.filter.Blur()
				m.filter.SetValue("")
				m.applyFilter()
				m.state = stateSelectFunc
			case stateShowBody:
				m.state = stateSelectFunc
				m.body = ""
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.unit = msg.unit
		m.names = msg.names
		m.filtered = msg.names
	}

	if m.state == stateFilter {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) applyFilter() {
	query := strings.ToLower(m.filter.Value())
	if query == "" {
		m.filtered = m.names
	} else {
		matched := make([]string, 0, len(m.names))
		for _, name := range m.names {
			if strings.Contains(strings.ToLower(name), query) {
				matched = append(matched, name)
			}
		}
		m.filtered = matched
	}
	if m.selected >= len(m.filtered) {
		m.selected = 0
	}
}

func (m *interactiveModel) disassembleSelected() string {
	name := m.filtered[m.selected]
	for _, fn := range m.unit.Functions {
		if fn.Reference() != name {
			continue
		}
		if fn.External {
			return "external " + name
		}
		var b strings.Builder
		if _, err := m.unit.Blocks(fn); err != nil {
			return errorStyle.Render(fmt.Sprintf("analyze error: %v", err))
		}
		for _, insn := range fn.Body {
			fmt.Fprintf(&b, "%04X %s\n", insn.Offset, insn.Op)
		}
		return b.String()
	}
	return "not found"
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.unit == nil {
		return "Parsing unit..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("IFPS Dump"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc, stateFilter:
		fmt.Fprintf(&b, "version %d, %d types, %d functions, %d globals\n\n",
			m.unit.Version, len(m.unit.Types), len(m.unit.Functions), len(m.unit.Variables))
		if m.state == stateFilter || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		for i, name := range m.filtered {
			cursor := "  "
			line := funcStyle.Render(name)
			if i == m.selected {
				cursor = "> "
				line = selectedStyle.Render(cursor + name)
			} else {
				line = cursor + line
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateFilter {
			b.WriteString(helpStyle.Render("type to filter • enter confirm • esc clear"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓ select • enter disassemble • / filter • q quit"))
		}

	case stateShowBody:
		b.WriteString(typeStyle.Render(m.filtered[m.selected]))
		b.WriteString("\n\n")
		b.WriteString(m.body)
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc back • q quit"))
	}

	return b.String()
}

func runInteractive(filename, codec string) error {
	p := tea.NewProgram(newInteractiveModel(filename, codec), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
