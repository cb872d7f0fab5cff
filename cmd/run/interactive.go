package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pockethle/arm-runtime/arm"
	"github.com/pockethle/arm-runtime/dyld"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	symbolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
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

type stubInfo struct {
	symbol string
	kind   string // "host" or "guest"
	idx    int
}

type interactiveModel struct {
	err      error
	proc     *demoProcess
	ticks    uint64
	stubs    []stubInfo
	inputs   []textinput.Model
	result   string
	selected int
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateSelectStub modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(ticks uint64) *interactiveModel {
	return &interactiveModel{ticks: ticks, state: stateSelectStub}
}

type loadedMsg struct {
	err   error
	proc  *demoProcess
	stubs []stubInfo
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadImage
}

func (m *interactiveModel) loadImage() tea.Msg {
	proc, err := buildDemoProcess()
	if err != nil {
		return loadedMsg{err: err}
	}

	var stubs []stubInfo
	for i, symbol := range demoStubSymbols {
		kind := "guest"
		if _, ok := dyld.NewRegistry(demoExports).Lookup(symbol); ok {
			kind = "host"
		}
		stubs = append(stubs, stubInfo{symbol: symbol, kind: kind, idx: i})
	}

	return loadedMsg{proc: proc, stubs: stubs}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectStub && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectStub && m.selected < len(m.stubs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectStub:
				if m.stubs[m.selected].kind == "guest" {
					return m, m.callStub
				}
				m.prepareInputs()
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callStub

			case stateShowResult:
				m.state = stateSelectStub
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectStub
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectStub
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.proc = msg.proc
		m.stubs = msg.stubs

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	m.inputs = make([]textinput.Model, 2)
	for i, name := range []string{"r0", "r1"} {
		ti := textinput.New()
		ti.Placeholder = "0"
		ti.Prompt = name + ": "
		ti.Width = 12
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callStub() tea.Msg {
	stub := m.stubs[m.selected]

	if stub.kind == "guest" {
		cell, err := m.proc.relinkStub(stub.idx)
		if err != nil {
			return callResultMsg{err: err}
		}
		return callResultMsg{result: fmt.Sprintf("relinked in place: resolved-pointer cell = %#x", cell)}
	}

	args := make([]uint32, len(m.inputs))
	for i, input := range m.inputs {
		v, _ := strconv.ParseUint(strings.TrimSpace(input.Value()), 0, 32)
		args[i] = uint32(v)
	}

	r0, err := m.proc.callStub(stub.idx, args[0], args[1], m.ticks)
	if err != nil {
		return callResultMsg{err: err}
	}

	table := m.proc.rt.Dyld().LinkedFunctions()
	return callResultMsg{result: fmt.Sprintf("r0 = %d (%#x)\nlinked host functions: %d", r0, r0, len(table))}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.proc == nil {
		return "Linking image..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("ARM Runner"))
	b.WriteString(fmt.Sprintf(" %d stubs at %#x\n\n", len(m.stubs), uint32(demoStubBase)))

	switch m.state {
	case stateSelectStub:
		b.WriteString("Select a stub to call:\n\n")
		for i, s := range m.stubs {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatStub(s)))
			} else {
				b.WriteString(cursor + m.formatStub(s))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		s := m.stubs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", symbolStyle.Render(s.symbol)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		s := m.stubs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", symbolStyle.Render(s.symbol)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatStub(s stubInfo) string {
	addr := stubAddr(s.idx)
	return symbolStyle.Render(s.symbol) +
		fmt.Sprintf(" @ %#x ", addr) +
		kindStyle.Render(s.kind) +
		fmt.Sprintf("  [%d-byte entry]", arm.StubEntrySize)
}

func runInteractive(ticks uint64) error {
	p := tea.NewProgram(newInteractiveModel(ticks), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
