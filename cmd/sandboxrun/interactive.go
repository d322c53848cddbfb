package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kestrel-run/kestrel/ast"
	"github.com/kestrel-run/kestrel/frontend"
	"github.com/kestrel-run/kestrel/runtime"
	"github.com/kestrel-run/kestrel/stdlib"
	"github.com/kestrel-run/kestrel/values"
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

type interactiveModel struct {
	err      error
	sb       *runtime.Sandbox
	source   string
	output   string
	funcs    []funcInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type funcInfo struct {
	name       string
	resultKind values.Kind
	params     []paramInfo
}

type paramInfo struct {
	name string
	kind values.Kind
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(source string) *interactiveModel {
	return &interactiveModel{source: source, state: stateSelectFunc}
}

type loadedMsg struct {
	err   error
	sb    *runtime.Sandbox
	funcs []funcInfo
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadProgram
}

// loadProgram parses the source, builds a Sandbox, runs the top-level
// program once (so its declared functions register; its top-level
// variables go out of scope when that run ends), and collects the
// functions it declared for the selection list.
func (m *interactiveModel) loadProgram() tea.Msg {
	tree, err := frontend.Parse(m.source)
	if err != nil {
		return loadedMsg{err: err}
	}

	sb, err := runtime.New(runtime.Config{})
	if err != nil {
		return loadedMsg{err: err}
	}
	stdlib.Register(sb)

	var funcs []funcInfo
	for _, child := range tree.Children {
		if child.Kind == ast.FunctionDecl && child.Func != nil {
			fd := child.Func
			fi := funcInfo{name: fd.Name, resultKind: fd.ReturnKind}
			for i, pname := range fd.ParamNames {
				fi.params = append(fi.params, paramInfo{name: pname, kind: fd.ParamKinds[i]})
			}
			funcs = append(funcs, fi)
		}
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].name < funcs[j].name })

	if _, err := sb.Interpret(context.Background(), tree); err != nil {
		sb.Close()
		return loadedMsg{err: err}
	}

	return loadedMsg{sb: sb, funcs: funcs}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.sb != nil {
				m.sb.Close()
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.output = ""
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
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.output = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.sb = msg.sb
		m.funcs = msg.funcs

	case callResultMsg:
		m.output = msg.result
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
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.params))
	for i, p := range f.params {
		ti := textinput.New()
		ti.Placeholder = kindName(p.kind)
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	f := m.funcs[m.selected]
	args := make([]*ast.Node, len(m.inputs))
	for i, input := range m.inputs {
		n, err := literalFor(f.params[i].kind, input.Value())
		if err != nil {
			return callResultMsg{err: err}
		}
		args[i] = n
	}

	tree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
		{Kind: ast.Call, Name: f.name, Args: args},
	}}

	res, err := m.sb.Interpret(context.Background(), tree)
	if err != nil {
		return callResultMsg{err: err}
	}
	result := formatValue(m.sb, res.Value)
	if res.Output != "" {
		result = res.Output + result
	}
	return callResultMsg{result: result}
}

func literalFor(kind values.Kind, text string) (*ast.Node, error) {
	switch kind {
	case values.Long, values.Int, values.Short, values.Sbyte, values.IntPtr:
		v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", text, err)
		}
		return &ast.Node{Kind: ast.Literal, LitValue: v, LitKind: values.Long}, nil
	case values.Double, values.Float:
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", text, err)
		}
		return &ast.Node{Kind: ast.Literal, LitValue: v, LitKind: values.Double}, nil
	case values.Bool:
		return &ast.Node{Kind: ast.Literal, LitValue: text == "true" || text == "1", LitKind: values.Bool}, nil
	default:
		return &ast.Node{Kind: ast.Literal, LitValue: text, LitKind: values.String}, nil
	}
}

func kindName(k values.Kind) string { return k.String() }

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.sb == nil {
		return "Loading program..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Sandbox Runner"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if len(m.funcs) == 0 {
			b.WriteString("No functions declared in this program.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			return b.String()
		}
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatFunc(f)))
			} else {
				b.WriteString(cursor + m.formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(kindName(f.params[i].kind)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.output))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	var params []string
	for _, p := range f.params {
		params = append(params, p.name+": "+typeStyle.Render(kindName(p.kind)))
	}
	result := " -> " + typeStyle.Render(kindName(f.resultKind))
	return funcStyle.Render(f.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive(source string) error {
	p := tea.NewProgram(newInteractiveModel(source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
