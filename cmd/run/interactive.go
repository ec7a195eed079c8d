package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	bridge "github.com/wasmgo/jsbridge"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	consoleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type consoleLineMsg string

type exitMsg struct {
	code int32
	err  error
}

type interactiveModel struct {
	filename string
	argv     []string
	env      map[string]string
	vp       viewport.Model
	lines    []string
	lineCh   chan string
	doneCh   chan exitMsg
	exited   bool
	exitCode int32
	err      error
	ready    bool
}

func newInteractiveModel(filename string, argv []string, env map[string]string) *interactiveModel {
	return &interactiveModel{
		filename: filename,
		argv:     argv,
		env:      env,
		lineCh:   make(chan string, 256),
		doneCh:   make(chan exitMsg, 1),
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.startInstance, m.waitForLine, m.waitForExit)
}

// startInstance loads and runs the module in the background, piping its
// console output (fd 1/2 via the Sys Shim) into lineCh one flushed line
// at a time.
func (m *interactiveModel) startInstance() tea.Msg {
	ctx := context.Background()

	data, err := os.ReadFile(m.filename)
	if err != nil {
		m.doneCh <- exitMsg{err: err}
		return nil
	}

	r, w := io.Pipe()
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			m.lineCh <- scanner.Text()
		}
	}()

	opts := []bridge.Option{bridge.WithArgs(m.argv...), bridge.WithStdout(w)}
	if m.env != nil {
		opts = append(opts, bridge.WithEnv(m.env))
	}
	inst, err := bridge.New(ctx, data, opts...)
	if err != nil {
		m.doneCh <- exitMsg{err: err}
		return nil
	}
	defer inst.Close(ctx)

	code, err := inst.Run(ctx)
	w.Close()
	m.doneCh <- exitMsg{code: code, err: err}
	return nil
}

func (m *interactiveModel) waitForLine() tea.Msg {
	line, ok := <-m.lineCh
	if !ok {
		return nil
	}
	return consoleLineMsg(line)
}

func (m *interactiveModel) waitForExit() tea.Msg {
	return <-m.doneCh
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - 4
		}
		m.vp.SetContent(strings.Join(m.lines, "\n"))

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd

	case consoleLineMsg:
		m.lines = append(m.lines, consoleStyle.Render(string(msg)))
		m.vp.SetContent(strings.Join(m.lines, "\n"))
		m.vp.GotoBottom()
		return m, m.waitForLine

	case exitMsg:
		m.exited = true
		m.exitCode = msg.code
		m.err = msg.err
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("WASM Bridge"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	if m.ready {
		b.WriteString(m.vp.View())
	} else {
		b.WriteString("loading...")
	}
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
	case m.exited:
		b.WriteString(statusStyle.Render(fmt.Sprintf("exited with code %d", m.exitCode)))
	default:
		b.WriteString(statusStyle.Render("running..."))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q quit"))

	return b.String()
}

func runInteractive(filename, argvStr, envStr string) error {
	argv := buildArgv(filename, argvStr)
	var env map[string]string
	if envStr != "" {
		env = parseEnv(envStr)
	}
	p := tea.NewProgram(newInteractiveModel(filename, argv, env), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
