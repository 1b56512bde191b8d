// Package tui implements the interactive console over a running ragstore
// server.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragstore/internal/domain"
)

// StorePort is the console-facing subset of the API client.
type StorePort interface {
	Databases(ctx context.Context) ([]string, error)
	AddTexts(ctx context.Context, identifier string, texts []domain.Text) ([]string, error)
	BuildContext(ctx context.Context, identifier, question string, k int) (string, error)
	AskQuestion(ctx context.Context, identifier string, q domain.Question) (domain.ChatAction, error)
}

const requestTimeout = 120 * time.Second

// Model is the Bubble Tea model for the console.
type Model struct {
	client     StorePort
	input      textinput.Model
	viewport   viewport.Model
	identifier string
	history    []domain.ChatAction
	transcript []string
	status     string
	ready      bool
}

// New creates a console model bound to the given store identifier.
func New(client StorePort, identifier string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or :help for commands"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		client:     client,
		input:      ti,
		viewport:   vp,
		identifier: identifier,
		status:     fmt.Sprintf("Connected. Store: %s", identifier),
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header + status + input frame + spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.refreshViewport()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line != "" {
				m.input.SetValue("")
				m = m.execute(line)
				m.refreshViewport()
				return m, nil
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// execute runs one console line: either a colon command or a question for
// the chat backend.
func (m Model) execute(line string) Model {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if strings.HasPrefix(line, ":") {
		return m.executeCommand(ctx, line)
	}

	reply, err := m.client.AskQuestion(ctx, m.identifier, domain.Question{
		ChatHistory: m.history,
		Question:    line,
	})
	if err != nil {
		m.status = "Error: " + err.Error()
		return m
	}
	m.history = append(m.history,
		domain.ChatAction{Role: domain.RoleUser, Content: line},
		reply,
	)
	m.transcript = append(m.transcript,
		userStyle.Render("you: ")+line,
		assistantStyle.Render("assistant: ")+reply.Content,
	)
	m.status = fmt.Sprintf("Store: %s  (%d turns)", m.identifier, len(m.history)/2)
	return m
}

func (m Model) executeCommand(ctx context.Context, line string) Model {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case ":help":
		m.transcript = append(m.transcript, helpText)
		m.status = "Commands listed."
	case ":db":
		if arg == "" {
			m.status = "Usage: :db <identifier>"
			return m
		}
		m.identifier = arg
		m.history = nil
		m.status = "Switched to store " + arg
	case ":dbs":
		names, err := m.client.Databases(ctx)
		if err != nil {
			m.status = "Error: " + err.Error()
			return m
		}
		if len(names) == 0 {
			m.transcript = append(m.transcript, "No stores yet.")
		} else {
			m.transcript = append(m.transcript, "Stores: "+strings.Join(names, ", "))
		}
		m.status = fmt.Sprintf("%d store(s)", len(names))
	case ":add":
		if arg == "" {
			m.status = "Usage: :add <text>"
			return m
		}
		ids, err := m.client.AddTexts(ctx, m.identifier, []domain.Text{{Text: arg}})
		if err != nil {
			m.status = "Error: " + err.Error()
			return m
		}
		m.status = fmt.Sprintf("Added %d snippet(s) to %s", len(ids), m.identifier)
	case ":ctx":
		if arg == "" {
			m.status = "Usage: :ctx <question>"
			return m
		}
		block, err := m.client.BuildContext(ctx, m.identifier, arg, 0)
		if err != nil {
			m.status = "Error: " + err.Error()
			return m
		}
		m.transcript = append(m.transcript, block)
		m.status = "Context assembled."
	case ":clear":
		m.history = nil
		m.transcript = nil
		m.status = "Conversation cleared."
	default:
		m.status = "Unknown command " + cmd + ". Try :help"
	}
	return m
}

func (m *Model) refreshViewport() {
	if len(m.transcript) == 0 {
		m.viewport.SetContent("No conversation yet. Ask a question.")
		return
	}
	m.viewport.SetContent(strings.Join(m.transcript, "\n\n"))
	m.viewport.GotoBottom()
}

// View renders the console layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("ragstore console  [" + m.identifier + "]")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

const helpText = `Commands:
  :db <identifier>   switch store (resets the conversation)
  :dbs               list stores
  :add <text>        ingest a text snippet into the current store
  :ctx <question>    show the assembled context block
  :clear             reset conversation and transcript
  :help              this help`

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
