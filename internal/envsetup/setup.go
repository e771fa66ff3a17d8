// envsetup provides a lightweight .env configuration wizard, run via the
// setup subcommand. It collects an Anthropic API key and a model choice and
// writes them to .env in the working directory.
package envsetup

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/CulleyHarrelson/svg-cli/internal/anthropic"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type step int

const (
	stepWelcome step = iota
	stepAPIKey
	stepModel
	stepConfirm
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	linkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Underline(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

type model struct {
	step    step
	apiKey  string
	modelID anthropic.Model
	input   textinput.Model
	err     error
	done    bool
}

func New() model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 60

	return model{
		step:    stepWelcome,
		modelID: anthropic.DefaultModel,
		input:   ti,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleEnter()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleEnter() (tea.Model, tea.Cmd) {
	m.err = nil

	switch m.step {
	case stepWelcome:
		m.step = stepAPIKey

	case stepAPIKey:
		key := strings.TrimSpace(m.input.Value())
		if key == "" {
			m.err = fmt.Errorf("API key is required")
			return m, nil
		}
		m.apiKey = key
		m.step = stepModel
		m.input.SetValue("")

	case stepModel:
		choice := strings.TrimSpace(m.input.Value())
		switch {
		case choice == "":
			// keep the default
		case isModelIndex(choice):
			n, _ := strconv.Atoi(choice)
			m.modelID = anthropic.SupportedModels[n-1]
		default:
			m.modelID = anthropic.Model(choice)
		}
		m.step = stepConfirm
		m.input.SetValue("")

	case stepConfirm:
		choice := strings.TrimSpace(strings.ToLower(m.input.Value()))
		if choice == "y" || choice == "yes" || choice == "" {
			if err := m.writeEnvFile(); err != nil {
				m.err = err
				return m, nil
			}
			m.done = true
			return m, tea.Quit
		} else if choice == "n" || choice == "no" {
			m.step = stepWelcome
			m.apiKey = ""
			m.modelID = anthropic.DefaultModel
			m.input.SetValue("")
		}
	}

	return m, nil
}

func isModelIndex(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 1 && n <= len(anthropic.SupportedModels)
}

func (m model) writeEnvFile() error {
	content := fmt.Sprintf(`# Generated by svg-cli setup
ANTHROPIC_API_KEY=%s
SVG_CLI_MODEL=%s
`, m.apiKey, m.modelID)

	return os.WriteFile(".env", []byte(content), 0600)
}

func (m model) View() string {
	var s strings.Builder

	switch m.step {
	case stepWelcome:
		s.WriteString(titleStyle.Render("svg-cli - Env Setup"))
		s.WriteString("\n\n")
		s.WriteString("This wizard writes a .env file so svg-cli can talk to Claude.\n")
		s.WriteString("You'll need an Anthropic API key.\n")
		s.WriteString("\n")
		s.WriteString(dimStyle.Render("Press Enter to continue, Ctrl+C to exit"))

	case stepAPIKey:
		s.WriteString(titleStyle.Render("Step 1: Anthropic API Key"))
		s.WriteString("\n\n")
		s.WriteString("To get your Anthropic API key:\n\n")
		s.WriteString("  1. Go to " + linkStyle.Render("https://console.anthropic.com") + "\n")
		s.WriteString("  2. Sign up or log in\n")
		s.WriteString("  3. Go to API Keys and create a new key\n")
		s.WriteString("\n")
		s.WriteString(labelStyle.Render("Paste your API key here:"))
		s.WriteString("\n")
		s.WriteString(m.input.View())
		if m.err != nil {
			s.WriteString("\n" + errorStyle.Render(m.err.Error()))
		}

	case stepModel:
		s.WriteString(titleStyle.Render("Step 2: Choose a Model"))
		s.WriteString("\n\n")
		s.WriteString("Which Claude model should generate your SVGs?\n\n")
		for i, id := range anthropic.SupportedModels {
			s.WriteString(fmt.Sprintf("  %d. %s\n", i+1, id))
		}
		s.WriteString("\n")
		s.WriteString(labelStyle.Render("Enter a number, paste a model id, or press Enter for the default:"))
		s.WriteString("\n")
		s.WriteString(m.input.View())
		if m.err != nil {
			s.WriteString("\n" + errorStyle.Render(m.err.Error()))
		}

	case stepConfirm:
		s.WriteString(titleStyle.Render("Configuration Complete"))
		s.WriteString("\n\n")
		s.WriteString("Your configuration:\n\n")
		s.WriteString("  API Key: " + successStyle.Render(maskToken(m.apiKey)) + "\n")
		s.WriteString("  Model:   " + successStyle.Render(string(m.modelID)) + "\n")
		s.WriteString("\n")
		s.WriteString(labelStyle.Render("Save this configuration to .env? [Y/n]:"))
		s.WriteString("\n")
		s.WriteString(m.input.View())
		if m.err != nil {
			s.WriteString("\n" + errorStyle.Render(m.err.Error()))
		}
	}

	s.WriteString("\n")
	return s.String()
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

// Run starts the setup wizard and reports whether a .env file was written.
func Run() (bool, error) {
	p := tea.NewProgram(New())
	finalModel, err := p.Run()
	if err != nil {
		return false, err
	}

	m := finalModel.(model)
	return m.done, nil
}

// NeedsSetup checks if a .env file exists in the working directory.
func NeedsSetup() bool {
	_, err := os.Stat(".env")
	return os.IsNotExist(err)
}
