// ABOUTME: Interactive TUI wizard for connecting a Mastodon account.
// ABOUTME: 3-step bubbletea model collecting instance, username, and access token.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Step represents the current wizard step.
type Step int

const (
	StepInstance Step = iota
	StepUsername
	StepToken
	StepValidating
	StepDone
	StepFailed
)

// validationResultMsg carries the result of an async validation attempt.
type validationResultMsg struct {
	err error
}

// ValidateFn is the function signature for credential validation.
type ValidateFn func(ctx context.Context, instance, username, token string) error

// cancelHolder shares a cancel function across bubbletea model copies.
// This MUST be stored as a pointer field on SetupModel so that value-receiver
// methods (required by tea.Model) can store the cancel func and have it
// visible to all copies of the model.
type cancelHolder struct {
	cancel context.CancelFunc
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step          Step
	inputs        [3]textinput.Model
	spinner       spinner.Model
	validateFn    ValidateFn
	cancelCtx     *cancelHolder
	validationErr error
	quitting      bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewSetupModel creates a new setup wizard model, pre-filling with existing config values.
func NewSetupModel(instance, username, token string) SetupModel {
	instanceInput := textinput.New()
	instanceInput.Placeholder = "mastodon.example"
	instanceInput.Focus()
	instanceInput.Width = 50
	if instance != "" {
		instanceInput.SetValue(instance)
	}

	usernameInput := textinput.New()
	usernameInput.Placeholder = "your-username"
	usernameInput.Width = 50
	if username != "" {
		usernameInput.SetValue(username)
	}

	tokenInput := textinput.New()
	tokenInput.Placeholder = "your-access-token"
	tokenInput.EchoMode = textinput.EchoPassword
	tokenInput.Width = 50
	if token != "" {
		tokenInput.SetValue(token)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	return SetupModel{
		step:       StepInstance,
		inputs:     [3]textinput.Model{instanceInput, usernameInput, tokenInput},
		spinner:    s,
		validateFn: ValidateCredentials,
		cancelCtx:  &cancelHolder{},
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			if m.cancelCtx.cancel != nil {
				m.cancelCtx.cancel()
			}
			return m, tea.Quit
		}

		switch m.step {
		case StepInstance, StepUsername, StepToken:
			return m.updateInput(msg)
		case StepFailed:
			return m.updateFailed(msg)
		}

	case validationResultMsg:
		m.cancelCtx.cancel = nil
		if msg.err == nil {
			m.step = StepDone
			return m, tea.Quit
		}
		m.validationErr = msg.err
		m.step = StepFailed
		return m, nil

	case spinner.TickMsg:
		if m.step == StepValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m SetupModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		idx := int(m.step)

		// Strip the scheme and any trailing slash from the instance address
		if m.step == StepInstance {
			val := m.inputs[0].Value()
			val = strings.TrimPrefix(val, "https://")
			val = strings.TrimPrefix(val, "http://")
			val = strings.TrimRight(val, "/")
			m.inputs[0].SetValue(val)
		}

		// Don't advance on empty fields
		if m.inputs[idx].Value() == "" {
			return m, nil
		}

		// Usernames are stored bare, without the leading @
		if m.step == StepUsername {
			m.inputs[1].SetValue(strings.TrimPrefix(m.inputs[1].Value(), "@"))
		}

		m.inputs[idx].Blur()

		switch m.step {
		case StepInstance:
			m.step = StepUsername
			m.inputs[1].Focus()
			return m, textinput.Blink
		case StepUsername:
			m.step = StepToken
			m.inputs[2].Focus()
			return m, textinput.Blink
		case StepToken:
			m.step = StepValidating
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		}
	}

	// Forward to the active input
	idx := int(m.step)
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

func (m SetupModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes {
		switch msg.Runes[0] {
		case 'r':
			m.step = StepValidating
			m.validationErr = nil
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		case 's':
			m.step = StepDone
			return m, tea.Quit
		case 'q':
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SetupModel) startValidation() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCtx.cancel = cancel
	instance := m.inputs[0].Value()
	username := m.inputs[1].Value()
	token := m.inputs[2].Value()
	fn := m.validateFn
	return func() tea.Msg {
		return validationResultMsg{err: fn(ctx, instance, username, token)}
	}
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   FEDIMOVE"))
	b.WriteString(titleStyle.Render(" - Setup"))
	b.WriteString("\n\n")
	b.WriteString("Connect a Mastodon account.\n\n")

	switch m.step {
	case StepInstance:
		b.WriteString(stepStyle.Render("Step 1 of 3: Instance address"))
		b.WriteString("\n")
		b.WriteString(m.inputs[0].View())
		b.WriteString("\n")

	case StepUsername:
		b.WriteString(fmt.Sprintf("  Instance: %s\n\n", m.inputs[0].Value()))
		b.WriteString(stepStyle.Render("Step 2 of 3: Username"))
		b.WriteString("\n")
		b.WriteString(m.inputs[1].View())
		b.WriteString("\n")

	case StepToken:
		b.WriteString(fmt.Sprintf("  Instance: %s\n", m.inputs[0].Value()))
		b.WriteString(fmt.Sprintf("  Username: %s\n\n", m.inputs[1].Value()))
		b.WriteString(stepStyle.Render("Step 3 of 3: Access token"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(Preferences → Development → New application)"))
		b.WriteString("\n")
		b.WriteString(m.inputs[2].View())
		b.WriteString("\n")

	case StepValidating:
		b.WriteString(fmt.Sprintf("  Instance: %s\n", m.inputs[0].Value()))
		b.WriteString(fmt.Sprintf("  Username: %s\n", m.inputs[1].Value()))
		b.WriteString(fmt.Sprintf("  Token:    %s\n\n", strings.Repeat("*", len(m.inputs[2].Value()))))
		b.WriteString(m.spinner.View())
		b.WriteString(" Validating credentials...")
		b.WriteString("\n")

	case StepDone:
		b.WriteString(successStyle.Render("✓ Connected!"))
		b.WriteString("\n")

	case StepFailed:
		errMsg := "unknown error"
		if m.validationErr != nil {
			errMsg = m.validationErr.Error()
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ Validation failed: %s", errMsg)))
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("[r]etry  [s]ave anyway  [q]uit"))
		b.WriteString("\n")
	}

	return b.String()
}

// Result returns the entered values.
func (m SetupModel) Result() (instance, username, token string) {
	return m.inputs[0].Value(), m.inputs[1].Value(), m.inputs[2].Value()
}

// ShouldSave returns true if the wizard completed (via validation success or
// "save anyway") and the user did not cancel with Ctrl+C, Escape, or 'q'.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
