// Package checkout implements the quick-checkout overlay: a bottom
// sheet driven by the checkout controller, with one renderer per step.
package checkout

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/codeabdala/fanbroj-cli/internal/checkout"
	"github.com/codeabdala/fanbroj-cli/internal/tui/common"
	"github.com/codeabdala/fanbroj-cli/internal/tui/styles"
)

// section identifies which selector has keyboard focus on the select
// step.
type section int

const (
	sectionPlans section = iota
	sectionMethods
)

type Model struct {
	controller *checkout.Controller

	txInput textinput.Model
	spinner spinner.Model

	planCursor   int
	methodCursor int
	focus        section
	inForm       bool

	width  int
	height int
}

func New(controller *checkout.Controller) Model {
	ti := textinput.New()
	ti.Placeholder = "Paste transaction code here..."
	ti.Prompt = "> "
	ti.CharLimit = 64
	ti.Width = 40
	ti.PromptStyle = lipgloss.NewStyle().Foreground(styles.Green)
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.Foreground)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Green)

	return Model{
		controller: controller,
		txInput:    ti,
		spinner:    sp,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// SyncSelection aligns the cursors with the controller's restored
// plan/method. Called right after the overlay opens.
func (m *Model) SyncSelection() {
	snap := m.controller.Snapshot()
	for i, p := range checkout.Plans {
		if p.ID == snap.Plan.ID {
			m.planCursor = i
		}
	}
	for i, info := range checkout.Methods {
		if info.ID == snap.Method {
			m.methodCursor = i
		}
	}
	m.focus = sectionPlans
	m.inForm = false
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.width > 20 {
			m.txInput.Width = min(48, m.width-12)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case common.CheckoutSessionChangedMsg:
		// Focus and clear the tx input when the form step is entered.
		snap := m.controller.Snapshot()
		if _, ok := snap.Step.(checkout.ManualFormStep); ok {
			if !m.inForm {
				m.inForm = true
				m.txInput.Reset()
				return m, m.txInput.Focus()
			}
		} else {
			m.inForm = false
			m.txInput.Blur()
		}
		return m, nil

	case common.PasteResultMsg:
		if msg.Err == nil && msg.Text != "" {
			m.txInput.SetValue(strings.TrimSpace(msg.Text))
			m.txInput.CursorEnd()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	snap := m.controller.Snapshot()

	switch step := snap.Step.(type) {
	case checkout.SelectStep:
		return m.handleSelectKey(msg)

	case checkout.PollingStep:
		switch msg.String() {
		case "o":
			m.controller.ReopenCheckout()
		case "esc", "left":
			m.controller.Back()
		}
		return m, nil

	case checkout.ManualFormStep:
		switch msg.String() {
		case "esc":
			m.controller.Back()
			return m, nil
		case "ctrl+v":
			return m, pasteCmd()
		case "enter":
			tx := strings.TrimSpace(m.txInput.Value())
			if tx == "" || snap.Loading {
				return m, nil
			}
			ctrl := m.controller
			return m, func() tea.Msg {
				ctrl.Submit(context.Background(), tx)
				return nil
			}
		}
		var cmd tea.Cmd
		m.txInput, cmd = m.txInput.Update(msg)
		// M-Pesa codes are uppercase; normalize as the user types.
		if step.Method == checkout.MethodMpesa {
			upper := strings.ToUpper(m.txInput.Value())
			if upper != m.txInput.Value() {
				m.txInput.SetValue(upper)
				m.txInput.CursorEnd()
			}
		}
		return m, cmd

	case checkout.ErrorStep:
		switch msg.String() {
		case "r", "enter":
			m.controller.Retry()
		case "esc", "q":
			m.controller.Close()
		}
		return m, nil

	case checkout.ManualDoneStep, checkout.SuccessStep:
		switch msg.String() {
		case "enter", "esc", "q":
			m.controller.Close()
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleSelectKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.controller.Close()
		return m, nil

	case "tab", "shift+tab":
		if m.focus == sectionPlans {
			m.focus = sectionMethods
		} else {
			m.focus = sectionPlans
		}
		return m, nil

	case "up", "k":
		if m.focus == sectionPlans {
			m.planCursor = clampCursor(m.planCursor-1, len(checkout.Plans))
			m.controller.SelectPlan(checkout.Plans[m.planCursor].ID)
		} else {
			m.methodCursor = clampCursor(m.methodCursor-1, len(checkout.Methods))
			m.controller.SelectMethod(checkout.Methods[m.methodCursor].ID)
		}
		return m, nil

	case "down", "j":
		if m.focus == sectionPlans {
			m.planCursor = clampCursor(m.planCursor+1, len(checkout.Plans))
			m.controller.SelectPlan(checkout.Plans[m.planCursor].ID)
		} else {
			m.methodCursor = clampCursor(m.methodCursor+1, len(checkout.Methods))
			m.controller.SelectMethod(checkout.Methods[m.methodCursor].ID)
		}
		return m, nil

	case "enter":
		snap := m.controller.Snapshot()
		if !snap.CanProceed() {
			return m, nil
		}
		m.controller.Proceed(context.Background())
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	snap := m.controller.Snapshot()
	if !snap.Open {
		return ""
	}

	var body string
	switch step := snap.Step.(type) {
	case checkout.SelectStep:
		body = m.renderSelect(snap, step)
	case checkout.PollingStep:
		body = m.renderPolling(snap, step)
	case checkout.ManualFormStep:
		body = m.renderManualForm(snap, step)
	case checkout.ManualDoneStep:
		body = m.renderManualDone()
	case checkout.SuccessStep:
		body = m.renderSuccess(step)
	case checkout.ErrorStep:
		body = m.renderError(step)
	}

	return styles.OverlayStyle.Render(m.renderHeader(snap) + "\n\n" + body)
}

func pasteCmd() tea.Cmd {
	return func() tea.Msg {
		text, err := clipboard.ReadAll()
		return common.PasteResultMsg{Text: text, Err: err}
	}
}

func clampCursor(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
