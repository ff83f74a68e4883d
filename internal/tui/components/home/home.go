// Package home is the host view: it shows premium status and opens
// the quick-checkout overlay.
package home

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/codeabdala/fanbroj-cli/internal/checkout"
	"github.com/codeabdala/fanbroj-cli/internal/entitlement"
	"github.com/codeabdala/fanbroj-cli/internal/tui/common"
	"github.com/codeabdala/fanbroj-cli/internal/tui/styles"
)

type Model struct {
	status      entitlement.Status
	defaultPlan checkout.PlanID
	width       int
	height      int
}

func New(status entitlement.Status, defaultPlan checkout.PlanID) Model {
	return Model{
		status:      status,
		defaultPlan: defaultPlan,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// SetStatus updates the entitlement banner.
func (m *Model) SetStatus(status entitlement.Status) {
	m.status = status
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "u", "p":
			plan := m.defaultPlan
			return m, func() tea.Msg {
				return common.OpenCheckoutMsg{Plan: plan}
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(styles.TitleStyle.Render("  FANBROJ  ") + "\n")
	b.WriteString(styles.SubtitleStyle.Render("  Filimada, musalsalada iyo ciyaaraha tooska ah") + "\n\n")

	b.WriteString(m.renderBanner() + "\n\n")

	b.WriteString(styles.HelpStyle.Render("  u upgrade · q quit"))
	return b.String()
}

func (m Model) renderBanner() string {
	if m.status.Active {
		plan := m.status.Plan
		if plan == "" {
			plan = "premium"
		}
		line := fmt.Sprintf("★ Premium active — %s", plan)
		if !m.status.ExpiresAt.IsZero() {
			line += fmt.Sprintf(" · expires %s", humanize.Time(m.status.ExpiresAt))
		}
		if m.status.Stale {
			line += " " + styles.MutedStyle.Render("(cached)")
		}
		return "  " + styles.PremiumBannerStyle.Render(line)
	}
	return "  " + styles.UpsellBannerStyle.Render("Premium ma furna — press u to upgrade")
}
