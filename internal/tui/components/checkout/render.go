package checkout

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/codeabdala/fanbroj-cli/internal/checkout"
	"github.com/codeabdala/fanbroj-cli/internal/tui/styles"
)

// Step renderers. Pure views over the controller snapshot: no network
// I/O, no state beyond what the snapshot and input models carry.

func (m Model) renderHeader(snap checkout.Snapshot) string {
	title := styles.TitleStyle.Render(" ★ Fanbroj Premium ")

	// Plan summary badge, visible once past the select step.
	switch snap.Step.(type) {
	case checkout.SelectStep, checkout.SuccessStep:
		return title
	}

	color, ok := styles.PlanColors[snap.Plan.Name]
	if !ok {
		color = styles.Green
	}
	badge := lipgloss.NewStyle().Foreground(color).Bold(true).
		Render(fmt.Sprintf("%s · $%s", snap.Plan.Name, snap.DisplayPrice()))
	return title + "  " + badge
}

func (m Model) renderSelect(snap checkout.Snapshot, step checkout.SelectStep) string {
	var b strings.Builder

	// Plan selector
	b.WriteString(styles.SectionLabelStyle.Render("DOORO QORSHAHA") + "\n")
	for i, p := range checkout.Plans {
		cursor := i == m.planCursor
		active := p.ID == snap.Plan.ID

		var price string
		if snap.MultiplierReady {
			price = styles.PriceStyle.Render("$" + p.Price(snap.Multiplier))
		} else {
			price = styles.MutedStyle.Render(m.spinner.View() + "...")
		}

		color, ok := styles.PlanColors[p.Name]
		if !ok {
			color = styles.Green
		}
		name := lipgloss.NewStyle().Foreground(color).Bold(true).Render(p.Name)

		line := fmt.Sprintf("%s  %s  %s", name, price, styles.MutedStyle.Render(p.Duration))
		if p.Badge != "" {
			line += "  " + styles.BadgeStyle.Render(p.Badge)
		}
		if active {
			line += "  " + styles.DimStyle.Render("✓")
		}

		if cursor && m.focus == sectionPlans {
			b.WriteString(styles.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(styles.NormalItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	// Payment method selector
	b.WriteString("\n" + styles.SectionLabelStyle.Render("QAABKA LACAG-BIXINTA") + "\n")
	for i, info := range checkout.Methods {
		cursor := i == m.methodCursor
		active := info.ID == snap.Method

		marker := "○"
		if active {
			marker = "●"
		}
		line := fmt.Sprintf("%s %s  %s", marker, info.Label, styles.MutedStyle.Render(info.Subtitle))

		if cursor && m.focus == sectionMethods {
			b.WriteString(styles.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(styles.NormalItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if step.Err != "" {
		b.WriteString("\n" + styles.ErrorBoxStyle.Render(m.truncate(step.Err)) + "\n")
	}

	// CTA
	b.WriteString("\n")
	switch {
	case snap.Loading:
		b.WriteString(styles.ButtonDisabledStyle.Render(m.spinner.View() + " Sugaya..."))
	case !snap.MultiplierReady:
		b.WriteString(styles.ButtonDisabledStyle.Render(m.spinner.View() + " Qiimaha la soo uruuriyaa..."))
	default:
		b.WriteString(styles.ButtonStyle.Render(fmt.Sprintf("$%s — KU BILOW HADDA", snap.DisplayPrice())))
	}

	b.WriteString("\n\n" + styles.HelpStyle.Render("↑/↓ select · tab section · enter continue · esc close"))
	b.WriteString("\n" + styles.MutedStyle.Render("🔒 Lacag-bixin ammaan ah · Premium isla markiiba furmaa"))
	return b.String()
}

func (m Model) renderPolling(snap checkout.Snapshot, step checkout.PollingStep) string {
	var b strings.Builder

	label := "Kaardhkaaga"
	if step.Provider == checkout.MethodSifalo {
		label = "EVC Plus / Zaad"
	}

	b.WriteString(m.spinner.View() + " " + styles.SubtitleStyle.Render(label) + "\n\n")
	b.WriteString(styles.DimStyle.Render("Tab cusub ayaa la furay — lacag-bixinta dhammaystir,") + "\n")
	b.WriteString(styles.DimStyle.Render("kadibna halkan ayuu si toos ah ugu soo noqon doonaa.") + "\n\n")

	b.WriteString(m.renderProgressBar(step.Tick, step.MaxTicks) + "\n")
	remaining := (step.MaxTicks - step.Tick) * 3
	b.WriteString(styles.MutedStyle.Render(
		fmt.Sprintf("%d/%d check · %ds remaining", step.Tick, step.MaxTicks, remaining)) + "\n\n")

	if step.CheckoutURL != "" {
		b.WriteString(styles.LinkStyle.Render("[o] Tab dib u fur") + "\n\n")
	}
	b.WriteString(styles.HelpStyle.Render("esc back"))
	return b.String()
}

func (m Model) renderProgressBar(tick, maxTicks int) string {
	const width = 30
	if maxTicks <= 0 {
		maxTicks = 1
	}
	filled := tick * width / maxTicks
	if filled > width {
		filled = width
	}
	bar := styles.ProgressBarStyle.Render(strings.Repeat("█", filled)) +
		styles.ProgressTrackStyle.Render(strings.Repeat("░", width-filled))
	return bar
}

func (m Model) renderManualForm(snap checkout.Snapshot, step checkout.ManualFormStep) string {
	var b strings.Builder

	isMpesa := step.Method == checkout.MethodMpesa
	price := "$" + snap.DisplayPrice()

	var instructions []string
	if isMpesa {
		b.WriteString(styles.SubtitleStyle.Render("How to pay with M-Pesa:") + "\n\n")
		instructions = []string{
			fmt.Sprintf("Open M-Pesa and send %s to: 0797415296 — Abdullahi Ahmed", price),
			"Check your M-Pesa SMS for the Transaction Code (e.g. QJK2ABCDE5)",
			"Paste the code below and press enter",
		}
	} else {
		b.WriteString(styles.SubtitleStyle.Render("How to pay with PayPal:") + "\n\n")
		instructions = []string{
			fmt.Sprintf("Open PayPal and send %s to: code.abdala@gmail.com", price),
			"Open your PayPal receipt and copy the Transaction ID (e.g. 5TY05013RG002845M)",
			"Paste it below and press enter",
		}
	}
	for i, inst := range instructions {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, styles.DimStyle.Render(inst)))
	}

	b.WriteString("\n" + m.txInput.View() + "\n")

	if step.Err != "" {
		b.WriteString("\n" + styles.ErrorBoxStyle.Render(m.truncate(step.Err)) + "\n")
	}

	b.WriteString("\n")
	if snap.Loading {
		b.WriteString(styles.ButtonDisabledStyle.Render(m.spinner.View() + " Gudbinaya..."))
	} else if strings.TrimSpace(m.txInput.Value()) == "" {
		b.WriteString(styles.ButtonDisabledStyle.Render("SUBMIT PAYMENT"))
	} else {
		b.WriteString(styles.ButtonStyle.Render("SUBMIT PAYMENT"))
	}

	b.WriteString("\n\n" + styles.MutedStyle.Render(
		"We will verify your payment within 30–40 min and activate your Premium."))
	b.WriteString("\n" + styles.HelpStyle.Render("enter submit · ctrl+v paste · esc back"))
	return b.String()
}

func (m Model) renderManualDone() string {
	var b strings.Builder
	b.WriteString(styles.SuccessTitleStyle.Render("✓ Lacagta La Helay!") + "\n\n")
	b.WriteString(styles.DimStyle.Render("Waad gudbisay! Kooxdeenu waxay xaqiijin doontaa") + "\n")
	b.WriteString(styles.DimStyle.Render("30–40 daqiiqo gudahood — kadibna Premium si toos") + "\n")
	b.WriteString(styles.DimStyle.Render("ah ayuu kuu furmaa.") + "\n\n")
	b.WriteString(styles.MutedStyle.Render("⏱ Xaqiijinta: 30–40 daqiiqo gudahood") + "\n\n")
	b.WriteString(styles.HelpStyle.Render("enter close"))
	return b.String()
}

func (m Model) renderSuccess(step checkout.SuccessStep) string {
	plan, _ := checkout.PlanByID(step.Plan)
	color, ok := styles.PlanColors[plan.Name]
	if !ok {
		color = styles.Green
	}

	var b strings.Builder
	b.WriteString(styles.SuccessTitleStyle.Render("✦ Mahad sanid! 🎉") + "\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(color).Bold(true).
		Render(fmt.Sprintf("%s Plan — %s", plan.Name, plan.Duration)) + "\n\n")
	b.WriteString(styles.DimStyle.Render("Premium way furmay — daawo dhammaan filimada") + "\n")
	b.WriteString(styles.DimStyle.Render("iyo tartan-naftaada.") + "\n\n")
	b.WriteString(styles.ButtonStyle.Render("BILOW DAAWASHADA") + "\n\n")
	b.WriteString(styles.HelpStyle.Render("enter close"))
	return b.String()
}

func (m Model) renderError(step checkout.ErrorStep) string {
	msg := step.Message
	if msg == "" {
		msg = "Lacag-bixinta way fashilantay. Isku day mar kale ama xiriir admin."
	}

	var b strings.Builder
	b.WriteString(styles.ErrorTitleStyle.Render("✗ Khalad ayaa dhacay") + "\n\n")
	b.WriteString(styles.DimStyle.Render(m.truncate(msg)) + "\n\n")
	b.WriteString(styles.HelpStyle.Render("r retry · esc close"))
	return b.String()
}

// truncate caps a server-supplied message to the overlay width so a
// long error can never break the layout.
func (m Model) truncate(s string) string {
	limit := 60
	if m.width > 16 && m.width-16 < limit {
		limit = m.width - 16
	}
	return runewidth.Truncate(s, limit, "…")
}
