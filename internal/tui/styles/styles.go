package styles

import "github.com/charmbracelet/lipgloss"

// Fanbroj dark palette, matching the web client's tailwind theme.
var (
	Black      = lipgloss.Color("#0d0d0d")
	Base01     = lipgloss.Color("#262626")
	Base02     = lipgloss.Color("#3f3f3f")
	Muted      = lipgloss.Color("#6b7280") // gray-500
	Dim        = lipgloss.Color("#9ca3af") // gray-400
	Foreground = lipgloss.Color("#f9fafb")

	Green  = lipgloss.Color("#4ade80") // primary accent
	Yellow = lipgloss.Color("#facc15")
	Purple = lipgloss.Color("#c084fc")
	Blue   = lipgloss.Color("#60a5fa")
	Red    = lipgloss.Color("#f87171")
	Paypal = lipgloss.Color("#009cde")
)

// PlanColors maps plan display names to their accent color.
var PlanColors = map[string]lipgloss.Color{
	"Pro":     Green,
	"Elite":   Yellow,
	"Plus":    Purple,
	"Starter": Blue,
}

var (
	// Overlay frame for the checkout sheet
	OverlayStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Base02)

	TitleStyle = lipgloss.NewStyle().
			Foreground(Black).
			Background(Green).
			Padding(0, 1).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Dim).
			Bold(true)

	SectionLabelStyle = lipgloss.NewStyle().
				Foreground(Muted).
				Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// Plan / method list items
	NormalItemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(Foreground)

	SelectedItemStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.ThickBorder()).
				BorderForeground(Green).
				BorderLeft(true).
				BorderTop(false).
				BorderRight(false).
				BorderBottom(false).
				PaddingLeft(1).
				Bold(true)

	BadgeStyle = lipgloss.NewStyle().
			Foreground(Black).
			Background(Yellow).
			Padding(0, 1).
			Bold(true)

	PriceStyle = lipgloss.NewStyle().
			Foreground(Foreground).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	DimStyle = lipgloss.NewStyle().
			Foreground(Dim)

	// Inline error box
	ErrorBoxStyle = lipgloss.NewStyle().
			Foreground(Red).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Red).
			Padding(0, 1)

	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	SuccessTitleStyle = lipgloss.NewStyle().
				Foreground(Green).
				Bold(true)

	LinkStyle = lipgloss.NewStyle().
			Foreground(Green).
			Underline(true)

	ProgressBarStyle = lipgloss.NewStyle().
				Foreground(Green)

	ProgressTrackStyle = lipgloss.NewStyle().
				Foreground(Base02)

	// CTA button
	ButtonStyle = lipgloss.NewStyle().
			Foreground(Black).
			Background(Green).
			Padding(0, 2).
			Bold(true)

	ButtonDisabledStyle = lipgloss.NewStyle().
				Foreground(Dim).
				Background(Base01).
				Padding(0, 2)

	// Premium banner on the home view
	PremiumBannerStyle = lipgloss.NewStyle().
				Foreground(Green).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Green).
				Padding(0, 1)

	UpsellBannerStyle = lipgloss.NewStyle().
				Foreground(Yellow).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Base02).
				Padding(0, 1)
)
