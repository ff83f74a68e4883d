package tui

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/codeabdala/fanbroj-cli/internal/checkout"
	"github.com/codeabdala/fanbroj-cli/internal/config"
	"github.com/codeabdala/fanbroj-cli/internal/entitlement"
	"github.com/codeabdala/fanbroj-cli/internal/tui/common"
	checkoutui "github.com/codeabdala/fanbroj-cli/internal/tui/components/checkout"
	"github.com/codeabdala/fanbroj-cli/internal/tui/components/home"
)

// App is the root model: the home host view plus the quick-checkout
// overlay. While the overlay is open it owns all key input.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	controller   *checkout.Controller
	entitlements *entitlement.Service

	home       home.Model
	checkoutUI checkoutui.Model

	width  int
	height int

	// msgChan carries messages produced outside the bubbletea loop
	// (controller change notifications, success callbacks).
	msgChan chan tea.Msg
}

func NewApp(cfg *config.Config, logger *slog.Logger, controller *checkout.Controller, entitlements *entitlement.Service, msgChan chan tea.Msg) *App {
	defaultPlan, ok := checkout.ParsePlanID(cfg.Checkout.DefaultPlan)
	if !ok {
		defaultPlan = checkout.PlanMonthly
	}

	return &App{
		cfg:          cfg,
		logger:       logger,
		controller:   controller,
		entitlements: entitlements,
		home:         home.New(entitlements.Current(), defaultPlan),
		checkoutUI:   checkoutui.New(controller),
		msgChan:      msgChan,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.checkoutUI.Init(),
		a.waitForActivity(),
		a.refreshEntitlementCmd(),
	)
}

// waitForActivity forwards messages sent from outside the event loop.
func (a *App) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		return <-a.msgChan
	}
}

func (a *App) refreshEntitlementCmd() tea.Cmd {
	svc := a.entitlements
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		status, err := svc.Refresh(ctx)
		return common.EntitlementRefreshedMsg{Status: status, Err: err}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		var cmds []tea.Cmd
		var cmd tea.Cmd
		a.home, cmd = a.home.Update(msg)
		cmds = append(cmds, cmd)
		a.checkoutUI, cmd = a.checkoutUI.Update(msg)
		cmds = append(cmds, cmd)
		return a, tea.Batch(cmds...)

	case common.OpenCheckoutMsg:
		a.controller.Open(msg.Plan)
		a.checkoutUI.SyncSelection()
		return a, nil

	case common.CheckoutSessionChangedMsg:
		var cmd tea.Cmd
		a.checkoutUI, cmd = a.checkoutUI.Update(msg)
		return a, tea.Batch(cmd, a.waitForActivity())

	case common.CheckoutSuccessMsg:
		// Entitlement refresh is already in flight (controller side
		// effect); fetch again here so the banner updates even if that
		// one loses a race with overlay teardown.
		return a, tea.Batch(a.refreshEntitlementCmd(), a.waitForActivity())

	case common.EntitlementRefreshedMsg:
		if msg.Err != nil {
			a.logger.Warn("entitlement refresh failed", "error", msg.Err)
		}
		a.home.SetStatus(msg.Status)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.controller.Close()
			return a, tea.Quit
		}

		if a.controller.Snapshot().Open {
			var cmd tea.Cmd
			a.checkoutUI, cmd = a.checkoutUI.Update(msg)
			return a, cmd
		}

		if msg.String() == "q" {
			return a, tea.Quit
		}
		var cmd tea.Cmd
		a.home, cmd = a.home.Update(msg)
		return a, cmd
	}

	// Everything else (spinner ticks, paste results) goes to both.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.checkoutUI, cmd = a.checkoutUI.Update(msg)
	cmds = append(cmds, cmd)
	a.home, cmd = a.home.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a *App) View() string {
	if a.controller.Snapshot().Open {
		return a.checkoutUI.View()
	}
	return a.home.View()
}
