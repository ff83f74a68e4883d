package tui

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"
	"gorm.io/gorm"

	"github.com/codeabdala/fanbroj-cli/internal/api"
	"github.com/codeabdala/fanbroj-cli/internal/checkout"
	"github.com/codeabdala/fanbroj-cli/internal/config"
	"github.com/codeabdala/fanbroj-cli/internal/device"
	"github.com/codeabdala/fanbroj-cli/internal/entitlement"
	"github.com/codeabdala/fanbroj-cli/internal/tui/common"
)

// Start wires the checkout controller to the UI and runs the program.
func Start(cfg *config.Config, logger *slog.Logger, db *gorm.DB, client *api.Client, ident device.Identity) error {
	entitlements := entitlement.NewService(client, db, ident.ID(), logger)

	// Buffered so controller callbacks never block on a busy UI.
	msgChan := make(chan tea.Msg, 64)
	send := func(msg tea.Msg) {
		select {
		case msgChan <- msg:
		default:
			// UI is saturated; drop the notification. The next change
			// notification re-renders from the same snapshot anyway.
		}
	}

	var openURL func(string) error
	if cfg.Checkout.OpenBrowser {
		openURL = browser.OpenURL
	}

	controller := checkout.New(checkout.Options{
		Backend:      client,
		Store:        checkout.NewMethodStore(db),
		Device:       ident,
		Logger:       logger,
		PollInterval: cfg.Checkout.PollInterval,
		MaxPolls:     cfg.Checkout.MaxPolls,
		OpenURL:      openURL,
		OnChange: func() {
			send(common.CheckoutSessionChangedMsg{})
		},
		OnSuccess: func() {
			send(common.CheckoutSuccessMsg{})
		},
		RefreshEntitlement: func(ctx context.Context) {
			if _, err := entitlements.Refresh(ctx); err != nil {
				logger.Warn("entitlement refresh after checkout failed", "error", err)
			}
		},
	})

	app := NewApp(cfg, logger, controller, entitlements, msgChan)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
