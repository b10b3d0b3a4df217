// Package ui provides terminal user interface components.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/arbdeck/console/internal/activity"
	"github.com/arbdeck/console/internal/api"
	"github.com/arbdeck/console/internal/errs"
	"github.com/arbdeck/console/internal/lifecycle"
	"github.com/arbdeck/console/internal/metrics"
)

const tradeLogRefreshEvery = 30 * time.Second

// App is the main TUI application.
type App struct {
	app    *tview.Application
	layout *tview.Flex

	// Views
	activityFeed *ActivityFeedView
	spreads      *SpreadsView
	botConfigs   *BotConfigsView
	exchangeKeys *ExchangeKeysView
	tradeLogs    *TradeLogsView
	stats        *StatsView
	statusBar    *tview.TextView

	// Data sources
	buffer  *activity.Buffer
	tracker *metrics.Tracker
	manager *lifecycle.Manager
	client  *api.Client

	refreshRate   time.Duration
	tradeLogLimit int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates a new TUI application.
func NewApp(buffer *activity.Buffer, tracker *metrics.Tracker, manager *lifecycle.Manager,
	client *api.Client, refreshRate time.Duration, tradeLogLimit int) *App {

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:           tview.NewApplication(),
		buffer:        buffer,
		tracker:       tracker,
		manager:       manager,
		client:        client,
		refreshRate:   refreshRate,
		tradeLogLimit: tradeLogLimit,
		ctx:           ctx,
		cancel:        cancel,
	}

	// Initialize views
	a.activityFeed = NewActivityFeedView()
	a.spreads = NewSpreadsView()
	a.botConfigs = NewBotConfigsView()
	a.exchangeKeys = NewExchangeKeysView()
	a.tradeLogs = NewTradeLogsView()
	a.stats = NewStatsView()
	a.statusBar = tview.NewTextView().SetDynamicColors(true)

	a.setupLayout()
	a.setupKeyboard()

	return a
}

// setupLayout creates the panel layout.
func (a *App) setupLayout() {
	// Top row: Spreads (left) | Bot Configs (middle) | Exchange Keys (right)
	topRow := tview.NewFlex().
		AddItem(a.spreads.Widget(), 0, 2, false).
		AddItem(a.botConfigs.Widget(), 0, 2, true).
		AddItem(a.exchangeKeys.Widget(), 0, 1, false)

	// Middle row: Activity feed (left) | Trade logs (right)
	middleRow := tview.NewFlex().
		AddItem(a.activityFeed.Widget(), 0, 3, false).
		AddItem(a.tradeLogs.Widget(), 0, 2, false)

	// Bottom row: Stats (left) | Status bar (right)
	bottomRow := tview.NewFlex().
		AddItem(a.stats.Widget(), 0, 2, false).
		AddItem(a.statusBar, 0, 1, false)

	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 2, true).
		AddItem(middleRow, 0, 3, false).
		AddItem(bottomRow, 7, 0, false)

	a.app.SetRoot(a.layout, true)
	a.app.SetFocus(a.botConfigs.Widget())
}

// setupKeyboard configures keyboard shortcuts.
func (a *App) setupKeyboard() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				a.Stop()
				return nil
			case 'r', 'R':
				go a.reloadLists()
				return nil
			case 's', 'S':
				a.commandSelected(lifecycle.CommandStart)
				return nil
			case 'x', 'X':
				a.commandSelected(lifecycle.CommandStop)
				return nil
			}
		}
		return event
	})
}

// Run starts the TUI application (blocking).
func (a *App) Run() error {
	go a.updateLoop()
	go a.tradeLogLoop()
	go a.reloadLists()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// updateLoop periodically refreshes views from the buffer, tracker and caches.
func (a *App) updateLoop() {
	ticker := time.NewTicker(a.refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			events := a.buffer.Snapshot()
			a.tracker.SetBufferUsage(len(events), a.buffer.Capacity())
			snapshot := a.tracker.Snapshot()
			configs := a.manager.BotConfigs()
			keys := a.manager.ExchangeKeys()

			a.app.QueueUpdateDraw(func() {
				a.activityFeed.Update(events)
				a.spreads.Update(snapshot)
				a.stats.Update(snapshot)
				a.botConfigs.Update(configs, a.manager)
				a.exchangeKeys.Update(keys)
			})
		}
	}
}

// tradeLogLoop periodically pulls the persisted trade log.
func (a *App) tradeLogLoop() {
	a.refreshTradeLogs()

	ticker := time.NewTicker(tradeLogRefreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.refreshTradeLogs()
		}
	}
}

func (a *App) refreshTradeLogs() {
	ctx, cancel := context.WithTimeout(a.ctx, api.DefaultTimeout)
	defer cancel()

	logs, err := a.client.TradeLogs(ctx, a.tradeLogLimit)
	if err != nil {
		a.setStatus(fmt.Sprintf("[red]trade logs: %v[-]", err))
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.tradeLogs.Update(logs)
	})
}

// reloadLists re-fetches exchange keys and bot configs from the backend.
func (a *App) reloadLists() {
	ctx, cancel := context.WithTimeout(a.ctx, api.DefaultTimeout)
	defer cancel()

	if _, err := a.manager.RefreshBotConfigs(ctx); err != nil {
		a.setStatus(fmt.Sprintf("[red]bot configs: %v[-]", err))
		return
	}
	if _, err := a.manager.RefreshExchangeKeys(ctx); err != nil {
		a.setStatus(fmt.Sprintf("[red]exchange keys: %v[-]", err))
		return
	}
	a.setStatus("[green]lists reloaded[-]")
}

// commandSelected issues start/stop for the highlighted configuration.
func (a *App) commandSelected(kind lifecycle.CommandKind) {
	configID, ok := a.botConfigs.SelectedConfigID()
	if !ok {
		// setStatus queues a draw; hop off the event loop goroutine first.
		go a.setStatus("[yellow]no bot config selected[-]")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, api.DefaultTimeout)
		defer cancel()

		var err error
		switch kind {
		case lifecycle.CommandStart:
			err = a.manager.Start(ctx, configID)
		case lifecycle.CommandStop:
			err = a.manager.Stop(ctx, configID)
		}

		switch {
		case err == nil:
			a.setStatus(fmt.Sprintf("[green]%s accepted for config %d[-]", kind, configID))
			// Running state is only authoritative after a re-list.
			if _, err := a.manager.RefreshBotConfigs(ctx); err != nil {
				a.setStatus(fmt.Sprintf("[yellow]reload after %s failed: %v[-]", kind, err))
			}
		default:
			if se, ok := errs.AsServerError(err); ok {
				a.setStatus(fmt.Sprintf("[red]%s config %d: %s[-]", kind, configID, se.Detail))
			} else {
				a.setStatus(fmt.Sprintf("[red]%s config %d: %v[-]", kind, configID, err))
			}
		}
	}()
}

// setStatus replaces the status bar contents.
func (a *App) setStatus(text string) {
	a.app.QueueUpdateDraw(func() {
		a.statusBar.Clear()
		fmt.Fprintf(a.statusBar, " %s  %s\n\n [gray]s start · x stop · r reload · q quit[-]",
			time.Now().Format("15:04:05"), text)
	})
}
