// Package main is the entry point for the Arbdeck operator console.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/arbdeck/console/internal/activity"
	"github.com/arbdeck/console/internal/api"
	"github.com/arbdeck/console/internal/config"
	"github.com/arbdeck/console/internal/event"
	"github.com/arbdeck/console/internal/lifecycle"
	"github.com/arbdeck/console/internal/metrics"
	"github.com/arbdeck/console/internal/session"
	"github.com/arbdeck/console/internal/stream"
	"github.com/arbdeck/console/internal/ui"
)

// EventChannelBuffer is the size of the buffered event channel between the
// stream client and the activity consumer.
const EventChannelBuffer = 1000

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("arbdeck starting",
		"version", "1.0.0",
	)

	slog.Info("config_loaded",
		"api_url", cfg.APIBaseURL,
		"username", cfg.Username,
		"password", cfg.MaskedPassword(),
		"reconnect", cfg.Reconnect,
		"buffer_capacity", cfg.BufferCapacity,
		"trade_log_limit", cfg.TradeLogLimit,
		"enable_tui", cfg.EnableTUI,
		"request_timeout", cfg.RequestTimeout,
	)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Session and API client
	tokens := session.NewStore()
	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, tokens)

	// Authenticate
	loginCtx, loginCancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	token, err := client.Login(loginCtx, cfg.Username, cfg.Password)
	loginCancel()
	if err != nil {
		slog.Error("login_failed", "error", err)
		os.Exit(1)
	}
	tokens.Set(token)
	slog.Info("login_succeeded", "username", cfg.Username)

	// Core components
	buffer := activity.NewBuffer(cfg.BufferCapacity)
	tracker := metrics.NewTracker()
	manager := lifecycle.NewManager(client, tokens)

	// Open the realtime feed
	events := make(chan event.Event, EventChannelBuffer)
	streamClient := stream.NewClient(client.StreamURL, tokens, events, cfg.Reconnect)

	handle, err := streamClient.Open(ctx, token)
	if err != nil {
		slog.Error("stream_open_failed", "error", err)
		os.Exit(1)
	}
	tokens.OnClear(handle.Close)
	tracker.SetStreamStatus(handle.State().String())

	// Consume decoded events in reception order
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				buffer.Append(ev)
				tracker.Record(ev)
			}
		}
	}()

	// Track stream state and prune stale spreads
	go func() {
		stateTicker := time.NewTicker(1 * time.Second)
		cleanupTicker := time.NewTicker(5 * time.Minute)
		defer stateTicker.Stop()
		defer cleanupTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stateTicker.C:
				tracker.SetStreamStatus(handle.State().String())
				tracker.SetDroppedFrames(handle.DroppedFrames())
			case <-cleanupTicker.C:
				tracker.Cleanup()
			}
		}
	}()

	// Initial list load
	if _, err := manager.RefreshBotConfigs(ctx); err != nil {
		slog.Warn("initial_bot_config_load_failed", "error", err)
	}
	if _, err := manager.RefreshExchangeKeys(ctx); err != nil {
		slog.Warn("initial_exchange_key_load_failed", "error", err)
	}

	slog.Info("console_started",
		"stream_state", handle.State().String(),
		"bot_configs", len(manager.BotConfigs()),
		"exchange_keys", len(manager.ExchangeKeys()),
		"tui_enabled", cfg.EnableTUI,
	)

	if cfg.EnableTUI {
		// TUI mode (blocking)
		slog.Info("starting_tui")
		app := ui.NewApp(buffer, tracker, manager, client, cfg.UIRefreshRate, cfg.TradeLogLimit)

		// Start TUI in goroutine so we can still handle signals
		go func() {
			if err := app.Run(); err != nil {
				slog.Error("tui_error", "error", err)
			}
			cancel()
		}()

		select {
		case sig := <-sigChan:
			slog.Info("shutdown_signal_received", "signal", sig.String())
			app.Stop()
		case <-ctx.Done():
			app.Stop()
		}
	} else {
		// Headless mode - just wait for signal
		select {
		case sig := <-sigChan:
			slog.Info("shutdown_signal_received", "signal", sig.String())
		case <-ctx.Done():
		}
	}

	cancel()

	// Logging out cascades: the stream handle closes and any in-flight
	// command results are abandoned.
	slog.Info("shutting_down", "status", "ending session")
	tokens.Clear()

	drainEvents(events)

	slog.Info("shutdown_complete")
}

// drainEvents discards events still queued in the channel during shutdown.
func drainEvents(events <-chan event.Event) {
	drained := 0
	for {
		select {
		case <-events:
			drained++
		default:
			if drained > 0 {
				slog.Info("events_drained", "count", drained)
			}
			return
		}
	}
}

// setupLogger creates a structured logger with the specified level.
// Format: 2025-01-04 14:32:01 [INFO]  message key=value
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("2006-01-02 15:04:05"))
				}
			}
			return a
		},
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	return slog.New(handler)
}
