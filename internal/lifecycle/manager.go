// Package lifecycle manages bot configurations and exchange keys: list/create
// caching plus at-most-once start/stop commands.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/arbdeck/console/internal/api"
	"github.com/arbdeck/console/internal/errs"
	"github.com/arbdeck/console/internal/session"
)

// CommandKind distinguishes start from stop.
type CommandKind string

const (
	CommandStart CommandKind = "start"
	CommandStop  CommandKind = "stop"
)

// PendingCommand marks an in-flight start/stop for one configuration. It
// exists only between issue and response and is never persisted.
type PendingCommand struct {
	ConfigID int
	Kind     CommandKind
	IssuedAt time.Time
}

// Manager issues control commands against bot configurations and keeps read
// caches of the server-owned records. Commands are never retried and the
// caches are never optimistically flipped: running-state truth only arrives
// by re-listing.
type Manager struct {
	api    *api.Client
	tokens *session.Store

	mu         sync.Mutex
	pending    map[int]PendingCommand
	keys       []api.ExchangeKey
	configs    []api.BotConfig
	generation uint64
}

// NewManager creates a Manager. It registers an abandon hook on the session
// store so that logout discards the results of any in-flight commands.
func NewManager(client *api.Client, tokens *session.Store) *Manager {
	m := &Manager{
		api:     client,
		tokens:  tokens,
		pending: make(map[int]PendingCommand),
	}
	tokens.OnClear(m.Abandon)
	return m
}

// Abandon drops all pending-command markers and invalidates their eventual
// results. Caches are cleared too: they belong to the ended session.
func (m *Manager) Abandon() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) > 0 {
		slog.Info("commands_abandoned", "count", len(m.pending))
	}
	m.pending = make(map[int]PendingCommand)
	m.keys = nil
	m.configs = nil
	m.generation++
}

// Start issues a start command for the configuration. A second start or stop
// for the same configuration while one is in flight fails locally with
// ErrAlreadyPending and no network call.
func (m *Manager) Start(ctx context.Context, configID int) error {
	return m.command(ctx, configID, CommandStart)
}

// Stop issues a stop command for the configuration.
func (m *Manager) Stop(ctx context.Context, configID int) error {
	return m.command(ctx, configID, CommandStop)
}

func (m *Manager) command(ctx context.Context, configID int, kind CommandKind) error {
	if _, ok := m.tokens.Get(); !ok {
		return errs.ErrAuthRequired
	}

	m.mu.Lock()
	if cmd, busy := m.pending[configID]; busy {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s for config %d issued at %s",
			errs.ErrAlreadyPending, cmd.Kind, configID, cmd.IssuedAt.Format(time.RFC3339))
	}
	m.pending[configID] = PendingCommand{ConfigID: configID, Kind: kind, IssuedAt: time.Now()}
	gen := m.generation
	m.mu.Unlock()

	slog.Info("command_issued", "kind", kind, "config_id", configID)

	var err error
	switch kind {
	case CommandStart:
		err = m.api.StartBot(ctx, configID)
	case CommandStop:
		err = m.api.StopBot(ctx, configID)
	}

	m.mu.Lock()
	stale := m.generation != gen
	if !stale {
		delete(m.pending, configID)
	}
	m.mu.Unlock()

	if stale {
		// The session ended while the command was in flight; its result
		// belongs to nobody.
		slog.Info("command_result_discarded", "kind", kind, "config_id", configID)
		return errs.ErrAuthRequired
	}

	if err != nil {
		slog.Warn("command_failed", "kind", kind, "config_id", configID, "error", err)
		return err
	}

	slog.Info("command_completed", "kind", kind, "config_id", configID)
	return nil
}

// Pending returns the in-flight command for a configuration, if any.
func (m *Manager) Pending(configID int) (PendingCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd, ok := m.pending[configID]
	return cmd, ok
}

// RefreshExchangeKeys re-lists exchange keys and replaces the cache.
func (m *Manager) RefreshExchangeKeys(ctx context.Context) ([]api.ExchangeKey, error) {
	keys, err := m.api.ListExchangeKeys(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.keys = keys
	m.mu.Unlock()
	return m.ExchangeKeys(), nil
}

// RefreshBotConfigs re-lists bot configurations and replaces the cache.
func (m *Manager) RefreshBotConfigs(ctx context.Context) ([]api.BotConfig, error) {
	configs, err := m.api.ListBotConfigs(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.configs = configs
	m.mu.Unlock()
	return m.BotConfigs(), nil
}

// ExchangeKeys returns a copy of the cached key records.
func (m *Manager) ExchangeKeys() []api.ExchangeKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]api.ExchangeKey, len(m.keys))
	copy(out, m.keys)
	return out
}

// BotConfigs returns a copy of the cached configuration records.
func (m *Manager) BotConfigs() []api.BotConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]api.BotConfig, len(m.configs))
	copy(out, m.configs)
	return out
}

// AddExchangeKey validates shape locally, then creates the record and
// refreshes the cache from the authoritative list.
func (m *Manager) AddExchangeKey(ctx context.Context, in api.ExchangeKeyCreate) (api.ExchangeKey, error) {
	if _, ok := m.tokens.Get(); !ok {
		return api.ExchangeKey{}, errs.ErrAuthRequired
	}
	if strings.TrimSpace(in.Exchange) == "" {
		return api.ExchangeKey{}, fmt.Errorf("%w: exchange is required", errs.ErrValidation)
	}
	if strings.TrimSpace(in.APIKey) == "" {
		return api.ExchangeKey{}, fmt.Errorf("%w: api key is required", errs.ErrValidation)
	}
	if strings.TrimSpace(in.APISecret) == "" {
		return api.ExchangeKey{}, fmt.Errorf("%w: api secret is required", errs.ErrValidation)
	}

	key, err := m.api.AddExchangeKey(ctx, in)
	if err != nil {
		return api.ExchangeKey{}, err
	}
	if _, err := m.RefreshExchangeKeys(ctx); err != nil {
		slog.Warn("exchange_keys_refresh_failed", "error", err)
	}
	return key, nil
}

// AddBotConfig validates shape locally, then creates the record and refreshes
// the cache from the authoritative list. Business-rule validation is the
// server's job; its rejection detail passes through verbatim.
func (m *Manager) AddBotConfig(ctx context.Context, in api.BotConfigCreate) (api.BotConfig, error) {
	if _, ok := m.tokens.Get(); !ok {
		return api.BotConfig{}, errs.ErrAuthRequired
	}
	if in.Mode != api.ModeSandbox && in.Mode != api.ModeLive {
		return api.BotConfig{}, fmt.Errorf("%w: mode must be %q or %q",
			errs.ErrValidation, api.ModeSandbox, api.ModeLive)
	}
	if strings.TrimSpace(in.Coins) == "" {
		return api.BotConfig{}, fmt.Errorf("%w: coins are required", errs.ErrValidation)
	}

	cfg, err := m.api.AddBotConfig(ctx, in)
	if err != nil {
		return api.BotConfig{}, err
	}
	if _, err := m.RefreshBotConfigs(ctx); err != nil {
		slog.Warn("bot_configs_refresh_failed", "error", err)
	}
	return cfg, nil
}
