// Package metrics provides real-time session statistics for the console.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/arbdeck/console/internal/event"
)

// CoinSpread is the latest observed spread for one coin.
type CoinSpread struct {
	Coin          string
	SpreadPercent float64
	BestBuy       event.Quote
	BestSell      event.Quote
	UpdateCount   int
	LastUpdate    time.Time
}

// Snapshot is a point-in-time view of session statistics.
type Snapshot struct {
	EventsTotal    int64
	EventsByKind   map[event.Kind]int64
	DroppedFrames  int64
	EventRate      float64 // events per second over the last minute
	TradesExecuted int64
	TradesFailed   int64
	ProfitTotal    float64
	Spreads        []CoinSpread // sorted by spread, widest first
	Uptime         time.Duration
	StreamStatus   string
	BufferUsed     int
	BufferCap      int
}

// Tracker accumulates thread-safe statistics from the decoded event flow.
type Tracker struct {
	mu              sync.RWMutex
	eventsTotal     int64
	eventsByKind    map[event.Kind]int64
	droppedFrames   int64
	tradesExecuted  int64
	tradesFailed    int64
	profitTotal     float64
	spreads         map[string]*CoinSpread
	eventTimestamps []time.Time
	startTime       time.Time
	streamStatus    string
	bufferUsed      int
	bufferCap       int
}

// NewTracker creates a Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		eventsByKind:    make(map[event.Kind]int64),
		spreads:         make(map[string]*CoinSpread),
		eventTimestamps: make([]time.Time, 0, 1000),
		startTime:       time.Now(),
		streamStatus:    "disconnected",
	}
}

// Record accounts for one decoded event.
func (t *Tracker) Record(ev event.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.eventsTotal++
	t.eventsByKind[ev.Kind()]++
	t.eventTimestamps = append(t.eventTimestamps, now)
	t.trimTimestamps(now)

	switch e := ev.(type) {
	case event.TickerSpread:
		spread, exists := t.spreads[e.Coin]
		if !exists {
			spread = &CoinSpread{Coin: e.Coin}
			t.spreads[e.Coin] = spread
		}
		spread.SpreadPercent = e.SpreadPercent
		spread.BestBuy = e.BestBuy
		spread.BestSell = e.BestSell
		spread.UpdateCount++
		spread.LastUpdate = now

	case event.TradeExecution:
		switch e.Status {
		case event.StatusFailed, event.StatusError:
			t.tradesFailed++
		default:
			t.tradesExecuted++
			t.profitTotal += e.Profit
		}
	}
}

// SetDroppedFrames records the running count of malformed frames the stream
// has dropped.
func (t *Tracker) SetDroppedFrames(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.droppedFrames = n
}

// SetStreamStatus records the stream connection status for display.
func (t *Tracker) SetStreamStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streamStatus = status
}

// SetBufferUsage records the activity buffer occupancy.
func (t *Tracker) SetBufferUsage(used, capacity int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bufferUsed = used
	t.bufferCap = capacity
}

// trimTimestamps keeps only the last 60 seconds. Must be called with the
// lock held.
func (t *Tracker) trimTimestamps(now time.Time) {
	cutoff := now.Add(-60 * time.Second)
	validIdx := len(t.eventTimestamps)
	for i, ts := range t.eventTimestamps {
		if ts.After(cutoff) {
			validIdx = i
			break
		}
	}
	if validIdx > 0 {
		t.eventTimestamps = t.eventTimestamps[validIdx:]
	}
}

// Snapshot returns a point-in-time copy of the statistics.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rate := 0.0
	if len(t.eventTimestamps) > 0 {
		duration := time.Since(t.eventTimestamps[0]).Seconds()
		if duration > 0 {
			rate = float64(len(t.eventTimestamps)) / duration
		}
	}

	byKind := make(map[event.Kind]int64, len(t.eventsByKind))
	for k, v := range t.eventsByKind {
		byKind[k] = v
	}

	spreads := make([]CoinSpread, 0, len(t.spreads))
	for _, s := range t.spreads {
		spreads = append(spreads, *s)
	}
	sort.Slice(spreads, func(i, j int) bool {
		return spreads[i].SpreadPercent > spreads[j].SpreadPercent
	})

	return Snapshot{
		EventsTotal:    t.eventsTotal,
		EventsByKind:   byKind,
		DroppedFrames:  t.droppedFrames,
		EventRate:      rate,
		TradesExecuted: t.tradesExecuted,
		TradesFailed:   t.tradesFailed,
		ProfitTotal:    t.profitTotal,
		Spreads:        spreads,
		Uptime:         time.Since(t.startTime),
		StreamStatus:   t.streamStatus,
		BufferUsed:     t.bufferUsed,
		BufferCap:      t.bufferCap,
	}
}

// Cleanup removes spreads that have not updated recently.
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-60 * time.Minute)
	for coin, spread := range t.spreads {
		if spread.LastUpdate.Before(cutoff) {
			delete(t.spreads, coin)
		}
	}
}
