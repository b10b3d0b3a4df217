package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/arbdeck/console/internal/event"
	"github.com/arbdeck/console/internal/metrics"
)

// StatsView displays session health and throughput statistics.
type StatsView struct {
	textView *tview.TextView
}

// NewStatsView creates a new stats view.
func NewStatsView() *StatsView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetTitle(" Session ").SetBorder(true)

	return &StatsView{textView: textView}
}

// Widget returns the tview primitive.
func (v *StatsView) Widget() tview.Primitive {
	return v.textView
}

// Update refreshes the stats display.
func (v *StatsView) Update(snapshot metrics.Snapshot) {
	v.textView.Clear()

	streamColor := "red"
	if snapshot.StreamStatus == "open" {
		streamColor = "green"
	}

	bufferPct := 0.0
	if snapshot.BufferCap > 0 {
		bufferPct = (float64(snapshot.BufferUsed) / float64(snapshot.BufferCap)) * 100
	}

	text := fmt.Sprintf(
		" Uptime %s   Stream [%s]%s[-]   Buffer %d/%d (%.0f%%)\n"+
			" Events %d (%.2f/s)   tickers %d   trades %d   other %d   dropped %d\n"+
			" Trades executed %d   failed %d   profit %+.4f",
		formatDuration(snapshot.Uptime),
		streamColor, snapshot.StreamStatus,
		snapshot.BufferUsed, snapshot.BufferCap, bufferPct,
		snapshot.EventsTotal, snapshot.EventRate,
		snapshot.EventsByKind[event.KindTicker],
		snapshot.EventsByKind[event.KindTrade],
		snapshot.EventsByKind[event.KindUnknown],
		snapshot.DroppedFrames,
		snapshot.TradesExecuted, snapshot.TradesFailed, snapshot.ProfitTotal,
	)

	fmt.Fprint(v.textView, text)
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
