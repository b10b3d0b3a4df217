package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/arbdeck/console/internal/event"
)

// ActivityFeedView displays the live activity buffer, newest entries first.
type ActivityFeedView struct {
	table *tview.Table
}

// NewActivityFeedView creates a new activity feed view.
func NewActivityFeedView() *ActivityFeedView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Live Activity ").SetBorder(true)

	for col, header := range activityHeaders() {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		table.SetCell(0, col, cell)
	}

	return &ActivityFeedView{table: table}
}

func activityHeaders() []string {
	return []string{"Time", "Type", "Coin", "Detail"}
}

// Widget returns the tview primitive.
func (v *ActivityFeedView) Widget() tview.Primitive {
	return v.table
}

// Update redraws the feed from a buffer snapshot.
func (v *ActivityFeedView) Update(events []event.Event) {
	v.table.Clear()

	for col, header := range activityHeaders() {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}

	for i, ev := range events {
		row := i + 1
		timeStr := ev.ReceivedAt().Format("15:04:05")

		var kind, coin, detail string
		switch e := ev.(type) {
		case event.TickerSpread:
			kind = "ticker"
			coin = e.Coin
			detail = fmt.Sprintf("%.3f%%  buy %s @ %.4f  sell %s @ %.4f",
				e.SpreadPercent*100, e.BestBuy.Exchange, e.BestBuy.Price,
				e.BestSell.Exchange, e.BestSell.Price)
		case event.TradeExecution:
			kind = "trade"
			coin = e.Coin
			detail = fmt.Sprintf("%s  %.6f %s→%s  profit %.4f",
				e.Status, e.Amount, e.BuyExchange, e.SellExchange, e.Profit)
			if e.Error != "" {
				detail += "  (" + e.Error + ")"
			}
		case event.Unknown:
			kind = e.Type
			if kind == "" {
				kind = "?"
			}
			detail = truncate(string(e.Raw), 60)
		}

		cells := []string{timeStr, kind, coin, detail}
		for col, text := range cells {
			cell := tview.NewTableCell(text).
				SetAlign(tview.AlignLeft)
			v.table.SetCell(row, col, cell)
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Live Activity (%d) ", len(events)))
}

// truncate shortens a string for display.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
