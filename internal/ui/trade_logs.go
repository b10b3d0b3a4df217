package ui

import (
	"fmt"
	"strconv"

	"github.com/rivo/tview"

	"github.com/arbdeck/console/internal/api"
)

// TradeLogsView displays the persisted trade-log records fetched from the
// backend, most recent first.
type TradeLogsView struct {
	table *tview.Table
}

// NewTradeLogsView creates a new trade logs view.
func NewTradeLogsView() *TradeLogsView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Trade Log ").SetBorder(true)

	for col, header := range tradeLogHeaders() {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		table.SetCell(0, col, cell)
	}

	return &TradeLogsView{table: table}
}

func tradeLogHeaders() []string {
	return []string{"Time", "Coin", "Route", "Amount", "Profit", "Status"}
}

// Widget returns the tview primitive.
func (v *TradeLogsView) Widget() tview.Primitive {
	return v.table
}

// Update redraws the table from fetched records.
func (v *TradeLogsView) Update(logs []api.TradeLog) {
	v.table.Clear()

	for col, header := range tradeLogHeaders() {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}

	for i, entry := range logs {
		status := entry.Status
		if entry.ErrorMessage != "" {
			status += " (" + truncate(entry.ErrorMessage, 30) + ")"
		}
		cells := []string{
			entry.Timestamp.Format("01-02 15:04:05"),
			entry.Coin,
			entry.BuyExchange + "→" + entry.SellExchange,
			strconv.FormatFloat(entry.Amount, 'f', 6, 64),
			fmt.Sprintf("%.4f", entry.Profit),
			status,
		}
		for col, text := range cells {
			cell := tview.NewTableCell(text).
				SetAlign(tview.AlignLeft)
			v.table.SetCell(i+1, col, cell)
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Trade Log (%d) ", len(logs)))
}
