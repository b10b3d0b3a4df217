package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/arbdeck/console/internal/metrics"
)

// SpreadsView displays the latest observed spread per coin, widest first.
type SpreadsView struct {
	table *tview.Table
}

// NewSpreadsView creates a new spreads view.
func NewSpreadsView() *SpreadsView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Spreads ").SetBorder(true)

	for col, header := range spreadHeaders() {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false).
			SetExpansion(1)
		table.SetCell(0, col, cell)
	}

	return &SpreadsView{table: table}
}

func spreadHeaders() []string {
	return []string{"Coin", "Spread", "Buy", "Sell", "Updates"}
}

// Widget returns the tview primitive.
func (v *SpreadsView) Widget() tview.Primitive {
	return v.table
}

// Update refreshes the view with new statistics.
func (v *SpreadsView) Update(snapshot metrics.Snapshot) {
	v.table.Clear()

	for col, header := range spreadHeaders() {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}

	for i, spread := range snapshot.Spreads {
		row := i + 1
		cells := []string{
			spread.Coin,
			fmt.Sprintf("%.3f%%", spread.SpreadPercent*100),
			fmt.Sprintf("%s @ %.4f", spread.BestBuy.Exchange, spread.BestBuy.Price),
			fmt.Sprintf("%s @ %.4f", spread.BestSell.Exchange, spread.BestSell.Price),
			fmt.Sprintf("%d", spread.UpdateCount),
		}
		for col, text := range cells {
			cell := tview.NewTableCell(text).
				SetAlign(tview.AlignLeft)
			v.table.SetCell(row, col, cell)
		}
	}
}
