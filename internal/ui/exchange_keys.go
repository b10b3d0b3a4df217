package ui

import (
	"fmt"
	"strconv"

	"github.com/rivo/tview"

	"github.com/arbdeck/console/internal/api"
)

// ExchangeKeysView displays the operator's exchange credential records. Key
// material is never rendered.
type ExchangeKeysView struct {
	table *tview.Table
}

// NewExchangeKeysView creates a new exchange keys view.
func NewExchangeKeysView() *ExchangeKeysView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Exchange Keys ").SetBorder(true)

	for col, header := range exchangeKeyHeaders() {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		table.SetCell(0, col, cell)
	}

	return &ExchangeKeysView{table: table}
}

func exchangeKeyHeaders() []string {
	return []string{"ID", "Exchange", "Enabled"}
}

// Widget returns the tview primitive.
func (v *ExchangeKeysView) Widget() tview.Primitive {
	return v.table
}

// Update redraws the table from the manager's cached records.
func (v *ExchangeKeysView) Update(keys []api.ExchangeKey) {
	v.table.Clear()

	for col, header := range exchangeKeyHeaders() {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}

	for i, key := range keys {
		enabled := "no"
		if key.IsEnabled {
			enabled = "yes"
		}
		cells := []string{
			strconv.Itoa(key.ID),
			key.Exchange,
			enabled,
		}
		for col, text := range cells {
			cell := tview.NewTableCell(text).
				SetAlign(tview.AlignLeft)
			v.table.SetCell(i+1, col, cell)
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Exchange Keys (%d) ", len(keys)))
}
