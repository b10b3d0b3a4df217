package ui

import (
	"fmt"
	"strconv"

	"github.com/rivo/tview"

	"github.com/arbdeck/console/internal/api"
	"github.com/arbdeck/console/internal/lifecycle"
)

// BotConfigsView displays the operator's bot configurations with selection
// for start/stop commands.
type BotConfigsView struct {
	table *tview.Table
}

// NewBotConfigsView creates a new bot configs view.
func NewBotConfigsView() *BotConfigsView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0).
		SetSelectable(true, false)

	table.SetTitle(" Bot Configs ").SetBorder(true)

	for col, header := range botConfigHeaders() {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		table.SetCell(0, col, cell)
	}

	return &BotConfigsView{table: table}
}

func botConfigHeaders() []string {
	return []string{"ID", "Mode", "Coins", "Budget", "Max Trade", "Command"}
}

// Widget returns the tview primitive.
func (v *BotConfigsView) Widget() tview.Primitive {
	return v.table
}

// SelectedConfigID returns the configuration ID of the highlighted row.
func (v *BotConfigsView) SelectedConfigID() (int, bool) {
	row, _ := v.table.GetSelection()
	if row < 1 {
		return 0, false
	}
	cell := v.table.GetCell(row, 0)
	if cell == nil {
		return 0, false
	}
	id, err := strconv.Atoi(cell.Text)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Update redraws the table from the manager's cached records, annotating any
// configuration with an in-flight command.
func (v *BotConfigsView) Update(configs []api.BotConfig, manager *lifecycle.Manager) {
	row, _ := v.table.GetSelection()
	v.table.Clear()

	for col, header := range botConfigHeaders() {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}

	for i, cfg := range configs {
		command := ""
		if cmd, pending := manager.Pending(cfg.ID); pending {
			command = fmt.Sprintf("%s...", cmd.Kind)
		}

		cells := []string{
			strconv.Itoa(cfg.ID),
			cfg.Mode,
			cfg.Coins,
			fmt.Sprintf("%.2f", cfg.Budget),
			fmt.Sprintf("%.2f", cfg.MaxTradeSize),
			command,
		}
		for col, text := range cells {
			cell := tview.NewTableCell(text).
				SetAlign(tview.AlignLeft)
			v.table.SetCell(i+1, col, cell)
		}
	}

	if row >= 1 && row <= len(configs) {
		v.table.Select(row, 0)
	} else if len(configs) > 0 {
		v.table.Select(1, 0)
	}

	v.table.SetTitle(fmt.Sprintf(" Bot Configs (%d) ", len(configs)))
}
