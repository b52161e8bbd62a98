// Package tui renders an analyzed schema report as an interactive table.
package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/gennadiy1g/csvbulkload/output"
)

// App is the schema browser: one table per analyzed file, cycled with Tab.
type App struct {
	app    *tview.Application
	pages  *tview.Pages
	report *output.SchemaReport

	current int
}

// NewApp builds the browser for a finished report.
func NewApp(report *output.SchemaReport) *App {
	a := &App{
		app:    tview.NewApplication(),
		pages:  tview.NewPages(),
		report: report,
	}
	a.setupUI()
	return a
}

func (a *App) setupUI() {
	for i, file := range a.report.Files {
		table := buildFileTable(file)
		a.pages.AddPage(pageName(i), table, true, i == 0)
	}

	statusBar := tview.NewTextView().
		SetDynamicColors(true).
		SetText("[yellow]Tab[-] next file  [yellow]q[-] quit")

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(statusBar, 1, 0, false)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyEscape, event.Rune() == 'q':
			a.app.Stop()
			return nil
		case event.Key() == tcell.KeyTab:
			a.nextFile()
			return nil
		}
		return event
	})

	a.app.SetRoot(layout, true)
}

func (a *App) nextFile() {
	if len(a.report.Files) == 0 {
		return
	}
	a.current = (a.current + 1) % len(a.report.Files)
	a.pages.SwitchToPage(pageName(a.current))
}

func buildFileTable(file output.FileResult) *tview.Table {
	table := tview.NewTable().SetBorders(false).SetSelectable(true, false)
	table.SetBorder(true).
		SetTitle(fmt.Sprintf(" %s — %d lines, %d malformed ", file.Path, file.NumLines, file.NumMalformedLines)).
		SetTitleAlign(tview.AlignLeft)

	headers := []string{"Column", "Type", "Nullable", "Min len", "Max len", "Digits", "Range"}
	for col, header := range headers {
		table.SetCell(0, col, tview.NewTableCell(header).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold))
	}

	for row, column := range file.Columns {
		nullable := "NOT NULL"
		if column.Nullable {
			nullable = "NULL"
		}
		minLength := "-"
		if column.MinLength != nil {
			minLength = fmt.Sprint(*column.MinLength)
		}
		digits := "-"
		if column.DigitsBefore != nil || column.DigitsAfter != nil {
			before, after := 0, 0
			if column.DigitsBefore != nil {
				before = *column.DigitsBefore
			}
			if column.DigitsAfter != nil {
				after = *column.DigitsAfter
			}
			digits = fmt.Sprintf("%d.%d", before, after)
		}
		valueRange := "-"
		if column.MinValue != nil && column.MaxValue != nil {
			valueRange = fmt.Sprintf("[%g, %g]", *column.MinValue, *column.MaxValue)
		}

		cells := []string{
			column.Name,
			column.Type,
			nullable,
			minLength,
			fmt.Sprint(column.MaxLength),
			digits,
			valueRange,
		}
		for col, text := range cells {
			table.SetCell(row+1, col, tview.NewTableCell(text))
		}
	}
	return table
}

func pageName(i int) string { return fmt.Sprintf("file-%d", i) }

// Run blocks until the user quits the browser.
func (a *App) Run() error {
	return a.app.Run()
}
