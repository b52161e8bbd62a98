package output

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// PlotColumnProfile writes an interactive bar chart of the per-column
// widths for one analyzed file. Numeric precision rides along in the
// tooltip so a glance shows where DECIMAL widths come from.
func PlotColumnProfile(file FileResult, filename string) error {
	names := make([]string, 0, len(file.Columns))
	maxLengths := make([]opts.BarData, 0, len(file.Columns))
	precisions := make([]opts.BarData, 0, len(file.Columns))

	for _, column := range file.Columns {
		names = append(names, column.Name)
		maxLengths = append(maxLengths, opts.BarData{
			Value: column.MaxLength,
			Name:  fmt.Sprintf("%s (%s)", column.Name, column.Type),
		})
		precision := 0
		if column.DigitsBefore != nil {
			precision += *column.DigitsBefore
		}
		if column.DigitsAfter != nil {
			precision += *column.DigitsAfter
		}
		precisions = append(precisions, opts.BarData{
			Value: precision,
			Name:  fmt.Sprintf("%s (%s)", column.Name, column.Type),
		})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       "Column Profile",
			Width:           "140vh",
			Height:          "80vh",
			Theme:           types.ThemeVintage,
			BackgroundColor: "transparent",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Column profile: %s", file.Path),
			Subtitle: fmt.Sprintf("%d lines, %d malformed", file.NumLines, file.NumMalformedLines),
			Left:     "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Left: "right",
		}),
	)

	bar.SetXAxis(names).
		AddSeries("max length", maxLengths).
		AddSeries("numeric precision", precisions)

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %w", err)
	}
	defer f.Close()

	if err := bar.Render(f); err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	return nil
}
