// Package export renders a daily plan as JSON, CSV or an HTML timeline.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/dayplan/core/model"
)

// Format names accepted by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatHTML = "html"
)

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

// Write renders plan in the given format.
func Write(w io.Writer, format string, plan model.DailyPlan) error {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return WriteJSON(w, plan)
	case FormatCSV:
		return WriteCSV(w, plan.Blocks)
	case FormatHTML:
		return WriteTimelineHTML(w, plan)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// WriteJSON writes the plan to w in JSON format.
func WriteJSON(w io.Writer, plan model.DailyPlan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

// WriteCSV writes one row per block in sequence order.
func WriteCSV(w io.Writer, blocks []model.TimeBlock) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "sequence", "start", "end", "type", "name", "status", "skip_reason"}); err != nil {
		return err
	}
	for _, b := range blocks {
		rec := []string{
			b.ID,
			strconv.Itoa(b.SequenceOrder),
			b.StartTime.Format(time.RFC3339),
			b.EndTime.Format(time.RFC3339),
			string(b.ActivityType),
			b.Name,
			string(b.Status),
			b.SkipReason,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var statuses = []model.BlockStatus{model.BlockPending, model.BlockCompleted, model.BlockSkipped}

// WriteTimelineHTML renders a stacked bar chart of block minutes, one bar per
// block and one series per status.
func WriteTimelineHTML(w io.Writer, plan model.DailyPlan) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Plan %s", plan.DateKey()),
			Subtitle: fmt.Sprintf("%s · %s energy · %s", plan.UserID, plan.EnergyState, plan.Status),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Block"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Minutes"}),
	)

	labels := make([]string, 0, len(plan.Blocks))
	series := make(map[model.BlockStatus][]opts.BarData, len(statuses))
	for _, b := range plan.Blocks {
		labels = append(labels, fmt.Sprintf("%s %s", b.StartTime.Format("15:04"), b.Name))
		mins := int(b.EndTime.Sub(b.StartTime) / time.Minute)
		for _, s := range statuses {
			v := 0
			if b.Status == s {
				v = mins
			}
			series[s] = append(series[s], opts.BarData{Value: v})
		}
	}
	bar.SetXAxis(labels)
	for _, s := range statuses {
		bar.AddSeries(string(s), series[s], charts.WithBarChartOpts(opts.BarChart{Stack: "minutes"}))
	}
	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render timeline: %w", err)
	}
	return nil
}
