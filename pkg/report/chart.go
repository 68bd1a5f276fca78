package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Unit is the time unit a chart is drawn in.
type Unit struct {
	Name    string // plural, lower case
	Divisor float64
}

var (
	UnitDays    = Unit{Name: "days", Divisor: 86400}
	UnitHours   = Unit{Name: "hours", Divisor: 3600}
	UnitMinutes = Unit{Name: "minutes", Divisor: 60}
)

// Title returns the unit name with a leading capital.
func (u Unit) Title() string {
	if u.Name == "" {
		return ""
	}
	return strings.ToUpper(u.Name[:1]) + u.Name[1:]
}

// ChooseUnit picks the unit for a chart whose largest value is maxSeconds.
func ChooseUnit(maxSeconds float64) Unit {
	switch {
	case maxSeconds >= UnitDays.Divisor:
		return UnitDays
	case maxSeconds >= UnitHours.Divisor:
		return UnitHours
	default:
		return UnitMinutes
	}
}

const (
	chartHeight     = 600
	chartMinWidth   = 1000
	chartBarWidth   = 60
	chartBarSpacing = 40
)

// RenderChart draws one bar per row, in a single unit chosen from the largest
// value, and encodes the chart as PNG. No rows yield ErrNoData.
func RenderChart(rows []Row) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	var max float64
	for _, r := range rows {
		if r.Seconds > max {
			max = r.Seconds
		}
	}
	unit := ChooseUnit(max)
	top := max / unit.Divisor * 1.1
	if top <= 0 {
		top = 1
	}

	bars := make([]chart.Value, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, chart.Value{
			Label: r.Title,
			Value: r.Seconds / unit.Divisor,
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex("87ceeb"),
				StrokeColor: drawing.ColorFromHex("4682b4"),
				StrokeWidth: 1,
			},
		})
	}

	width := len(rows)*(chartBarWidth+chartBarSpacing) + 200
	if width < chartMinWidth {
		width = chartMinWidth
	}

	graph := chart.BarChart{
		Title:      fmt.Sprintf("Time Spent on Tasks (%s)", unit.Title()),
		Width:      width,
		Height:     chartHeight,
		BarWidth:   chartBarWidth,
		BarSpacing: chartBarSpacing,
		Background: chart.Style{
			Padding: chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.Style{
			TextRotationDegrees: 45,
		},
		YAxis: chart.YAxis{
			Name:  fmt.Sprintf("Time Spent (%s)", unit.Name),
			Range: &chart.ContinuousRange{Min: 0, Max: top},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
