package report

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrInvalidFormat is returned for a format code outside 1..3.
	ErrInvalidFormat = errors.New("invalid report format")

	// ErrNoData is returned by the chart renderer when there is nothing to plot.
	ErrNoData = errors.New("no data to render")
)

// Format selects a renderer. The numeric values are the wire codes.
type Format int

const (
	FormatJSON     Format = 1
	FormatChart    Format = 2
	FormatDocument Format = 3
)

// ParseFormat converts a wire code into a Format.
func ParseFormat(code int) (Format, error) {
	switch f := Format(code); f {
	case FormatJSON, FormatChart, FormatDocument:
		return f, nil
	}
	return 0, fmt.Errorf("%w: %d (must be 1=JSON, 2=CHART or 3=DOCUMENT)", ErrInvalidFormat, code)
}

// ParseFormatName accepts "json", "chart" or "pdf" as well as the numeric codes.
func ParseFormatName(name string) (Format, error) {
	switch name {
	case "json":
		return FormatJSON, nil
	case "chart", "png", "graph":
		return FormatChart, nil
	case "pdf", "document":
		return FormatDocument, nil
	}
	code, err := strconv.Atoi(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, name)
	}
	return ParseFormat(code)
}

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatChart:
		return "chart"
	case FormatDocument:
		return "pdf"
	}
	return "Format(" + strconv.Itoa(int(f)) + ")"
}

// ContentType is the media type of the rendered bytes.
func (f Format) ContentType() string {
	switch f {
	case FormatChart:
		return "image/png"
	case FormatDocument:
		return "application/pdf"
	}
	return "application/json"
}

// Filename is the suggested download name for the rendered bytes.
func (f Format) Filename() string {
	switch f {
	case FormatChart:
		return "time_spent_report.png"
	case FormatDocument:
		return "time_spent_report.pdf"
	}
	return "time_spent_report.json"
}

// Render dispatches rows to the renderer selected by f.
func Render(f Format, rows []Row) ([]byte, error) {
	switch f {
	case FormatJSON:
		return RenderJSON(rows)
	case FormatChart:
		return RenderChart(rows)
	case FormatDocument:
		return RenderDocument(rows)
	}
	return nil, fmt.Errorf("%w: %d", ErrInvalidFormat, int(f))
}
