package report

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseUnit(t *testing.T) {
	tests := []struct {
		max  float64
		want Unit
	}{
		{90000, UnitDays},
		{86400, UnitDays},
		{86399, UnitHours},
		{5000, UnitHours},
		{3600, UnitHours},
		{200, UnitMinutes},
		{1, UnitMinutes},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ChooseUnit(tt.max), "max %v", tt.max)
	}
	assert.Equal(t, "Hours", UnitHours.Title())
}

func TestRenderChartEmpty(t *testing.T) {
	_, err := RenderChart(nil)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = RenderChart([]Row{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRenderChartPNG(t *testing.T) {
	rows := []Row{
		{TaskID: 1, Title: "design", Seconds: 5000},
		{TaskID: 2, Title: "build", Seconds: 1800},
		{TaskID: 3, Title: "ship", Seconds: 120},
	}
	b, err := RenderChart(rows)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, chartMinWidth, img.Bounds().Dx())
	assert.Equal(t, chartHeight, img.Bounds().Dy())
}

func TestRenderChartWidensForManyBars(t *testing.T) {
	rows := make([]Row, 20)
	for i := range rows {
		rows[i] = Row{TaskID: int64(i + 1), Title: "t", Seconds: float64(60 * (i + 1))}
	}
	b, err := RenderChart(rows)
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, 20*(chartBarWidth+chartBarSpacing)+200, cfg.Width)
}
