package report

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rally.report/internal/trajectory"
)

func rally() trajectory.Summary {
	return trajectory.Summary{
		TotalBounces: 1,
		AverageSpeed: 12.5,
		MaxSpeed:     14.25,
		TrajectoryData: []trajectory.Point{
			{X: 100, Y: 100, Time: 0},
			{X: 150, Y: 150, Time: 0.2},
			{X: 200, Y: 100, Time: 0.4},
		},
		BounceIndices: []int{1},
	}
}

func TestSplit(t *testing.T) {
	s := rally()
	s.BounceIndices = append(s.BounceIndices, 7, -1)
	flight, bounces := split(s)
	assert.Len(t, flight, 2)
	assert.Equal(t, []trajectory.Point{{X: 150, Y: 150, Time: 0.2}}, bounces)
}

func TestChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Chart(&buf, rally(), ChartOptions{Title: "Court 3"}))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Court 3")
	assert.Contains(t, html, "bounce")
	assert.Contains(t, html, DefaultAssetsHost)
}

func TestChart_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Chart(&buf, trajectory.Summary{}, ChartOptions{AssetsHost: "/static/"}))
	assert.Contains(t, buf.String(), "Ball trajectory")
	assert.True(t, strings.Contains(buf.String(), "/static/"))
}

func TestPlot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Plot(&buf, rally(), PlotOptions{}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())
}

func TestPlot_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Plot(&buf, trajectory.Summary{}, PlotOptions{Title: "nothing"}))
	_, err := png.Decode(&buf)
	require.NoError(t, err)
}
