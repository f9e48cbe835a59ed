package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/rally.report/internal/trajectory"
)

// ChartOptions configures Chart.
type ChartOptions struct {
	Title      string
	AssetsHost string
}

// Chart writes a standalone HTML page with the ball positions in pixel
// coordinates. Hovering a point shows x, y and time.
func Chart(w io.Writer, s trajectory.Summary, o ChartOptions) error {
	if o.Title == "" {
		o.Title = "Ball trajectory"
	}
	if o.AssetsHost == "" {
		o.AssetsHost = DefaultAssetsHost
	}

	flight, bounces := split(s)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: "960px", Height: "600px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{
			Title: o.Title,
			Subtitle: fmt.Sprintf("points=%d bounces=%d avg=%.2f km/h max=%.2f km/h",
				len(s.TrajectoryData), s.TotalBounces, s.AverageSpeed, s.MaxSpeed),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y (px)", NameLocation: "middle", NameGap: 40}),
	)
	scatter.AddSeries("ball", scatterData(flight), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	scatter.AddSeries("bounce", scatterData(bounces),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 16}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#d62728"}),
	)

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func scatterData(pts []trajectory.Point) []opts.ScatterData {
	data := make([]opts.ScatterData, 0, len(pts))
	for _, p := range pts {
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y, p.Time}})
	}
	return data
}
