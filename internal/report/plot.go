package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/rally.report/internal/trajectory"
)

var (
	pathColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bounceColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// PlotOptions configures Plot.
type PlotOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
}

// Plot writes a PNG of the trajectory: the flight path as a line with point
// markers and bounces as larger red markers. The y axis is flipped so the
// image matches the frame orientation.
func Plot(w io.Writer, s trajectory.Summary, o PlotOptions) error {
	if o.Width <= 0 {
		o.Width = 10 * vg.Inch
	}
	if o.Height <= 0 {
		o.Height = 6 * vg.Inch
	}

	p := plot.New()
	p.Title.Text = o.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("Ball trajectory (%d points, %d bounces)", len(s.TrajectoryData), s.TotalBounces)
	}
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px, down)"
	p.Add(plotter.NewGrid())

	if len(s.TrajectoryData) > 0 {
		path := make(plotter.XYs, len(s.TrajectoryData))
		for i, pt := range s.TrajectoryData {
			path[i] = plotter.XY{X: pt.X, Y: -pt.Y}
		}
		line, points, err := plotter.NewLinePoints(path)
		if err != nil {
			return fmt.Errorf("trajectory line: %w", err)
		}
		line.Color = pathColor
		line.Width = vg.Points(1)
		points.Color = pathColor
		points.Shape = draw.CircleGlyph{}
		p.Add(line, points)
		p.Legend.Add("ball", line, points)
	}

	if _, bounces := split(s); len(bounces) > 0 {
		xy := make(plotter.XYs, len(bounces))
		for i, pt := range bounces {
			xy[i] = plotter.XY{X: pt.X, Y: -pt.Y}
		}
		sc, err := plotter.NewScatter(xy)
		if err != nil {
			return fmt.Errorf("bounce markers: %w", err)
		}
		sc.Color = bounceColor
		sc.Shape = draw.CircleGlyph{}
		sc.Radius = vg.Points(5)
		p.Add(sc)
		p.Legend.Add("bounce", sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(o.Width, o.Height, "png")
	if err != nil {
		return fmt.Errorf("create png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
