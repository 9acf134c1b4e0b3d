// Command pathplot renders the 2D flight path of a ULog file to a PNG,
// useful for quick inspection without running the dashboard.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/skylark-data/flightdeck/internal/series"
	"github.com/skylark-data/flightdeck/internal/ulog"
)

var (
	output    = flag.String("o", "flight_path.png", "Output PNG path")
	maxPoints = flag.Int("max-points", series.DefaultMaxPoints, "Downsampling budget per line")
	size      = flag.Float64("size", 8, "Plot size in inches (square)")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: pathplot [flags] <log.ulg>\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	lg, err := ulog.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("failed to read log: %v", err)
	}

	lp := lg.Find("vehicle_local_position", 0)
	if lp == nil || !lp.Has("x") || !lp.Has("y") {
		log.Fatalf("log has no vehicle_local_position x/y data")
	}

	p := plot.New()
	p.Title.Text = "Flight Path"
	p.X.Label.Text = "East [m]"
	p.Y.Label.Text = "North [m]"

	if err := addPath(p, lp, *maxPoints); err != nil {
		log.Fatalf("failed to plot path: %v", err)
	}
	if sp := lg.Find("vehicle_local_position_setpoint", 0); sp != nil && sp.Has("x") && sp.Has("y") {
		if err := addSetpoint(p, sp, *maxPoints); err != nil {
			log.Fatalf("failed to plot setpoint: %v", err)
		}
	}
	p.Legend.Top = true

	inches := vg.Length(*size) * vg.Inch
	if err := p.Save(inches, inches, *output); err != nil {
		log.Fatalf("failed to save plot: %v", err)
	}
	fmt.Printf("wrote %s (%d samples)\n", *output, lp.Len())
}

func addPath(p *plot.Plot, lp *ulog.Dataset, maxPoints int) error {
	east, north := series.Downsample(lp.Fields["y"], lp.Fields["x"], maxPoints)
	line, err := plotter.NewLine(toXYs(east, north))
	if err != nil {
		return err
	}
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("Estimated", line)
	return nil
}

func addSetpoint(p *plot.Plot, sp *ulog.Dataset, maxPoints int) error {
	east, north := series.Downsample(sp.Fields["y"], sp.Fields["x"], maxPoints)
	line, err := plotter.NewLine(toXYs(east, north))
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(line)
	p.Legend.Add("Setpoint", line)
	return nil
}

func toXYs(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return pts
}
