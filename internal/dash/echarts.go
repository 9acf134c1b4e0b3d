package dash

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/skylark-data/flightdeck/internal/flight"
)

const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// lineChart converts one figure into a go-echarts line chart.
func lineChart(fig flight.Figure) *charts.Line {
	line := charts.NewLine()

	width, height := "1100px", "450px"
	if fig.SquareAxes {
		width, height = "700px", "700px"
	}

	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "dark", Width: width, Height: height, AssetsHost: echartsAssetsHost,
		}),
		charts.WithTitleOpts(opts.Title{Title: fig.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30px"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	}

	xName := fig.XLabel
	if xName == "" {
		xName = "[s]"
	}
	xAxis := opts.XAxis{Type: "value", Name: xName}
	yAxis := opts.YAxis{Type: "value", Name: fig.YLabel}
	if fig.YMin != nil {
		yAxis.Min = *fig.YMin
	}
	if fig.YMax != nil {
		yAxis.Max = *fig.YMax
	}
	global = append(global,
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(yAxis),
	)
	line.SetGlobalOptions(global...)

	for _, l := range fig.Lines {
		data := make([]opts.LineData, 0, len(l.Times))
		for i := range l.Times {
			v := l.Values[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				data = append(data, opts.LineData{Value: []interface{}{l.Times[i], nil}})
				continue
			}
			data = append(data, opts.LineData{Value: []interface{}{l.Times[i], v}})
		}

		style := opts.LineStyle{Width: float32(l.Width)}
		if l.Dash {
			style.Type = "dashed"
		}
		line.AddSeries(l.Name, data,
			charts.WithLineChartOpts(opts.LineChart{Symbol: "none"}),
			charts.WithLineStyleOpts(style),
		)
	}
	return line
}

// heatmapChart converts a spectrogram figure into a go-echarts heatmap.
func heatmapChart(fig flight.Figure) *charts.HeatMap {
	hm := fig.Heatmap

	xLabels := make([]string, len(hm.Times))
	for i, t := range hm.Times {
		xLabels[i] = fmt.Sprintf("%.1f", t)
	}
	yLabels := make([]string, len(hm.Freqs))
	for i, f := range hm.Freqs {
		yLabels[i] = fmt.Sprintf("%.0f", f)
	}

	min, max := math.Inf(1), math.Inf(-1)
	data := make([]opts.HeatMapData, 0, len(hm.Times)*len(hm.Freqs))
	for xi, row := range hm.Values {
		for yi, v := range row {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{xi, yi, v}})
		}
	}
	if min > max {
		min, max = 0, 1
	}

	chart := charts.NewHeatMap()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "dark", Width: "1100px", Height: "450px", AssetsHost: echartsAssetsHost,
		}),
		charts.WithTitleOpts(opts.Title{Title: fig.Title}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xLabels, Name: fig.XLabel}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: yLabels, Name: fig.YLabel}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(min),
			Max:        float32(max),
			Orient:     "horizontal",
			Left:       "center",
			InRange: &opts.VisualMapInRange{Color: []string{
				"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
				"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
			}},
		}),
	)
	chart.AddSeries("psd", data)
	return chart
}

// renderFigures writes the rendered chart markup for every figure in order.
func renderFigures(w io.Writer, title string, figs []flight.Figure) error {
	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsHost)
	page.PageTitle = title

	for _, fig := range figs {
		if fig.Heatmap != nil {
			page.AddCharts(heatmapChart(fig))
			continue
		}
		page.AddCharts(lineChart(fig))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
