package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Point is the state of a search after one iteration. Iteration 0 is the
// published timetable.
type Point struct {
	Iteration int
	Objective float64
	Best      float64
	Cohesion  float64
}

// WriteObjectiveChart renders an HTML line chart of the objective, the best
// objective and the cohesion total per iteration.
func WriteObjectiveChart(w io.Writer, title string, points []Point) error {
	if len(points) == 0 {
		return fmt.Errorf("no points to chart")
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Iteration"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Minutes"}),
	)

	xAxis := make([]string, len(points))
	objective := make([]opts.LineData, len(points))
	best := make([]opts.LineData, len(points))
	cohesion := make([]opts.LineData, len(points))
	for i, p := range points {
		xAxis[i] = strconv.Itoa(p.Iteration)
		objective[i] = opts.LineData{Value: round2(p.Objective)}
		best[i] = opts.LineData{Value: round2(p.Best)}
		cohesion[i] = opts.LineData{Value: round2(p.Cohesion)}
	}
	line.SetXAxis(xAxis).
		AddSeries("Objective", objective).
		AddSeries("Best", best).
		AddSeries("Cohesion", cohesion)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
