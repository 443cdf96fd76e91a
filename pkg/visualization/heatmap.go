package visualization

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// HeatMapColors is the number of palette entries used for heat maps.
const HeatMapColors = 64

// planeGrid presents a row-major plane as a plotter.GridXYZ with row 0 at
// the top of the plot.
type planeGrid struct {
	data          []float32
	width, height int
}

func (g planeGrid) Dims() (c, r int)   { return g.width, g.height }
func (g planeGrid) X(c int) float64    { return float64(c) }
func (g planeGrid) Y(r int) float64    { return float64(r) }
func (g planeGrid) Z(c, r int) float64 { return float64(g.data[(g.height-1-r)*g.width+c]) }

// SaveHeatMap renders a row-major plane as a heat map and saves it to
// filename. The format follows the file extension.
func SaveHeatMap(plane []float32, width, height int, title, filename string) error {
	if width <= 0 || height <= 0 || len(plane) != width*height {
		return fmt.Errorf("plane of %d pixels does not match %dx%d", len(plane), width, height)
	}

	grid := planeGrid{data: plane, width: width, height: height}
	hm := plotter.NewHeatMap(grid, palette.Heat(HeatMapColors, 1))
	if hm.Max <= hm.Min {
		hm.Max = hm.Min + 1
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Column"
	p.Y.Label.Text = "Row"
	p.Add(hm)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, filename); err != nil {
		return fmt.Errorf("save heat map: %w", err)
	}
	return nil
}
