package analysis

import "strings"

// Point is one sample of a two-channel trajectory.
type Point struct{ X, Y float64 }

// Trajectory2D pairs two equally long series, typically setpoint
// channels 0 and 1 of a two-channel controller.
type Trajectory2D struct {
	XLabel, YLabel string
	Points         []Point
}

// NewTrajectory pairs xs and ys, truncating to the shorter series and
// keeping every stride-th sample.
func NewTrajectory(xs, ys []float64, stride int) *Trajectory2D {
	if stride < 1 {
		stride = 1
	}
	n := min(len(xs), len(ys))
	tr := &Trajectory2D{Points: make([]Point, 0, n/stride+1)}
	for i := 0; i < n; i += stride {
		tr.Points = append(tr.Points, Point{X: xs[i], Y: ys[i]})
	}
	return tr
}

// TrajectoryToASCII draws the path with its start as 'o' and end as 'x'.
func TrajectoryToASCII(tr *Trajectory2D, width, height int) string {
	if tr == nil || len(tr.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := tr.Points[0].X, tr.Points[0].X
	minY, maxY := tr.Points[0].Y, tr.Points[0].Y
	for _, p := range tr.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	cell := func(p Point) (int, int) {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		return row, col
	}

	for _, p := range tr.Points {
		row, col := cell(p)
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}
	row, col := cell(tr.Points[0])
	canvas[row][col] = 'o'
	row, col = cell(tr.Points[len(tr.Points)-1])
	canvas[row][col] = 'x'

	var sb strings.Builder
	for _, r := range canvas {
		sb.WriteString(string(r))
		sb.WriteRune('\n')
	}
	return sb.String()
}
