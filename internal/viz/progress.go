package viz

import (
	"fmt"
	"io"

	"github.com/san-kum/essim/internal/sim"
)

// Progress is a simulator observer redrawing a bar on w at each whole
// percent of the horizon.
type Progress struct {
	w     io.Writer
	total int
	width int
	last  int
}

func NewProgress(w io.Writer, total int) *Progress {
	return &Progress{w: w, total: total, width: 30, last: -1}
}

func (p *Progress) OnStep(v sim.StepView) {
	if p.total <= 0 {
		return
	}
	pct := (v.Step + 1) * 100 / p.total
	if pct == p.last {
		return
	}
	p.last = pct
	fmt.Fprintf(p.w, "\r%s %3d%%  t=%.2f", ProgressBar(float64(pct)/100, p.width), pct, v.Time)
}

// Done ends the progress line.
func (p *Progress) Done() {
	if p.last >= 0 {
		fmt.Fprintln(p.w)
	}
}
