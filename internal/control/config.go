package control

import (
	"fmt"
	"strings"

	"github.com/san-kum/essim/internal/horizon"
)

// Mode selects descent or ascent along the estimated gradient.
type Mode int

const (
	Minimize Mode = iota
	Maximize
)

func (m Mode) String() string {
	switch m {
	case Minimize:
		return "minimize"
	case Maximize:
		return "maximize"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "minimize" or "maximize" (case insensitive); empty
// means minimize.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "minimize", "min":
		return Minimize, nil
	case "maximize", "max":
		return Maximize, nil
	}
	return Minimize, fmt.Errorf("%w: unknown mode %q", horizon.ErrConfig, s)
}

// Config parameterizes an ES controller. Aes, Kint and Thetahat0 accept
// either one value (broadcast to every channel) or one per channel.
type Config struct {
	Name      string
	Channels  int
	Fes       float64
	Aes       []float64
	Kint      []float64
	Mode      Mode
	Thetahat0 []float64
	Probe     Probe
}

// broadcast expands a one-element slice to n channels; nil yields def.
func broadcast(what string, v []float64, n int, def float64) ([]float64, error) {
	out := make([]float64, n)
	switch len(v) {
	case 0:
		for i := range out {
			out[i] = def
		}
	case 1:
		for i := range out {
			out[i] = v[0]
		}
	case n:
		copy(out, v)
	default:
		return nil, fmt.Errorf("%w: %s has %d values, want 1 or %d", horizon.ErrDimensionMismatch, what, len(v), n)
	}
	return out, nil
}
