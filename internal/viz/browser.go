package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/essim/internal/analysis"
	"github.com/san-kum/essim/internal/experiment"
)

const minWindow = 0.02

// Browser pages through the series of one run.
type Browser struct {
	title  string
	times  []float64
	all    []experiment.Series
	shown  []int
	index  int
	window float64
	offset float64

	filtering bool
	filter    string
	theme     int

	width, height int
}

// NewBrowser takes the series of a run; a series named "t" becomes the
// time axis instead of a page.
func NewBrowser(title string, series []experiment.Series) Browser {
	b := Browser{title: title, window: 1, width: 100, height: 30}
	for _, s := range series {
		if s.Name == "t" {
			b.times = s.Values
			continue
		}
		b.all = append(b.all, s)
	}
	b.applyFilter()
	return b
}

func (b Browser) Init() tea.Cmd { return nil }

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
	case tea.KeyMsg:
		if b.filtering {
			return b.filterKey(msg), nil
		}
		return b.browseKey(msg)
	}
	return b, nil
}

func (b Browser) browseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return b, tea.Quit
	case "right", "l", "tab":
		if len(b.shown) > 0 {
			b.index = (b.index + 1) % len(b.shown)
		}
	case "left", "h", "shift+tab":
		if len(b.shown) > 0 {
			b.index = (b.index - 1 + len(b.shown)) % len(b.shown)
		}
	case "up", "k":
		b.window = min(1, b.window*2)
		b.offset = min(b.offset, 1-b.window)
	case "down", "j":
		b.window = max(minWindow, b.window/2)
	case "[":
		b.offset = max(0, b.offset-b.window/4)
	case "]":
		b.offset = min(1-b.window, b.offset+b.window/4)
	case "t", "T":
		b.theme = (b.theme + 1) % len(Themes)
	case "/":
		b.filtering = true
	}
	return b, nil
}

func (b Browser) filterKey(msg tea.KeyMsg) Browser {
	switch msg.Type {
	case tea.KeyEnter:
		b.filtering = false
	case tea.KeyEsc:
		b.filtering, b.filter = false, ""
	case tea.KeyBackspace:
		if len(b.filter) > 0 {
			b.filter = b.filter[:len(b.filter)-1]
		}
	case tea.KeyRunes:
		b.filter += string(msg.Runes)
	}
	b.applyFilter()
	return b
}

func (b *Browser) applyFilter() {
	shown := make([]int, 0, len(b.all))
	for i, s := range b.all {
		if b.filter == "" || strings.Contains(s.Name, b.filter) {
			shown = append(shown, i)
		}
	}
	b.shown = shown
	if b.index >= len(b.shown) {
		b.index = 0
	}
}

// Current is the series on screen, if any.
func (b Browser) Current() (experiment.Series, bool) {
	if len(b.shown) == 0 {
		return experiment.Series{}, false
	}
	return b.all[b.shown[b.index]], true
}

// visible returns the windowed slice and the index it starts at.
func (b Browser) visible(values []float64) ([]float64, int) {
	n := len(values)
	lo := int(b.offset * float64(n))
	hi := min(n, lo+max(1, int(b.window*float64(n))))
	return values[lo:hi], lo
}

func (b Browser) View() string {
	st := Themes[b.theme].styles()
	var sb strings.Builder

	sb.WriteString(st.header.Render(fmt.Sprintf("%s  [%s]", b.title, Themes[b.theme].Name)) + "\n")

	s, ok := b.Current()
	if !ok {
		sb.WriteString(st.warn.Render("no series match "+fmt.Sprintf("%q", b.filter)) + "\n")
		sb.WriteString(b.footer(st))
		return sb.String()
	}

	vals, start := b.visible(s.Values)
	chartWidth := max(20, b.width-12)
	chartHeight := max(5, b.height-14)
	chart := Chart(vals, ChartOptions{Width: chartWidth, Height: chartHeight, Caption: s.Name})
	if chart == "" {
		chart = st.warn.Render("nothing finite to plot")
	}
	sb.WriteString(fmt.Sprintf("%d/%d  %s\n\n", b.index+1, len(b.shown), s.Name))
	sb.WriteString(st.chart.Render(chart) + "\n\n")

	if len(b.times) > start && len(vals) > 0 {
		end := min(len(b.times)-1, start+len(vals)-1)
		sb.WriteString(st.label.Render("window") + st.value.Render(fmt.Sprintf("t=%.2f..%.2f", b.times[start], b.times[end])) + "\n")
	}
	if lo, hi, ok := bounds(vals); ok {
		sb.WriteString(st.label.Render("range") + st.value.Render(fmt.Sprintf("%.6g .. %.6g", lo, hi)) + "\n")
		sb.WriteString(st.label.Render("final") + st.value.Render(fmt.Sprintf("%.6g", vals[len(vals)-1])) + "\n")
	}
	if dt := b.dt(); dt > 0 {
		if f := analysis.DominantFrequency(vals, dt); f > 0 {
			sb.WriteString(st.label.Render("dominant") + st.value.Render(fmt.Sprintf("%.3f Hz", f)) + "\n")
		}
	}
	sb.WriteString(b.footer(st))
	return sb.String()
}

func (b Browser) dt() float64 {
	if len(b.times) < 2 {
		return 0
	}
	return b.times[1] - b.times[0]
}

func (b Browser) footer(st themeStyles) string {
	if b.filtering {
		return "\n" + st.value.Render("/"+b.filter) + st.hint.Render("  enter: apply  esc: clear")
	}
	return "\n" + st.hint.Render("←/→ series  ↑/↓ zoom  [/] pan  / filter  t theme  q quit")
}
