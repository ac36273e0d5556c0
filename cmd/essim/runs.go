package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/san-kum/essim/internal/analysis"
	"github.com/san-kum/essim/internal/config"
	"github.com/san-kum/essim/internal/experiment"
	"github.com/san-kum/essim/internal/export"
	"github.com/san-kum/essim/internal/storage"
	"github.com/san-kum/essim/internal/viz"
)

// openRun loads the named run, or the latest one when args is empty.
func openRun(args []string) (*storage.RunMetadata, []experiment.Series, error) {
	st := storage.New(dataDir)
	var runID string
	if len(args) > 0 {
		runID = args[0]
	} else {
		latest, err := st.Latest()
		if err != nil {
			return nil, nil, err
		}
		runID = latest
	}
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, series, nil
}

// selectSeries resolves names against series. With no names it picks
// every setpoint channel and every objective value.
func selectSeries(meta *storage.RunMetadata, series []experiment.Series, names []string) ([]experiment.Series, error) {
	if len(names) == 0 {
		for _, c := range meta.Controllers {
			for i := range meta.Setpoints[c] {
				names = append(names, fmt.Sprintf("%s.thetahat[%d]", c, i))
			}
		}
		for _, o := range meta.Objectives {
			names = append(names, o+".psi")
		}
	}
	out := make([]experiment.Series, 0, len(names))
	for _, name := range names {
		values, ok := experiment.Find(series, name)
		if !ok {
			return nil, fmt.Errorf("run %s has no series %q", meta.ID, name)
		}
		out = append(out, experiment.Series{Name: name, Values: values})
	}
	return out, nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"PRESET", "CONTROLLERS", "SYSTEMS", "OBJECTIVES", "STEPS"})
	for _, name := range config.ListPresets() {
		sc := config.GetPreset(name)
		tw.AppendRow(table.Row{name, len(sc.Controllers), len(sc.Systems), len(sc.Objectives), sc.Steps()})
	}
	tw.Render()
	return nil
}

func initScenario(cmd *cobra.Command, args []string) error {
	path := "scenario.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s exists (use --force to overwrite)", path)
	}

	sc := config.DefaultScenario()
	if preset != "" {
		sc = config.GetPreset(preset)
		if sc == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if err := config.Save(path, sc); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"ID", "SCENARIO", "STEPS", "DT", "TIME"})
	for _, r := range runs {
		steps := fmt.Sprintf("%d", r.Steps)
		if r.Completed != r.Steps {
			steps = fmt.Sprintf("%d/%d", r.Completed, r.Steps)
		}
		tw.AppendRow(table.Row{r.ID, r.Scenario, steps, r.Dt, r.Timestamp.Format("2006-01-02 15:04")})
	}
	tw.Render()
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, series, err := openRun(args)
	if err != nil {
		return err
	}
	selected, err := selectSeries(meta, series, seriesNames)
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(meta.ID) + viz.Subtle.Render("  "+meta.Scenario))
	for _, s := range selected {
		chart := viz.Chart(s.Values, viz.ChartOptions{Width: width, Height: height, Caption: s.Name})
		if chart == "" {
			fmt.Printf("%s: nothing to plot\n", s.Name)
			continue
		}
		fmt.Println()
		fmt.Println(chart)
	}
	return nil
}

func viewRun(cmd *cobra.Command, args []string) error {
	meta, series, err := openRun(args)
	if err != nil {
		return err
	}
	p := tea.NewProgram(viz.NewBrowser(meta.ID, series), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, series, err := openRun(args)
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render("analysis: "+meta.ID) + viz.Subtle.Render("  "+meta.Scenario))

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"SETPOINT", "FINAL", "TAIL MEAN", "TAIL STD", "SETTLED AT"})
	for _, c := range meta.Controllers {
		for i := range meta.Setpoints[c] {
			name := fmt.Sprintf("%s.thetahat[%d]", c, i)
			values, ok := experiment.Find(series, name)
			if !ok || len(values) == 0 {
				continue
			}
			s := analysis.Settle(values, meta.Dt, values[len(values)-1], tolerance)
			settled := "never"
			if s.Settled() {
				settled = fmt.Sprintf("%.2fs", s.Time)
			}
			tw.AppendRow(table.Row{name, fmt.Sprintf("%.6f", s.Final),
				fmt.Sprintf("%.6f", s.TailMean), fmt.Sprintf("%.2e", s.TailStd), settled})
		}
	}
	tw.Render()

	ow := table.NewWriter()
	ow.SetOutputMirror(os.Stdout)
	ow.SetStyle(table.StyleLight)
	ow.AppendHeader(table.Row{"OBJECTIVE", "FINAL", "DOMINANT FREQ (HZ)"})
	for _, o := range meta.Objectives {
		values, ok := experiment.Find(series, o+".psi")
		if !ok || len(values) == 0 {
			continue
		}
		// the second half avoids the transient
		tail := values[len(values)/2:]
		ow.AppendRow(table.Row{o + ".psi", fmt.Sprintf("%.6g", values[len(values)-1]),
			fmt.Sprintf("%.4f", analysis.DominantFrequency(tail, meta.Dt))})
	}
	ow.Render()

	for _, c := range meta.Controllers {
		if len(meta.Setpoints[c]) != 2 {
			continue
		}
		tr, ok := trajectory(series, c)
		if !ok {
			continue
		}
		fmt.Println()
		fmt.Println(viz.Subtle.Render(c + " setpoint path"))
		fmt.Println(analysis.TrajectoryToASCII(tr, 60, 20))
	}
	return nil
}

// trajectory pairs the two setpoint channels of controller c.
func trajectory(series []experiment.Series, c string) (*analysis.Trajectory2D, bool) {
	x, okx := experiment.Find(series, c+".thetahat[0]")
	y, oky := experiment.Find(series, c+".thetahat[1]")
	if !okx || !oky {
		return nil, false
	}
	tr := analysis.NewTrajectory(x, y, max(1, len(x)/2000))
	tr.XLabel = c + ".thetahat[0]"
	tr.YLabel = c + ".thetahat[1]"
	return tr, true
}

func exportImage(cmd *cobra.Command, args []string) error {
	meta, series, err := openRun(args)
	if err != nil {
		return err
	}
	selected, err := selectSeries(meta, series, seriesNames)
	if err != nil {
		return err
	}
	times, ok := experiment.Find(series, "t")
	if !ok {
		return fmt.Errorf("run %s has no time series", meta.ID)
	}

	path := pngOutput
	if path == "" {
		path = meta.ID + ".png"
	}
	opts := export.PlotOptions{Title: meta.Scenario}
	if err := export.SeriesPlot(path, opts, times, selected...); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", path)

	for _, c := range meta.Controllers {
		if len(meta.Setpoints[c]) != 2 {
			continue
		}
		tr, ok := trajectory(series, c)
		if !ok {
			continue
		}
		trPath := export.DefaultPlotName(meta.ID, c+".path")
		if pngOutput != "" {
			ext := filepath.Ext(pngOutput)
			trPath = strings.TrimSuffix(pngOutput, ext) + "_" + c + "_path" + ext
		}
		if err := export.TrajectoryPlot(trPath, export.PlotOptions{Title: c + " setpoint path"}, tr); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", trPath)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, series, err := openRun(args)
	if err != nil {
		return err
	}
	if err := export.WriteJSONFile(jsonOutput, export.NewExportData(*meta, series)); err != nil {
		return err
	}
	if jsonOutput != "-" {
		fmt.Printf("exported to %s\n", jsonOutput)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
