package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/essim/internal/config"
	"github.com/san-kum/essim/internal/experiment"
	"github.com/san-kum/essim/internal/sim"
	"github.com/san-kum/essim/internal/storage"
	"github.com/san-kum/essim/internal/viz"
)

// loadScenario picks the file argument, then --preset, then the default
// scenario, and applies flags the user set explicitly.
func loadScenario(cmd *cobra.Command, args []string) (*config.Scenario, error) {
	var sc *config.Scenario
	switch {
	case len(args) == 1:
		loaded, err := config.Load(args[0])
		if err != nil {
			return nil, err
		}
		sc = loaded
	case preset != "":
		sc = config.GetPreset(preset)
		if sc == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	default:
		sc = config.DefaultScenario()
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		sc.Dt = dt
	}
	if flags.Changed("time") {
		sc.Duration = duration
		sc.StepCount = 0
	}
	if flags.Changed("steps") {
		sc.StepCount = steps
	}
	if flags.Changed("parallel") {
		sc.Parallel = parallel
	}
	return sc, sc.Validate()
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []experiment.Option{experiment.WithLogger(logger)}
	var progress *viz.Progress
	if !quiet {
		progress = viz.NewProgress(os.Stderr, sc.Steps())
		opts = append(opts, experiment.WithObserver(progress))
	}
	exp := experiment.New(sc, opts...)

	fmt.Println(viz.Title.Render(fmt.Sprintf("running %s", sc.Name)) +
		viz.Subtle.Render(fmt.Sprintf("  %d steps, dt=%g", sc.Steps(), sc.Dt)))

	result, runErr := exp.Run(ctx)
	if progress != nil {
		progress.Done()
	}
	if result == nil {
		return runErr
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			fmt.Println(viz.StatusFailed.Render("interrupted") + fmt.Sprintf(" after %d steps", result.Steps))
		} else {
			fmt.Println(viz.StatusFailed.Render("failed") + fmt.Sprintf(" after %d steps: %v", result.Steps, runErr))
		}
	} else {
		fmt.Println(viz.StatusOK.Render("completed") + fmt.Sprintf(" in %v", result.Elapsed))
	}

	meta := runMetadata(exp.Bundle(), result)
	printSummary(meta)

	if !noSave && result.Steps > 0 {
		series, err := exp.Series(result)
		if err != nil {
			return err
		}
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(meta, series)
		if err != nil {
			return err
		}
		logger.Debug("run stored", zap.String("id", runID), zap.String("dir", dataDir))
		fmt.Printf("\nrun id: %s\n", runID)
	}
	return runErr
}

func runMetadata(b *experiment.Bundle, res *sim.Result) storage.RunMetadata {
	meta := storage.RunMetadata{
		Scenario:  b.Scenario.Name,
		T0:        b.TimeBase.Start(),
		Dt:        b.TimeBase.Dt(),
		Steps:     b.TimeBase.Len(),
		Completed: res.Steps,
		Setpoints: make(map[string][]float64),
		Metrics:   res.Metrics,
		Elapsed:   res.Elapsed.String(),
	}
	for _, es := range b.Controllers {
		meta.Controllers = append(meta.Controllers, es.Name())
		if sp, err := es.Setpoint(res.Steps - 1); err == nil {
			meta.Setpoints[es.Name()] = sp
		}
	}
	for _, f := range b.Objectives {
		meta.Objectives = append(meta.Objectives, f.Name())
	}
	return meta
}

func printSummary(meta storage.RunMetadata) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"CONTROLLER", "CHANNEL", "SETPOINT"})
	for _, name := range meta.Controllers {
		for c, v := range meta.Setpoints[name] {
			tw.AppendRow(table.Row{name, c, fmt.Sprintf("%.6f", v)})
		}
	}
	tw.Render()

	if len(meta.Metrics) == 0 {
		return
	}
	mw := table.NewWriter()
	mw.SetOutputMirror(os.Stdout)
	mw.SetStyle(table.StyleLight)
	mw.AppendHeader(table.Row{"METRIC", "VALUE"})
	for _, name := range sortedKeys(meta.Metrics) {
		mw.AppendRow(table.Row{name, fmt.Sprintf("%.6g", meta.Metrics[name])})
	}
	mw.Render()
}
