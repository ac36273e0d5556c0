package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/san-kum/essim/internal/config"
	"github.com/san-kum/essim/internal/experiment"
	"github.com/san-kum/essim/internal/optim"
	"github.com/san-kum/essim/internal/viz"
)

var (
	tuneAes    []float64
	tuneKint   []float64
	tuneFes    []float64
	tuneMetric string
	tuneTop    int
)

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "grid search controller tuning against a run metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	cmd.Flags().Float64SliceVar(&tuneAes, "aes", nil, "probe amplitudes")
	cmd.Flags().Float64SliceVar(&tuneKint, "kint", []float64{0.05, 0.1, 0.2}, "integrator gains")
	cmd.Flags().Float64SliceVar(&tuneFes, "fes", nil, "probe frequencies")
	cmd.Flags().StringVar(&tuneMetric, "metric", "final_cost", "metric to minimize")
	cmd.Flags().IntVar(&tuneTop, "top", 10, "trials to show")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps (default: the preset's)")
	return cmd
}

func runTune(cmd *cobra.Command, args []string) error {
	name := "quadratic_1d"
	if len(args) == 1 {
		name = args[0]
	}
	base := config.GetPreset(name)
	if base == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
	}
	if cmd.Flags().Changed("steps") {
		base.StepCount = steps
	}

	grid := map[string][]float64{"aes": tuneAes, "kint": tuneKint, "fes": tuneFes}
	var params []string
	var ranges [][]float64
	for _, p := range []string{"aes", "kint", "fes"} {
		if len(grid[p]) > 0 {
			params = append(params, p)
			ranges = append(ranges, grid[p])
		}
	}
	gs, err := optim.NewGridSearch(params, ranges)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(viz.Title.Render(fmt.Sprintf("tune %s", name)) +
		viz.Subtle.Render(fmt.Sprintf("  %d trials, minimizing %s", gs.Size(), tuneMetric)))

	trials, err := gs.Search(ctx, base, tuneMetric, experiment.WithLogger(logger))
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	header := table.Row{"#"}
	for _, p := range params {
		header = append(header, p)
	}
	tw.AppendHeader(append(header, tuneMetric))
	for i, tr := range trials {
		if i == tuneTop {
			break
		}
		row := table.Row{i + 1}
		for _, p := range params {
			row = append(row, tr.Params[p])
		}
		if tr.Err != nil {
			row = append(row, viz.StatusFailed.Render(tr.Err.Error()))
		} else {
			row = append(row, fmt.Sprintf("%.6g", tr.Value))
		}
		tw.AppendRow(row)
	}
	tw.Render()

	failed := 0
	for _, tr := range trials {
		if tr.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		fmt.Println(viz.Subtle.Render(fmt.Sprintf("%d of %d trials failed", failed, len(trials))))
	}
	return nil
}
