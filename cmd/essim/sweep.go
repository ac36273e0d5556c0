package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/essim/internal/analysis"
	"github.com/san-kum/essim/internal/config"
	"github.com/san-kum/essim/internal/experiment"
	"github.com/san-kum/essim/internal/sim"
	"github.com/san-kum/essim/internal/viz"
)

type sweepMember struct {
	aes, kint float64
	scenario  *config.Scenario
	bundle    *experiment.Bundle
}

func runSweep(cmd *cobra.Command, args []string) error {
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
	if len(sweepAes) == 0 {
		return fmt.Errorf("no probe amplitudes to sweep")
	}
	gains := sweepKint
	if len(gains) == 0 {
		gains = []float64{0}
	}

	var members []*sweepMember
	for _, k := range gains {
		for _, a := range sweepAes {
			sc := base.Clone()
			sc.Name = fmt.Sprintf("%s_aes%g", name, a)
			for i := range sc.Controllers {
				sc.Controllers[i].Aes = []float64{a}
				if len(sweepKint) > 0 {
					sc.Controllers[i].Kint = []float64{k}
				}
			}
			if len(sweepKint) > 0 {
				sc.Name += fmt.Sprintf("_kint%g", k)
			}
			members = append(members, &sweepMember{aes: a, kint: k, scenario: sc})
		}
	}

	reg := experiment.NewRegistry()
	ens := sim.NewEnsemble(len(members), func(i int) (*sim.Simulator, error) {
		b, err := reg.Build(members[i].scenario)
		if err != nil {
			return nil, err
		}
		b.Sim.SetLogger(logger.With(zap.String("scenario", members[i].scenario.Name)))
		members[i].bundle = b
		return b.Sim, nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(viz.Title.Render(fmt.Sprintf("sweep %s", name)) +
		viz.Subtle.Render(fmt.Sprintf("  %d runs, %d steps each", len(members), base.Steps())))

	results, err := ens.Run(ctx)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	header := table.Row{"AES"}
	if len(sweepKint) > 0 {
		header = append(header, "KINT")
	}
	header = append(header, "CONTROLLER", "SETPOINT", "COST")
	tw.AppendHeader(header)

	var tails []analysis.SweepPoint
	for i, m := range members {
		res := results[i]
		last := res.Steps - 1
		for k, es := range m.bundle.Controllers {
			row := table.Row{m.aes}
			if len(sweepKint) > 0 {
				row = append(row, m.kint)
			}
			cost := res.Objectives[m.bundle.Sim.Mapping()[k]]
			final, err := es.Setpoint(last)
			if err != nil {
				return err
			}
			row = append(row, es.Name(), fmt.Sprintf("%.5f", final), fmt.Sprintf("%.4g", cost[len(cost)-1]))
			tw.AppendRow(row)
		}
		if len(m.bundle.Controllers) > 0 {
			setpoint := mat.Row(nil, 0, m.bundle.Controllers[0].Thetahat())[:res.Steps]
			tails = append(tails, analysis.SweepTail(m.aes, setpoint, res.Steps*4/5, 1e-3))
		}
	}
	tw.Render()

	if len(sweepKint) == 0 && len(tails) > 1 {
		fmt.Println()
		fmt.Println(viz.Subtle.Render("late-run setpoint spread by probe amplitude"))
		fmt.Println(analysis.SweepToASCII(tails, 60, 16))
	}
	return nil
}
