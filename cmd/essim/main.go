package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir string
	verbose bool
	logger  = zap.NewNop()

	// run
	preset   string
	dt       float64
	duration float64
	steps    int
	parallel bool
	noSave   bool
	quiet    bool

	// inspection
	seriesNames []string
	width       int
	height      int
	pngOutput   string
	jsonOutput  string
	tolerance   float64

	// sweep
	sweepAes  []float64
	sweepKint []float64

	force bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "essim",
		Short:         "extremum seeking simulation lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".essim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging")

	runCmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "run a scenario file, a preset or the default scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&preset, "preset", "", "use a built-in scenario")
	runCmd.Flags().Float64Var(&dt, "dt", 0.01, "timestep")
	runCmd.Flags().Float64Var(&duration, "time", 200, "duration")
	runCmd.Flags().IntVar(&steps, "steps", 0, "number of steps (overrides --time)")
	runCmd.Flags().BoolVar(&parallel, "parallel", false, "run the components of each stage concurrently")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "no progress bar")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a scenario file to start from",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initScenario,
	}
	initCmd.Flags().StringVar(&preset, "preset", "", "start from a built-in scenario")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "chart run series in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVarP(&seriesNames, "series", "s", nil, "series to plot (default: setpoints and costs)")
	plotCmd.Flags().IntVar(&width, "width", 80, "chart width")
	plotCmd.Flags().IntVar(&height, "height", 10, "chart height")

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse run series interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  viewRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "settling and frequency analysis",
		Args:  cobra.MaximumNArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&tolerance, "tol", 0.05, "settling band around the final setpoint")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "render run series to an image (png, svg, pdf by extension)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportImage,
	}
	exportPNGCmd.Flags().StringSliceVarP(&seriesNames, "series", "s", nil, "series to plot (default: setpoints and costs)")
	exportPNGCmd.Flags().StringVarP(&pngOutput, "output", "o", "", "output file (default <run>.png)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and series to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&jsonOutput, "output", "o", "-", "output file, - for stdout")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "run a preset once per probe amplitude and gain",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64SliceVar(&sweepAes, "aes", []float64{0.05, 0.1, 0.2, 0.4}, "probe amplitudes")
	sweepCmd.Flags().Float64SliceVar(&sweepKint, "kint", nil, "integrator gains (default: the preset's)")
	sweepCmd.Flags().IntVar(&steps, "steps", 0, "number of steps (default: the preset's)")

	rootCmd.AddCommand(runCmd, presetsCmd, initCmd, listCmd, plotCmd, viewCmd, analyzeCmd, exportPNGCmd, exportJSONCmd, sweepCmd, newTuneCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
