package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/san-kum/simrun/internal/config"
	"github.com/san-kum/simrun/internal/experiment"
	"github.com/san-kum/simrun/internal/lifecycle"
	"github.com/san-kum/simrun/internal/storage"
	"github.com/san-kum/simrun/internal/viz"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	dataDir     string
	configFile  string
	simDir      string
	description string
	method      string
	preset      string
	logInfo     string
	seed        int64
	trial       int
	strictTrial bool
	overrides   []string
	runs        int
	workers     int
	testRuns    bool
	column      string
	plotWidth   int
	plotHeight  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "simrun",
		Short:         "simulation run manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data location (overrides data_loc)")

	runCmd := &cobra.Command{
		Use:   "run [sim]",
		Short: "run a simulation",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&simDir, "sim-dir", "", "simulation directory name")
	runCmd.Flags().StringVar(&description, "description", "", "run description for README.txt")
	runCmd.Flags().StringVar(&method, "method", "", "integrator (euler, rk4, rk45)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset parameters")
	runCmd.Flags().StringVar(&logInfo, "log-info", "", "log descriptor, e.g. test_debug")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default: trial number)")
	runCmd.Flags().IntVar(&trial, "trial", 0, "trial number (default: next free)")
	runCmd.Flags().BoolVar(&strictTrial, "strict", false, "fail if --trial already exists")
	runCmd.Flags().StringArrayVar(&overrides, "set", nil, "param override key=value (repeatable)")
	runCmd.Flags().IntVar(&runs, "runs", 1, "number of trials to launch")
	runCmd.Flags().IntVar(&workers, "workers", 4, "concurrent trials when --runs > 1")

	listCmd := &cobra.Command{
		Use:   "list [sim_dir]",
		Short: "list trials, or simulation directories when none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listRuns,
	}
	listCmd.Flags().BoolVar(&testRuns, "test", false, "list test trials")

	plotCmd := &cobra.Command{
		Use:   "plot [sim_dir]",
		Short: "plot a trial's series",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&trial, "trial", 0, "trial number")
	plotCmd.Flags().BoolVar(&testRuns, "test", false, "plot a test trial")
	plotCmd.Flags().StringVar(&column, "column", "", "series column (default: first)")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")

	simsCmd := &cobra.Command{
		Use:   "sims",
		Short: "list available simulations",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range experiment.NewRegistry().List() {
				fmt.Println(name)
			}
			return nil
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [sim]",
		Short: "list available presets for a simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for simulation: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, simsCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, viz.StatusFailed.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	opts := []lifecycle.Option{lifecycle.WithLogInfo(logInfo)}
	if runs > 1 {
		return runEnsemble(cmd, args[0], cfg, opts)
	}
	if cmd.Flags().Changed("seed") {
		opts = append(opts, lifecycle.WithSeed(seed))
	}
	if cmd.Flags().Changed("trial") {
		opts = append(opts, lifecycle.WithTrial(trial))
		if strictTrial {
			opts = append(opts, lifecycle.WithStrictTrial())
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := experiment.NewRegistry().Run(ctx, experiment.Request{
		Sim:     args[0],
		Config:  cfg,
		Preset:  preset,
		Options: opts,
	})
	if out == nil || out.Manager == nil {
		return err
	}
	fmt.Println(viz.RunSummary(out.Manager, out.Elapsed, err))
	return err
}

func runEnsemble(cmd *cobra.Command, sim string, cfg config.Config, opts []lifecycle.Option) error {
	if cmd.Flags().Changed("trial") {
		return fmt.Errorf("--trial cannot be combined with --runs")
	}
	ens := experiment.Ensemble{Runs: runs, Workers: workers}
	if cmd.Flags().Changed("seed") {
		ens.SeedStart = &seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outs, err := experiment.NewRegistry().RunEnsemble(ctx, experiment.Request{
		Sim:     sim,
		Config:  cfg,
		Preset:  preset,
		Options: opts,
	}, ens)
	for _, out := range outs {
		if out == nil || out.Manager == nil {
			continue
		}
		fmt.Println(viz.RunSummary(out.Manager, out.Elapsed, out.Err))
	}
	return err
}

// buildConfig layers the config file, then flags, then --set overrides.
func buildConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Config{}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if dataDir != "" {
		cfg[config.KeyDataLoc] = dataDir
	} else if _, ok := cfg[config.KeyDataLoc]; !ok {
		cfg[config.KeyDataLoc] = "data"
	}
	if cmd.Flags().Changed("sim-dir") {
		cfg[config.KeySimDir] = simDir
	}
	if cmd.Flags().Changed("description") {
		cfg[config.KeyDescription] = description
	}
	if method != "" {
		cfg["method"] = method
	}

	if _, ok := cfg[config.KeyParams]; !ok {
		cfg[config.KeyParams] = config.Params{}
	}
	if len(overrides) == 0 {
		return cfg, nil
	}

	base, err := cfg.RawParams()
	if err != nil {
		return nil, err
	}
	params := make(config.Params, len(base)+len(overrides))
	for k, v := range base {
		params[k] = v
	}
	for _, kv := range overrides {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", kv)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", kv, err)
		}
		params[key] = v
	}
	cfg[config.KeyParams] = params
	return cfg, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataLocation())

	if len(args) == 0 {
		dirs, err := st.SimDirs()
		if err != nil {
			return err
		}
		if len(dirs) == 0 {
			fmt.Println(viz.Subtle.Render("no simulations in " + st.BaseDir()))
			return nil
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
		return nil
	}

	runs, err := st.Manifests(args[0], testRuns)
	if err != nil {
		return err
	}
	fmt.Print(viz.RunTable(runs))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	simPath := storage.SimPath(dataLocation(), args[0], trial, testRuns)
	series, err := storage.LoadSeries(simPath)
	if err != nil {
		return err
	}
	if len(series.Names) == 0 {
		return fmt.Errorf("no series recorded in %s", simPath)
	}

	col := column
	if col == "" {
		col = series.Names[0]
	}
	graph, err := viz.PlotColumn(series, col, plotWidth, plotHeight)
	if err != nil {
		return err
	}

	if readme, err := storage.ReadReadme(simPath); err == nil {
		fmt.Println(viz.Title.Render(readme))
	}
	fmt.Println(graph)
	return nil
}

func dataLocation() string {
	if dataDir != "" {
		return dataDir
	}
	return "data"
}
