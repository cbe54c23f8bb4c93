package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/san-kum/trebsim/internal/analysis"
	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/experiment"
	"github.com/san-kum/trebsim/internal/export"
	"github.com/san-kum/trebsim/internal/optim"
	"github.com/san-kum/trebsim/internal/sim"
	"github.com/san-kum/trebsim/internal/storage"
	"github.com/san-kum/trebsim/internal/telemetry"
	"github.com/san-kum/trebsim/internal/viz"
)

var (
	dataDir     string
	logLevel    string
	metricsAddr string

	dt          float64
	duration    float64
	recordEvery int
	configFile  string
	preset      string
	outFile     string
	noSave      bool

	cwMass        float64
	slingLength   float64
	ropeStiffness float64
	releaseAngle  float64
	projMass      float64
	spin          float64
	windX         float64
	windZ         float64
	timestep      float64

	fuzzScenario string
	fuzzRuns     int
	fuzzWorkers  int
	fuzzSeed     int64
	fuzzDt       float64
	fuzzDuration float64

	liveDt float64

	xAxis string
	yAxis string

	optParams   []string
	optWorkers  int
	optDt       float64
	optDuration float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "trebsim",
		Short:         "trebuchet physics simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".trebsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a launch and store it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().Float64Var(&dt, "dt", 0.01, "caller tick in seconds")
	runCmd.Flags().Float64Var(&duration, "time", 20.0, "duration in seconds")
	runCmd.Flags().IntVar(&recordEvery, "record-every", 1, "record a frame every N ticks")
	runCmd.Flags().StringVarP(&outFile, "out", "o", "", "also write the full frames as JSON to this file")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write a run's frame log as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOutput(func(f *os.File) error {
				return storage.New(dataDir).WriteRunCSV(f, args[0])
			})
		},
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write a run's metadata and frame log as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOutput(func(f *os.File) error {
				return storage.New(dataDir).WriteRunJSON(f, args[0])
			})
		},
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "show the substitutions validation would make",
		Args:  cobra.NoArgs,
		RunE:  validateConfig,
	}
	addConfigFlags(validateCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a launch with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().Float64Var(&liveDt, "dt", 1.0/60, "simulated seconds per frame")

	fuzzCmd := &cobra.Command{
		Use:   "fuzz",
		Short: "run a seeded batch of random configurations",
		Args:  cobra.NoArgs,
		RunE:  runFuzz,
	}
	defaults := experiment.DefaultConfig()
	fuzzCmd.Flags().StringVar(&fuzzScenario, "scenario", defaults.Scenario, "scenario ("+strings.Join(experiment.NewRegistry().List(), ", ")+")")
	fuzzCmd.Flags().IntVar(&fuzzRuns, "runs", defaults.Runs, "number of runs")
	fuzzCmd.Flags().IntVar(&fuzzWorkers, "workers", 0, "concurrent runs (0 = one per run)")
	fuzzCmd.Flags().Int64Var(&fuzzSeed, "seed", time.Now().UnixNano(), "random seed")
	fuzzCmd.Flags().Float64Var(&fuzzDt, "dt", defaults.Dt, "caller tick in seconds")
	fuzzCmd.Flags().Float64Var(&fuzzDuration, "time", defaults.Duration, "duration of each run")
	fuzzCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "configuration files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	configInitCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")
	configCmd.AddCommand(configInitCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "release and landing analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait of two frame-log columns",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&xAxis, "x-axis", "arm", "column for the x axis")
	phaseCmd.Flags().StringVar(&yAxis, "y-axis", "arm-omega", "column for the y axis")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw a run's trajectory as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "grid search parameters for the longest throw",
		Args:  cobra.NoArgs,
		RunE:  optimize,
	}
	addConfigFlags(optimizeCmd)
	optimizeCmd.Flags().StringArrayVar(&optParams, "param", []string{"release-angle=1.6:2.6:6"}, "name=lo:hi:n or name=v1,v2 (repeatable)")
	optimizeCmd.Flags().IntVar(&optWorkers, "workers", 0, "concurrent runs (0 = one per combination)")
	optimizeCmd.Flags().Float64Var(&optDt, "dt", 0.01, "frame interval (s)")
	optimizeCmd.Flags().Float64Var(&optDuration, "time", 20, "simulated time per run (s)")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, presetsCmd, validateCmd,
		liveCmd, fuzzCmd, analyzeCmd, phaseCmd, optimizeCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml or json)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&cwMass, "cw-mass", config.DefaultCWMass, "counterweight mass (kg)")
	f.Float64Var(&slingLength, "sling-length", config.DefaultSlingLength, "sling length (m)")
	f.Float64Var(&ropeStiffness, "rope-stiffness", config.DefaultRopeStiffness, "rope stiffness (Pa)")
	f.Float64Var(&releaseAngle, "release-angle", config.DefaultReleaseAngle, "release angle (rad)")
	f.Float64Var(&projMass, "projectile-mass", config.DefaultProjectileMass, "projectile mass (kg)")
	f.Float64Var(&spin, "spin", 0, "projectile spin (rad/s)")
	f.Float64Var(&windX, "wind-x", 0, "wind velocity along x (m/s)")
	f.Float64Var(&windZ, "wind-z", 0, "wind velocity along z (m/s)")
	f.Float64Var(&timestep, "timestep", config.DefaultTimestep, "fixed integration step (s)")
}

// loadConfig applies, in order: the preset, the config file, then every
// flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.SimulationConfig, error) {
	cfg := config.CreateConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	var overrides []config.Override
	if changed("cw-mass") {
		overrides = append(overrides, config.WithCounterweightMass(cwMass))
	}
	if changed("sling-length") {
		overrides = append(overrides, config.WithSlingLength(slingLength))
	}
	if changed("rope-stiffness") {
		overrides = append(overrides, config.WithRopeStiffness(ropeStiffness))
	}
	if changed("release-angle") {
		overrides = append(overrides, config.WithReleaseAngle(releaseAngle))
	}
	if changed("projectile-mass") {
		overrides = append(overrides, config.WithProjectileMass(projMass))
	}
	if changed("spin") {
		overrides = append(overrides, config.WithSpin(spin))
	}
	if changed("wind-x") || changed("wind-z") {
		w := cfg.Environment.WindVelocity
		if changed("wind-x") {
			w[0] = windX
		}
		if changed("wind-z") {
			w[2] = windZ
		}
		overrides = append(overrides, config.WithWind(w))
	}
	if changed("timestep") {
		overrides = append(overrides, config.WithTimestep(timestep))
	}
	for _, o := range overrides {
		o(cfg)
	}
	return cfg, nil
}

func runName() string {
	switch {
	case preset != "":
		return preset
	case configFile != "":
		base := filepath.Base(configFile)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return "custom"
}

// serveMetrics starts a metrics endpoint when --metrics-addr is set and
// returns the collector to record into, or nil.
func serveMetrics(ctx context.Context) *telemetry.Collector {
	if metricsAddr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c := telemetry.New(reg)
	go func() {
		if err := telemetry.Serve(ctx, metricsAddr, reg, slog.Default()); err != nil {
			slog.Error("metrics server failed", "err", err)
		}
	}()
	return c
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []sim.Option{sim.WithMetrics(sim.DefaultMetrics(cfg)...)}
	if c := serveMetrics(ctx); c != nil {
		opts = append(opts, sim.WithRecorder(c))
	}
	s := sim.New(nil, cfg, opts...)

	rc := sim.RunConfig{Duration: duration, Dt: dt, RecordEvery: recordEvery}
	name := runName()
	fmt.Printf("running %s launch...\n", name)
	start := time.Now()

	result, err := s.Run(ctx, rc)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	run := storage.Run{Name: name, Config: s.Config(), Warnings: s.Warnings(), RunConfig: rc, Result: result}
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(run)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	if outFile != "" {
		if err := storage.ExportJSON(outFile, run); err != nil {
			return err
		}
		fmt.Printf("frames written to %s\n", outFile)
	}

	last := s.ExportFrameData()
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("sim time: %.3fs  ticks: %d  steps: %d\n", result.FinalTime, result.Ticks, result.StepsTaken)
	fmt.Printf("phase: %s  degraded: %v  stalled: %v\n", result.Phase, result.Degraded, result.Stalled)
	fmt.Printf("range: %.2f m  energy drift: %.4f%%\n", -last.Projectile.Position[0], 100*result.EnergyDrift)
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
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

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tSIM TIME\tPHASE\tDRIFT\tDEGRADED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%s\t%.4f%%\t%v\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.FinalTime,
			run.Phase,
			100*run.EnergyDrift,
			run.Degraded,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	rows, err := st.LoadFrames(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("frames: %d\n\n", len(rows))

	series := []struct {
		caption string
		value   func(storage.FrameRow) float64
	}{
		{"projectile height (m)", func(r storage.FrameRow) float64 { return r.ProjY }},
		{"projectile x (m)", func(r storage.FrameRow) float64 { return r.ProjX }},
		{"arm angle (deg)", func(r storage.FrameRow) float64 { return r.ArmAngle }},
		{"arm omega (deg/s)", func(r storage.FrameRow) float64 { return r.ArmOmega }},
		{"sling tension (N)", func(r storage.FrameRow) float64 { return r.Tension }},
		{"energy (J)", func(r storage.FrameRow) float64 { return r.Energy }},
	}
	for _, s := range series {
		data := make([]float64, len(rows))
		for i, r := range rows {
			data[i] = s.value(r)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func withOutput(write func(*os.File) error) error {
	if outFile == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	props, warnings := config.ValidateTrebuchetProperties(cfg.Trebuchet)
	if len(warnings) == 0 {
		fmt.Println("configuration is valid")
	}
	for _, w := range warnings {
		fmt.Printf("warning: %s\n", w)
	}
	rope := "default"
	if props.RopeStiffness != nil {
		rope = fmt.Sprintf("%g Pa", *props.RopeStiffness)
	}
	fmt.Printf("sling length: %g m\nrope stiffness: %s\n", props.SlingLength, rope)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// The TUI owns the terminal; keep log lines out of it.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s := sim.New(nil, cfg, sim.WithLogger(logger))
	return viz.Run(s, runName(), liveDt)
}

func runFuzz(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := experiment.DefaultConfig()
	cfg.Scenario = fuzzScenario
	cfg.Runs = fuzzRuns
	cfg.Workers = fuzzWorkers
	cfg.Seed = fuzzSeed
	cfg.Dt = fuzzDt
	cfg.Duration = fuzzDuration

	// Per-run substitution warnings are summarised in the report instead.
	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	opts := []experiment.Option{experiment.WithLogger(quiet)}
	collector := serveMetrics(ctx)
	if collector != nil {
		opts = append(opts, experiment.WithSimOptions(sim.WithRecorder(collector)))
	}

	fmt.Printf("fuzzing %d %s runs with seed %d...\n", cfg.Runs, cfg.Scenario, cfg.Seed)
	report, err := experiment.New(cfg, opts...).Run(ctx)
	if err != nil {
		return err
	}
	if collector != nil {
		collector.ObserveReport(report)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tWARNINGS\tPHASE\tSIM TIME\tDRIFT\tDEGRADED\tSTALLED\tNAN")
	for _, o := range report.Outcomes {
		if o.Result == nil {
			fmt.Fprintf(w, "%d\t%d\t-\t-\t-\t-\t-\t%v\n", o.Index, o.Warnings, o.Err)
			continue
		}
		r := o.Result
		fmt.Fprintf(w, "%d\t%d\t%s\t%.2fs\t%.4f%%\t%v\t%v\t%v\n",
			o.Index, o.Warnings, r.Phase, r.FinalTime, 100*r.EnergyDrift, r.Degraded, r.Stalled, o.NaNLeak)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nnan leaks: %d  failed: %d  degraded: %d  stalled: %d  max drift: %.4f%%\n",
		report.NaNLeaks, report.Failed, report.Degraded, report.Stalled, 100*report.MaxDrift)
	if !report.OK() {
		return fmt.Errorf("fuzz batch failed (seed %d)", cfg.Seed)
	}
	return nil
}

func loadRun(runID string) (*storage.RunMetadata, []storage.FrameRow, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := st.LoadFrames(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, rows, nil
}

func launchReport(meta *storage.RunMetadata, rows []storage.FrameRow) (*analysis.LaunchReport, error) {
	cfg := meta.Config
	if cfg == nil {
		cfg = config.CreateConfig()
	}
	return analysis.Launch(rows, cfg.Projectile.Radius+1e-3, cfg.Environment.Gravity)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, rows, err := loadRun(args[0])
	if err != nil {
		return err
	}
	rep, err := launchReport(meta, rows)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n\n", meta.ID)
	fmt.Printf("release at frame %d, t=%.3fs\n", rep.ReleaseIndex, rep.ReleaseTime)
	fmt.Printf("  position: x=%.2f m  y=%.2f m\n", rep.ReleaseX, rep.ReleaseY)
	fmt.Printf("  speed: %.2f m/s  direction: %.1f°  arm: %.1f°\n", rep.ReleaseSpeed, rep.ReleaseAngle, rep.ArmAngle)
	fmt.Printf("max height: %.2f m\n", rep.MaxHeight)
	if rep.Landed {
		fmt.Printf("landing at t=%.3fs  x=%.2f m\n", rep.LandingTime, rep.LandingX)
		fmt.Printf("  range: %.2f m  flight time: %.2f s\n", rep.Range, rep.FlightTime)
	} else {
		fmt.Println("projectile had not landed when the log ends")
	}
	fmt.Printf("drag-free estimate: %.2f m in %.2f s\n", rep.Ballistic, rep.BallisticTime)
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	x, err := analysis.LookupColumn(xAxis)
	if err != nil {
		return err
	}
	y, err := analysis.LookupColumn(yAxis)
	if err != nil {
		return err
	}
	_, rows, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}
	fmt.Print(analysis.PhasePortrait(rows, x, y, 80, 24))
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	meta, rows, err := loadRun(args[0])
	if err != nil {
		return err
	}
	rep, err := launchReport(meta, rows)
	if err != nil && !errors.Is(err, analysis.ErrNoRelease) {
		return err
	}
	return withOutput(func(f *os.File) error {
		return export.TrajectorySVG(f, rows, rep, export.DefaultSVGOptions())
	})
}

func optimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	params := make([]optim.Param, 0, len(optParams))
	for _, spec := range optParams {
		p, err := optim.ParseParam(spec)
		if err != nil {
			return err
		}
		params = append(params, p)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	search := optim.NewGridSearch(params, optWorkers, sim.WithLogger(quiet))
	candidates, err := search.Search(ctx, cfg, sim.RunConfig{Duration: optDuration, Dt: optDt, RecordEvery: 1})
	if err != nil {
		return err
	}

	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\tRANGE\tNOTE")
	for _, c := range candidates {
		for _, n := range names {
			fmt.Fprintf(w, "%g\t", c.Values[n])
		}
		note := ""
		switch {
		case c.Err != nil:
			note = c.Err.Error()
		case c.Degraded:
			note = "degraded"
		case c.Launch != nil && !c.Launch.Landed:
			note = "did not land"
		}
		fmt.Fprintf(w, "%.2f\t%s\n", c.Range, note)
	}
	return w.Flush()
}
