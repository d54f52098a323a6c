package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/edaniels/golog"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/armkit/gravcomp/internal/config"
	"github.com/armkit/gravcomp/internal/controller"
	"github.com/armkit/gravcomp/internal/dynamics"
	"github.com/armkit/gravcomp/internal/hw"
	"github.com/armkit/gravcomp/internal/metrics"
	"github.com/armkit/gravcomp/internal/params"
	"github.com/armkit/gravcomp/internal/runner"
	"github.com/armkit/gravcomp/internal/storage"
	"github.com/armkit/gravcomp/internal/tui"
	"github.com/armkit/gravcomp/internal/urdf"
)

var (
	dataDir    string
	configFile string
	rateHz     float64
	duration   float64
	joints     []string
	unsensed   []string
	initPos    map[string]string
	live       bool
	meshRoots  map[string]string
	column     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gravcomp",
		Short: "gravity compensation controller harness",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")

	runCmd := &cobra.Command{
		Use:   "run [urdf]",
		Short: "run the controller against a simulated robot",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runController,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().Float64Var(&rateHz, "rate", config.DefaultRateHz, "control rate (Hz)")
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration (s)")
	runCmd.Flags().StringSliceVar(&joints, "joints", nil, "controlled joints (default: all)")
	runCmd.Flags().StringSliceVar(&unsensed, "unsensed", nil, "joints without state handles")
	runCmd.Flags().StringToStringVar(&initPos, "init", nil, "initial joint positions, joint=radians")
	runCmd.Flags().BoolVar(&live, "live", false, "show live monitor")

	checkCmd := &cobra.Command{
		Use:   "check [urdf]",
		Short: "validate a description and controller binding without running",
		Args:  cobra.ExactArgs(1),
		RunE:  checkSetup,
	}
	checkCmd.Flags().StringSliceVar(&joints, "joints", nil, "controlled joints (default: all)")
	checkCmd.Flags().StringToStringVar(&meshRoots, "mesh-root", nil, "package roots for mesh URIs, name=dir")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored trace column",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "", "trace column to plot (default: first torque)")

	rootCmd.AddCommand(runCmd, checkCmd, listCmd, plotCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadRunConfig merges the config file and command-line flags; flags
// win.
func loadRunConfig(args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.URDF = args[0]
	}
	if len(joints) > 0 {
		cfg.Joints = joints
	}
	if rateHz != config.DefaultRateHz {
		cfg.RateHz = rateHz
	}
	if duration != config.DefaultDuration {
		cfg.Duration = duration
	}
	if len(unsensed) > 0 {
		cfg.Unsensed = unsensed
	}
	if len(initPos) > 0 {
		if cfg.InitialPositions == nil {
			cfg.InitialPositions = make(map[string]float64)
		}
		for name, v := range initPos {
			var rad float64
			if _, err := fmt.Sscanf(v, "%g", &rad); err != nil {
				return nil, fmt.Errorf("bad initial position %q for joint %q", v, name)
			}
			cfg.InitialPositions[name] = rad
		}
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, cfg.Validate()
}

// buildSetup constructs the simulated robot, parameter store and
// controller for a config, without starting anything.
func buildSetup(cfg *config.Config, logger golog.Logger) (*hw.SimRobot, *controller.Controller, error) {
	desc, err := os.ReadFile(cfg.URDF)
	if err != nil {
		return nil, nil, err
	}

	plant, err := dynamics.LoadModelString(string(desc))
	if err != nil {
		return nil, nil, err
	}

	controlled := cfg.Joints
	if len(controlled) == 0 {
		for _, d := range plant.Dofs() {
			controlled = append(controlled, d.Name())
		}
	}

	robot := hw.NewSim(plant,
		hw.WithInitialPositions(cfg.InitialPositions),
		hw.WithoutStateHandles(cfg.Unsensed...),
	)

	store := params.New()
	store.SetString(controller.DefaultDescriptionParam, string(desc))
	store.SetStringList(controller.JointsKey, controlled)

	ctrl := controller.New(logger)
	if err := ctrl.Init(robot, store); err != nil {
		return nil, nil, err
	}
	return robot, ctrl, nil
}

func runController(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(args)
	if err != nil {
		return err
	}

	logger := golog.NewDevelopmentLogger("gravcomp")
	robot, ctrl, err := buildSetup(cfg, logger)
	if err != nil {
		return err
	}

	rn := runner.New(robot, ctrl)
	rn.AddMetric(metrics.NewTorqueEffort())
	rn.AddMetric(metrics.NewHoldDrift())

	runCfg := runner.Config{RateHz: cfg.RateHz, Duration: cfg.Duration}

	var result *runner.Result
	if live {
		monitor := tui.NewMonitor(robot.Joints())
		rn.AddObserver(monitor)

		errc := make(chan error, 1)
		go func() {
			var runErr error
			result, runErr = rn.Run(context.Background(), runCfg)
			monitor.Close()
			errc <- runErr
		}()
		if err := monitor.Run(); err != nil {
			return err
		}
		if err := <-errc; err != nil {
			return err
		}
	} else {
		result, err = rn.Run(context.Background(), runCfg)
		if err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for name, v := range result.Metrics {
		fmt.Fprintf(w, "%s\t%.6f\n", name, v)
	}
	w.Flush()
	fmt.Println()

	if len(result.Torques) > 0 {
		data := make([]float64, len(result.Torques))
		for i := range result.Torques {
			data[i] = result.Torques[i][0]
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("tau_%s", result.Joints[0])),
		))
		fmt.Println()
	}

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(ctrl.Model().Name(), cfg.RateHz, cfg.Duration, result)
	if err != nil {
		return err
	}
	fmt.Printf("saved run %s\n", runID)
	return nil
}

func checkSetup(cmd *cobra.Command, args []string) error {
	desc, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	robotDesc, err := urdf.Parse(desc)
	if err != nil {
		return err
	}
	fmt.Printf("robot: %s (%d links, %d joints)\n", robotDesc.Name, len(robotDesc.Links), len(robotDesc.Joints))

	if uris := robotDesc.MeshURIs(); len(uris) > 0 {
		retriever := &urdf.FileRetriever{Packages: meshRoots}
		if err := robotDesc.ResolveAssets(retriever); err != nil {
			return err
		}
		fmt.Printf("meshes: %d resolved\n", len(uris))
	}

	cfg := config.DefaultConfig()
	cfg.URDF = args[0]
	cfg.Joints = joints

	logger := golog.NewDevelopmentLogger("gravcomp")
	_, ctrl, err := buildSetup(cfg, logger)
	if err != nil {
		return err
	}
	fmt.Printf("controller binds: %d controlled of %d model DOFs\n",
		ctrl.Controlled().NumDofs(), ctrl.Model().NumDofs())
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROBOT\tTIME\tDURATION\tRATE\tJOINTS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.0fHz\t%d\n",
			run.ID,
			run.Robot,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.RateHz,
			len(run.Joints),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	header, rows, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	target := column
	if target == "" {
		for _, h := range header {
			if len(h) > 4 && h[:4] == "tau_" {
				target = h
				break
			}
		}
	}

	col := -1
	for i, h := range header {
		if h == target {
			col = i
			break
		}
	}
	if col < 0 {
		return fmt.Errorf("no column %q in run %s (have %v)", target, runID, header)
	}

	data := make([]float64, len(rows))
	for i, row := range rows {
		data[i] = row[col]
	}

	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(target),
	))
	return nil
}
