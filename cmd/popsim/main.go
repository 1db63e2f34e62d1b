package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/popsim/internal/config"
	"github.com/san-kum/popsim/internal/integrators"
	"github.com/san-kum/popsim/internal/physics"
	"github.com/san-kum/popsim/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dataDir     string
	storageKind string
	logLevel    string
	theme       string

	configFile  string
	modelName   string
	preset      string
	simName     string
	integrator  string
	popFile     string
	agingFile   string
	initialFile string
	cores       int
	fullExport  bool
	tui         bool

	quantity    string
	individuals []int
	percentiles []float64
	spectrum    bool
	outFile     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "popsim",
		Short:         "population simulation runner",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %s", logLevel)
			}
			logrus.SetLevel(level)

			t, err := viz.GetTheme(theme)
			if err != nil {
				return err
			}
			viz.SetTheme(t)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".popsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&storageKind, "storage", config.DefaultStorage, "run storage (file|sqlite)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", viz.ThemeNeon.Name, "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate every individual of a population",
		Args:  cobra.NoArgs,
		RunE:  runPopulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&modelName, "model", "", "model ("+strings.Join(physics.Names(), ", ")+")")
	runCmd.Flags().StringVar(&preset, "preset", "", "use a preset simulation for the model")
	runCmd.Flags().StringVar(&simName, "name", "", "simulation name")
	runCmd.Flags().StringVar(&integrator, "integrator", "", "integrator ("+strings.Join(integrators.Names(), ", ")+")")
	runCmd.Flags().StringVar(&popFile, "population", "", "population CSV (IndividualId,<path>...)")
	runCmd.Flags().StringVar(&agingFile, "aging", "", "aging CSV (IndividualId,ParameterPath,Time,Value)")
	runCmd.Flags().StringVar(&initialFile, "initial", "", "initial values CSV (IndividualId,<path>...)")
	runCmd.Flags().IntVar(&cores, "cores", config.DefaultCores, "number of parallel workers")
	runCmd.Flags().BoolVar(&fullExport, "full", false, "report every species, not only the configured outputs")
	runCmd.Flags().BoolVar(&tui, "tui", false, "show live progress")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a run with its failures and warnings",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot trajectories of individuals",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&quantity, "quantity", "", "quantity path (default: first output)")
	plotCmd.Flags().IntSliceVar(&individuals, "ids", nil, "individual ids (default: first three)")

	statsCmd := &cobra.Command{
		Use:   "stats [run_id]",
		Short: "population percentiles of a quantity",
		Args:  cobra.ExactArgs(1),
		RunE:  statsRun,
	}
	statsCmd.Flags().StringVar(&quantity, "quantity", "", "quantity path (default: first output)")
	statsCmd.Flags().Float64SliceVar(&percentiles, "percentiles", nil, "percentiles to band (default 5,50,95)")
	statsCmd.Flags().BoolVar(&spectrum, "spectrum", false, "summarize dominant frequencies")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run results to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(runCmd, listCmd, showCmd, plotCmd, statsCmd, presetsCmd, exportCSVCmd)

	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func listPresets(cmd *cobra.Command, args []string) error {
	models := physics.Names()
	if len(args) == 1 {
		models = args[:1]
	}

	for _, model := range models {
		presets := config.ListPresets(model)
		if len(presets) == 0 {
			if len(args) == 1 {
				fmt.Printf("no presets for model: %s\n", model)
			}
			continue
		}
		fmt.Printf("presets for %s:\n", model)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}
