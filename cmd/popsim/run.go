package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/popsim/internal/config"
	"github.com/san-kum/popsim/internal/engine"
	"github.com/san-kum/popsim/internal/population"
	"github.com/san-kum/popsim/internal/storage"
	"github.com/san-kum/popsim/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runPopulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	pop, aging, initial, err := cfg.Datasets()
	if err != nil {
		return err
	}

	st, err := storage.Open(cfg.Storage, cfg.DataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode := engine.ExportOptimized
	if fullExport {
		mode = engine.ExportFull
	}

	start := time.Now()
	var results *population.RunResults
	if tui {
		results, err = runWithProgress(ctx, cfg, mode, pop, aging, initial)
	} else {
		runner := population.NewRunner(engine.NewExporter(), engine.ODEFactory{},
			population.WithLogger(logrus.StandardLogger()),
			population.WithExportMode(mode),
		)
		results, err = runner.RunPopulation(ctx, &cfg.Simulation, pop, aging, initial, cfg.Cores)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	meta := storage.RunMetadata{
		Simulation:     cfg.Simulation.Name,
		Model:          cfg.Simulation.Model,
		Integrator:     cfg.Simulation.Integrator,
		Duration:       cfg.Simulation.Duration,
		Cores:          max(cfg.Cores, 1),
		ElapsedSeconds: elapsed.Seconds(),
	}
	runID, err := st.Save(meta, results)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	saved, err := st.Load(runID)
	if err != nil {
		return err
	}

	fmt.Println(viz.RenderSummary(*saved, results))
	return nil
}

// runWithProgress drives the run from a Bubble Tea program. Log output is
// discarded while the program owns the terminal.
func runWithProgress(ctx context.Context, cfg *config.Config, mode engine.ExportMode,
	pop *population.ValueTable, aging *population.AgingTable, initial *population.ValueTable) (*population.RunResults, error) {

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	var runner *population.Runner
	model := viz.NewProgressModel(cfg.Simulation.Name, pop.Len(), func() { runner.Stop() })
	p := tea.NewProgram(model)

	runner = population.NewRunner(engine.NewExporter(), engine.ODEFactory{},
		population.WithLogger(quiet),
		population.WithObserver(viz.ProgressObserver{Program: p}),
		population.WithExportMode(mode),
	)

	go func() {
		res, err := runner.RunPopulation(ctx, &cfg.Simulation, pop, aging, initial, cfg.Cores)
		p.Send(viz.DoneMsg{Results: res, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		runner.Stop()
		return nil, err
	}
	return final.(viz.ProgressModel).Outcome()
}

// loadRunConfig layers config file, preset and explicitly set flags, in
// that order.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		if !cmd.Flags().Changed("log-level") {
			level, err := logrus.ParseLevel(cfg.LogLevel)
			if err != nil {
				return nil, fmt.Errorf("invalid log level in config: %s", cfg.LogLevel)
			}
			logrus.SetLevel(level)
		}
	}

	model := cfg.Simulation.Model
	if modelName != "" {
		model = modelName
	}
	if preset != "" {
		def := config.GetPreset(model, preset)
		if def == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		cfg.Simulation = *def
	} else if model != cfg.Simulation.Model {
		cfg.Simulation.Model = model
		cfg.Simulation.Parameters = nil
		cfg.Simulation.TableParameters = nil
		cfg.Simulation.InitialValues = nil
		cfg.Simulation.Outputs = nil
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.Simulation.Name = simName
	}
	if flags.Changed("integrator") {
		cfg.Simulation.Integrator = integrator
	}
	if flags.Changed("population") {
		cfg.Population = popFile
	}
	if flags.Changed("aging") {
		cfg.Aging = agingFile
	}
	if flags.Changed("initial") {
		cfg.InitialValues = initialFile
	}
	if flags.Changed("cores") || configFile == "" {
		cfg.Cores = cores
	}
	if flags.Changed("data") || configFile == "" {
		cfg.DataDir = dataDir
	}
	if flags.Changed("storage") || configFile == "" {
		cfg.Storage = storageKind
	}
	return cfg, nil
}
