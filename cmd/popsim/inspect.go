package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/san-kum/popsim/internal/analysis"
	"github.com/san-kum/popsim/internal/population"
	"github.com/san-kum/popsim/internal/storage"
	"github.com/san-kum/popsim/internal/viz"
	"github.com/spf13/cobra"
)

func openStore() (storage.Store, error) {
	return storage.Open(storageKind, dataDir)
}

func loadRun(runID string) (*storage.RunMetadata, *population.RunResults, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	defer st.Close()

	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	results, err := st.LoadResults(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, results, nil
}

func pickQuantity(meta *storage.RunMetadata) (string, error) {
	if quantity != "" {
		return quantity, nil
	}
	if len(meta.Quantities) == 0 {
		return "", fmt.Errorf("run %s has no outputs", meta.ID)
	}
	return meta.Quantities[0], nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSIMULATION\tMODEL\tTIME\tINDIVIDUALS\tFAILED\tCORES")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			run.ID,
			run.Simulation,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Individuals,
			run.Failures,
			run.Cores,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, results, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Println(viz.RenderSummary(*meta, results))

	if len(results.Failures) > 0 {
		fmt.Println("\nfailures:")
		for _, f := range results.Failures {
			fmt.Printf("  %d: %s\n", f.IndividualID, f.Message)
		}
	}
	if len(results.Warnings) > 0 {
		fmt.Println("\nwarnings:")
		for _, w := range results.Warnings {
			for _, msg := range w.Warnings {
				fmt.Printf("  %d: %s\n", w.IndividualID, msg)
			}
		}
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, results, err := loadRun(args[0])
	if err != nil {
		return err
	}
	path, err := pickQuantity(meta)
	if err != nil {
		return err
	}

	ids := individuals
	if len(ids) == 0 {
		for i := 0; i < len(results.Individuals) && i < 3; i++ {
			ids = append(ids, results.Individuals[i].IndividualID)
		}
	}

	graph, err := viz.PlotTrajectories(results, path, ids, 80, 12)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("simulation: %s (%s)\n\n", meta.Simulation, meta.Model)
	fmt.Println(graph)
	return nil
}

func statsRun(cmd *cobra.Command, args []string) error {
	meta, results, err := loadRun(args[0])
	if err != nil {
		return err
	}
	path, err := pickQuantity(meta)
	if err != nil {
		return err
	}

	bands, err := analysis.PercentileBands(results, path, percentiles...)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("individuals: %d succeeded, %d failed\n\n", len(results.Individuals), len(results.Failures))
	fmt.Println(viz.PlotBands(bands, 80, 12))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "TIME")
	for _, p := range bands.Percentiles {
		fmt.Fprintf(w, "\tP%g", p)
	}
	fmt.Fprintln(w, "\tN")
	step := max(len(bands.Times)/10, 1)
	for k := 0; k < len(bands.Times); k += step {
		fmt.Fprintf(w, "%.4g", bands.Times[k])
		for i := range bands.Percentiles {
			fmt.Fprintf(w, "\t%.6g", bands.Values[i][k])
		}
		fmt.Fprintf(w, "\t%d\n", bands.Count[k])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	final := analysis.Summarize(analysis.FinalValues(results, path))
	fmt.Printf("\nfinal value: mean %.6g, std %.6g, min %.6g, max %.6g (n=%d)\n",
		final.Mean, final.Std, final.Min, final.Max, final.Count)

	if spectrum {
		freqs := analysis.DominantFrequencies(results, path)
		s := analysis.Summarize(freqs)
		fmt.Printf("dominant frequency: mean %.4g, std %.4g, min %.4g, max %.4g (n=%d)\n",
			s.Mean, s.Std, s.Min, s.Max, s.Count)
		if len(freqs) > 1 {
			fmt.Println()
			fmt.Println(viz.PlotSeries(freqs, "dominant frequency by individual", 80, 8))
		}
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, results, err := loadRun(args[0])
	if err != nil {
		return err
	}

	if outFile == "" {
		return storage.WriteResultsCSV(os.Stdout, results)
	}

	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := storage.WriteResultsCSV(f, results); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported %d individuals to %s\n", len(results.Individuals), outFile)
	return nil
}
