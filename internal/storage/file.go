package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/san-kum/popsim/internal/population"
)

const (
	metadataFile = "metadata.json"
	resultsFile  = "results.csv"
	failuresFile = "failures.csv"
	warningsFile = "warnings.csv"
)

// FileStore keeps one directory per run.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Save(meta RunMetadata, results *population.RunResults) (string, error) {
	meta = complete(meta, results)
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := writeCSV(filepath.Join(runDir, resultsFile), resultRows(meta.Quantities, results)); err != nil {
		return "", err
	}

	failures := [][]string{{population.IndividualIDColumn, "Message"}}
	for _, f := range results.Failures {
		failures = append(failures, []string{strconv.Itoa(f.IndividualID), f.Message})
	}
	if err := writeCSV(filepath.Join(runDir, failuresFile), failures); err != nil {
		return "", err
	}

	warnings := [][]string{{population.IndividualIDColumn, "Warning"}}
	for _, w := range results.Warnings {
		for _, msg := range w.Warnings {
			warnings = append(warnings, []string{strconv.Itoa(w.IndividualID), msg})
		}
	}
	if err := writeCSV(filepath.Join(runDir, warningsFile), warnings); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// resultRows lays results out long by time: one row per individual and
// output time, one column per quantity.
func resultRows(paths []string, results *population.RunResults) [][]string {
	header := append([]string{population.IndividualIDColumn, population.TimePath}, paths...)
	rows := [][]string{header}

	for i := range results.Individuals {
		ind := &results.Individuals[i]
		columns := make([][]float32, len(paths))
		for j, p := range paths {
			if q, ok := ind.Quantity(p); ok {
				columns[j] = q.Values
			}
		}

		id := strconv.Itoa(ind.IndividualID)
		for k, t := range ind.Time.Values {
			row := make([]string, 0, len(header))
			row = append(row, id, formatValue(t))
			for _, col := range columns {
				v := "NaN"
				if k < len(col) {
					v = formatValue(col[k])
				}
				row = append(row, v)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteResultsCSV writes results in the results.csv layout:
// IndividualId, Time and one column per quantity.
func WriteResultsCSV(w io.Writer, results *population.RunResults) error {
	cw := csv.NewWriter(w)
	return cw.WriteAll(resultRows(results.QuantityPaths(), results))
}

func formatValue(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func parseValue(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	return float32(v), err
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Sync()
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func (s *FileStore) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *FileStore) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *FileStore) LoadResults(runID string) (*population.RunResults, error) {
	runDir := filepath.Join(s.baseDir, runID)

	records, err := readCSV(filepath.Join(runDir, resultsFile))
	if err != nil {
		return nil, err
	}
	individuals, err := parseResultRows(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resultsFile, err)
	}

	var failures []population.Failure
	records, err = readCSV(filepath.Join(runDir, failuresFile))
	if err != nil {
		return nil, err
	}
	for i, rec := range skipHeader(records) {
		id, err := strconv.Atoi(rec[0])
		if err != nil || len(rec) < 2 {
			return nil, fmt.Errorf("%s: line %d: malformed record", failuresFile, i+2)
		}
		failures = append(failures, population.Failure{IndividualID: id, Message: rec[1]})
	}

	byID := make(map[int][]string)
	records, err = readCSV(filepath.Join(runDir, warningsFile))
	if err != nil {
		return nil, err
	}
	for i, rec := range skipHeader(records) {
		id, err := strconv.Atoi(rec[0])
		if err != nil || len(rec) < 2 {
			return nil, fmt.Errorf("%s: line %d: malformed record", warningsFile, i+2)
		}
		byID[id] = append(byID[id], rec[1])
	}
	warnings := make([]population.IndividualWarnings, 0, len(byID))
	for id, w := range byID {
		warnings = append(warnings, population.IndividualWarnings{IndividualID: id, Warnings: w})
	}

	return population.NewRunResults(individuals, failures, warnings), nil
}

func skipHeader(records [][]string) [][]string {
	if len(records) < 2 {
		return nil
	}
	return records[1:]
}

func parseResultRows(records [][]string) ([]population.IndividualResult, error) {
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("header has %d columns", len(header))
	}
	paths := header[2:]

	var out []population.IndividualResult
	index := make(map[int]int)
	for line, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("line %d: %d columns, want %d", line+2, len(rec), len(header))
		}
		id, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+2, err)
		}

		idx, ok := index[id]
		if !ok {
			idx = len(out)
			index[id] = idx
			ind := population.IndividualResult{
				IndividualID: id,
				Time:         population.QuantityValues{Path: population.TimePath},
				Quantities:   make([]population.QuantityValues, len(paths)),
			}
			for j, p := range paths {
				ind.Quantities[j].Path = p
			}
			out = append(out, ind)
		}

		ind := &out[idx]
		t, err := parseValue(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+2, err)
		}
		ind.Time.Values = append(ind.Time.Values, t)
		for j := range paths {
			v, err := parseValue(rec[j+2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line+2, err)
			}
			ind.Quantities[j].Values = append(ind.Quantities[j].Values, v)
		}
	}
	return out, nil
}
