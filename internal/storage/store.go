package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/san-kum/popsim/internal/population"
)

// RunMetadata describes a saved population run.
type RunMetadata struct {
	ID             string    `json:"id"`
	Simulation     string    `json:"simulation"`
	Model          string    `json:"model"`
	Integrator     string    `json:"integrator"`
	Timestamp      time.Time `json:"timestamp"`
	Duration       float64   `json:"duration"`
	Cores          int       `json:"cores"`
	Individuals    int       `json:"individuals"`
	Failures       int       `json:"failures"`
	Quantities     []string  `json:"quantities"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// Store persists population runs.
type Store interface {
	Init() error
	// Save writes results under meta.ID, or a new id when empty, and
	// returns the id.
	Save(meta RunMetadata, results *population.RunResults) (string, error)
	List() ([]RunMetadata, error)
	Load(runID string) (*RunMetadata, error)
	LoadResults(runID string) (*population.RunResults, error)
	Close() error
}

// Open returns an initialized store of the given kind ("file" or "sqlite")
// rooted at dataDir.
func Open(kind, dataDir string) (Store, error) {
	var s Store
	switch kind {
	case "", "file":
		s = NewFileStore(dataDir)
	case "sqlite":
		sq, err := NewSQLiteStore(filepath.Join(dataDir, "popsim.db"))
		if err != nil {
			return nil, err
		}
		s = sq
	default:
		return nil, fmt.Errorf("unknown storage: %s", kind)
	}
	if err := s.Init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// complete fills the fields of meta that follow from results.
func complete(meta RunMetadata, results *population.RunResults) RunMetadata {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		name := strings.ToLower(meta.Simulation)
		if name == "" {
			name = "run"
		}
		meta.ID = fmt.Sprintf("%s_%d", name, meta.Timestamp.UnixNano())
	}
	meta.Individuals = results.Processed()
	meta.Failures = len(results.Failures)
	meta.Quantities = results.QuantityPaths()
	return meta
}
