package population

import (
	"sort"
	"sync"
)

// TimePath names the time column of every individual result.
const TimePath = "Time"

type QuantityValues struct {
	Path   string
	Values []float32
}

// IndividualResult holds the output of one successful simulation. Every
// quantity has exactly len(Time.Values) samples.
type IndividualResult struct {
	IndividualID int
	Time         QuantityValues
	Quantities   []QuantityValues
}

func (r *IndividualResult) Quantity(path string) (QuantityValues, bool) {
	for _, q := range r.Quantities {
		if q.Path == path {
			return q, true
		}
	}
	return QuantityValues{}, false
}

type Failure struct {
	IndividualID int
	Message      string
}

type IndividualWarnings struct {
	IndividualID int
	Warnings     []string
}

// RunResults is the finalized outcome of a population run. All slices are
// ordered by ascending individual id.
type RunResults struct {
	Individuals []IndividualResult
	Failures    []Failure
	Warnings    []IndividualWarnings

	byID map[int]int
}

func (r *RunResults) Individual(id int) (*IndividualResult, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return &r.Individuals[idx], true
}

func (r *RunResults) Failure(id int) (string, bool) {
	i := sort.Search(len(r.Failures), func(i int) bool { return r.Failures[i].IndividualID >= id })
	if i < len(r.Failures) && r.Failures[i].IndividualID == id {
		return r.Failures[i].Message, true
	}
	return "", false
}

func (r *RunResults) WarningsFor(id int) []string {
	i := sort.Search(len(r.Warnings), func(i int) bool { return r.Warnings[i].IndividualID >= id })
	if i < len(r.Warnings) && r.Warnings[i].IndividualID == id {
		return r.Warnings[i].Warnings
	}
	return nil
}

// QuantityPaths lists the paths reported by the first successful
// individual. Every individual of a run reports the same set.
func (r *RunResults) QuantityPaths() []string {
	if len(r.Individuals) == 0 {
		return nil
	}
	paths := make([]string, len(r.Individuals[0].Quantities))
	for i, q := range r.Individuals[0].Quantities {
		paths[i] = q.Path
	}
	return paths
}

// Quantity gathers one path across all successful individuals, in id order.
func (r *RunResults) Quantity(path string) []QuantityValues {
	var out []QuantityValues
	for i := range r.Individuals {
		if q, ok := r.Individuals[i].Quantity(path); ok {
			out = append(out, q)
		}
	}
	return out
}

func (r *RunResults) Processed() int {
	return len(r.Individuals) + len(r.Failures)
}

func (r *RunResults) index() {
	r.byID = make(map[int]int, len(r.Individuals))
	for i, ind := range r.Individuals {
		r.byID[ind.IndividualID] = i
	}
}

// NewRunResults builds indexed results from already collected parts, as a
// store does when loading a saved run.
func NewRunResults(individuals []IndividualResult, failures []Failure, warnings []IndividualWarnings) *RunResults {
	r := &RunResults{Individuals: individuals, Failures: failures, Warnings: warnings}
	sort.Slice(r.Individuals, func(i, j int) bool { return r.Individuals[i].IndividualID < r.Individuals[j].IndividualID })
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].IndividualID < r.Failures[j].IndividualID })
	sort.Slice(r.Warnings, func(i, j int) bool { return r.Warnings[i].IndividualID < r.Warnings[j].IndividualID })
	r.index()
	return r
}

// Results collects per-individual outcomes from concurrent workers.
type Results struct {
	mu        sync.Mutex
	successes map[int]IndividualResult
	failures  map[int]string
	warnings  map[int][]string
}

func NewResults() *Results {
	return &Results{
		successes: make(map[int]IndividualResult),
		failures:  make(map[int]string),
		warnings:  make(map[int][]string),
	}
}

func (r *Results) AddSuccess(res IndividualResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes[res.IndividualID] = res
}

func (r *Results) AddFailure(id int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[id] = message
}

// AddWarnings appends to the individual's warnings; an empty list is
// ignored.
func (r *Results) AddWarnings(id int, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings[id] = append(r.warnings[id], warnings...)
}

// Finalize snapshots everything recorded so far.
func (r *Results) Finalize() *RunResults {
	r.mu.Lock()
	defer r.mu.Unlock()

	individuals := make([]IndividualResult, 0, len(r.successes))
	for _, res := range r.successes {
		individuals = append(individuals, res)
	}
	failures := make([]Failure, 0, len(r.failures))
	for id, msg := range r.failures {
		failures = append(failures, Failure{IndividualID: id, Message: msg})
	}
	warnings := make([]IndividualWarnings, 0, len(r.warnings))
	for id, w := range r.warnings {
		warnings = append(warnings, IndividualWarnings{IndividualID: id, Warnings: append([]string(nil), w...)})
	}
	return NewRunResults(individuals, failures, warnings)
}
