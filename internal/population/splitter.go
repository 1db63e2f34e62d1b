package population

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/popsim/internal/dynamo"
	"github.com/san-kum/popsim/internal/engine"
)

// Splitter partitions a population over cores and knows, per individual,
// which parameter and initial values differ from the model defaults.
//
// Individuals are ordered by ascending id and cut into contiguous ranges
// whose sizes differ by at most one; the lower cores take the remainder.
// A Splitter is read-only after construction and safe for concurrent use.
type Splitter struct {
	ids   []int
	spans []dynamo.Span

	parameterPaths []string
	speciesPaths   []string

	scalars  map[int]map[string]float64
	curves   map[int]map[string][]engine.TablePoint
	initials map[int]map[string]float64
}

func NewSplitter(population *ValueTable, aging *AgingTable, initial *ValueTable, cores int) (*Splitter, error) {
	if cores < 1 {
		cores = 1
	}
	if population == nil {
		population = NewValueTable()
	}
	if aging == nil {
		aging = &AgingTable{}
	}
	if initial == nil {
		initial = NewValueTable()
	}

	s := &Splitter{
		scalars:  make(map[int]map[string]float64, population.Len()),
		curves:   make(map[int]map[string][]engine.TablePoint),
		initials: make(map[int]map[string]float64, initial.Len()),
	}

	if err := loadValues(population, s.scalars); err != nil {
		return nil, err
	}
	s.ids = make([]int, 0, len(s.scalars))
	for id := range s.scalars {
		s.ids = append(s.ids, id)
	}
	sort.Ints(s.ids)
	s.spans = dynamo.SplitRange(len(s.ids), cores)

	if err := loadValues(initial, s.initials); err != nil {
		return nil, err
	}
	if err := s.loadCurves(aging); err != nil {
		return nil, err
	}

	params := make(map[string]bool)
	for _, p := range population.Paths {
		params[p] = true
	}
	for _, row := range aging.Rows {
		params[row.ParameterPath] = true
	}
	s.parameterPaths = sortedKeys(params)
	s.speciesPaths = append([]string(nil), initial.Paths...)
	sort.Strings(s.speciesPaths)

	return s, nil
}

func loadValues(table *ValueTable, into map[int]map[string]float64) error {
	seen := make(map[string]bool, len(table.Paths))
	for _, p := range table.Paths {
		if seen[p] {
			return fmt.Errorf("%w: column %s appears twice", ErrConfiguration, p)
		}
		seen[p] = true
	}

	for _, row := range table.Rows {
		if _, dup := into[row.IndividualID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateIndividual, row.IndividualID)
		}
		if len(row.Values) != len(table.Paths) {
			return fmt.Errorf("%w: individual %d has %d values for %d columns",
				ErrConfiguration, row.IndividualID, len(row.Values), len(table.Paths))
		}
		values := make(map[string]float64, len(table.Paths))
		for i, v := range row.Values {
			if !math.IsNaN(v) {
				values[table.Paths[i]] = v
			}
		}
		into[row.IndividualID] = values
	}
	return nil
}

func (s *Splitter) loadCurves(aging *AgingTable) error {
	for _, row := range aging.Rows {
		byPath, ok := s.curves[row.IndividualID]
		if !ok {
			byPath = make(map[string][]engine.TablePoint)
			s.curves[row.IndividualID] = byPath
		}
		byPath[row.ParameterPath] = append(byPath[row.ParameterPath], engine.TablePoint{Time: row.Time, Value: row.Value})
	}

	for id, byPath := range s.curves {
		for path, points := range byPath {
			sort.SliceStable(points, func(i, j int) bool { return points[i].Time < points[j].Time })
			for i := 1; i < len(points); i++ {
				if points[i].Time == points[i-1].Time {
					return fmt.Errorf("%w: individual %d has two aging points for %s at t=%g",
						ErrConfiguration, id, path, points[i].Time)
				}
			}
		}
	}
	return nil
}

func (s *Splitter) IndividualCount() int { return len(s.ids) }

func (s *Splitter) Cores() int { return len(s.spans) }

// IndividualsForCore returns the ids assigned to core, in ascending order.
func (s *Splitter) IndividualsForCore(core int) []int {
	if core < 0 || core >= len(s.spans) {
		return nil
	}
	span := s.spans[core]
	return append([]int(nil), s.ids[span.Start:span.End]...)
}

// ParameterPathsToVary is the sorted union of population columns and aging
// parameter paths.
func (s *Splitter) ParameterPathsToVary() []string {
	return append([]string(nil), s.parameterPaths...)
}

func (s *Splitter) InitialValuePathsToVary() []string {
	return append([]string(nil), s.speciesPaths...)
}

// ApplyOverridesFor writes a value for every variable path of h: the
// individual's own value where it has one, the catalogue default otherwise.
// Nothing set for an earlier individual survives on the handle.
func (s *Splitter) ApplyOverridesFor(id int, h engine.Handle) error {
	scalars, ok := s.scalars[id]
	if !ok {
		return fmt.Errorf("%w: unknown individual %d", ErrConfiguration, id)
	}

	if len(s.parameterPaths) > 0 {
		defaults := make(map[string]engine.ParameterProperty)
		for _, p := range h.ParameterProperties() {
			defaults[p.Path] = p
		}

		values := make([]engine.ParameterProperty, 0, len(s.parameterPaths))
		for _, path := range s.parameterPaths {
			prop, ok := defaults[path]
			if !ok {
				return fmt.Errorf("%w: parameter %s is not in the model", ErrConfiguration, path)
			}
			if curve, ok := s.curves[id][path]; ok {
				prop.Table = curve
			} else if v, ok := scalars[path]; ok {
				prop.Value = v
				prop.Table = nil
			}
			values = append(values, prop)
		}
		if err := h.SetParameterValues(values); err != nil {
			return fmt.Errorf("%w: individual %d: %w", ErrConfiguration, id, err)
		}
	}

	if len(s.speciesPaths) > 0 {
		defaults := make(map[string]float64)
		for _, sp := range h.SpeciesProperties() {
			defaults[sp.Path] = sp.Value
		}

		values := make([]engine.SpeciesProperty, 0, len(s.speciesPaths))
		for _, path := range s.speciesPaths {
			v, ok := defaults[path]
			if !ok {
				return fmt.Errorf("%w: species %s is not in the model", ErrConfiguration, path)
			}
			if override, ok := s.initials[id][path]; ok {
				v = override
			}
			values = append(values, engine.SpeciesProperty{Path: path, Value: v})
		}
		if err := h.SetSpeciesValues(values); err != nil {
			return fmt.Errorf("%w: individual %d: %w", ErrConfiguration, id, err)
		}
	}

	return nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
