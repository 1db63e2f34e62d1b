package population

import (
	"fmt"
	"math"
)

// ValueTable is a wide table with one row per individual and one column
// per path. A NaN cell means the individual keeps the model default for that
// path. It holds both scalar parameter overrides and initial values.
type ValueTable struct {
	Paths []string
	Rows  []ValueRow
}

type ValueRow struct {
	IndividualID int
	Values       []float64
}

func NewValueTable(paths ...string) *ValueTable {
	return &ValueTable{Paths: paths}
}

func (t *ValueTable) AddRow(id int, values ...float64) error {
	if len(values) != len(t.Paths) {
		return fmt.Errorf("individual %d: %d values for %d columns", id, len(values), len(t.Paths))
	}
	t.Rows = append(t.Rows, ValueRow{IndividualID: id, Values: values})
	return nil
}

func (t *ValueTable) Len() int { return len(t.Rows) }

// AgingRow is one point of an individual's time-value curve for a table
// parameter.
type AgingRow struct {
	IndividualID  int
	ParameterPath string
	Time          float64
	Value         float64
}

type AgingTable struct {
	Rows []AgingRow
}

func (t *AgingTable) Add(id int, path string, time, value float64) {
	t.Rows = append(t.Rows, AgingRow{IndividualID: id, ParameterPath: path, Time: time, Value: value})
}

func (t *AgingTable) Len() int { return len(t.Rows) }

// NoValue marks an empty cell in a ValueTable.
var NoValue = math.NaN()
