package population

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	IndividualIDColumn  = "IndividualId"
	ParameterPathColumn = "ParameterPath"
	TimeColumn          = "Time"
	ValueColumn         = "Value"
)

// ReadValueTable parses "IndividualId,<path>,<path>,..." CSV. Empty cells
// become NoValue.
func ReadValueTable(r io.Reader) (*ValueTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return NewValueTable(), nil
	}
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(header[0], IndividualIDColumn) {
		return nil, fmt.Errorf("first column must be %s, got %q", IndividualIDColumn, header[0])
	}

	table := NewValueTable(header[1:]...)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}

		id, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: individual id: %w", line, err)
		}
		values := make([]float64, len(record)-1)
		for i, cell := range record[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				values[i] = NoValue
				continue
			}
			if values[i], err = strconv.ParseFloat(cell, 64); err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line, table.Paths[i], err)
			}
		}
		if err := table.AddRow(id, values...); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return table, nil
}

// ReadAgingTable parses "IndividualId,ParameterPath,Time,Value" CSV.
func ReadAgingTable(r io.Reader) (*AgingTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = 4

	table := &AgingTable{}
	header, err := cr.Read()
	if err == io.EOF {
		return table, nil
	}
	if err != nil {
		return nil, err
	}
	want := []string{IndividualIDColumn, ParameterPathColumn, TimeColumn, ValueColumn}
	for i, col := range want {
		if !strings.EqualFold(header[i], col) {
			return nil, fmt.Errorf("column %d must be %s, got %q", i+1, col, header[i])
		}
	}

	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}

		id, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: individual id: %w", line, err)
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: time: %w", line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: value: %w", line, err)
		}
		if math.IsNaN(t) || math.IsNaN(v) {
			return nil, fmt.Errorf("line %d: NaN is not allowed in aging data", line)
		}
		table.Add(id, strings.TrimSpace(record[1]), t, v)
	}
	return table, nil
}

func LoadValueTable(path string) (*ValueTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadValueTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func LoadAgingTable(path string) (*AgingTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadAgingTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
