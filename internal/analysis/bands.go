package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/popsim/internal/population"
)

// DefaultPercentiles are the 5th, 50th and 95th percentiles.
var DefaultPercentiles = []float64{5, 50, 95}

var ErrNoData = errors.New("analysis: no data")

// Bands holds percentiles of one quantity at every output time. Values is
// indexed [percentile][time]; Count is the number of non-NaN samples at
// each time.
type Bands struct {
	Path        string
	Percentiles []float64
	Times       []float64
	Values      [][]float64
	Count       []int
}

// Band returns the series for percentile p, or nil.
func (b *Bands) Band(p float64) []float64 {
	for i, q := range b.Percentiles {
		if q == p {
			return b.Values[i]
		}
	}
	return nil
}

// PercentileBands computes the given percentiles (DefaultPercentiles when
// none) of path across all successful individuals.
func PercentileBands(results *population.RunResults, path string, percentiles ...float64) (*Bands, error) {
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}
	for _, p := range percentiles {
		if p < 0 || p > 100 || math.IsNaN(p) {
			return nil, fmt.Errorf("percentile %v out of range [0, 100]", p)
		}
	}

	series := results.Quantity(path)
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: quantity %s", ErrNoData, path)
	}

	first := &results.Individuals[0]
	n := len(first.Time.Values)
	for i := range results.Individuals {
		if len(results.Individuals[i].Time.Values) != n {
			return nil, fmt.Errorf("individual %d has %d output times, want %d",
				results.Individuals[i].IndividualID, len(results.Individuals[i].Time.Values), n)
		}
	}

	b := &Bands{
		Path:        path,
		Percentiles: append([]float64(nil), percentiles...),
		Times:       make([]float64, n),
		Values:      make([][]float64, len(percentiles)),
		Count:       make([]int, n),
	}
	for i := range b.Values {
		b.Values[i] = make([]float64, n)
	}
	for k, t := range first.Time.Values {
		b.Times[k] = float64(t)
	}

	column := make([]float64, 0, len(series))
	for k := 0; k < n; k++ {
		column = column[:0]
		for _, q := range series {
			if k < len(q.Values) && !math.IsNaN(float64(q.Values[k])) {
				column = append(column, float64(q.Values[k]))
			}
		}
		sort.Float64s(column)
		b.Count[k] = len(column)
		for i, p := range percentiles {
			b.Values[i][k] = Percentile(column, p)
		}
	}
	return b, nil
}

// Percentile interpolates linearly between closest ranks of sorted. It
// returns NaN for an empty slice.
func Percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return math.NaN()
	case 1:
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

type Summary struct {
	Count     int
	Mean, Std float64
	Min, Max  float64
}

// Summarize reports the sample statistics of values, ignoring NaN.
func Summarize(values []float64) Summary {
	s := Summary{Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		s.Count++
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	if s.Count == 0 {
		return Summary{Mean: math.NaN(), Std: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	}
	s.Mean = sum / float64(s.Count)

	if s.Count > 1 {
		ss := 0.0
		for _, v := range values {
			if !math.IsNaN(v) {
				ss += (v - s.Mean) * (v - s.Mean)
			}
		}
		s.Std = math.Sqrt(ss / float64(s.Count-1))
	}
	return s
}

// FinalValues returns the last sample of path for every successful
// individual, in id order.
func FinalValues(results *population.RunResults, path string) []float64 {
	var out []float64
	for _, q := range results.Quantity(path) {
		if len(q.Values) > 0 {
			out = append(out, float64(q.Values[len(q.Values)-1]))
		}
	}
	return out
}
