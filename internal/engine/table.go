package engine

import (
	"errors"
	"sort"
)

func validateTable(points []TablePoint) error {
	if len(points) == 0 {
		return errors.New("table has no points")
	}
	for i := 1; i < len(points); i++ {
		if points[i].Time <= points[i-1].Time {
			return errors.New("table times must be strictly increasing")
		}
	}
	return nil
}

// Interpolate evaluates a piecewise linear table at t. Outside the table
// the first or last value is held.
func Interpolate(points []TablePoint, t float64) float64 {
	n := len(points)
	if n == 0 {
		return 0
	}
	if t <= points[0].Time {
		return points[0].Value
	}
	if t >= points[n-1].Time {
		return points[n-1].Value
	}

	i := sort.Search(n, func(i int) bool { return points[i].Time > t })
	lo, hi := points[i-1], points[i]
	frac := (t - lo.Time) / (hi.Time - lo.Time)
	return lo.Value + frac*(hi.Value-lo.Value)
}
