package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/popsim/internal/population"
)

// PowerSpectrum returns the magnitude of the first half of the spectrum of
// data after removing its mean and applying a Hann window.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n < 2 {
		return nil
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	windowed := make([]float64, n)
	for i, v := range data {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = (v - mean) * w
	}

	spectrum := fft.FFTReal(windowed)
	ps := make([]float64, n/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantFrequency returns the frequency of the strongest non-zero bin of
// data sampled every interval time units, or 0 when there is none.
func DominantFrequency(data []float64, interval float64) float64 {
	if interval <= 0 {
		return 0
	}
	ps := PowerSpectrum(data)

	maxPower, maxIdx := 0.0, 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > maxPower {
			maxPower = ps[i]
			maxIdx = i
		}
	}
	return float64(maxIdx) / (float64(len(data)) * interval)
}

// DominantFrequencies computes DominantFrequency of path for every
// successful individual, in id order. Trajectories containing NaN are
// reported as NaN.
func DominantFrequencies(results *population.RunResults, path string) []float64 {
	var out []float64
	for i := range results.Individuals {
		ind := &results.Individuals[i]
		q, ok := ind.Quantity(path)
		if !ok {
			continue
		}
		data, interval := uniform(ind.Time.Values, q.Values)
		freq := DominantFrequency(data, interval)
		for _, v := range data {
			if math.IsNaN(v) {
				freq = math.NaN()
				break
			}
		}
		out = append(out, freq)
	}
	return out
}

// uniform returns the samples on the regular part of the output grid. The
// final sample is dropped when the run ended between two grid points.
func uniform(times, values []float32) ([]float64, float64) {
	n := min(len(times), len(values))
	if n < 2 {
		return nil, 0
	}
	interval := float64(times[1] - times[0])
	if n > 2 {
		last := float64(times[n-1] - times[n-2])
		if math.Abs(last-interval) > 1e-6*interval {
			n--
		}
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = float64(values[i])
	}
	return data, interval
}
