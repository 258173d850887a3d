package loo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kshedden/bayesloo/statmodel"
)

// MinTailLength is the smallest number of tail draws that the
// generalized Pareto fit accepts.
const MinTailLength = 5

// TailLength returns the number of largest importance ratios that are
// smoothed when there are S draws: ceil(min(0.2 S, 3 sqrt(S))).
func TailLength(S int) int {
	s := float64(S)
	return int(math.Ceil(math.Min(0.2*s, 3*math.Sqrt(s))))
}

// Smooth applies Pareto smoothing to the given log importance ratios.
// It returns the smoothed log weights, normalized so that the weights
// sum to 1, and the estimated Pareto shape k of the ratio tail.  The
// input is not modified.
//
// If all tail ratios are equal the weights are bounded, the tail is
// left as is and k is reported as 0.
func Smooth(logRatios []float64) ([]float64, float64, error) {

	S := len(logRatios)
	tail := TailLength(S)
	if tail < MinTailLength {
		return nil, 0, fmt.Errorf("%d draws give a tail of %d, at least %d are needed: %w",
			S, tail, MinTailLength, statmodel.ErrInsufficientDraws)
	}

	for s, v := range logRatios {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, 0, fmt.Errorf("log ratio %d is %v: %w", s, v, statmodel.ErrInvalidParameter)
		}
	}

	// Shift for safe exponentiation
	mx := floats.Max(logRatios)
	lw := make([]float64, S)
	copy(lw, logRatios)
	floats.AddConst(-mx, lw)

	sorted := make([]float64, S)
	copy(sorted, lw)
	inds := make([]int, S)
	floats.Argsort(sorted, inds)

	first := S - tail
	cutoff := sorted[first-1]
	tailv := sorted[first:]

	var k float64
	if tailv[tail-1]-tailv[0] > 1e-14 {

		ec := math.Exp(cutoff)
		exceed := make([]float64, tail)
		for j, v := range tailv {
			exceed[j] = math.Exp(v) - ec
		}

		var sigma float64
		k, sigma = FitGPD(exceed)

		if !math.IsInf(k, 0) {
			for j := range tailv {
				p := (float64(j) + 0.5) / float64(tail)
				lw[inds[first+j]] = math.Log(gpdQuantile(p, k, sigma) + ec)
			}
		}
	}

	// Truncate at the largest raw ratio
	for s := range lw {
		if lw[s] > 0 {
			lw[s] = 0
		}
	}

	floats.AddConst(-floats.LogSumExp(lw), lw)

	return lw, k, nil
}
