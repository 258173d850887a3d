package loo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// FitGPD estimates the shape k and scale sigma of a generalized Pareto
// distribution with location zero, using the empirical Bayes method of
// Zhang and Stephens (2009).  The values in x must be non-negative and
// sorted in increasing order, with a positive maximum.  The shape
// estimate is shrunk towards 0.5 by a weakly informative prior, which
// matters only for short tails.  If the fit fails, k is +Inf.
func FitGPD(x []float64) (k, sigma float64) {

	n := len(x)
	nf := float64(n)
	const prior = 3

	m := 30 + int(math.Sqrt(nf))

	// First quartile of the sample, skipping ties at zero.
	q := int(nf/4+0.5) - 1
	if q < 0 {
		q = 0
	}
	for q < n-1 && x[q] <= 0 {
		q++
	}
	xstar := x[q]

	theta := make([]float64, m)
	lth := make([]float64, m)
	for j := range theta {
		theta[j] = 1/x[n-1] + (1-math.Sqrt(float64(m)/(float64(j+1)-0.5)))/prior/xstar
		lth[j] = nf * profileLogLike(theta[j], x)
		if math.IsNaN(lth[j]) {
			lth[j] = math.Inf(-1)
		}
	}

	// Posterior mean of theta over the grid
	lse := floats.LogSumExp(lth)
	var thetaHat float64
	for j := range theta {
		thetaHat += theta[j] * math.Exp(lth[j]-lse)
	}

	for _, v := range x {
		k += math.Log1p(-thetaHat * v)
	}
	k /= nf
	sigma = -k / thetaHat

	// Weakly informative prior
	const a = 10
	k = k*nf/(nf+a) + a*0.5/(nf+a)

	if math.IsNaN(k) {
		k = math.Inf(1)
	}

	return k, sigma
}

// profileLogLike returns the profile log-likelihood per observation of
// the generalized Pareto distribution at theta = -k/sigma.
func profileLogLike(theta float64, x []float64) float64 {
	var k float64
	for _, v := range x {
		k += math.Log1p(-theta * v)
	}
	k /= float64(len(x))
	return math.Log(-theta/k) - k - 1
}

// gpdQuantile returns the p-quantile of a generalized Pareto distribution
// with location zero, shape k, and scale sigma.
func gpdQuantile(p, k, sigma float64) float64 {
	if math.Abs(k) < 1e-12 {
		return -sigma * math.Log1p(-p)
	}
	return sigma * math.Expm1(-k*math.Log1p(-p)) / k
}
