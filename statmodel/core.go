package statmodel

import (
	"fmt"
	"math"
)

// Dtype is the element type for observed data.
type Dtype = float64

// Draw is one posterior sample of the parameters of a regression model
// with an intercept, K slopes, and an optional dispersion value.  For
// Normal models Dispersion is the residual standard deviation, for
// negative binomial models it is the shape parameter phi (larger values
// give less overdispersion).  Poisson models ignore it.
type Draw struct {
	Intercept  float64
	Coeff      []float64
	Dispersion float64
}

// GetCoeff returns the slopes of the draw.
func (d *Draw) GetCoeff() []float64 {
	return d.Coeff
}

// SetCoeff copies the given slopes into the draw.
func (d *Draw) SetCoeff(x []float64) {
	if len(d.Coeff) != len(x) {
		d.Coeff = make([]float64, len(x))
	}
	copy(d.Coeff, x)
}

// Clone produces a deep copy of the draw.
func (d *Draw) Clone() *Draw {
	coeff := make([]float64, len(d.Coeff))
	copy(coeff, d.Coeff)
	return &Draw{
		Intercept:  d.Intercept,
		Coeff:      coeff,
		Dispersion: d.Dispersion,
	}
}

// Vector returns the draw on the unconstrained scale: the intercept,
// the slopes, and if withDispersion is set, the log of the dispersion.
func (d *Draw) Vector(withDispersion bool) []float64 {
	n := 1 + len(d.Coeff)
	if withDispersion {
		n++
	}
	v := make([]float64, n)
	v[0] = d.Intercept
	copy(v[1:], d.Coeff)
	if withDispersion {
		v[n-1] = math.Log(d.Dispersion)
	}
	return v
}

// DrawFromVector is the inverse of Draw.Vector.  The vector must hold an
// intercept and k slopes, followed by a log dispersion if withDispersion
// is set.
func DrawFromVector(v []float64, k int, withDispersion bool) (*Draw, error) {
	n := 1 + k
	if withDispersion {
		n++
	}
	if len(v) != n {
		return nil, fmt.Errorf("parameter vector has length %d, expected %d: %w",
			len(v), n, ErrShapeMismatch)
	}

	d := &Draw{
		Intercept: v[0],
		Coeff:     make([]float64, k),
	}
	copy(d.Coeff, v[1:1+k])
	if withDispersion {
		d.Dispersion = math.Exp(v[n-1])
	}
	return d, nil
}

// CheckDraws confirms that every draw carries k slopes.
func CheckDraws(draws []Draw, k int) error {
	if len(draws) == 0 {
		return fmt.Errorf("no posterior draws: %w", ErrShapeMismatch)
	}
	for s := range draws {
		if len(draws[s].GetCoeff()) != k {
			return fmt.Errorf("draw %d has %d coefficients, the data have %d covariates: %w",
				s, len(draws[s].Coeff), k, ErrShapeMismatch)
		}
	}
	return nil
}
