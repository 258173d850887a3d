package statmodel

import (
	"fmt"
)

// Dataset holds the observed responses and covariates of a regression
// model.  The covariates are stored by column, X[j] holds the values of
// covariate j for every observation.  The intercept is not part of X.
type Dataset struct {
	Y      []Dtype
	X      [][]Dtype
	XNames []string
}

// NewDataset returns a Dataset for the given response and covariate
// columns, after checking that the columns have consistent lengths.
// The names may be nil, in which case the covariates are named x1, x2, ...
func NewDataset(y []Dtype, x [][]Dtype, names []string) (*Dataset, error) {

	if names == nil {
		for j := range x {
			names = append(names, fmt.Sprintf("x%d", j+1))
		}
	}

	da := &Dataset{
		Y:      y,
		X:      x,
		XNames: names,
	}

	if err := da.Check(); err != nil {
		return nil, err
	}

	return da, nil
}

// NewDatasetFromRows returns a Dataset from a row-major covariate matrix,
// rows[i] being the covariate vector of observation i.
func NewDatasetFromRows(y []Dtype, rows [][]Dtype, names []string) (*Dataset, error) {

	if len(rows) != len(y) {
		return nil, fmt.Errorf("covariate matrix has %d rows but there are %d responses: %w",
			len(rows), len(y), ErrShapeMismatch)
	}

	var k int
	if len(rows) > 0 {
		k = len(rows[0])
	}

	x := make([][]Dtype, k)
	for j := range x {
		x[j] = make([]Dtype, len(rows))
	}

	for i, r := range rows {
		if len(r) != k {
			return nil, fmt.Errorf("covariate row %d has length %d, expected %d: %w",
				i, len(r), k, ErrShapeMismatch)
		}
		for j, v := range r {
			x[j][i] = v
		}
	}

	return NewDataset(y, x, names)
}

// NumObs returns the number of observations.
func (da *Dataset) NumObs() int {
	return len(da.Y)
}

// NumCovariates returns the number of covariates, excluding the intercept.
func (da *Dataset) NumCovariates() int {
	return len(da.X)
}

// Check confirms that every covariate column has one value per response.
func (da *Dataset) Check() error {

	if len(da.XNames) != len(da.X) {
		return fmt.Errorf("%d covariate names for %d covariates: %w",
			len(da.XNames), len(da.X), ErrShapeMismatch)
	}

	for j, x := range da.X {
		if len(x) != len(da.Y) {
			return fmt.Errorf("covariate '%s' has %d values but there are %d responses: %w",
				da.XNames[j], len(x), len(da.Y), ErrShapeMismatch)
		}
	}

	return nil
}
