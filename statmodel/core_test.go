package statmodel

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func data1() ([]Dtype, [][]Dtype) {
	y := []Dtype{0, 1, 3, 2, 1, 1, 0}
	x := [][]Dtype{
		{1, 0, 1, 0, 1, 0, 1},
		{4, 1, -1, 3, 5, -5, 3},
	}
	return y, x
}

func TestDatasetColumns(t *testing.T) {

	y, x := data1()
	da, err := NewDataset(y, x, nil)
	require.NoError(t, err)

	assert.Equal(t, 7, da.NumObs())
	assert.Equal(t, 2, da.NumCovariates())
	assert.Equal(t, []string{"x1", "x2"}, da.XNames)
}

func TestDatasetShapeMismatch(t *testing.T) {

	y, x := data1()
	x[1] = append(x[1], 7)

	_, err := NewDataset(y, x, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = NewDataset(y[:6], [][]Dtype{x[0][:6]}, []string{"a", "b"})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestDatasetFromRows(t *testing.T) {

	y := []Dtype{1, 2, 3}
	rows := [][]Dtype{{1, 10}, {2, 20}, {3, 30}}

	da, err := NewDatasetFromRows(y, rows, []string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, floats.Equal(da.X[0], []float64{1, 2, 3}))
	assert.True(t, floats.Equal(da.X[1], []float64{10, 20, 30}))

	// One more row than there are responses must fail, not truncate.
	rows = append(rows, []Dtype{4, 40})
	_, err = NewDatasetFromRows(y, rows, nil)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	// Ragged rows
	_, err = NewDatasetFromRows(y, [][]Dtype{{1, 10}, {2}, {3, 30}}, nil)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestDrawVector(t *testing.T) {

	d := &Draw{Intercept: 0.5, Coeff: []float64{1, -2}, Dispersion: 3}

	v := d.Vector(true)
	require.Len(t, v, 4)
	assert.InDelta(t, math.Log(3), v[3], 1e-12)

	e, err := DrawFromVector(v, 2, true)
	require.NoError(t, err)
	assert.InDelta(t, 3, e.Dispersion, 1e-12)
	assert.Equal(t, d.Coeff, e.Coeff)

	_, err = DrawFromVector(v, 2, false)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	// Clone must not share storage
	c := d.Clone()
	c.GetCoeff()[0] = 99
	assert.Equal(t, 1.0, d.Coeff[0])
}

func TestCheckDraws(t *testing.T) {

	draws := []Draw{{Coeff: []float64{1, 2}}, {Coeff: []float64{1}}}
	err := CheckDraws(draws, 2)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	assert.Contains(t, err.Error(), "draw 1")

	assert.True(t, errors.Is(CheckDraws(nil, 2), ErrShapeMismatch))
	assert.NoError(t, CheckDraws(draws[:1], 2))
}

func TestSummaryTable(t *testing.T) {

	tab := &SummaryTable{
		Title:    "Model comparison",
		Top:      []string{"Draws: 100", "Obs: 7"},
		ColNames: []string{"Model", "ELPD"},
		ColFmt:   []Fmter{FmtStrings, FmtFloats},
		Cols: []interface{}{
			[]string{"poisson", "normal"},
			[]float64{-10.5, -20.25},
		},
		Msg: []string{"note"},
	}

	s := tab.String()
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")

	assert.Contains(t, lines[0], "Model comparison")
	assert.Contains(t, s, "poisson")
	assert.Contains(t, s, "-20.2500")
	assert.Equal(t, "note", lines[len(lines)-1])
}
