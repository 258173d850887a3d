package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/kshedden/bayesloo/glm"
	"github.com/kshedden/bayesloo/statmodel"
)

const seizureCSV = `patient,visit,y,Trt,Base,Age
1,1,5,0,11,31
1,2,3,0,11,31
2,1,3,1,11,30
2,2,3,1,11,30
3,1,2,0,6,25
3,2,4,0,6,25
`

func writeFile(t *testing.T, name, contents string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestReadObservationsCSV(t *testing.T) {

	path := writeFile(t, "seizure.csv", seizureCSV)

	da, err := ReadObservations(path, ColumnSpec{
		Response:    "y",
		Covariates:  []string{"Trt", "Base", "Age"},
		Standardize: []string{"Age"},
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{5, 3, 3, 3, 2, 4}, da.Y)
	assert.Equal(t, []string{"Trt", "Base", "Age"}, da.XNames)
	assert.Equal(t, []float64{0, 0, 1, 1, 0, 0}, da.X[0])
	assert.Equal(t, []float64{11, 11, 11, 11, 6, 6}, da.X[1])

	m, sd := stat.MeanStdDev(da.X[2], nil)
	assert.InDelta(t, 0, m, 1e-12)
	assert.InDelta(t, 1, sd, 1e-12)
}

func TestReadObservationsErrors(t *testing.T) {

	path := writeFile(t, "seizure.csv", seizureCSV)

	_, err := ReadObservations(path, ColumnSpec{Response: "count", Covariates: []string{"Trt"}})
	assert.ErrorContains(t, err, "no column named 'count'")

	_, err = ReadObservations(path, ColumnSpec{Response: "y", Covariates: []string{"Trt"}, Standardize: []string{"Age"}})
	assert.ErrorContains(t, err, "not a covariate")

	bad := writeFile(t, "bad.csv", "y,x\n1,2\nfoo,3\n")
	_, err = ReadObservations(bad, ColumnSpec{Response: "y", Covariates: []string{"x"}})
	assert.ErrorContains(t, err, "row 2")

	_, err = ReadObservations(filepath.Join(t.TempDir(), "missing.csv"), ColumnSpec{Response: "y"})
	assert.Error(t, err)
}

func TestObservationsExcel(t *testing.T) {

	da, err := statmodel.NewDataset(
		[]float64{0, 3, 1, 7},
		[][]float64{{1, 0, 1, 0}, {-0.25, 1.5, 0.125, 2.75}},
		[]string{"Trt", "zBase"})
	require.NoError(t, err)

	for _, name := range []string{"obs.xlsx", "obs.csv"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, WriteObservations(path, da, "y"))

		db, err := ReadObservations(path, ColumnSpec{Response: "y", Covariates: []string{"zBase", "Trt"}})
		require.NoError(t, err)
		assert.Equal(t, da.Y, db.Y)
		assert.Equal(t, da.X[1], db.X[0])
		assert.Equal(t, da.X[0], db.X[1])
	}
}

const cmdstanCSV = `# stan_version_major = 2
# model = negbinom_model
lp__,accept_stat__,alpha,beta.1,beta.2,phi,y_rep.1
-10.5,0.9,1.25,0.5,-0.25,3.5,4
# Adaptation terminated
-11.0,0.8,1.5,0.25,-0.5,2.5,1
-12.0,0.95,1.0,0.75,0,4.0,0
`

func TestReadDraws(t *testing.T) {

	path := writeFile(t, "output.csv", cmdstanCSV)

	draws, err := ReadDraws(path, DefaultDrawNames(glm.NewFamily(glm.NegBinomFamily)))
	require.NoError(t, err)
	require.Len(t, draws, 3)

	assert.Equal(t, 1.25, draws[0].Intercept)
	assert.Equal(t, []float64{0.25, -0.5}, draws[1].Coeff)
	assert.Equal(t, 4.0, draws[2].Dispersion)

	// Poisson models have no dispersion column
	draws, err = ReadDraws(path, DefaultDrawNames(glm.NewFamily(glm.PoissonFamily)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, draws[0].Dispersion)

	_, err = ReadDraws(path, DefaultDrawNames(glm.NewFamily(glm.GaussianFamily)))
	assert.ErrorContains(t, err, "no column named 'sigma'")

	gap := writeFile(t, "gap.csv", "alpha,beta[1],beta[3]\n1,2,3\n")
	_, err = ReadDraws(gap, DrawNames{Intercept: "alpha", Coeff: "beta"})
	assert.ErrorIs(t, err, statmodel.ErrShapeMismatch)
}

func TestWriteDraws(t *testing.T) {

	draws := []statmodel.Draw{
		{Intercept: 0.5, Coeff: []float64{1, -2}, Dispersion: 1.5},
		{Intercept: -0.5, Coeff: []float64{0.125, 3}, Dispersion: 0.75},
	}
	names := DefaultDrawNames(glm.NewFamily(glm.GaussianFamily))

	path := filepath.Join(t.TempDir(), "draws.csv")
	require.NoError(t, WriteDraws(path, draws, names))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "alpha,beta.1,beta.2,sigma\n")

	back, err := ReadDraws(path, names)
	require.NoError(t, err)
	assert.Equal(t, draws, back)
}

func TestCompressedDraws(t *testing.T) {

	draws := []statmodel.Draw{
		{Intercept: 1.5, Coeff: []float64{0.25}, Dispersion: 2},
		{Intercept: 1.25, Coeff: []float64{-0.75}, Dispersion: 3},
	}
	names := DefaultDrawNames(glm.NewFamily(glm.NegBinomFamily))

	for _, name := range []string{"draws.csv.gz", "draws.csv.zst"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, WriteDraws(path, draws, names))

		back, err := ReadDraws(path, names)
		require.NoError(t, err, name)
		assert.Equal(t, draws, back, name)
	}
}
