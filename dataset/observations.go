package dataset

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kshedden/bayesloo/statmodel"
)

// ColumnSpec selects the columns of an observation table.
type ColumnSpec struct {

	// Name of the response column
	Response string `yaml:"response"`

	// Names of the covariate columns, in the order of the slopes
	Covariates []string `yaml:"covariates"`

	// Covariates to center and scale to unit standard deviation
	Standardize []string `yaml:"standardize"`

	// The sheet to read from an XLSX file, the first sheet if empty
	Sheet string `yaml:"sheet"`
}

// ReadObservations reads the responses and covariates named in cols from
// a CSV or XLSX file.
func ReadObservations(path string, cols ColumnSpec) (*statmodel.Dataset, error) {

	for _, na := range cols.Standardize {
		if !slices.Contains(cols.Covariates, na) {
			return nil, fmt.Errorf("cannot standardize '%s', it is not a covariate", na)
		}
	}

	tab, err := readTable(path, cols.Sheet)
	if err != nil {
		return nil, err
	}
	pos := tab.pos()

	get := func(na string) ([]float64, error) {
		j, ok := pos[na]
		if !ok {
			return nil, fmt.Errorf("%s: no column named '%s'", path, na)
		}
		x, err := tab.column(j)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return x, nil
	}

	y, err := get(cols.Response)
	if err != nil {
		return nil, err
	}

	var x [][]statmodel.Dtype
	for _, na := range cols.Covariates {
		z, err := get(na)
		if err != nil {
			return nil, err
		}
		if slices.Contains(cols.Standardize, na) {
			standardize(z)
		}
		x = append(x, z)
	}

	names := append([]string(nil), cols.Covariates...)
	return statmodel.NewDataset(y, x, names)
}

// standardize centers x and scales it to unit standard deviation.
func standardize(x []float64) {
	mean, sd := stat.MeanStdDev(x, nil)
	floats.AddConst(-mean, x)
	if sd > 0 {
		floats.Scale(1/sd, x)
	}
}

// WriteObservations writes the responses and covariates to a CSV or XLSX
// file, the response column named response.
func WriteObservations(path string, data *statmodel.Dataset, response string) error {

	if err := data.Check(); err != nil {
		return err
	}

	header := append([]string{response}, data.XNames...)
	cols := append([][]float64{data.Y}, data.X...)

	return writeTable(path, header, cols)
}
