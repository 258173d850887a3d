package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kshedden/bayesloo/glm"
	"github.com/kshedden/bayesloo/statmodel"
)

// DrawNames gives the column names of the parameters in a draws file.
// Slope k (counting from 1) is read from the column Coeff.k, or from
// Coeff[k].
type DrawNames struct {
	Intercept  string `yaml:"intercept"`
	Coeff      string `yaml:"coeff"`
	Dispersion string `yaml:"dispersion"`
}

// DefaultDrawNames returns the parameter names used by the workshop
// models, alpha for the intercept and beta for the slopes, with sigma
// or phi for the dispersion.
func DefaultDrawNames(fam *glm.Family) DrawNames {
	return DrawNames{
		Intercept:  "alpha",
		Coeff:      "beta",
		Dispersion: fam.DispersionName,
	}
}

// coeffIndex returns k if name is the column of slope k.
func coeffIndex(name, prefix string) (int, bool) {

	var s string
	switch {
	case strings.HasPrefix(name, prefix+"."):
		s = name[len(prefix)+1:]
	case strings.HasPrefix(name, prefix+"[") && strings.HasSuffix(name, "]"):
		s = name[len(prefix)+1 : len(name)-1]
	default:
		return 0, false
	}

	k, err := strconv.Atoi(s)
	if err != nil || k < 1 {
		return 0, false
	}
	return k, true
}

// ReadDraws reads posterior draws from a CmdStan CSV file.  Comment
// lines are skipped, and columns other than the parameters in names
// (lp__, diagnostics, generated quantities) are ignored.  The number of
// slopes is the number of slope columns present, which must be numbered
// consecutively from 1.
func ReadDraws(path string, names DrawNames) ([]statmodel.Draw, error) {

	tab, err := readTable(path, "")
	if err != nil {
		return nil, err
	}
	pos := tab.pos()

	ipos, ok := pos[names.Intercept]
	if !ok {
		return nil, fmt.Errorf("%s: no column named '%s'", path, names.Intercept)
	}

	cpos := make(map[int]int)
	for j, h := range tab.header {
		if k, ok := coeffIndex(h, names.Coeff); ok {
			cpos[k] = j
		}
	}
	kk := len(cpos)
	for k := 1; k <= kk; k++ {
		if _, ok := cpos[k]; !ok {
			return nil, fmt.Errorf("%s: slope columns are not numbered 1 to %d: %w",
				path, kk, statmodel.ErrShapeMismatch)
		}
	}

	dpos := -1
	if names.Dispersion != "" {
		dpos, ok = pos[names.Dispersion]
		if !ok {
			return nil, fmt.Errorf("%s: no column named '%s'", path, names.Dispersion)
		}
	}

	icept, err := tab.column(ipos)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	coeff := make([][]float64, kk)
	for k := range coeff {
		coeff[k], err = tab.column(cpos[k+1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	var disp []float64
	if dpos >= 0 {
		disp, err = tab.column(dpos)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	draws := make([]statmodel.Draw, len(icept))
	row := make([]float64, kk)
	for s := range draws {
		draws[s].Intercept = icept[s]
		for k := range coeff {
			row[k] = coeff[k][s]
		}
		draws[s].SetCoeff(row)
		if disp != nil {
			draws[s].Dispersion = disp[s]
		}
	}

	return draws, nil
}

// WriteDraws writes the draws to a CSV file in the layout read by
// ReadDraws.  The dispersion column is omitted if names.Dispersion is
// empty.
func WriteDraws(path string, draws []statmodel.Draw, names DrawNames) error {

	var k int
	if len(draws) > 0 {
		k = len(draws[0].Coeff)
	}
	if err := statmodel.CheckDraws(draws, k); err != nil {
		return err
	}

	header := []string{names.Intercept}
	cols := [][]float64{make([]float64, len(draws))}
	for j := 1; j <= k; j++ {
		header = append(header, fmt.Sprintf("%s.%d", names.Coeff, j))
		cols = append(cols, make([]float64, len(draws)))
	}
	if names.Dispersion != "" {
		header = append(header, names.Dispersion)
		cols = append(cols, make([]float64, len(draws)))
	}

	for s, d := range draws {
		cols[0][s] = d.Intercept
		for j, b := range d.Coeff {
			cols[j+1][s] = b
		}
		if names.Dispersion != "" {
			cols[k+1][s] = d.Dispersion
		}
	}

	return writeTable(path, header, cols)
}
