package predictive

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kshedden/bayesloo/glm"
	"github.com/kshedden/bayesloo/statmodel"
)

// PanelNames are the covariate names of the data produced by
// SyntheticCounts.
var PanelNames = []string{"Trt", "zBase", "zAge", "V4"}

// standardize centers x and scales it to unit standard deviation.
func standardize(x []float64) {
	mean, sd := stat.MeanStdDev(x, nil)
	floats.AddConst(-mean, x)
	if sd > 0 {
		floats.Scale(1/sd, x)
	}
}

// SyntheticCounts generates a panel of n subjects observed at the given
// number of visits, resembling a clinical trial of seizure counts.  The
// covariates are a treatment indicator, the standardized log baseline
// count, the standardized age, and an indicator of the final visit.  The
// responses are drawn from the family using the parameters in truth,
// which must carry four slopes.
func SyntheticCounts(n, visits int, truth *statmodel.Draw, fam *glm.Family, src rand.Source) (*statmodel.Dataset, error) {

	if n < 2 || visits < 1 {
		return nil, fmt.Errorf("panel needs at least two subjects and one visit, got %d and %d: %w",
			n, visits, statmodel.ErrInvalidParameter)
	}
	if len(truth.Coeff) != len(PanelNames) {
		return nil, fmt.Errorf("panel has %d covariates, got %d coefficients: %w",
			len(PanelNames), len(truth.Coeff), statmodel.ErrShapeMismatch)
	}

	rng := rand.New(src)
	base := make([]float64, n)
	age := make([]float64, n)
	bg := distuv.Gamma{Alpha: 2, Beta: 0.06, Src: src}
	for i := range base {
		base[i] = math.Log(bg.Rand()/4 + 1)
		age[i] = 28 + 6*rng.NormFloat64()
	}
	standardize(base)
	standardize(age)

	m := n * visits
	x := make([][]statmodel.Dtype, len(PanelNames))
	for j := range x {
		x[j] = make([]statmodel.Dtype, m)
	}

	var ii int
	for i := 0; i < n; i++ {
		for v := 1; v <= visits; v++ {
			x[0][ii] = float64(i % 2)
			x[1][ii] = base[i]
			x[2][ii] = age[i]
			if v == visits {
				x[3][ii] = 1
			}
			ii++
		}
	}

	data, err := statmodel.NewDataset(make([]statmodel.Dtype, m), x, append([]string(nil), PanelNames...))
	if err != nil {
		return nil, err
	}

	yrep, err := Simulate(data, []statmodel.Draw{*truth.Clone()}, fam, nil, src)
	if err != nil {
		return nil, err
	}
	copy(data.Y, yrep.RawRowView(0))

	return data, nil
}
