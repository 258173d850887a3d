package loo

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/kshedden/bayesloo/statmodel"
)

// Named is a PSIS-LOO result labeled with the name of its model.
type Named struct {
	Name   string
	Result *Result
}

// CompareRow describes one model in a comparison, relative to the model
// with the largest ELPD.
type CompareRow struct {
	Name     string  `json:"name"`
	ELPD     float64 `json:"elpd_loo"`
	SE       float64 `json:"se"`
	ELPDDiff float64 `json:"elpd_diff"`
	SEDiff   float64 `json:"se_diff"`
	PLOO     float64 `json:"p_loo"`
	LOOIC    float64 `json:"looic"`
	Flagged  int     `json:"flagged"`
}

// PairDiff is the ELPD difference between two models, Better having the
// larger ELPD, with the standard error of the difference.
type PairDiff struct {
	Better string  `json:"better"`
	Worse  string  `json:"worse"`
	Diff   float64 `json:"elpd_diff"`
	SE     float64 `json:"se"`
}

// Comparison ranks a collection of models by their ELPD.
type Comparison struct {

	// One row per model, in decreasing order of ELPD
	Rows []CompareRow

	models []Named
}

// Compare ranks the given models by ELPD.  The models must have been
// evaluated on the same observations, since the standard errors of the
// differences are computed from the paired pointwise contributions.
func Compare(models []Named) (*Comparison, error) {

	if len(models) == 0 {
		return nil, fmt.Errorf("no models to compare")
	}

	seen := make(map[string]bool)
	nobs := models[0].Result.NumObs
	for _, m := range models {
		if m.Result.NumObs != nobs || len(m.Result.Pointwise) != nobs {
			return nil, fmt.Errorf("model '%s' has %d observations, model '%s' has %d: %w",
				m.Name, m.Result.NumObs, models[0].Name, nobs, statmodel.ErrShapeMismatch)
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("model name '%s' is used more than once", m.Name)
		}
		seen[m.Name] = true
	}

	ranked := make([]Named, len(models))
	copy(ranked, models)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Result.ELPD > ranked[j].Result.ELPD
	})

	best := ranked[0].Result
	cmp := &Comparison{models: ranked}
	for _, m := range ranked {
		r := m.Result
		row := CompareRow{
			Name:    m.Name,
			ELPD:    r.ELPD,
			SE:      r.SE,
			PLOO:    r.PLOO,
			LOOIC:   r.LOOIC(),
			Flagged: len(r.Flagged()),
		}
		if r != best {
			row.ELPDDiff = r.ELPD - best.ELPD
			row.SEDiff = diffSE(best.Pointwise, r.Pointwise)
		}
		cmp.Rows = append(cmp.Rows, row)
	}

	return cmp, nil
}

// diffSE returns the standard error of the summed difference between
// two paired vectors of pointwise ELPD values.
func diffSE(a, b []float64) float64 {
	d := make([]float64, len(a))
	floats.SubTo(d, a, b)
	return sumSE(d)
}

// Best returns the name of the model with the largest ELPD.
func (c *Comparison) Best() string {
	return c.Rows[0].Name
}

// Pairwise returns the ELPD difference and its standard error for every
// pair of models, the higher ranked model first.
func (c *Comparison) Pairwise() []PairDiff {

	var pd []PairDiff
	for i, a := range c.models {
		for _, b := range c.models[i+1:] {
			pd = append(pd, PairDiff{
				Better: a.Name,
				Worse:  b.Name,
				Diff:   a.Result.ELPD - b.Result.ELPD,
				SE:     diffSE(a.Result.Pointwise, b.Result.Pointwise),
			})
		}
	}

	return pd
}

// Summary returns a table of the ranked models.
func (c *Comparison) Summary() *statmodel.SummaryTable {

	var names []string
	var elpd, se, dif, dse, ploo, looic []float64
	var flagged []int
	for _, r := range c.Rows {
		names = append(names, r.Name)
		elpd = append(elpd, r.ELPD)
		se = append(se, r.SE)
		dif = append(dif, r.ELPDDiff)
		dse = append(dse, r.SEDiff)
		ploo = append(ploo, r.PLOO)
		looic = append(looic, r.LOOIC)
		flagged = append(flagged, r.Flagged)
	}

	fs, fn := statmodel.FmtStrings, statmodel.FmtFloats

	tab := &statmodel.SummaryTable{
		Title: "PSIS-LOO model comparison",
		Top: []string{
			fmt.Sprintf("Models:       %d", len(c.Rows)),
			fmt.Sprintf("Observations: %d", c.models[0].Result.NumObs),
		},
		ColNames: []string{"Model", "elpd_diff", "se_diff", "elpd_loo", "se", "p_loo", "looic", "k>=thresh"},
		ColFmt:   []statmodel.Fmter{fs, fn, fn, fn, fn, fn, fn, statmodel.FmtInts},
		Cols:     []interface{}{names, dif, dse, elpd, se, ploo, looic, flagged},
	}

	for _, p := range c.Pairwise() {
		z := p.Diff / p.SE
		if math.IsNaN(z) {
			z = 0
		}
		tab.Msg = append(tab.Msg, fmt.Sprintf("%s - %s: %.2f (SE %.2f, %.1f SE)",
			p.Better, p.Worse, p.Diff, p.SE, z))
	}

	return tab
}
