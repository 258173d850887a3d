package loo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/kshedden/bayesloo/approx"
	"github.com/kshedden/bayesloo/glm"
	"github.com/kshedden/bayesloo/loglik"
	"github.com/kshedden/bayesloo/loo"
	"github.com/kshedden/bayesloo/predictive"
	"github.com/kshedden/bayesloo/statmodel"
)

// Overdispersed counts are best described by the negative binomial
// model, and worst by the Normal model.
func TestCompareFamilies(t *testing.T) {

	truth := &statmodel.Draw{
		Intercept:  1.3,
		Coeff:      []float64{-0.3, 0.7, 0.1, -0.15},
		Dispersion: 2,
	}
	da, err := predictive.SyntheticCounts(120, 4, truth, glm.NewFamily(glm.NegBinomFamily), rand.NewSource(2024))
	require.NoError(t, err)

	ctx := context.Background()
	var models []loo.Named
	for j, ft := range []glm.FamilyType{glm.GaussianFamily, glm.PoissonFamily, glm.NegBinomFamily} {
		c := glm.DefaultConfig()
		c.Family = glm.NewFamily(ft)
		c.PriorScale = 5
		c.DispersionPriorScale = 5
		model, err := glm.NewModel(da, c)
		require.NoError(t, err)

		fit, err := approx.Fit(model, nil)
		require.NoError(t, err)

		draws, err := fit.Draws(1000, rand.NewSource(uint64(100+j)))
		require.NoError(t, err)

		ll, err := loglik.Build(ctx, da, draws, c.Family, nil)
		require.NoError(t, err)

		rslt, err := loo.Compute(ctx, ll, nil)
		require.NoError(t, err)
		assert.Equal(t, 1000, rslt.NumDraws)
		assert.Equal(t, 480, rslt.NumObs)
		assert.LessOrEqual(t, rslt.ELPD, rslt.LPD+1e-8)

		models = append(models, loo.Named{Name: c.Family.Name, Result: rslt})
	}

	cmp, err := loo.Compare(models)
	require.NoError(t, err)

	assert.Equal(t, "NegBinom", cmp.Best())
	for _, row := range cmp.Rows[1:] {
		assert.Less(t, row.ELPDDiff, 0.0)
		assert.Greater(t, row.SEDiff, 0.0)
	}

	var normal loo.CompareRow
	for _, row := range cmp.Rows {
		if row.Name == "Gaussian" {
			normal = row
		}
	}
	assert.Less(t, normal.ELPD, cmp.Rows[0].ELPD)
}
