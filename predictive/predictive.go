// Package predictive draws replicated responses from the posterior
// predictive distribution of a regression model, and summarizes that
// distribution observation by observation.
package predictive

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kshedden/bayesloo/glm"
	"github.com/kshedden/bayesloo/statmodel"
)

// genNegBinom draws a negative binomial value with the given mean and
// shape as a gamma mixture of Poisson distributions.
func genNegBinom(mean, gamma float64, src rand.Source) float64 {

	g := distuv.Gamma{Alpha: gamma, Beta: gamma / mean, Src: src}
	lam := g.Rand()

	po := distuv.Poisson{Lambda: lam, Src: src}
	return po.Rand()
}

// sampler returns a function drawing one response with the given mean
// from the family, with dispersion disp.
func sampler(fam *glm.Family, disp float64, src rand.Source) func(mean float64) float64 {

	switch fam.TypeCode {
	case glm.GaussianFamily:
		return func(mean float64) float64 {
			return distuv.Normal{Mu: mean, Sigma: disp, Src: src}.Rand()
		}
	case glm.PoissonFamily:
		return func(mean float64) float64 {
			if mean == 0 {
				return 0
			}
			return distuv.Poisson{Lambda: mean, Src: src}.Rand()
		}
	case glm.NegBinomFamily:
		return func(mean float64) float64 {
			if mean == 0 {
				return 0
			}
			return genNegBinom(mean, disp, src)
		}
	default:
		msg := fmt.Sprintf("Unknown family: %v\n", fam.TypeCode)
		panic(msg)
	}
}

// Config specifies how the draws are mapped to predictive
// distributions.
type Config struct {

	// The link function, if nil the default link of the family is used
	Link *glm.Link
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{}
}

// chooseLink returns the link named in c, or the default link of the
// family, after checking that the family supports it.
func chooseLink(fam *glm.Family, c *Config) (*glm.Link, error) {

	var link *glm.Link
	if c != nil {
		link = c.Link
	}
	if link == nil {
		link = fam.DefaultLink()
	}
	if !fam.IsValidLink(link) {
		return nil, fmt.Errorf("link %s is not valid for family %s", link.Name, fam.Name)
	}

	return link, nil
}

// checkDraw confirms that the means and dispersion of one draw define a
// distribution in the family.
func checkDraw(fam *glm.Family, mn []float64, disp float64) error {

	if fam.HasDispersion && !(disp > 0 && !math.IsInf(disp, 1)) {
		return fmt.Errorf("%s must be positive and finite, got %v: %w",
			fam.DispersionName, disp, statmodel.ErrInvalidParameter)
	}

	for i, m := range mn {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return fmt.Errorf("observation %d: mean %v is not finite: %w", i, m, statmodel.ErrInvalidParameter)
		}
		if fam.TypeCode != glm.GaussianFamily && m < 0 {
			return fmt.Errorf("observation %d: mean %v is negative: %w", i, m, statmodel.ErrInvalidParameter)
		}
	}

	return nil
}

// Simulate returns an S x M matrix whose row s holds one replicated
// response for every observation, drawn from the family at draw s.  The
// covariates of data are used, its responses are not.  The link in c,
// or the default link of the family if c is nil, maps linear predictors
// to means.
func Simulate(data *statmodel.Dataset, draws []statmodel.Draw, fam *glm.Family, c *Config, src rand.Source) (*mat.Dense, error) {

	if err := data.Check(); err != nil {
		return nil, err
	}
	if err := statmodel.CheckDraws(draws, data.NumCovariates()); err != nil {
		return nil, err
	}

	link, err := chooseLink(fam, c)
	if err != nil {
		return nil, err
	}
	n := data.NumObs()
	yrep := mat.NewDense(len(draws), n, nil)

	mn := make([]float64, n)
	for s := range draws {
		glm.Means(data, &draws[s], link, mn)
		if err := checkDraw(fam, mn, draws[s].Dispersion); err != nil {
			return nil, fmt.Errorf("draw %d: %w", s, err)
		}

		gen := sampler(fam, draws[s].Dispersion, src)
		row := yrep.RawRowView(s)
		for i, m := range mn {
			row[i] = gen(m)
		}
	}

	return yrep, nil
}

// Moments returns the mean and variance of the posterior predictive
// distribution of every observation.  The variance combines the average
// of the within-draw variances with the variance of the means across
// draws.  The link is chosen as in Simulate.
func Moments(data *statmodel.Dataset, draws []statmodel.Draw, fam *glm.Family, c *Config) ([]float64, []float64, error) {

	if err := data.Check(); err != nil {
		return nil, nil, err
	}
	if err := statmodel.CheckDraws(draws, data.NumCovariates()); err != nil {
		return nil, nil, err
	}

	link, err := chooseLink(fam, c)
	if err != nil {
		return nil, nil, err
	}
	n := data.NumObs()
	ns := float64(len(draws))

	mean := make([]float64, n)
	ev := make([]float64, n)
	m2 := make([]float64, n)

	mn := make([]float64, n)
	va := make([]float64, n)
	for s := range draws {
		glm.Means(data, &draws[s], link, mn)
		if err := checkDraw(fam, mn, draws[s].Dispersion); err != nil {
			return nil, nil, fmt.Errorf("draw %d: %w", s, err)
		}
		fam.Variance.Var(mn, draws[s].Dispersion, va)
		for i := range mn {
			mean[i] += mn[i] / ns
			ev[i] += va[i] / ns
			m2[i] += mn[i] * mn[i] / ns
		}
	}

	vr := make([]float64, n)
	for i := range vr {
		vr[i] = ev[i] + math.Max(m2[i]-mean[i]*mean[i], 0)
	}

	return mean, vr, nil
}
