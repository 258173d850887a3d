package glm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kshedden/bayesloo/statmodel"
)

// Config defines the likelihood and priors of a regression model.
type Config struct {

	// The likelihood family
	Family *Family

	// The link function, if nil the default link of the family is used
	Link *Link

	// Standard deviation of independent mean-zero Normal priors on the
	// intercept and slopes.  If zero, the priors are flat.
	PriorScale float64

	// Standard deviation of a mean-zero Normal prior on the log of the
	// dispersion.  If zero, the prior is flat.
	DispersionPriorScale float64
}

// DefaultConfig returns default configuration values for a Model, using
// the Poisson family with its log link and flat priors.
func DefaultConfig() *Config {
	return &Config{
		Family: NewFamily(PoissonFamily),
	}
}

// Model is a regression model of responses on covariates, with the
// parameters given as an unconstrained vector: the intercept, the
// slopes, and the log of the dispersion if the family has one.
type Model struct {
	data *statmodel.Dataset

	fam  *Family
	link *Link

	priorScale     float64
	dispPriorScale float64
}

// NewModel returns a Model for the given data.
func NewModel(data *statmodel.Dataset, c *Config) (*Model, error) {

	if c == nil {
		c = DefaultConfig()
	}
	if c.Family == nil {
		return nil, fmt.Errorf("model has no family")
	}
	if err := data.Check(); err != nil {
		return nil, err
	}

	link := c.Link
	if link == nil {
		link = c.Family.DefaultLink()
	}
	if !c.Family.IsValidLink(link) {
		return nil, fmt.Errorf("link %s is not valid for family %s", link.Name, c.Family.Name)
	}

	return &Model{
		data:           data,
		fam:            c.Family,
		link:           link,
		priorScale:     c.PriorScale,
		dispPriorScale: c.DispersionPriorScale,
	}, nil
}

// Family returns the likelihood family of the model.
func (m *Model) Family() *Family {
	return m.fam
}

// Link returns the link function of the model.
func (m *Model) Link() *Link {
	return m.link
}

// Dataset returns the data that the model describes.
func (m *Model) Dataset() *statmodel.Dataset {
	return m.data
}

// NumParams returns the length of the unconstrained parameter vector.
func (m *Model) NumParams() int {
	n := 1 + m.data.NumCovariates()
	if m.fam.HasDispersion {
		n++
	}
	return n
}

// Draw converts an unconstrained parameter vector to a Draw.
func (m *Model) Draw(v []float64) (*statmodel.Draw, error) {
	return statmodel.DrawFromVector(v, m.data.NumCovariates(), m.fam.HasDispersion)
}

// LinearPredictor places intercept + X*coeff for the given draw into
// out, which must have one element per observation.
func LinearPredictor(data *statmodel.Dataset, draw *statmodel.Draw, out []float64) {
	for i := range out {
		out[i] = draw.Intercept
	}
	for j, x := range data.X {
		floats.AddScaled(out, draw.Coeff[j], x)
	}
}

// Means places the mean response for the given draw into out, using the
// link to map the linear predictor to the mean.
func Means(data *statmodel.Dataset, draw *statmodel.Draw, link *Link, out []float64) {
	LinearPredictor(data, draw, out)
	link.InvLink(out, out)
}

// LogLike returns the log posterior density (up to a constant) of the
// model at the given unconstrained parameter vector.
func (m *Model) LogLike(v []float64) (float64, error) {

	draw, err := m.Draw(v)
	if err != nil {
		return 0, err
	}

	ll := make([]float64, m.data.NumObs())
	LinearPredictor(m.data, draw, ll)
	if err := m.fam.LinearLogLike(m.data.Y, ll, m.link, draw.Dispersion, ll); err != nil {
		return 0, err
	}

	return floats.Sum(ll) + m.logPrior(v), nil
}

func (m *Model) logPrior(v []float64) float64 {

	var lp float64
	k := 1 + m.data.NumCovariates()

	if m.priorScale > 0 {
		for _, x := range v[0:k] {
			z := x / m.priorScale
			lp -= z * z / 2
		}
	}

	if m.fam.HasDispersion && m.dispPriorScale > 0 {
		z := v[k] / m.dispPriorScale
		lp -= z * z / 2
	}

	return lp
}

// Score places the gradient of the log posterior density at the given
// unconstrained parameter vector into score.
func (m *Model) Score(v []float64, score []float64) error {

	draw, err := m.Draw(v)
	if err != nil {
		return err
	}
	if len(score) != len(v) {
		return fmt.Errorf("score has length %d, expected %d: %w",
			len(score), len(v), statmodel.ErrShapeMismatch)
	}

	n := m.data.NumObs()
	mn := make([]float64, n)
	lderiv := make([]float64, n)
	fac := make([]float64, n)

	Means(m.data, draw, m.link, mn)
	m.link.Deriv(mn, lderiv)

	disp := draw.Dispersion
	for i, y := range m.data.Y {
		fac[i] = m.fam.scoreMean(y, mn[i], disp) / lderiv[i]
	}

	zero(score)
	score[0] = floats.Sum(fac)
	for j, x := range m.data.X {
		score[j+1] = floats.Dot(fac, x)
	}

	k := 1 + m.data.NumCovariates()
	if m.fam.HasDispersion {
		for i, y := range m.data.Y {
			score[k] += m.fam.scoreLogDisp(y, mn[i], disp)
		}
	}

	// Account for the priors
	if m.priorScale > 0 {
		s2 := m.priorScale * m.priorScale
		for j := 0; j < k; j++ {
			score[j] -= v[j] / s2
		}
	}
	if m.fam.HasDispersion && m.dispPriorScale > 0 {
		score[k] -= v[k] / (m.dispPriorScale * m.dispPriorScale)
	}

	for _, s := range score {
		if math.IsNaN(s) {
			return fmt.Errorf("score is not defined at %v: %w", v, statmodel.ErrInvalidParameter)
		}
	}

	return nil
}

// zero sets all elements of the slice to 0
func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}
