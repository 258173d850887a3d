package glm

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mathext"

	"github.com/kshedden/bayesloo/statmodel"
)

// FamilyType is the type of likelihood family used in a model.
type FamilyType uint8

// GaussianFamily, PoissonFamily, NegBinomFamily are the supported
// likelihood families.
const (
	GaussianFamily FamilyType = iota
	PoissonFamily
	NegBinomFamily
)

// KernelFunc returns the log density (or log mass) of one observed
// response y, given the mean of the response and the dispersion.  The
// dispersion is ignored by families that do not have one.
type KernelFunc func(y, mean, disp float64) (float64, error)

// Family represents the likelihood of a regression model.
type Family struct {

	// The name of the family
	Name string

	// The numeric code for the family
	TypeCode FamilyType

	// The log density of a single response
	Kernel KernelFunc

	// The variance of the response as a function of the mean
	// and the dispersion
	Variance *Variance

	// True if the family has a dispersion parameter
	HasDispersion bool

	// The name used for the dispersion parameter in sampler output
	DispersionName string

	// The valid links for this family.  The first listed link
	// is the default.
	validLinks []LinkType

	// The log density given the log of the mean, used with the log
	// link so that very small means do not underflow to zero
	logMeanKernel KernelFunc

	// Derivative of the log density with respect to the mean
	scoreMean func(y, mn, disp float64) float64

	// Derivative of the log density with respect to the log of
	// the dispersion
	scoreLogDisp func(y, mn, disp float64) float64
}

// NewFamily returns a family object corresponding to the given type.
func NewFamily(fam FamilyType) *Family {

	switch fam {
	case GaussianFamily:
		return &gaussian
	case PoissonFamily:
		return &poisson
	case NegBinomFamily:
		return &negBinom
	default:
		msg := fmt.Sprintf("Unknown family: %v\n", fam)
		panic(msg)
	}
}

// ParseFamily returns the family with the given name.  Supported names
// are gaussian (or normal), poisson, and negbinom (or negbin,
// negative_binomial).
func ParseFamily(name string) (*Family, error) {

	switch strings.ToLower(name) {
	case "gaussian", "normal":
		return NewFamily(GaussianFamily), nil
	case "poisson":
		return NewFamily(PoissonFamily), nil
	case "negbinom", "negbin", "negative_binomial", "negativebinomial":
		return NewFamily(NegBinomFamily), nil
	default:
		return nil, fmt.Errorf("unknown family '%s'", name)
	}
}

var gaussian = Family{
	Name:           "Gaussian",
	TypeCode:       GaussianFamily,
	Kernel:         gaussianKernel,
	Variance:       &constVariance,
	HasDispersion:  true,
	DispersionName: "sigma",
	validLinks:     []LinkType{IdentityLink, LogLink},
	scoreMean:      gaussianScoreMean,
	scoreLogDisp:   gaussianScoreLogDisp,
}

var poisson = Family{
	Name:       "Poisson",
	TypeCode:   PoissonFamily,
	Kernel:        poissonKernel,
	Variance:      &identVariance,
	validLinks:    []LinkType{LogLink, IdentityLink},
	logMeanKernel: poissonLogMeanKernel,
	scoreMean:     poissonScoreMean,
}

var negBinom = Family{
	Name:           "NegBinom",
	TypeCode:       NegBinomFamily,
	Kernel:         negBinomKernel,
	Variance:       &negBinomVariance,
	HasDispersion:  true,
	DispersionName: "phi",
	validLinks:     []LinkType{LogLink, IdentityLink},
	logMeanKernel:  negBinomLogMeanKernel,
	scoreMean:      negBinomScoreMean,
	scoreLogDisp:   negBinomScoreLogDisp,
}

// DefaultLink returns the link that maps the linear predictor to the
// mean for this family: identity for Gaussian, log for the count
// families.
func (fam *Family) DefaultLink() *Link {
	return NewLink(fam.validLinks[0])
}

// IsValidLink returns true or false based on whether the link is
// valid for the family.
func (fam *Family) IsValidLink(link *Link) bool {

	for _, q := range fam.validLinks {
		if link.TypeCode == q {
			return true
		}
	}

	return false
}

// LogLike places the pointwise log-likelihood values of the responses
// y, with means mn, into out.  The first invalid value stops the
// calculation and the error identifies the observation.
func (fam *Family) LogLike(y []statmodel.Dtype, mn []float64, disp float64, out []float64) error {

	for i := range y {
		v, err := fam.Kernel(y[i], mn[i], disp)
		if err != nil {
			return fmt.Errorf("observation %d: %w", i, err)
		}
		out[i] = v
	}

	return nil
}

// SumLogLike returns the total log-likelihood of the responses y with
// means mn.
func (fam *Family) SumLogLike(y []statmodel.Dtype, mn []float64, disp float64) (float64, error) {

	var ll float64
	for i := range y {
		v, err := fam.Kernel(y[i], mn[i], disp)
		if err != nil {
			return 0, fmt.Errorf("observation %d: %w", i, err)
		}
		ll += v
	}

	return ll, nil
}

// LinearLogLike places the pointwise log-likelihood values of the
// responses y into out, given the linear predictors lp and the link.
// With the log link the count families are evaluated from the log mean
// directly.  lp and out may be the same slice.
func (fam *Family) LinearLogLike(y []statmodel.Dtype, lp []float64, link *Link, disp float64, out []float64) error {

	if link.TypeCode == LogLink && fam.logMeanKernel != nil {
		for i := range y {
			v, err := fam.logMeanKernel(y[i], lp[i], disp)
			if err != nil {
				return fmt.Errorf("observation %d: %w", i, err)
			}
			out[i] = v
		}
		return nil
	}

	link.InvLink(lp, out)
	return fam.LogLike(y, out, disp, out)
}

func gaussianKernel(y, mean, sigma float64) (float64, error) {
	return NormalLogPDF(mean, sigma, y)
}

func poissonKernel(y, mean, _ float64) (float64, error) {
	return PoissonLogPMF(mean, y)
}

func negBinomKernel(y, mean, gamma float64) (float64, error) {
	return NegBinomLogPMF(mean, gamma, y)
}

func poissonLogMeanKernel(y, logMean, _ float64) (float64, error) {
	return PoissonLogPMFLog(logMean, y)
}

func negBinomLogMeanKernel(y, logMean, gamma float64) (float64, error) {
	return NegBinomLogPMFLog(logMean, gamma, y)
}

var halfLog2Pi = 0.5 * math.Log(2*math.Pi)

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// checkCount confirms that y is a non-negative integer.
func checkCount(y float64) error {
	if !finite(y) || y < 0 || y != math.Trunc(y) {
		return fmt.Errorf("count response %v is not a non-negative integer: %w",
			y, statmodel.ErrInvalidParameter)
	}
	return nil
}

// NormalLogPDF returns the log density of y under a Normal distribution
// with location mu and scale sigma.
func NormalLogPDF(mu, sigma, y float64) (float64, error) {

	if !finite(sigma) || sigma <= 0 {
		return 0, fmt.Errorf("normal scale %v must be positive: %w", sigma, statmodel.ErrInvalidParameter)
	}
	if !finite(mu) || !finite(y) {
		return 0, fmt.Errorf("normal location %v and response %v must be finite: %w",
			mu, y, statmodel.ErrInvalidParameter)
	}

	z := (y - mu) / sigma

	return -math.Log(sigma) - halfLog2Pi - z*z/2, nil
}

// PoissonLogPMF returns the log probability of the count y under a
// Poisson distribution with rate lambda.
func PoissonLogPMF(lambda, y float64) (float64, error) {

	if !finite(lambda) || lambda <= 0 {
		return 0, fmt.Errorf("poisson rate %v must be positive: %w", lambda, statmodel.ErrInvalidParameter)
	}
	if err := checkCount(y); err != nil {
		return 0, err
	}

	return poissonLogPMF(lambda, math.Log(lambda), y), nil
}

// PoissonLogPMFLog is PoissonLogPMF with the rate given on the log
// scale.  A rate that underflows to zero is still valid.
func PoissonLogPMFLog(logLambda, y float64) (float64, error) {

	lambda := math.Exp(logLambda)
	if !finite(logLambda) || math.IsInf(lambda, 1) {
		return 0, fmt.Errorf("poisson log rate %v is out of range: %w", logLambda, statmodel.ErrInvalidParameter)
	}
	if err := checkCount(y); err != nil {
		return 0, err
	}

	return poissonLogPMF(lambda, logLambda, y), nil
}

func poissonLogPMF(lambda, logLambda, y float64) float64 {
	g, _ := math.Lgamma(y + 1)
	return y*logLambda - lambda - g
}

// NegBinomLogPMF returns the log probability of the count y under a
// negative binomial distribution with mean lambda and dispersion gamma,
// whose variance is lambda + lambda^2 / gamma.
func NegBinomLogPMF(lambda, gamma, y float64) (float64, error) {

	if !finite(lambda) || lambda <= 0 {
		return 0, fmt.Errorf("negative binomial mean %v must be positive: %w",
			lambda, statmodel.ErrInvalidParameter)
	}
	if err := checkNegBinom(gamma, y); err != nil {
		return 0, err
	}

	return negBinomLogPMF(lambda, math.Log(lambda), gamma, y), nil
}

// NegBinomLogPMFLog is NegBinomLogPMF with the mean given on the log
// scale.  A mean that underflows to zero is still valid.
func NegBinomLogPMFLog(logLambda, gamma, y float64) (float64, error) {

	lambda := math.Exp(logLambda)
	if !finite(logLambda) || math.IsInf(lambda, 1) {
		return 0, fmt.Errorf("negative binomial log mean %v is out of range: %w",
			logLambda, statmodel.ErrInvalidParameter)
	}
	if err := checkNegBinom(gamma, y); err != nil {
		return 0, err
	}

	return negBinomLogPMF(lambda, logLambda, gamma, y), nil
}

func checkNegBinom(gamma, y float64) error {
	if !finite(gamma) || gamma <= 0 {
		return fmt.Errorf("negative binomial dispersion %v must be positive: %w",
			gamma, statmodel.ErrInvalidParameter)
	}
	return checkCount(y)
}

func negBinomLogPMF(lambda, logLambda, gamma, y float64) float64 {

	// lgamma(y+gamma) - lgamma(gamma) - y*log(gamma+lambda).  For
	// moderate counts the product form keeps full precision when
	// gamma is large.
	var ll float64
	if y < 1000 {
		for j := 0; j < int(y); j++ {
			ll += math.Log1p((float64(j) - lambda) / (gamma + lambda))
		}
	} else {
		c1, _ := math.Lgamma(y + gamma)
		c2, _ := math.Lgamma(gamma)
		ll = c1 - c2 - y*math.Log(gamma+lambda)
	}

	c3, _ := math.Lgamma(y + 1)
	ll += y*logLambda - c3 - gamma*math.Log1p(lambda/gamma)

	return ll
}

func gaussianScoreMean(y, mn, sigma float64) float64 {
	return (y - mn) / (sigma * sigma)
}

func gaussianScoreLogDisp(y, mn, sigma float64) float64 {
	z := (y - mn) / sigma
	return z*z - 1
}

func poissonScoreMean(y, mn, _ float64) float64 {
	return y/mn - 1
}

func negBinomScoreMean(y, mn, gamma float64) float64 {
	return y/mn - (y+gamma)/(gamma+mn)
}

func negBinomScoreLogDisp(y, mn, gamma float64) float64 {

	// digamma(y+gamma) - digamma(gamma)
	var dg float64
	if y < 1000 {
		for j := 0; j < int(y); j++ {
			dg += 1 / (gamma + float64(j))
		}
	} else {
		dg = mathext.Digamma(y+gamma) - mathext.Digamma(gamma)
	}

	d := dg - math.Log1p(mn/gamma) + 1 - (gamma+y)/(gamma+mn)

	return gamma * d
}
