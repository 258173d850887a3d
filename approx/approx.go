// Package approx approximates the posterior distribution of a glm.Model
// by a multivariate Normal distribution centered at the posterior mode,
// with covariance given by the inverse of the negative Hessian of the
// log posterior there.  Draws from the approximation stand in for the
// output of an external sampler in demonstrations and tests.
package approx

import (
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/kshedden/bayesloo/glm"
	"github.com/kshedden/bayesloo/statmodel"
)

// Config configures the search for the posterior mode.
type Config struct {

	// Starting values on the unconstrained scale, if nil the
	// starting values are derived from the responses.
	Start []float64

	// OptMethod is the Gonum optimization used to find the mode.
	OptMethod optimize.Method

	// OptSettings configures the Gonum optimization routine.
	OptSettings *optimize.Settings

	// The largest number of Newton steps taken from the point
	// returned by the optimizer.
	NewtonSteps int

	// The mode is accepted when no element of the score exceeds
	// ScoreTolerance times the number of observations.
	ScoreTolerance float64

	// Logger receives a record of the fit, if nil nothing is logged.
	Logger *slog.Logger
}

// DefaultConfig returns default configuration values for Fit.
func DefaultConfig() *Config {
	return &Config{
		OptMethod: &optimize.BFGS{
			Linesearcher: &optimize.MoreThuente{},
		},
		OptSettings: &optimize.Settings{
			GradientThreshold: 1e-6,
		},
		NewtonSteps:    20,
		ScoreTolerance: 1e-6,
	}
}

// Result is a Normal approximation to a posterior distribution.
type Result struct {
	model *glm.Model

	// The posterior mode on the unconstrained scale
	Mode []float64

	// The log posterior density at the mode, up to a constant
	LogPost float64

	// The covariance of the approximation
	VCov *mat.SymDense

	// Names of the parameters
	Names []string
}

func negative(x []float64) {
	for i := range x {
		x[i] *= -1
	}
}

// startValues uses the mean response for the intercept and, for the
// Normal family, the standard deviation of the responses for sigma.
func startValues(model *glm.Model) []float64 {

	x := make([]float64, model.NumParams())
	mean, sd := stat.MeanStdDev(model.Dataset().Y, nil)

	switch model.Link().TypeCode {
	case glm.LogLink:
		x[0] = math.Log(math.Max(mean, 0.1))
	default:
		x[0] = mean
	}

	if model.Family().HasDispersion && model.Family().TypeCode == glm.GaussianFamily {
		x[len(x)-1] = math.Log(math.Max(sd, 1e-3))
	}

	return x
}

// paramNames returns the names of the unconstrained parameters.
func paramNames(model *glm.Model) []string {
	names := []string{"Intercept"}
	names = append(names, model.Dataset().XNames...)
	if fam := model.Family(); fam.HasDispersion {
		names = append(names, fmt.Sprintf("log(%s)", fam.DispersionName))
	}
	return names
}

// Fit locates the posterior mode of the model and returns the Normal
// approximation centered there.
func Fit(model *glm.Model, c *Config) (*Result, error) {

	if c == nil {
		c = DefaultConfig()
	}

	start := c.Start
	if start == nil {
		start = startValues(model)
	}
	if len(start) != model.NumParams() {
		return nil, fmt.Errorf("%d starting values for %d parameters: %w",
			len(start), model.NumParams(), statmodel.ErrShapeMismatch)
	}

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			ll, err := model.LogLike(x)
			if err != nil {
				return math.Inf(1)
			}
			return -ll
		},
		Grad: func(grad, x []float64) {
			if err := model.Score(x, grad); err != nil {
				for i := range grad {
					grad[i] = math.NaN()
				}
				return
			}
			negative(grad)
		},
	}

	// The line search stops once the change in the objective is lost
	// in rounding, which may happen before the gradient threshold is
	// reached.  The point is kept and refined by Newton steps.
	optrslt, err := optimize.Minimize(p, start, c.OptSettings, c.OptMethod)
	if err == nil && optrslt != nil {
		err = optrslt.Status.Err()
	}
	if optrslt == nil {
		return nil, fmt.Errorf("posterior mode: %w", err)
	}

	mode := make([]float64, len(optrslt.X))
	copy(mode, optrslt.X)

	steps := c.NewtonSteps
	if steps <= 0 {
		steps = 20
	}
	tol := c.ScoreTolerance
	if tol <= 0 {
		tol = 1e-6
	}
	tol *= float64(model.Dataset().NumObs() + 1)

	gmax, perr := polish(model, mode, steps, tol)
	if perr != nil {
		return nil, fmt.Errorf("posterior mode: %w", perr)
	}
	if gmax > tol {
		if err == nil {
			err = statmodel.ErrInvalidParameter
		}
		return nil, fmt.Errorf("posterior mode: largest score %g exceeds %g: %w", gmax, tol, err)
	}

	logpost, lerr := model.LogLike(mode)
	if lerr != nil {
		return nil, fmt.Errorf("posterior mode: %w", lerr)
	}

	vcov, verr := covariance(model, mode)
	if verr != nil {
		return nil, verr
	}

	if c.Logger != nil {
		c.Logger.Debug("laplace approximation",
			"family", model.Family().Name,
			"iterations", optrslt.MajorIterations,
			"evaluations", optrslt.FuncEvaluations,
			"status", optrslt.Status.String(),
			"score", gmax,
			"logpost", logpost)
	}

	return &Result{
		model:   model,
		Mode:    mode,
		LogPost: logpost,
		VCov:    vcov,
		Names:   paramNames(model),
	}, nil
}

// polish takes Newton steps on the analytic score, updating x in place,
// until the largest absolute score is below tol or maxIter steps have
// been taken.  A step is halved until it reduces the score.  The largest
// absolute score at the final x is returned.
func polish(model *glm.Model, x []float64, maxIter int, tol float64) (float64, error) {

	np := len(x)
	score := make([]float64, np)
	trial := make([]float64, np)
	tscore := make([]float64, np)

	if err := model.Score(x, score); err != nil {
		return 0, err
	}
	gmax := floats.Norm(score, math.Inf(1))

	for iter := 0; iter < maxIter && gmax > tol/100; iter++ {

		nhess, err := negHessian(model, x)
		if err != nil {
			return gmax, err
		}
		var chol mat.Cholesky
		if ok := chol.Factorize(nhess); !ok {
			return gmax, nil
		}
		var step mat.VecDense
		if err := chol.SolveVecTo(&step, mat.NewVecDense(np, score)); err != nil {
			return gmax, nil
		}

		improved := false
		for h := 1.0; h > 1e-4; h /= 2 {
			floats.AddScaledTo(trial, x, h, step.RawVector().Data)
			if model.Score(trial, tscore) != nil {
				continue
			}
			if g := floats.Norm(tscore, math.Inf(1)); g < gmax {
				copy(x, trial)
				copy(score, tscore)
				gmax = g
				improved = true
				break
			}
		}
		if !improved {
			break
		}
	}

	return gmax, nil
}

// negHessian differentiates the score numerically at x and returns the
// negative of the symmetrized Hessian.
func negHessian(model *glm.Model, x []float64) (*mat.SymDense, error) {

	np := len(x)
	jac := mat.NewDense(np, np, nil)

	var serr error
	score := func(y, x []float64) {
		if err := model.Score(x, y); err != nil {
			serr = err
		}
	}
	fd.Jacobian(jac, score, x, &fd.JacobianSettings{Formula: fd.Central})
	if serr != nil {
		return nil, fmt.Errorf("Hessian: %w", serr)
	}

	nhess := mat.NewSymDense(np, nil)
	for i := 0; i < np; i++ {
		for j := i; j < np; j++ {
			nhess.SetSym(i, j, -(jac.At(i, j)+jac.At(j, i))/2)
		}
	}

	return nhess, nil
}

// covariance inverts the negative Hessian at the mode.
func covariance(model *glm.Model, mode []float64) (*mat.SymDense, error) {

	nhess, err := negHessian(model, mode)
	if err != nil {
		return nil, err
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(nhess); !ok {
		return nil, fmt.Errorf("the negative Hessian at the mode is not positive definite: %w",
			statmodel.ErrInvalidParameter)
	}

	vcov := mat.NewSymDense(len(mode), nil)
	if err := chol.InverseTo(vcov); err != nil {
		return nil, err
	}

	return vcov, nil
}

// StdErr returns the standard deviations of the approximation.
func (rslt *Result) StdErr() []float64 {
	se := make([]float64, len(rslt.Mode))
	for i := range se {
		se[i] = math.Sqrt(rslt.VCov.At(i, i))
	}
	return se
}

// Draws returns n draws from the approximation, mapped back to the
// scale of the model parameters.
func (rslt *Result) Draws(n int, src rand.Source) ([]statmodel.Draw, error) {

	dist, ok := distmv.NewNormal(rslt.Mode, rslt.VCov, src)
	if !ok {
		return nil, fmt.Errorf("covariance is not positive definite: %w", statmodel.ErrInvalidParameter)
	}

	draws := make([]statmodel.Draw, n)
	v := make([]float64, len(rslt.Mode))
	for s := range draws {
		dist.Rand(v)
		d, err := rslt.model.Draw(v)
		if err != nil {
			return nil, err
		}
		draws[s] = *d
	}

	return draws, nil
}

// Summary returns a table of the posterior modes and standard
// deviations.
func (rslt *Result) Summary() *statmodel.SummaryTable {

	return &statmodel.SummaryTable{
		Title: "Normal approximation to the posterior",
		Top: []string{
			fmt.Sprintf("Family:       %s", rslt.model.Family().Name),
			fmt.Sprintf("Link:         %s", rslt.model.Link().Name),
			fmt.Sprintf("Observations: %d", rslt.model.Dataset().NumObs()),
			fmt.Sprintf("Log posterior: %.4f", rslt.LogPost),
		},
		ColNames: []string{"Parameter", "Mode", "SD"},
		ColFmt:   []statmodel.Fmter{statmodel.FmtStrings, statmodel.FmtFloats, statmodel.FmtFloats},
		Cols:     []interface{}{rslt.Names, rslt.Mode, rslt.StdErr()},
	}
}
