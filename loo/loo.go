package loo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/kshedden/bayesloo/statmodel"
)

// DefaultKThreshold is the Pareto shape above which the PSIS estimate
// for an observation is considered unreliable.
const DefaultKThreshold = 0.7

// Config holds settings for the PSIS-LOO calculation.
type Config struct {

	// Observations whose Pareto shape is at least this value are
	// flagged.  If zero, DefaultKThreshold is used.
	KThreshold float64

	// The maximum number of observations processed concurrently.
	// If not positive, GOMAXPROCS is used.
	Workers int

	// Retain the normalized log weights in the result
	KeepWeights bool

	// If not nil, write log messages here
	Logger *slog.Logger
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		KThreshold: DefaultKThreshold,
		Workers:    runtime.GOMAXPROCS(0),
	}
}

// Result holds the PSIS-LOO estimate for one model.
type Result struct {

	// Expected log pointwise predictive density, summed over
	// observations, and its standard error
	ELPD float64
	SE   float64

	// The contribution of each observation to ELPD
	Pointwise []float64

	// The in-sample log pointwise predictive density, and the
	// effective number of parameters LPD - ELPD
	LPD  float64
	PLOO float64

	// Estimated Pareto shape for each observation
	ParetoK []float64

	// The Pareto shape threshold used to flag observations
	KThreshold float64

	NumDraws int
	NumObs   int

	// The normalized log weights (draws by observations), only
	// present if requested in the Config
	LogWeights *mat.Dense
}

// LOOIC returns the LOO information criterion, -2 ELPD.
func (r *Result) LOOIC() float64 {
	return -2 * r.ELPD
}

// LOOICSE returns the standard error of the LOO information criterion.
func (r *Result) LOOICSE() float64 {
	return 2 * r.SE
}

// Compute returns the PSIS-LOO estimate from the pointwise log-likelihood
// matrix ll, which has one row per posterior draw and one column per
// observation.
func Compute(ctx context.Context, ll *mat.Dense, c *Config) (*Result, error) {

	if c == nil {
		c = DefaultConfig()
	}
	thresh := c.KThreshold
	if thresh == 0 {
		thresh = DefaultKThreshold
	}

	ndraw, nobs := ll.Dims()
	if nobs == 0 {
		return nil, fmt.Errorf("no observations: %w", statmodel.ErrShapeMismatch)
	}
	if tl := TailLength(ndraw); tl < MinTailLength {
		return nil, fmt.Errorf("%d draws give a tail of %d, at least %d are needed: %w",
			ndraw, tl, MinTailLength, statmodel.ErrInsufficientDraws)
	}

	rslt := &Result{
		Pointwise:  make([]float64, nobs),
		ParetoK:    make([]float64, nobs),
		KThreshold: thresh,
		NumDraws:   ndraw,
		NumObs:     nobs,
	}
	if c.KeepWeights {
		rslt.LogWeights = mat.NewDense(ndraw, nobs, nil)
	}
	lpd := make([]float64, nobs)

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < nobs; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			col := mat.Col(nil, i, ll)
			elpd, k, lw, err := pointwise(col)
			if err != nil {
				return fmt.Errorf("observation %d: %w", i, err)
			}

			rslt.Pointwise[i] = elpd
			rslt.ParetoK[i] = k
			lpd[i] = floats.LogSumExp(col) - math.Log(float64(ndraw))
			if rslt.LogWeights != nil {
				rslt.LogWeights.SetCol(i, lw)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	rslt.ELPD = floats.Sum(rslt.Pointwise)
	rslt.LPD = floats.Sum(lpd)
	rslt.PLOO = rslt.LPD - rslt.ELPD
	rslt.SE = sumSE(rslt.Pointwise)

	if c.Logger != nil {
		c.Logger.Info("psis-loo",
			"elpd", rslt.ELPD, "se", rslt.SE, "p_loo", rslt.PLOO,
			"flagged", len(rslt.Flagged()), "observations", nobs)
	}

	return rslt, nil
}

// pointwise returns the LOO log predictive density of one observation
// from its log-likelihood values over the draws, along with the Pareto
// shape and the smoothed log weights.
func pointwise(ll []float64) (float64, float64, []float64, error) {

	lr := make([]float64, len(ll))
	for s, v := range ll {
		if math.IsNaN(v) {
			return 0, 0, nil, fmt.Errorf("log-likelihood of draw %d is NaN: %w", s, statmodel.ErrInvalidParameter)
		}
		lr[s] = -v
	}

	lw, k, err := Smooth(lr)
	if err != nil {
		return 0, 0, nil, err
	}

	// log(sum_s w_s exp(ll_s) / sum_s w_s), computed so that a constant
	// column returns its value exactly.
	mw := floats.Max(lw)
	m := floats.Max(ll)
	var num, den float64
	for s := range lw {
		w := math.Exp(lw[s] - mw)
		num += w * math.Exp(ll[s]-m)
		den += w
	}

	return m + math.Log(num/den), k, lw, nil
}

// sumSE returns the standard error of the sum of the values in x,
// sqrt(n) times their sample standard deviation.
func sumSE(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return math.Sqrt(float64(len(x))) * stat.StdDev(x, nil)
}

// Flagged returns the indices of the observations whose Pareto shape is
// at least the threshold.
func (r *Result) Flagged() []int {
	var ix []int
	for i, k := range r.ParetoK {
		if k >= r.KThreshold {
			ix = append(ix, i)
		}
	}
	return ix
}

// FractionFlagged returns the fraction of observations whose Pareto
// shape is at least the threshold.
func (r *Result) FractionFlagged() float64 {
	return float64(len(r.Flagged())) / float64(r.NumObs)
}

// KTable holds the number of observations with Pareto shape in each of
// the ranges (-Inf, 0.5], (0.5, 0.7], (0.7, 1], and (1, Inf).
type KTable struct {
	Good    int `json:"good"`
	OK      int `json:"ok"`
	Bad     int `json:"bad"`
	VeryBad int `json:"very_bad"`
}

// KTable returns counts of the Pareto shape values in ranges.
func (r *Result) KTable() KTable {
	var kt KTable
	for _, k := range r.ParetoK {
		switch {
		case k <= 0.5:
			kt.Good++
		case k <= 0.7:
			kt.OK++
		case k <= 1:
			kt.Bad++
		default:
			kt.VeryBad++
		}
	}
	return kt
}

// KSummary describes the distribution of the Pareto shape values.
type KSummary struct {
	Max    float64
	Median float64
	P90    float64
}

// KSummary returns the maximum, median, and 90th percentile of the
// Pareto shape values.
func (r *Result) KSummary() (KSummary, error) {

	var ks KSummary
	var err error

	if ks.Max, err = stats.Max(r.ParetoK); err != nil {
		return ks, err
	}
	if ks.Median, err = stats.Median(r.ParetoK); err != nil {
		return ks, err
	}
	if ks.P90, err = stats.Percentile(r.ParetoK, 90); err != nil {
		return ks, err
	}

	return ks, nil
}

// Summary returns a table describing the result.
func (r *Result) Summary(title string) *statmodel.SummaryTable {

	kt := r.KTable()

	tab := &statmodel.SummaryTable{
		Title: title,
		Top: []string{
			fmt.Sprintf("Draws:        %d", r.NumDraws),
			fmt.Sprintf("Observations: %d", r.NumObs),
		},
		ColNames: []string{"Quantity", "Estimate", "SE"},
		ColFmt:   []statmodel.Fmter{statmodel.FmtStrings, statmodel.FmtFloats, statmodel.FmtFloats},
		Cols: []interface{}{
			[]string{"elpd_loo", "p_loo", "looic"},
			[]float64{r.ELPD, r.PLOO, r.LOOIC()},
			[]float64{r.SE, math.NaN(), r.LOOICSE()},
		},
		Msg: []string{
			"Pareto k diagnostic:",
			fmt.Sprintf("  (-Inf, 0.5]  good      %d", kt.Good),
			fmt.Sprintf("  (0.5, 0.7]   ok        %d", kt.OK),
			fmt.Sprintf("  (0.7, 1]     bad       %d", kt.Bad),
			fmt.Sprintf("  (1, Inf)     very bad  %d", kt.VeryBad),
		},
	}

	if n := len(r.Flagged()); n > 0 {
		tab.Msg = append(tab.Msg, fmt.Sprintf("%d of %d observations have k >= %.2f, their estimates are unreliable",
			n, r.NumObs, r.KThreshold))
	}

	return tab
}
