// Package loglik evaluates the pointwise log-likelihood of a regression
// model for every posterior draw and every observation.
package loglik

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/kshedden/bayesloo/glm"
	"github.com/kshedden/bayesloo/statmodel"
)

// Config holds settings for building a pointwise log-likelihood matrix.
type Config struct {

	// The link function, if nil the default link of the family is used
	Link *glm.Link

	// The maximum number of draws evaluated concurrently.  If not
	// positive, GOMAXPROCS is used.
	Workers int

	// If not nil, write log messages here
	Logger *slog.Logger
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		Workers: runtime.GOMAXPROCS(0),
	}
}

// Build returns the S x M matrix whose (s, i) element is the log density
// of response i under posterior draw s.  Draws are evaluated in
// parallel, each worker filling its own rows.  An invalid parameter in
// any draw aborts the whole computation.
func Build(ctx context.Context, data *statmodel.Dataset, draws []statmodel.Draw, fam *glm.Family, c *Config) (*mat.Dense, error) {

	if c == nil {
		c = DefaultConfig()
	}

	if err := data.Check(); err != nil {
		return nil, err
	}
	if data.NumObs() == 0 {
		return nil, fmt.Errorf("no observations: %w", statmodel.ErrShapeMismatch)
	}
	if err := statmodel.CheckDraws(draws, data.NumCovariates()); err != nil {
		return nil, err
	}

	link := c.Link
	if link == nil {
		link = fam.DefaultLink()
	}
	if !fam.IsValidLink(link) {
		return nil, fmt.Errorf("link %s is not valid for family %s", link.Name, fam.Name)
	}

	nobs := data.NumObs()
	ndraw := len(draws)
	ll := mat.NewDense(ndraw, nobs, nil)

	if c.Logger != nil {
		c.Logger.Debug("building pointwise log-likelihood",
			"family", fam.Name, "draws", ndraw, "observations", nobs)
	}

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for s := range draws {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := ll.RawRowView(s)
			glm.LinearPredictor(data, &draws[s], row)
			if err := fam.LinearLogLike(data.Y, row, link, draws[s].Dispersion, row); err != nil {
				return fmt.Errorf("draw %d: %w", s, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if c.Logger != nil {
		c.Logger.Debug("pointwise log-likelihood done", "family", fam.Name)
	}

	return ll, nil
}

// Observation returns a copy of column i of the log-likelihood matrix,
// holding the log density of observation i under every draw.
func Observation(ll *mat.Dense, i int) []float64 {
	return mat.Col(nil, i, ll)
}
