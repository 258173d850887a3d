package main

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/kshedden/bayesloo/glm"
	"github.com/kshedden/bayesloo/loglik"
	"github.com/kshedden/bayesloo/loo"
	"github.com/kshedden/bayesloo/statmodel"
)

// modelInput is a model ready for evaluation: its likelihood and its
// posterior draws.
type modelInput struct {
	name  string
	fam   *glm.Family
	link  *glm.Link
	draws []statmodel.Draw
}

// evaluated is a model with its PSIS-LOO estimate.
type evaluated struct {
	modelInput
	rslt *loo.Result
}

func workerCount() int {
	if workers > 0 {
		return workers
	}
	return runtime.GOMAXPROCS(0)
}

// evaluate builds the pointwise log-likelihood of every model and
// estimates its ELPD, then ranks the models.
func evaluate(ctx context.Context, data *statmodel.Dataset, models []modelInput, log *slog.Logger) ([]evaluated, *loo.Comparison, error) {

	var ev []evaluated
	var named []loo.Named

	for _, m := range models {
		mlog := log.With("model", m.name)

		ll, err := loglik.Build(ctx, data, m.draws, m.fam, &loglik.Config{
			Link:    m.link,
			Workers: workerCount(),
			Logger:  mlog,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("model '%s': %w", m.name, err)
		}

		rslt, err := loo.Compute(ctx, ll, &loo.Config{
			KThreshold: kThreshold,
			Workers:    workerCount(),
			Logger:     mlog,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("model '%s': %w", m.name, err)
		}

		if n := len(rslt.Flagged()); n > 0 {
			mlog.Warn("unreliable PSIS-LOO estimates", "flagged", n, "k_threshold", rslt.KThreshold)
		}

		ev = append(ev, evaluated{modelInput: m, rslt: rslt})
		named = append(named, loo.Named{Name: m.name, Result: rslt})
	}

	cmp, err := loo.Compare(named)
	if err != nil {
		return nil, nil, err
	}
	log.Info("models ranked", "best", cmp.Best(), "models", len(ev))

	return ev, cmp, nil
}
