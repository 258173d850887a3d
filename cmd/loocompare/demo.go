package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"golang.org/x/exp/rand"

	"github.com/kshedden/bayesloo/approx"
	"github.com/kshedden/bayesloo/dataset"
	"github.com/kshedden/bayesloo/glm"
	"github.com/kshedden/bayesloo/predictive"
	"github.com/kshedden/bayesloo/statmodel"
)

var (
	subjects  int
	visits    int
	numDraws  int
	seed      int
	truePhi   float64
	outDir    string
	writeXLSX bool
)

// The candidate models of the demonstration, in order of sophistication.
var demoModels = []struct {
	name string
	fam  glm.FamilyType
}{
	{"normal", glm.GaussianFamily},
	{"poisson", glm.PoissonFamily},
	{"negbinom", glm.NegBinomFamily},
}

func demoCmd() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Simulate a seizure-count trial, approximate the posterior of three models, and compare them",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:        "subjects",
				Usage:       "number of subjects",
				Value:       59,
				Destination: &subjects,
			},
			&cli.IntFlag{
				Name:        "visits",
				Usage:       "number of visits per subject",
				Value:       4,
				Destination: &visits,
			},
			&cli.IntFlag{
				Name:        "draws",
				Aliases:     []string{"n"},
				Usage:       "number of posterior draws per model",
				Value:       1000,
				Destination: &numDraws,
			},
			&cli.IntFlag{
				Name:        "seed",
				Usage:       "random seed",
				Value:       4523745,
				Destination: &seed,
			},
			&cli.FloatFlag{
				Name:        "phi",
				Usage:       "negative binomial shape of the simulated counts",
				Value:       2.5,
				Destination: &truePhi,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "if set, write the data, draws and a configuration for the compare command to this directory",
				Destination: &outDir,
			},
			&cli.BoolFlag{
				Name:        "xlsx",
				Usage:       "write the data as an XLSX workbook instead of CSV",
				Destination: &writeXLSX,
			},
		}, reportFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := fromContext(ctx)

			if numDraws < 2 {
				return fmt.Errorf("--draws must be at least 2, got %d", numDraws)
			}

			src := rand.NewSource(uint64(seed))
			truth := &statmodel.Draw{
				Intercept:  1.4,
				Coeff:      []float64{-0.3, 0.75, 0.15, -0.1},
				Dispersion: truePhi,
			}
			data, err := predictive.SyntheticCounts(subjects, visits, truth, glm.NewFamily(glm.NegBinomFamily), src)
			if err != nil {
				return err
			}
			log.Info("simulated trial", "subjects", subjects, "visits", visits, "n", data.NumObs())

			var models []modelInput
			for j, dm := range demoModels {
				c := glm.DefaultConfig()
				c.Family = glm.NewFamily(dm.fam)
				c.PriorScale = 5
				c.DispersionPriorScale = 5
				model, err := glm.NewModel(data, c)
				if err != nil {
					return err
				}

				ac := approx.DefaultConfig()
				ac.Logger = log.With("model", dm.name)
				fit, err := approx.Fit(model, ac)
				if err != nil {
					return fmt.Errorf("model '%s': %w", dm.name, err)
				}

				draws, err := fit.Draws(numDraws, rand.NewSource(uint64(seed+j+1)))
				if err != nil {
					return fmt.Errorf("model '%s': %w", dm.name, err)
				}
				models = append(models, modelInput{name: dm.name, fam: c.Family, draws: draws})
			}

			if outDir != "" {
				if err := writeDemo(outDir, data, models); err != nil {
					return err
				}
				log.Info("demo files written", "dir", outDir)
			}

			ev, cmp, err := evaluate(ctx, data, models, log)
			if err != nil {
				return err
			}

			return newReport(ev, cmp).write(cmd.Root().Writer, outFormat)
		},
	}
}

// writeDemo writes the simulated data, the draws of every model, and a
// configuration that reproduces the comparison with the compare command.
func writeDemo(dir string, data *statmodel.Dataset, models []modelInput) error {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dataFile := "seizure.csv"
	if writeXLSX {
		dataFile = "seizure.xlsx"
	}
	if err := dataset.WriteObservations(filepath.Join(dir, dataFile), data, "y"); err != nil {
		return err
	}

	cfg := Config{
		Data: dataFile,
		Columns: dataset.ColumnSpec{
			Response:   "y",
			Covariates: data.XNames,
		},
	}

	for _, m := range models {
		fn := fmt.Sprintf("%s_draws.csv", m.name)
		if err := dataset.WriteDraws(filepath.Join(dir, fn), m.draws, dataset.DefaultDrawNames(m.fam)); err != nil {
			return err
		}
		cfg.Models = append(cfg.Models, ModelConfig{
			Name:   m.name,
			Family: m.fam.Name,
			Draws:  fn,
		})
	}

	return SaveConfig(filepath.Join(dir, "loocompare.yaml"), cfg)
}
