package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kshedden/bayesloo/dataset"
	"github.com/kshedden/bayesloo/glm"
)

func compareCmd() *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "Compare models whose posterior draws are stored in CmdStan CSV files",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to the comparison configuration (YAML)",
				Required:    true,
				Destination: &configFile,
			},
		}, reportFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := fromContext(ctx)

			cfg, err := LoadConfig(configFile)
			if err != nil {
				return err
			}
			applyReportConfig(cmd, cfg)

			data, err := dataset.ReadObservations(cfg.Data, cfg.Columns)
			if err != nil {
				return err
			}
			log.Info("observations loaded", "path", cfg.Data, "n", data.NumObs(), "covariates", data.NumCovariates())

			var models []modelInput
			for _, mc := range cfg.Models {
				m, err := loadModel(mc)
				if err != nil {
					return err
				}
				log.Info("draws loaded", "model", m.name, "path", mc.Draws, "draws", len(m.draws))
				models = append(models, m)
			}

			ev, cmp, err := evaluate(ctx, data, models, log)
			if err != nil {
				return err
			}

			return newReport(ev, cmp).write(cmd.Root().Writer, outFormat)
		},
	}
}

// loadModel resolves the likelihood of a configured model and reads its
// draws.
func loadModel(mc ModelConfig) (modelInput, error) {

	fam, err := glm.ParseFamily(mc.Family)
	if err != nil {
		return modelInput{}, fmt.Errorf("model '%s': %w", mc.Name, err)
	}

	var link *glm.Link
	if mc.Link != "" {
		link, err = glm.ParseLink(mc.Link)
		if err != nil {
			return modelInput{}, fmt.Errorf("model '%s': %w", mc.Name, err)
		}
		if !fam.IsValidLink(link) {
			return modelInput{}, fmt.Errorf("model '%s': link %s is not valid for family %s",
				mc.Name, link.Name, fam.Name)
		}
	}

	names := dataset.DefaultDrawNames(fam)
	if mc.Columns != nil {
		names = *mc.Columns
	}

	draws, err := dataset.ReadDraws(mc.Draws, names)
	if err != nil {
		return modelInput{}, fmt.Errorf("model '%s': %w", mc.Name, err)
	}

	return modelInput{name: mc.Name, fam: fam, link: link, draws: draws}, nil
}
