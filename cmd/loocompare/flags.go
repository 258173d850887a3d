package main

import "github.com/urfave/cli/v3"

var (
	logLevel   string
	logFormat  string
	configFile string
	outFormat  string
	kThreshold float64
	workers    int
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Value:       "text",
			Destination: &logFormat,
		},
	}
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "report format (text, json)",
			Value:       "text",
			Destination: &outFormat,
		},
		&cli.FloatFlag{
			Name:        "k-threshold",
			Usage:       "flag observations whose Pareto shape is at least this value",
			Value:       0.7,
			Destination: &kThreshold,
		},
		&cli.IntFlag{
			Name:        "workers",
			Aliases:     []string{"j"},
			Usage:       "maximum number of concurrent workers, 0 for one per CPU",
			Destination: &workers,
		},
	}
}
