package main

import (
	"fmt"
	"io"
	"math"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/kshedden/bayesloo/loo"
)

// ModelReport is the PSIS-LOO estimate of one model.
type ModelReport struct {
	Name     string     `json:"name"`
	Family   string     `json:"family"`
	Link     string     `json:"link"`
	NumDraws int        `json:"num_draws"`
	ELPD     float64    `json:"elpd_loo"`
	SE       float64    `json:"se"`
	PLOO     float64    `json:"p_loo"`
	LOOIC    float64    `json:"looic"`
	KTable   loo.KTable `json:"pareto_k"`
	KMax     *float64   `json:"k_max,omitempty"`
	KMedian  *float64   `json:"k_median,omitempty"`
	Flagged  []int      `json:"flagged"`
	ParetoK  []*float64 `json:"pareto_k_values"`
}

// Report is the outcome of one comparison run.
type Report struct {
	RunID      string           `json:"run_id"`
	Created    time.Time        `json:"created"`
	NumObs     int              `json:"num_obs"`
	KThreshold float64          `json:"k_threshold"`
	Models     []ModelReport    `json:"models"`
	Ranking    []loo.CompareRow `json:"ranking"`
	Pairwise   []loo.PairDiff   `json:"pairwise"`

	ev  []evaluated
	cmp *loo.Comparison
}

// finite returns nil for values that JSON cannot represent.
func finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

func newReport(ev []evaluated, cmp *loo.Comparison) *Report {

	rpt := &Report{
		RunID:    uuid.NewString(),
		Created:  time.Now().UTC(),
		Ranking:  cmp.Rows,
		Pairwise: cmp.Pairwise(),
		ev:       ev,
		cmp:      cmp,
	}

	for _, e := range ev {
		r := e.rslt
		rpt.NumObs = r.NumObs
		rpt.KThreshold = r.KThreshold

		link := e.link
		if link == nil {
			link = e.fam.DefaultLink()
		}

		mr := ModelReport{
			Name:     e.name,
			Family:   e.fam.Name,
			Link:     link.Name,
			NumDraws: r.NumDraws,
			ELPD:     r.ELPD,
			SE:       r.SE,
			PLOO:     r.PLOO,
			LOOIC:    r.LOOIC(),
			KTable:   r.KTable(),
			Flagged:  r.Flagged(),
		}
		if mr.Flagged == nil {
			mr.Flagged = []int{}
		}
		mr.ParetoK = make([]*float64, len(r.ParetoK))
		for i, k := range r.ParetoK {
			mr.ParetoK[i] = finite(k)
		}
		if ks, err := r.KSummary(); err == nil {
			mr.KMax = finite(ks.Max)
			mr.KMedian = finite(ks.Median)
		}
		rpt.Models = append(rpt.Models, mr)
	}

	return rpt
}

// write renders the report as text tables or as JSON.
func (rpt *Report) write(w io.Writer, format string) error {

	switch format {
	case "json":
		b, err := json.MarshalIndent(rpt, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "", "text":
		fmt.Fprintf(w, "Run %s\n\n", rpt.RunID)
		for _, e := range rpt.ev {
			title := fmt.Sprintf("PSIS-LOO: %s (%s)", e.name, e.fam.Name)
			fmt.Fprintln(w, e.rslt.Summary(title).String())
		}
		_, err := fmt.Fprintln(w, rpt.cmp.Summary().String())
		return err
	default:
		return fmt.Errorf("unknown report format '%s'", format)
	}
}
