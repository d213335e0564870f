package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/riskrun/internal/domain"
	"github.com/sawpanic/riskrun/internal/exposure"
	"github.com/sawpanic/riskrun/internal/margin"
	"github.com/sawpanic/riskrun/internal/progress"
	"github.com/sawpanic/riskrun/internal/report"
	"github.com/sawpanic/riskrun/internal/telemetry"
)

// SetFailure records one netting set whose calculation failed. Sibling
// netting sets are unaffected.
type SetFailure struct {
	NettingSetID string `json:"netting_set_id"`
	Kind         string `json:"kind"` // validation | configuration | computation | internal
	Reason       string `json:"reason"`
}

// Report is the partial-batch-failure aggregate: the assembled results of
// every netting set that succeeded, alongside everything that did not. A
// batch never returns zero results because one row was bad.
type Report struct {
	Result      *report.CalculationResult `json:"result"`
	RowFailures []RowError                `json:"row_failures,omitempty"`
	SetFailures []SetFailure              `json:"set_failures,omitempty"`
	PartialSets []string                  `json:"partial_sets,omitempty"`
	Succeeded   int                       `json:"succeeded"`
	Failed      int                       `json:"failed"`
}

// Config selects what a batch run computes.
type Config struct {
	Exposure     bool
	MarginMethod *margin.Method // nil: no margin calculation
	Workers      int            // <=0: NumCPU
	Progress     progress.Mode
}

// Runner executes batch calculations. Netting sets are independent, so
// they are computed concurrently; the only shared state is the read-only
// parameter table inside the engines.
type Runner struct {
	cfg      Config
	exposure *exposure.Engine
	margin   *margin.Engine
	metrics  *telemetry.Metrics
}

// NewRunner creates a batch runner over pre-built engines.
func NewRunner(cfg Config, exp *exposure.Engine, mar *margin.Engine, metrics *telemetry.Metrics) *Runner {
	return &Runner{cfg: cfg, exposure: exp, margin: mar, metrics: metrics}
}

type outcome struct {
	setID    string
	exposure *exposure.Result
	margin   *margin.Result
	failure  *SetFailure
}

// Run computes every netting set of a parsed batch and assembles the
// report. Row-level failures from parsing are carried through.
func (r *Runner) Run(ctx context.Context, parsed *ParseOutput) (*Report, error) {
	r.metrics.ActiveBatches.Inc()
	defer r.metrics.ActiveBatches.Dec()

	for range parsed.RowErrors {
		r.metrics.BatchRows.WithLabelValues("invalid").Inc()
	}

	workers := r.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(parsed.Sets) && len(parsed.Sets) > 0 {
		workers = len(parsed.Sets)
	}

	ind := progress.New("batch", len(parsed.Sets), r.cfg.Progress)
	jobs := make(chan *domain.NettingSet)
	outcomes := make(chan outcome, len(parsed.Sets))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ns := range jobs {
				outcomes <- r.calculate(ns)
				ind.Increment()
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, ns := range parsed.Sets {
			select {
			case jobs <- ns:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(outcomes)
	ind.Finish()

	collected := make([]outcome, 0, len(parsed.Sets))
	for o := range outcomes {
		collected = append(collected, o)
	}
	// Worker completion order is nondeterministic; report order is not.
	sort.Slice(collected, func(i, j int) bool { return collected[i].setID < collected[j].setID })

	rep := &Report{
		RowFailures: parsed.RowErrors,
		PartialSets: parsed.PartialSets,
	}
	var expResults []*exposure.Result
	var marResults []*margin.Result
	for _, o := range collected {
		if o.failure != nil {
			rep.SetFailures = append(rep.SetFailures, *o.failure)
			rep.Failed++
			continue
		}
		rep.Succeeded++
		if o.exposure != nil {
			expResults = append(expResults, o.exposure)
		}
		if o.margin != nil {
			marResults = append(marResults, o.margin)
		}
	}

	var expReport *report.ExposureReport
	var marReport *report.MarginReport
	var err error
	if r.cfg.Exposure && len(expResults) > 0 {
		if expReport, err = report.AssembleExposure(expResults); err != nil {
			return nil, err
		}
	}
	if r.cfg.MarginMethod != nil && len(marResults) > 0 {
		if marReport, err = report.AssembleMargin(marResults); err != nil {
			return nil, err
		}
	}
	rep.Result = report.Assemble(expReport, marReport)

	log.Info().
		Int("netting_sets", len(parsed.Sets)).
		Int("succeeded", rep.Succeeded).
		Int("failed", rep.Failed).
		Int("bad_rows", len(parsed.RowErrors)).
		Msg("Batch complete")
	return rep, nil
}

// calculate runs the configured calculations for one netting set.
// Validation and configuration failures stay scoped to the set.
func (r *Runner) calculate(ns *domain.NettingSet) outcome {
	o := outcome{setID: ns.ID}

	if r.cfg.Exposure {
		start := time.Now()
		res, err := r.exposure.Calculate(ns)
		r.metrics.CalcDuration.WithLabelValues("exposure").Observe(time.Since(start).Seconds())
		if err != nil {
			o.failure = classifyFailure(ns.ID, err)
			r.metrics.Calculations.WithLabelValues("exposure", o.failure.Kind).Inc()
			return o
		}
		o.exposure = res
		r.metrics.Calculations.WithLabelValues("exposure", "ok").Inc()
	}

	if r.cfg.MarginMethod != nil {
		start := time.Now()
		res, err := r.margin.Calculate(ns, *r.cfg.MarginMethod)
		r.metrics.CalcDuration.WithLabelValues("margin").Observe(time.Since(start).Seconds())
		if err != nil {
			o.failure = classifyFailure(ns.ID, err)
			r.metrics.Calculations.WithLabelValues("margin", o.failure.Kind).Inc()
			return o
		}
		o.margin = res
		r.metrics.Calculations.WithLabelValues("margin", "ok").Inc()
	}

	for range ns.Trades {
		r.metrics.BatchRows.WithLabelValues("ok").Inc()
	}
	return o
}

// classifyFailure maps an engine error onto the reporting taxonomy.
// Computation errors are defects and get logged at error level; the
// others are input or configuration problems local to the set.
func classifyFailure(setID string, err error) *SetFailure {
	var ve *domain.ValidationError
	var ce *domain.ConfigurationError
	var me *domain.ComputationError
	switch {
	case errors.As(err, &ve):
		return &SetFailure{NettingSetID: setID, Kind: "validation", Reason: ve.Error()}
	case errors.As(err, &ce):
		return &SetFailure{NettingSetID: setID, Kind: "configuration", Reason: ce.Error()}
	case errors.As(err, &me):
		log.Error().Str("netting_set", setID).Err(err).Msg("Calculation invariant violated")
		return &SetFailure{NettingSetID: setID, Kind: "computation", Reason: me.Error()}
	}
	return &SetFailure{NettingSetID: setID, Kind: "internal", Reason: fmt.Sprintf("unexpected error: %v", err)}
}
