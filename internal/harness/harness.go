package harness

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/remapcheck/internal/canon"
	"github.com/roach88/remapcheck/internal/conserve"
	"github.com/roach88/remapcheck/internal/dataset"
	"github.com/roach88/remapcheck/internal/store"
)

// Options configures scenario execution. The zero value runs scenarios one
// at a time against netCDF files and records nothing.
type Options struct {
	// Parallel bounds concurrent scenarios in RunAll; values below 1 mean 1.
	Parallel int

	// Open overrides the dataset opener, e.g. with dataset.MemoryOpener.
	Open dataset.Opener

	Logger *zap.Logger

	// Store, when set, receives one run record per scenario.
	Store *store.Store

	// Clock stamps recorded runs. Defaults to a store.Clock resumed from
	// the store's last seq.
	Clock store.SeqSource

	// BatchToken groups the records of one RunAll call. When empty, Tokens
	// generates one (store.UUIDv7Generator by default).
	BatchToken string
	Tokens     store.TokenGenerator
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Run verifies one scenario and compares the outcome with its expectation.
//
// Verification failures are outcomes, not errors: the returned error is
// non-nil only when the context is done or a run cannot be recorded.
func Run(ctx context.Context, s *Scenario, opts Options) (*Result, error) {
	r, err := execute(ctx, s, opts)
	if err != nil {
		return nil, err
	}
	if opts.Store == nil {
		return r, nil
	}

	rec, err := newRecorder(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := rec.record(ctx, s, r); err != nil {
		return nil, err
	}
	return r, nil
}

// RunAll runs scenarios concurrently, up to opts.Parallel at a time, and
// returns results in input order. Runs are recorded after all scenarios
// finish, in input order, so seq numbers do not depend on scheduling.
func RunAll(ctx context.Context, scenarios []*Scenario, opts Options) ([]*Result, error) {
	limit := opts.Parallel
	if limit < 1 {
		limit = 1
	}

	results := make([]*Result, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, s := range scenarios {
		g.Go(func() error {
			r, err := execute(gctx, s, opts)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.Store != nil {
		rec, err := newRecorder(ctx, opts)
		if err != nil {
			return nil, err
		}
		for i, s := range scenarios {
			if err := rec.record(ctx, s, results[i]); err != nil {
				return nil, err
			}
		}
	}
	return results, nil
}

// execute runs the verifier for s without touching the store.
func execute(ctx context.Context, s *Scenario, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := opts.logger().With(zap.String("scenario", s.Name))

	result := newResult(s)

	vopts, err := s.VerifyOptions()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	vopts.Open = opts.Open
	vopts.Logger = log

	report, err := conserve.VerifyFiles(s.Weights, s.Src, s.Dest, vopts)
	if err != nil {
		var ce *conserve.Error
		if !errors.As(err, &ce) {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		result.Outcome = outcomeForKind(ce.Kind)
		result.ErrorKind = string(ce.Kind)
		result.Error = err.Error()
	} else {
		result.Report = report
		result.Outcome = string(report.Outcome(result.Tolerance))
	}

	if result.Outcome != s.Expect {
		msg := fmt.Sprintf("expected %s, got %s", s.Expect, result.Outcome)
		if result.Report != nil {
			msg += fmt.Sprintf(" (relative error %g, tolerance %g)", result.Report.RelativeError, result.Tolerance)
		} else if result.Error != "" {
			msg += ": " + result.Error
		}
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result.Report, s.Assertions) {
		result.AddError(msg)
	}

	fields := []zap.Field{
		zap.String("expected", s.Expect),
		zap.String("outcome", result.Outcome),
		zap.Bool("pass", result.Pass),
	}
	if result.Report != nil {
		fields = append(fields, zap.Float64("relative_error", result.Report.RelativeError))
	}
	log.Info("scenario finished", fields...)

	return result, nil
}

// recorder writes results to a store with one batch token.
type recorder struct {
	st    *store.Store
	clock store.SeqSource
	batch string
}

func newRecorder(ctx context.Context, opts Options) (*recorder, error) {
	rec := &recorder{st: opts.Store, clock: opts.Clock, batch: opts.BatchToken}
	if rec.clock == nil {
		last, err := opts.Store.LastSeq(ctx)
		if err != nil {
			return nil, err
		}
		rec.clock = store.NewClockAt(last)
	}
	if rec.batch == "" {
		gen := opts.Tokens
		if gen == nil {
			gen = store.UUIDv7Generator{}
		}
		rec.batch = gen.Generate()
	}
	return rec, nil
}

func (rec *recorder) record(ctx context.Context, s *Scenario, r *Result) error {
	run := RunRecord(s, r)
	run.BatchToken = rec.batch
	run.Seq = rec.clock.Next()

	id, err := rec.st.WriteRun(ctx, run)
	if err != nil {
		return fmt.Errorf("record scenario %s: %w", s.Name, err)
	}
	r.RunID = id
	return nil
}

// RunRecord converts a result into a store row without batch token or seq.
func RunRecord(s *Scenario, r *Result) store.Run {
	run := store.Run{
		Scenario:     s.Name,
		Resolution:   s.Resolution,
		WeightsPath:  s.Weights,
		SrcPath:      s.Src,
		DestPath:     s.Dest,
		Tolerance:    canon.Float(r.Tolerance),
		Outcome:      r.Outcome,
		ErrorKind:    r.ErrorKind,
		ErrorMessage: r.Error,
	}
	if r.Report != nil {
		run.RelativeError = canon.Float(r.Report.RelativeError)
		run.NNZ = int64(r.Report.Matrix.NNZ)
	}
	return run
}
