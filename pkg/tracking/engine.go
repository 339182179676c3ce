package tracking

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"localtrack/internal/models"
	"localtrack/pkg/direction"
	"localtrack/pkg/stopping"
)

// Stats counts the outcomes of one Track run
type Stats struct {
	Seeds        int
	Kept         int
	Valid        int
	Capped       int
	Failed       int
	Terminations map[stopping.State]int
}

// Engine runs a tracker over a sequence of seeds. Seeds are independent, so
// they may be tracked by several workers; results are always surfaced in
// seed order. Concurrent Track runs on one Engine each keep their own
// counters; Stats reports the run started last.
type Engine struct {
	params  Params
	tracker *Tracker
	log     logrus.FieldLogger

	mu   sync.Mutex
	last *Stats
}

// NewEngine validates the configuration and creates an engine
func NewEngine(criterion stopping.Criterion, getter direction.Getter, params Params) (*Engine, error) {
	if criterion == nil {
		return nil, fmt.Errorf("%w: no stopping criterion", models.ErrConfiguration)
	}
	if getter == nil {
		return nil, fmt.Errorf("%w: no direction getter", models.ErrConfiguration)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		params:  params,
		tracker: NewTracker(criterion, getter, params),
		log:     params.Logger,
	}, nil
}

// Params returns the validated parameters of the engine
func (e *Engine) Params() Params {
	return e.params
}

// Track returns a lazy sequence of tracking results, one pass over seeds per
// iteration. With ReturnAll unset, invalid streamlines are skipped. Breaking
// out of the loop stops all workers.
func (e *Engine) Track(seeds iter.Seq[Seed]) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		run := e.startRun()
		if e.params.Workers <= 1 {
			e.trackSequential(run, seeds, yield)
		} else {
			e.trackParallel(run, seeds, yield)
		}

		st := e.snapshot(run)
		e.log.WithFields(logrus.Fields{
			"seeds":  st.Seeds,
			"kept":   st.Kept,
			"valid":  st.Valid,
			"capped": st.Capped,
			"failed": st.Failed,
		}).Info("Tracking finished")
	}
}

// Streamlines runs Track to completion and collects the streamlines
func (e *Engine) Streamlines(seeds iter.Seq[Seed]) []models.Streamline {
	var out []models.Streamline
	for r := range e.Track(seeds) {
		out = append(out, r.Streamline)
	}
	return out
}

// Stats returns a copy of the counters of the most recently started run
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	run := e.last
	e.mu.Unlock()

	if run == nil {
		return Stats{Terminations: map[stopping.State]int{}}
	}
	return e.snapshot(run)
}

// startRun registers fresh counters for a new Track run
func (e *Engine) startRun() *Stats {
	run := &Stats{Terminations: make(map[stopping.State]int)}
	e.mu.Lock()
	e.last = run
	e.mu.Unlock()
	return run
}

func (e *Engine) snapshot(run *Stats) Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := *run
	st.Terminations = make(map[stopping.State]int, len(run.Terminations))
	for k, v := range run.Terminations {
		st.Terminations[k] = v
	}
	return st
}

func (e *Engine) trackSequential(run *Stats, seeds iter.Seq[Seed], yield func(Result) bool) {
	idx := 0
	for seed := range seeds {
		res := e.trackSeed(idx, seed)
		idx++
		if !e.emit(run, res, yield) {
			return
		}
	}
}

// trackParallel fans seeds out to a bounded worker pool. A window of
// in-flight seeds bounds the reorder buffer when one seed is slow.
func (e *Engine) trackParallel(run *Stats, seeds iter.Seq[Seed], yield func(Result) bool) {
	workers := e.params.Workers

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	type job struct {
		idx  int
		seed Seed
	}
	jobs := make(chan job, workers*2)
	results := make(chan Result, workers*2)
	window := make(chan struct{}, workers*4)

	// Producer: numbers the seeds and waits for a free slot in the window
	g.Go(func() error {
		defer close(jobs)
		idx := 0
		for seed := range seeds {
			select {
			case window <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case jobs <- job{idx: idx, seed: seed}:
			case <-ctx.Done():
				return ctx.Err()
			}
			idx++
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for j := range jobs {
				res := e.trackSeed(j.idx, j.seed)
				select {
				case results <- res:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(results)
	}()

	// Gate: release results strictly in seed order
	pending := make(map[int]Result)
	next := 0
	for res := range results {
		pending[res.SeedIndex] = res
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			<-window
			if !e.emit(run, ready, yield) {
				cancel()
				for range results {
				}
				return
			}
		}
	}
}

// trackSeed isolates a single seed: a panic inside the direction getter or
// criterion marks that streamline as failed instead of aborting the run.
func (e *Engine) trackSeed(idx int, seed Seed) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				SeedIndex:  idx,
				Streamline: models.Streamline{seed.Position},
				Err:        fmt.Errorf("seed %d: %v", idx, r),
			}
		}
	}()

	res = e.tracker.Track(seed)
	res.SeedIndex = idx
	return res
}

// emit records the result in run and hands it to the consumer if the return
// policy keeps it. It returns false when the consumer stopped iterating.
func (e *Engine) emit(run *Stats, res Result, yield func(Result) bool) bool {
	valid := res.Valid()
	keep := e.params.ReturnAll || valid

	e.mu.Lock()
	run.Seeds++
	if valid {
		run.Valid++
	}
	if keep {
		run.Kept++
	}
	if res.Capped {
		run.Capped++
	}
	if res.Err != nil {
		run.Failed++
	} else {
		run.Terminations[res.Forward]++
		run.Terminations[res.Backward]++
	}
	e.mu.Unlock()

	if res.Err != nil {
		e.log.WithError(res.Err).WithField("seed", res.SeedIndex).Warn("Seed failed")
	} else if res.Capped {
		e.log.WithField("seed", res.SeedIndex).Debug("Streamline reached the step cap")
	}

	if !keep {
		return true
	}
	if e.params.OutputSpace == WorldSpace {
		res.Streamline = e.params.Affine.Streamline(res.Streamline)
	}
	return yield(res)
}
