package engine

import (
	"context"
	"iter"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called by the collector after each completed unit with a
// monotonically increasing count.
type ProgressFunc func(completed, total int)

// progressLogEvery is the unit interval between progress log lines.
const progressLogEvery = 50

// dispatcher runs units on a bounded pool of workers.
type dispatcher struct {
	workers  int
	exec     executor
	progress ProgressFunc
	logger   zerolog.Logger
}

// dispatch executes every unit and returns them in completion order. The
// first worker error cancels the remaining work and is returned; units
// collected so far are discarded by the caller.
func (d *dispatcher) dispatch(ctx context.Context, units iter.Seq[Unit], total int) ([]Unit, error) {
	g, gctx := errgroup.WithContext(ctx)

	jobs := make(chan Unit)
	results := make(chan Unit, d.workers)

	g.Go(func() error {
		defer close(jobs)
		for u := range units {
			select {
			case jobs <- u:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for i := 0; i < d.workers; i++ {
		workerID := i
		g.Go(func() error {
			return d.worker(gctx, workerID, jobs, results)
		})
	}

	errc := make(chan error, 1)
	go func() {
		errc <- g.Wait()
		close(results)
	}()

	done := make([]Unit, 0, total)
	for u := range results {
		done = append(done, u)
		completed := len(done)
		if d.progress != nil {
			d.progress(completed, total)
		}
		if completed%progressLogEvery == 0 {
			d.logger.Info().
				Int("completed", completed).
				Int("total", total).
				Float64("progress_pct", float64(completed)/float64(total)*100).
				Msg("Dispatch progress")
		}
	}

	if err := <-errc; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return done, nil
}

// worker executes units from jobs until the channel closes or gctx is done.
func (d *dispatcher) worker(gctx context.Context, workerID int, jobs <-chan Unit, results chan<- Unit) error {
	processed := 0
	for u := range jobs {
		if err := gctx.Err(); err != nil {
			return nil
		}

		out, err := d.exec.execute(gctx, u)
		if err != nil {
			d.logger.Debug().
				Err(err).
				Int("worker_id", workerID).
				Int("unit", u.Index).
				Msg("Worker stopping on error")
			return err
		}

		select {
		case results <- out:
		case <-gctx.Done():
			return nil
		}
		processed++
	}

	if processed > 0 {
		d.logger.Debug().
			Int("worker_id", workerID).
			Int("units_processed", processed).
			Msg("Worker completed")
	}
	return nil
}
