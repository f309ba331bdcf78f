package conserver

import (
	"context"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/robfig/cron/v3"
)

const tickProcessName = "tick-driver"

func (e *Engine) tickConsumer() string {
	return makeRole(e.opts.consumerName, "tick")
}

// tickDriver replaces the blocking workers with a single process that calls Tick on a fixed interval. Ticks
// never overlap: a tick that is still running when the next one is due causes that one to be skipped.
func tickDriver(e *Engine) {
	e.run(tickProcessName, func(ctx context.Context) error {
		chains, err := e.chains.Chains(ctx)
		if err != nil {
			return err
		}

		for _, c := range chains {
			for _, queue := range c.IngressLists {
				_, err := e.queue.Recover(ctx, queue, e.tickConsumer())
				if err != nil {
					return errors.Wrap(err, "recover in-flight records", j.MKV{"queue": queue})
				}
			}
		}

		errs := make(chan error, 1)
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		c.Schedule(cron.Every(e.opts.tickInterval), cron.FuncJob(func() {
			_, err := e.Tick(ctx)
			if err != nil && ctx.Err() == nil {
				select {
				case errs <- err:
				default:
				}
			}
		}))

		c.Start()
		defer func() {
			<-c.Stop().Done()
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			return err
		}
	})
}

// Tick pops at most one record per enabled chain without blocking and runs the chain for it. The ingress
// queues of a chain are tried in order until one yields a record. It returns the number of records handled.
// Tick is safe to call without Run which makes it useful for driving the engine from tests and scripts.
func (e *Engine) Tick(ctx context.Context) (int, error) {
	chains, err := e.chains.Chains(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "load chains")
	}

	var handled int
	for _, c := range chains {
		if !c.Enabled {
			continue
		}

		for _, queue := range c.IngressLists {
			if ctx.Err() != nil {
				return handled, ctx.Err()
			}

			d, err := e.queue.Pop(ctx, queue, e.tickConsumer(), 0)
			if errors.Is(err, ErrQueueEmpty) {
				continue
			} else if err != nil {
				return handled, err
			}

			err = e.handleDelivery(context.WithoutCancel(ctx), c.Name, d)
			if err != nil {
				return handled, err
			}

			handled++
			break
		}
	}

	return handled, nil
}
