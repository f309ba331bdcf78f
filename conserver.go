package conserver

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"

	"github.com/vcon-dev/conserver/internal/errorcounter"
	"github.com/vcon-dev/conserver/internal/metrics"
)

const defaultHTTPTimeout = 30 * time.Second

// Engine pops vCon ids off the ingress queues of the configured chains, runs each chain's links in order and
// fans the result out to egress queues, egress chains and storages.
type Engine struct {
	ctx       context.Context
	cancel    context.CancelFunc
	once      sync.Once
	calledRun bool

	clock    clock.Clock
	logger   *logger
	chains   ChainStore
	records  RecordStore
	queue    Queue
	registry *Registry
	counter  DeliveryCounter
	deps     Deps
	opts     options

	internalStateMu sync.Mutex
	// internalState holds the State of all the worker processes using their process names as the key.
	internalState map[string]State

	// launching tracks the number of goroutines initiated but not yet running so that Run only returns once
	// every process has been added to internalState.
	launching sync.WaitGroup
	// running tracks processes that have not yet shut down. Stop waits on it.
	running sync.WaitGroup
}

// New builds an engine. Connections are handed in rather than created here so that they are owned by the
// caller's run scope.
func New(chains ChainStore, records RecordStore, queue Queue, registry *Registry, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	counter := o.deliveryCounter
	if counter == nil {
		counter = &localDeliveryCounter{counter: errorcounter.New()}
	}

	return &Engine{
		clock: o.clock,
		logger: &logger{
			debugMode: o.debug,
			inner:     o.logger,
		},
		chains:   chains,
		records:  records,
		queue:    queue,
		registry: registry,
		counter:  counter,
		deps: Deps{
			Records:    records,
			Queue:      queue,
			Logger:     o.logger,
			Clock:      o.clock,
			HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
		},
		opts:          o,
		internalState: make(map[string]State),
	}
}

// Run validates the chain definitions and launches the worker processes. It returns once every process has
// been launched. Subsequent calls are noop. A non-nil error means the engine cannot start.
func (e *Engine) Run(ctx context.Context) error {
	var runErr error
	e.once.Do(func() {
		chains, err := e.loadChains(ctx)
		if err != nil {
			runErr = err
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		e.ctx = ctx
		e.cancel = cancel
		e.calledRun = true

		if e.opts.tickDriven {
			track(e, func() {
				tickDriver(e)
			})
		} else {
			for _, c := range chains {
				for _, queue := range c.IngressLists {
					total := e.opts.parallelCount
					if total < 1 {
						total = 1
					}

					for shard := 1; shard <= total; shard++ {
						track(e, func() {
							consumeIngress(e, c.Name, queue, shard, total)
						})
					}
				}
			}
		}

		if e.opts.pubSub != nil {
			for _, c := range chains {
				for _, topic := range c.IngressTopics {
					track(e, func() {
						subscribeTopic(e, c.Name, topic)
					})
				}
			}
		}
	})

	e.launching.Wait()
	return runErr
}

// loadChains reads the enabled chains and checks that every ingress queue has a single owner.
func (e *Engine) loadChains(ctx context.Context) ([]Chain, error) {
	all, err := e.chains.Chains(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load chains")
	}

	var enabled []Chain
	owners := make(map[string]string)
	for _, c := range all {
		if !c.Enabled {
			e.logger.maybeDebug(ctx, "skipping disabled chain", map[string]string{"chain": c.Name})
			continue
		}

		for _, q := range append(append([]string{}, c.IngressLists...), c.IngressTopics...) {
			if owner, ok := owners[q]; ok && owner != c.Name {
				return nil, errors.Wrap(ErrIngressConflict, "", j.MKV{
					"ingress": q,
					"chain":   c.Name,
					"owner":   owner,
				})
			}

			owners[q] = c.Name
		}

		enabled = append(enabled, c)
	}

	if len(enabled) == 0 {
		return nil, ErrNoChains
	}

	sort.Slice(enabled, func(i, j int) bool {
		return enabled[i].Name < enabled[j].Name
	})

	return enabled, nil
}

// track starts a new goroutine to execute the provided function and ensures it is tracked using launching.
func track(e *Engine, fn func()) {
	e.launching.Add(1)
	e.running.Add(1)
	go fn()
}

// run is a standardised way of running blocking calls with a built-in retry mechanism. Errors returned by
// process are logged and the process is started again after a backoff that doubles on consecutive errors.
func (e *Engine) run(processName string, process func(ctx context.Context) error) {
	e.updateState(processName, StateIdle)
	defer e.running.Done()
	defer e.updateState(processName, StateShutdown)
	// Mark that another go routine has launched and been added to internal state
	e.launching.Done()

	var consecutive int
	for {
		t0 := e.clock.Now()
		backOff := errBackOff(e.opts.errBackOff, e.opts.maxErrBackOff, consecutive)
		failed, err := runOnce(
			e.ctx,
			processName,
			e.updateState,
			process,
			e.logger,
			e.clock,
			backOff,
		)
		if err != nil {
			e.logger.maybeDebug(e.ctx, "shutting down process", map[string]string{
				"process_name": processName,
			})

			return
		}

		// A process that ran for longer than the max backoff before failing is treated as having recovered.
		if !failed || e.clock.Since(t0) > e.opts.maxErrBackOff+backOff {
			consecutive = 0
		}

		if failed {
			consecutive++
		}
	}
}

type updateStateFn func(processName string, s State)

// runOnce runs process a single time. A non-nil error is only returned when the process must exit and failed
// reports whether the process returned an error that was backed off from.
func runOnce(
	ctx context.Context,
	processName string,
	updateState updateStateFn,
	process func(ctx context.Context) error,
	logger *logger,
	clock clock.Clock,
	errBackOff time.Duration,
) (failed bool, err error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	updateState(processName, StateRunning)

	err = process(ctx)
	if ctx.Err() != nil {
		// Exit cleanly once the engine has been stopped.
		return false, ctx.Err()
	} else if err != nil {
		logger.Error(ctx, errors.Wrap(err, "process error", j.MKV{"process_name": processName}))
		metrics.ProcessErrors.WithLabelValues(processName).Inc()
		updateState(processName, StateIdle)

		timer := clock.NewTimer(errBackOff)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case <-timer.C():
			// Return nil to try again
			return true, nil
		}
	}

	return false, nil
}

func errBackOff(initial, max time.Duration, consecutive int) time.Duration {
	d := initial
	for i := 0; i < consecutive && d < max; i++ {
		d *= 2
	}

	if max > 0 && d > max {
		return max
	}

	return d
}

// Stop cancels the context provided to all the background processes that the engine launched and waits for
// all of them to shut down gracefully. Records that are being processed are allowed to finish.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}

	// Cancel the parent context of the engine to gracefully shutdown.
	e.cancel()
	e.running.Wait()
}

func makeRole(inputs ...string) string {
	joined := strings.Join(inputs, "-")
	lowered := strings.ToLower(joined)
	filled := strings.ReplaceAll(lowered, " ", "_")
	return filled
}

func workerName(queue string, shard, total int) string {
	return makeRole(queue, "worker", strconv.Itoa(shard), "of", strconv.Itoa(total))
}

// localDeliveryCounter keeps the retry budget in process memory.
type localDeliveryCounter struct {
	counter *errorcounter.Counter
}

func (c *localDeliveryCounter) Incr(_ context.Context, queue string, id string) (int, error) {
	return c.counter.Add(queue, id), nil
}

func (c *localDeliveryCounter) Reset(_ context.Context, queue string, id string) error {
	c.counter.Clear(queue, id)
	return nil
}
