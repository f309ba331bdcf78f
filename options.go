package conserver

import (
	"os"
	"time"

	"k8s.io/utils/clock"

	internal_logger "github.com/vcon-dev/conserver/internal/logger"
)

const (
	defaultParallelCount = 1
	defaultPopTimeout    = time.Second
	defaultErrBackOff    = time.Second
	defaultMaxErrBackOff = 30 * time.Second
	defaultMaxDeliveries = 3
	defaultTickInterval  = time.Second
	defaultConsumerName  = "conserver"
)

// options holds the engine wide configuration. Every field has a usable default.
type options struct {
	clock  clock.Clock
	logger Logger
	debug  bool

	parallelCount int
	popTimeout    time.Duration
	errBackOff    time.Duration
	maxErrBackOff time.Duration

	// maxDeliveries is the number of failed attempts after which a record is dead lettered.
	maxDeliveries int

	tickDriven   bool
	tickInterval time.Duration

	consumerName    string
	pubSub          PubSub
	deliveryCounter DeliveryCounter
	recordTTL       time.Duration
}

func defaultOptions() options {
	name, err := os.Hostname()
	if err != nil || name == "" {
		name = defaultConsumerName
	}

	return options{
		clock:         clock.RealClock{},
		logger:        internal_logger.New(os.Stdout),
		parallelCount: defaultParallelCount,
		popTimeout:    defaultPopTimeout,
		errBackOff:    defaultErrBackOff,
		maxErrBackOff: defaultMaxErrBackOff,
		maxDeliveries: defaultMaxDeliveries,
		tickInterval:  defaultTickInterval,
		consumerName:  name,
	}
}

type Option func(o *options)

func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDebugMode enables debug logs such as link timings and skipped records.
func WithDebugMode() Option {
	return func(o *options) {
		o.debug = true
	}
}

// WithParallelCount defines the number of blocking-pop workers started per ingress queue. Workers are named
// "<queue>-worker-1-of-5" and each keeps its own in-flight list.
func WithParallelCount(instances int) Option {
	return func(o *options) {
		o.parallelCount = instances
	}
}

// WithPopTimeout bounds how long a worker blocks waiting for a record. It is also the longest a worker takes
// to notice that the engine is shutting down.
func WithPopTimeout(d time.Duration) Option {
	return func(o *options) {
		o.popTimeout = d
	}
}

// WithErrBackOff defines the initial backoff of a worker process after an infrastructure error. Consecutive
// errors double the backoff up to max.
func WithErrBackOff(initial, max time.Duration) Option {
	return func(o *options) {
		o.errBackOff = initial
		o.maxErrBackOff = max
	}
}

// WithMaxDeliveries defines how many times a record may fail on an ingress queue before it is moved to the
// queue's dead letter queue.
func WithMaxDeliveries(n int) Option {
	return func(o *options) {
		o.maxDeliveries = n
	}
}

// WithTickDriver switches the engine from blocking-pop workers to a single timer that, every interval,
// pops at most one record per chain.
func WithTickDriver(interval time.Duration) Option {
	return func(o *options) {
		o.tickDriven = true
		o.tickInterval = interval
	}
}

// WithConsumerName sets the stable name of this instance. It prefixes the in-flight lists of the workers
// so that a restarted instance recovers the records its predecessor had popped.
func WithConsumerName(name string) Option {
	return func(o *options) {
		o.consumerName = name
	}
}

// WithPubSub enables ingestion from the ingress topics of chains.
func WithPubSub(ps PubSub) Option {
	return func(o *options) {
		o.pubSub = ps
	}
}

// WithDeliveryCounter sets the counter used for the retry budget. Without one an in-process counter is used
// which is only correct when a single instance reads each queue.
func WithDeliveryCounter(dc DeliveryCounter) Option {
	return func(o *options) {
		o.deliveryCounter = dc
	}
}

// WithRecordTTL refreshes the expiry of a record every time a chain completes for it.
func WithRecordTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.recordTTL = ttl
	}
}
