package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	chainName   = "chain"
	linkName    = "link"
	storageName = "storage"
	processName = "process_name"
	queueName   = "queue"
	outcome     = "outcome"
)

var (
	// ProcessStates reflects the states of all the worker processes of the instance
	ProcessStates = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "conserver_process_states",
		Help: "The current states of all the processes",
	}, []string{processName})

	// ProcessErrors is the number of infrastructure errors that caused a worker process to back off
	ProcessErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conserver_process_error_count",
		Help: "Number of errors returned by worker processes",
	}, []string{processName})

	// LinkLatency is how long a single link invocation takes
	LinkLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conserver_link_latency_seconds",
		Help:    "Link invocation latency in seconds",
		Buckets: []float64{0.01, 0.1, 1, 5, 10, 60, 300},
	}, []string{chainName, linkName})

	// LinkErrors is the number of link invocations that returned an error
	LinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conserver_link_error_count",
		Help: "Number of link invocations that failed",
	}, []string{chainName, linkName})

	// StorageLatency is how long a single storage save takes
	StorageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conserver_storage_latency_seconds",
		Help:    "Storage save latency in seconds",
		Buckets: []float64{0.01, 0.1, 1, 5, 10, 60},
	}, []string{chainName, storageName})

	// StorageErrors is the number of storage saves that returned an error
	StorageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conserver_storage_error_count",
		Help: "Number of storage saves that failed",
	}, []string{chainName, storageName})

	// ChainLatency is how long a whole chain execution takes, including wrap up
	ChainLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conserver_chain_latency_seconds",
		Help:    "Chain execution latency in seconds",
		Buckets: []float64{0.01, 0.1, 1, 5, 10, 60, 300, 900},
	}, []string{chainName})

	// ChainOutcomes counts chain executions by how they ended
	ChainOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conserver_chain_outcome_count",
		Help: "Number of chain executions by outcome",
	}, []string{chainName, outcome})

	// DeadLettered is the number of records moved to a dead letter queue
	DeadLettered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conserver_dead_lettered_count",
		Help: "Number of records pushed to a dead letter queue",
	}, []string{queueName})

	// Redelivered is the number of records pushed back onto their ingress queue for another attempt
	Redelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conserver_redelivered_count",
		Help: "Number of records requeued for another attempt",
	}, []string{queueName})

	// Reprocessed is the number of dead lettered records moved back to their ingress queue
	Reprocessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conserver_dlq_reprocessed_count",
		Help: "Number of records moved from a dead letter queue back to ingress",
	}, []string{queueName})
)

func init() {
	prometheus.MustRegister(
		ProcessStates,
		ProcessErrors,
		LinkLatency,
		LinkErrors,
		StorageLatency,
		StorageErrors,
		ChainLatency,
		ChainOutcomes,
		DeadLettered,
		Redelivered,
		Reprocessed,
	)
}

func Reset() {
	ProcessStates.Reset()
	ProcessErrors.Reset()
	LinkLatency.Reset()
	LinkErrors.Reset()
	StorageLatency.Reset()
	StorageErrors.Reset()
	ChainLatency.Reset()
	ChainOutcomes.Reset()
	DeadLettered.Reset()
	Redelivered.Reset()
	Reprocessed.Reset()
}
