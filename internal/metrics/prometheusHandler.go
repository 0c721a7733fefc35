package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by route pattern and status",
}, []string{"path", "status"})

var httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "http_request_latency_seconds",
	Help:    "Time until the handler returned. Job processing is measured separately.",
	Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 5},
}, []string{"path"})

// CaptureHttpMetrics records one served request. route should be the router pattern, not the raw path.
func CaptureHttpMetrics(route string, status int, timeElapsed time.Duration) {
	HttpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(route).Observe(timeElapsed.Seconds())
}

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var resolvedQueries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "resolver_answers_total",
	Help: "Answers produced by the query resolver, by tier and intent",
}, []string{"source", "intent"})

var tierFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "resolver_tier_failures_total",
	Help: "Tier attempts that failed and fell through to the next tier",
}, []string{"source"})

var ingestedDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingested_documents_total",
	Help: "Documents that finished ingestion, by final status",
}, []string{"status"})

var passagesAdded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "index_passages_added_total",
	Help: "Passages merged into the vector index",
})

var eventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "event_stream_subscribers",
	Help: "Open server-sent event streams",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *HttpStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Flush keeps streaming handlers working behind the recorder.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func CaptureResolvedQuery(source string, intent string) {
	resolvedQueries.WithLabelValues(source, intent).Inc()
}

func CaptureTierFailure(source string) {
	tierFailures.WithLabelValues(source).Inc()
}

func CaptureIngestion(status string, added int) {
	ingestedDocuments.WithLabelValues(status).Inc()
	passagesAdded.Add(float64(added))
}

func EventSubscriberOpened() {
	eventSubscribers.Inc()
}

func EventSubscriberClosed() {
	eventSubscribers.Dec()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent processing a job.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 120, 600},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
