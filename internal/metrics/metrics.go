package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"repoclone/internal/run"
)

const namespace = "repoclone"

// Recorder collects clone metrics for a single run. A nil *Recorder is valid
// and records nothing.
//
// Available metrics are...
//   - repoclone_clone_total - (tags: success)
//     A Counter incremented once per clone attempt.
//   - repoclone_clone_duration_seconds - (tags: success)
//     A Histogram of clone durations.
//   - repoclone_repositories - (tags: state=remote|present|attempted|succeeded|failed)
//     A Gauge with the counts of the last run summary.
//   - repoclone_last_run_timestamp_seconds
//     A Gauge with the completion time of the last run.
type Recorder struct {
	registry     *prometheus.Registry
	cloneCount   *prometheus.CounterVec
	cloneLatency *prometheus.HistogramVec
	repositories *prometheus.GaugeVec
	lastRun      prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		cloneCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clone_total",
			Help:      "Count of clone attempts",
		},
			[]string{
				// Whether the clone was successful or not
				"success",
			},
		),
		cloneLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "clone_duration_seconds",
			Help:      "Duration of clone attempts",
			Buckets:   []float64{0.5, 1, 5, 10, 20, 30, 60, 90, 120, 150, 300},
		},
			[]string{"success"},
		),
		repositories: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "repositories",
			Help:      "Repository counts of the last run",
		},
			[]string{"state"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Timestamp of the last completed run",
		}),
	}
	r.registry.MustRegister(r.cloneCount, r.cloneLatency, r.repositories, r.lastRun)
	return r
}

// ObserveJob records one finished clone attempt.
func (r *Recorder) ObserveJob(j run.Job) {
	if r == nil || !j.Terminal() {
		return
	}
	success := strconv.FormatBool(j.Status == run.StatusSucceeded)
	r.cloneCount.WithLabelValues(success).Inc()
	r.cloneLatency.WithLabelValues(success).Observe(j.Duration.Seconds())
}

// ObserveResult records the run summary.
func (r *Recorder) ObserveResult(res run.Result, finished time.Time) {
	if r == nil {
		return
	}
	r.repositories.WithLabelValues("remote").Set(float64(res.TotalRemote))
	r.repositories.WithLabelValues("present").Set(float64(res.AlreadyPresent))
	r.repositories.WithLabelValues("attempted").Set(float64(res.Attempted))
	r.repositories.WithLabelValues("succeeded").Set(float64(res.Succeeded))
	r.repositories.WithLabelValues("failed").Set(float64(res.Failed))
	r.lastRun.Set(float64(finished.Unix()))
}

// WriteTextfile writes all metrics in text exposition format, for the node
// exporter textfile collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
