package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/phrazzld/scry-analyzer/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "analyzer"

// Collector records task lifecycle events as Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	tasksTotal      *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	fragments       *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	tasksInFlight   prometheus.Gauge
	buildInfo       *prometheus.GaugeVec
}

var _ events.EventHandler = (*Collector)(nil)

// NewCollector creates a Collector with its own registry, which also carries
// the Go runtime and process collectors.
func NewCollector() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "Processed tasks by task type and queue outcome.",
			},
			[]string{"task_type", "outcome"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_duration_seconds",
				Help:      "Time from task receipt to terminal state.",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"task_type"},
		),
		fragments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fragments_published_total",
				Help:      "Fragments delivered to the output bus, including terminators.",
			},
			[]string{"task_type"},
		),
		publishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fragment_publish_failures_total",
				Help:      "Fragments that could not be delivered to the output bus.",
			},
			[]string{"task_type"},
		),
		tasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_in_flight",
			Help:      "Tasks currently generating.",
		}),
		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "build_info",
				Help:      "Analyzer build information.",
			},
			[]string{"version"},
		),
	}

	for _, collector := range []prometheus.Collector{
		c.tasksTotal,
		c.taskDuration,
		c.fragments,
		c.publishFailures,
		c.tasksInFlight,
		c.buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := c.registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// SetBuildInfo sets analyzer_build_info{version="..."} to 1.
func (c *Collector) SetBuildInfo(version string) {
	c.buildInfo.WithLabelValues(version).Set(1)
}

// HandleEvent implements events.EventHandler.
func (c *Collector) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	if event == nil {
		return errors.New("nil event")
	}

	taskType := event.TaskType
	if taskType == "" {
		taskType = "unknown"
	}

	switch event.Type {
	case events.TaskStarted:
		c.tasksInFlight.Inc()
	case events.TaskFinished:
		if event.Dispatched {
			c.tasksInFlight.Dec()
		}
		c.tasksTotal.WithLabelValues(taskType, event.Outcome).Inc()
		c.taskDuration.WithLabelValues(taskType).Observe(event.Duration.Seconds())
		c.fragments.WithLabelValues(taskType).Add(float64(event.Fragments))
		c.publishFailures.WithLabelValues(taskType).Add(float64(event.PublishFailures))
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
