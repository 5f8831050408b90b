package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "xritd"

// Collectors groups the daemon's metrics.
type Collectors struct {
	Registry *prometheus.Registry

	SegmentsIngested  *prometheus.CounterVec
	SegmentsRejected  *prometheus.CounterVec
	SegmentsDuplicate *prometheus.CounterVec
	ProductsWritten   *prometheus.CounterVec
	ProductsSkipped   *prometheus.CounterVec
	PipelineFailures  *prometheus.CounterVec
	PoisonGroups      *prometheus.CounterVec
	GroupsRemoved     *prometheus.CounterVec
	FilesErased       *prometheus.CounterVec
	PublishFailures   *prometheus.CounterVec
	GroupsTracked     *prometheus.GaugeVec
	TickDuration      *prometheus.HistogramVec
}

// New builds and registers all collectors.
func New() *Collectors {
	c := &Collectors{
		Registry: prometheus.NewRegistry(),
		SegmentsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "segments_ingested_total",
			Help: "Segment files accepted into a channel buffer.",
		}, []string{"folder", "pipeline"}),
		SegmentsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "segments_rejected_total",
			Help: "Segment files that could not be ingested.",
		}, []string{"folder", "kind"}),
		SegmentsDuplicate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "segments_duplicate_total",
			Help: "Segment arrivals ignored because the index was already present.",
		}, []string{"folder"}),
		ProductsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "products_written_total",
			Help: "Product images rendered and written.",
		}, []string{"folder", "pipeline"}),
		ProductsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "products_skipped_total",
			Help: "Products skipped because the output already existed.",
		}, []string{"folder", "pipeline"}),
		PipelineFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "pipeline_failures_total",
			Help: "Failed pipeline steps, by failure kind.",
		}, []string{"folder", "kind"}),
		PoisonGroups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "poison_groups_total",
			Help: "Groups abandoned after reaching the retry ceiling.",
		}, []string{"folder"}),
		GroupsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "groups_removed_total",
			Help: "Groups removed from reassembly, by reason.",
		}, []string{"folder", "reason"}),
		FilesErased: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "files_erased_total",
			Help: "Segment files deleted after processing.",
		}, []string{"folder"}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "publish_failures_total",
			Help: "Product notifications that failed to deliver.",
		}, []string{"folder"}),
		GroupsTracked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "groups_tracked",
			Help: "Groups currently held by the reassembler.",
		}, []string{"folder"}),
		TickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "scheduler_tick_seconds",
			Help:    "Duration of scheduler ticks.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"folder"}),
	}
	c.Registry.MustRegister(
		c.SegmentsIngested,
		c.SegmentsRejected,
		c.SegmentsDuplicate,
		c.ProductsWritten,
		c.ProductsSkipped,
		c.PipelineFailures,
		c.PoisonGroups,
		c.GroupsRemoved,
		c.FilesErased,
		c.PublishFailures,
		c.GroupsTracked,
		c.TickDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}

func (c *Collectors) SegmentIngested(folder, pipeline string) {
	if c == nil {
		return
	}
	c.SegmentsIngested.WithLabelValues(folder, pipeline).Inc()
}

func (c *Collectors) SegmentRejected(folder, kind string) {
	if c == nil {
		return
	}
	c.SegmentsRejected.WithLabelValues(folder, kind).Inc()
}

func (c *Collectors) SegmentDuplicate(folder string) {
	if c == nil {
		return
	}
	c.SegmentsDuplicate.WithLabelValues(folder).Inc()
}

func (c *Collectors) ProductWritten(folder, pipeline string) {
	if c == nil {
		return
	}
	c.ProductsWritten.WithLabelValues(folder, pipeline).Inc()
}

func (c *Collectors) ProductSkipped(folder, pipeline string) {
	if c == nil {
		return
	}
	c.ProductsSkipped.WithLabelValues(folder, pipeline).Inc()
}

func (c *Collectors) PipelineFailed(folder, kind string) {
	if c == nil {
		return
	}
	c.PipelineFailures.WithLabelValues(folder, kind).Inc()
}

func (c *Collectors) PoisonGroup(folder string) {
	if c == nil {
		return
	}
	c.PoisonGroups.WithLabelValues(folder).Inc()
}

func (c *Collectors) GroupRemoved(folder, reason string) {
	if c == nil {
		return
	}
	c.GroupsRemoved.WithLabelValues(folder, reason).Inc()
}

func (c *Collectors) FileErased(folder string) {
	if c == nil {
		return
	}
	c.FilesErased.WithLabelValues(folder).Inc()
}

func (c *Collectors) PublishFailed(folder string) {
	if c == nil {
		return
	}
	c.PublishFailures.WithLabelValues(folder).Inc()
}

func (c *Collectors) SetGroupsTracked(folder string, n int) {
	if c == nil {
		return
	}
	c.GroupsTracked.WithLabelValues(folder).Set(float64(n))
}

func (c *Collectors) ObserveTick(folder string, d time.Duration) {
	if c == nil {
		return
	}
	c.TickDuration.WithLabelValues(folder).Observe(d.Seconds())
}
