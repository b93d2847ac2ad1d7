package nav

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var (
	// pathRequests counts finished path requests by result code.
	pathRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nav3d_path_requests_total",
		Help: "Total path requests by volume and result",
	}, []string{"volume", "result"})

	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nav3d_path_search_duration_seconds",
		Help:    "Worker time spent resolving endpoints and searching",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50us to ~400ms
	}, []string{"volume"})

	pathPoints = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nav3d_path_points",
		Help:    "Number of points in successful paths",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 40, 80, 160, 320},
	})

	longPaths = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nav3d_long_paths_total",
		Help: "Paths longer than the volume's long path threshold",
	}, []string{"volume"})

	// endpointResolutions counts blocked endpoints and whether a nearby cell was found.
	endpointResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nav3d_endpoint_resolutions_total",
		Help: "Blocked endpoint relocations by endpoint and outcome",
	}, []string{"endpoint", "outcome"}) // "start"/"end", "resolved"/"failed"
)

var tracer = otel.Tracer("github.com/udisondev/nav3d/internal/nav")
