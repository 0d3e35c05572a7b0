package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vt",
		Name:      "photo_searches_total",
		Help:      "Total number of photo search requests issued",
	})

	PhotosDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vt",
		Name:      "photos_downloaded_total",
		Help:      "Total number of photo downloads completed and stored",
	})

	DownloadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vt",
		Name:      "photo_download_failures_total",
		Help:      "Total number of failed photo downloads",
	})

	AlbumRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vt",
		Name:      "album_refreshes_total",
		Help:      "Total number of new-collection refresh requests",
	})

	InflightDownloads = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vt",
		Name:      "inflight_downloads",
		Help:      "Number of photo downloads currently in flight",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vt",
		Name:      "queue_depth",
		Help:      "Number of pending photo events in the queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vt",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vt",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
