package download

import "github.com/prometheus/client_golang/prometheus"

var (
	downloadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gptlocal",
			Subsystem: "download",
			Name:      "bytes_total",
			Help:      "Total number of model bytes written to disk",
		},
	)

	downloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gptlocal",
			Subsystem: "download",
			Name:      "downloads_total",
			Help:      "Model downloads by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(downloadBytesTotal, downloadsTotal)
}
