// Package metrics holds the process-wide metric set and its Prometheus
// exposition handler.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Version is exported as app_version; set it from main.
var Version = "dev"

var startTime = time.Now()

// Set holds every onesocket metric.
var Set = metrics.NewSet()

// WritePrometheus writes process metrics, Set and uptime in Prometheus text format.
func WritePrometheus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writePrometheusMetrics(w)
}

func writePrometheusMetrics(w io.Writer) {
	metrics.WritePrometheus(w, true)
	Set.WritePrometheus(w)

	fmt.Fprintf(w, "app_start_timestamp %d\n", startTime.Unix())
	fmt.Fprintf(w, "app_uptime_seconds %d\n", int(time.Since(startTime).Seconds()))
	fmt.Fprintf(w, "app_version{version=%q} 1\n", Version)
}

// Name formats a metric name with a namespace label, e.g.
// onesocket_messages_total{namespace="b"}.
func Name(metric, namespace string) string {
	return fmt.Sprintf("onesocket_%s{namespace=%q}", metric, namespace)
}
