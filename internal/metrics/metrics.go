// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "docassist"

var registerOnce sync.Once

// Register adds every collector to the default registry. Later calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(providerCollectors()...)
		prometheus.MustRegister(pipelineCollectors()...)
		prometheus.MustRegister(httpCollectors()...)
	})
}
