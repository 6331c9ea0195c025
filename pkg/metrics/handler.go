package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the default gatherer plus any extra collectors registered on it.
func Handler(extra ...prometheus.Collector) (http.Handler, error) {
	for _, c := range extra {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return promhttp.Handler(), nil
}
