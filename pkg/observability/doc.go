/*
Package observability turns wizard lifecycle events into Prometheus metrics
and structured log lines.

Both surfaces are plain domain.LifecycleHooks, so they compose with any other
observer through domain.CombineHooks:

	metrics, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := domain.CombineHooks(metrics.Hooks(), observability.LogHooks(logger))
*/
package observability
