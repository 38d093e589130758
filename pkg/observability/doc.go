/*
Package observability provides Prometheus instrumentation for normalization runs.

Metrics are registered on a dedicated registry so several runners (and tests)
can coexist in one process. Expose them with Handler, typically on /metrics.
*/
package observability
