// Package metrics contains abstractions for emission of metrics generated throughout the lifetime
// of the application. Engine-side metrics go to statsd; HTTP request metrics are exposed to
// Prometheus.
//
// Engine metrics are generated at various points during a single command round trip, so they are
// structured around the notion of hooks: a hook interface defines methods that are invoked by the
// connection pool and the protocol client while serving a command. Implementations of the hook
// interfaces actually output the metrics to a backend; this responsibility is decoupled from the
// semantics of "hooking" into business logic.
package metrics
