/*
Package pool implements the auto-scaling key-value connection pool.

A Pool owns a set of long-lived connections to a single endpoint. Every
connection multiplexes many concurrent operations: requests carry an opaque
id in the frame header, and a background reader goroutine per connection
matches incoming responses to the waiting callers. Callers pick connections
round-robin, so no operation ever blocks waiting for a free socket.

A monitor goroutine samples the mean number of in-flight operations per
connection on a fixed interval and moves the pool through an explicit state
machine (idle, scaling-up, scaling-down). Sustained high demand adds
connections up to the maximum, sustained low demand removes them down to
the minimum. Both directions use hysteresis so short bursts do not cause
flapping. When NumKvConnections equals MaxKvConnections the pool is fixed:
the monitor then only repairs connections lost at startup so the size
converges to the configured value.

Connections that fail are re-established transparently with capped
exponential backoff, and failed sends are retried on another connection.
*/
package pool
