// Package httpserver wraps the standard library http.Server with functional
// options, env-driven configuration, graceful shutdown on context
// cancellation or SIGTERM, and a combined liveness/readiness health handler.
package httpserver
