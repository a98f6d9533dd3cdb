// Package server provides the process-level pieces of the mailbridge HTTP
// service: the shared ServerContext that builds per-token Gmail clients,
// health probes, the API and metrics listeners, and graceful shutdown.
package server
