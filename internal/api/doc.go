// Package api hosts the operator HTTP surface of a scrape run. Routes:
//   - GET /healthz and /readyz for container probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/run for the state and counters of the run in progress.
package api
