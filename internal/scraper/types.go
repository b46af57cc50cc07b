// Package scraper defines the core types shared by the fetch, extract and
// publish stages, and the orchestrator that composes them.
package scraper

import (
	"net/http"
	"time"
)

// State represents the lifecycle state of a scrape run.
type State string

// Run states reported by the Orchestrator.
const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL      string
	UseProxy bool
	Headers  http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	// Proxy is the proxy address the request was routed through, empty for direct requests.
	Proxy string
}

// RunStats tracks what a run did.
type RunStats struct {
	Categories  int `json:"categories"`
	ProductURLs int `json:"product_urls"`
	Published   int `json:"published"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
}
