package scraper

import (
	"errors"
	"fmt"
)

// ErrNoDetails reports that a product page lacked one of the two detail sources.
var ErrNoDetails = errors.New("product details not found")

// FetchError is returned when a page could not be retrieved.
type FetchError struct {
	URL        string
	Proxy      string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	proxy := e.Proxy
	if proxy == "" {
		proxy = "none"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s (proxy %s): status %d: %v", e.URL, proxy, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s (proxy %s): %v", e.URL, proxy, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// UnknownSourceError is returned by the Registry for an unregistered channel name.
type UnknownSourceError struct {
	Name  string
	Known []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source %q (known: %v)", e.Name, e.Known)
}
