// Package proxy provides the forward-proxy pool consulted by the fetcher.
package proxy

import (
	"strings"
	"sync"
)

// RoundRobin hands out the configured proxy addresses in rotation.
// It is safe for concurrent use.
type RoundRobin struct {
	mu    sync.Mutex
	addrs []string
	next  int
}

// NewRoundRobin builds a pool from addresses; blank entries are dropped.
func NewRoundRobin(addrs []string) *RoundRobin {
	clean := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a = strings.TrimSpace(a); a != "" {
			clean = append(clean, a)
		}
	}
	return &RoundRobin{addrs: clean}
}

// Get returns the next proxy address, or false when the pool is empty.
func (p *RoundRobin) Get() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.addrs) == 0 {
		return "", false
	}
	addr := p.addrs[p.next%len(p.addrs)]
	p.next = (p.next + 1) % len(p.addrs)
	return addr, true
}

// Len reports how many proxies are configured.
func (p *RoundRobin) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.addrs)
}
