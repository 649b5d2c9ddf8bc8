package dns

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/logsift/logsift/pkg/models"
)

// Resolver performs cached reverse DNS lookups for client addresses.
type Resolver struct {
	mu          sync.RWMutex
	cache       map[string]*cacheEntry
	timeout     time.Duration
	maxCacheAge time.Duration
}

type cacheEntry struct {
	hostname  string
	timestamp time.Time
}

// NewResolver creates a resolver with a 2 second lookup timeout.
func NewResolver() *Resolver {
	return &Resolver{
		cache:       make(map[string]*cacheEntry),
		timeout:     2 * time.Second,
		maxCacheAge: 24 * time.Hour,
	}
}

// ReverseLookup resolves an IP to a hostname. Failures and timeouts
// return an empty string; results are cached either way.
func (r *Resolver) ReverseLookup(ip string) string {
	r.mu.RLock()
	if entry, exists := r.cache[ip]; exists {
		if time.Since(entry.timestamp) < r.maxCacheAge {
			r.mu.RUnlock()
			return entry.hostname
		}
	}
	r.mu.RUnlock()

	hostname := r.lookupWithTimeout(ip)

	r.mu.Lock()
	r.cache[ip] = &cacheEntry{
		hostname:  hostname,
		timestamp: time.Now(),
	}
	r.mu.Unlock()

	return hostname
}

func (r *Resolver) lookupWithTimeout(ip string) string {
	type result struct {
		names []string
		err   error
	}

	ch := make(chan result, 1)
	go func() {
		names, err := net.LookupAddr(ip)
		ch <- result{names, err}
	}()

	select {
	case res := <-ch:
		if res.err == nil && len(res.names) > 0 {
			return strings.TrimSuffix(res.names[0], ".")
		}
		return ""
	case <-time.After(r.timeout):
		return ""
	}
}

// AnnotateHosts fills the Hostname field for host stats whose Host is an
// IP address. Lookups run concurrently.
func (r *Resolver) AnnotateHosts(hosts []models.HostStat) {
	var wg sync.WaitGroup
	for i := range hosts {
		if net.ParseIP(hosts[i].Host) == nil {
			continue
		}
		wg.Add(1)
		go func(stat *models.HostStat) {
			defer wg.Done()
			stat.Hostname = r.ReverseLookup(stat.Host)
		}(&hosts[i])
	}
	wg.Wait()
}

// ClearCache empties the lookup cache.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*cacheEntry)
}

// CacheSize returns the number of cached lookups.
func (r *Resolver) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}
