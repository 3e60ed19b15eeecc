package crawler

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DomainCoordinator serializes crawls per host inside one worker
// process, so two leased jobs against the same site never hammer it in
// parallel. Coordination is process-local: cross-process politeness is
// left to the per-request pacing.
type DomainCoordinator struct {
	mu   sync.Mutex
	busy map[string]string // host -> holding job ID
}

// NewDomainCoordinator creates an empty coordinator
func NewDomainCoordinator() *DomainCoordinator {
	return &DomainCoordinator{
		busy: make(map[string]string),
	}
}

// HostOf extracts the coordination key from a URL
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// MarkBusy claims the host for a job. Returns false, with the holder's
// job ID, when another job already owns it. Re-claiming by the same job
// succeeds.
func (c *DomainCoordinator) MarkBusy(host, jobID string) (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if holder, taken := c.busy[host]; taken && holder != jobID {
		return false, holder
	}
	c.busy[host] = jobID
	return true, jobID
}

// Release frees the host if the job holds it
func (c *DomainCoordinator) Release(host, jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy[host] == jobID {
		delete(c.busy, host)
	}
}

// Holder returns the job currently crawling the host
func (c *DomainCoordinator) Holder(host string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	holder, ok := c.busy[host]
	return holder, ok
}

// WaitForAvailability blocks until the host can be claimed for the job,
// polling once a second, or until the context ends.
func (c *DomainCoordinator) WaitForAvailability(ctx context.Context, host, jobID string) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		if ok, _ := c.MarkBusy(host, jobID); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
