// Package mirror describes the known PDB archive mirrors (rsync host/port,
// HTTPS base URL, region) and resolves user-facing aliases to them.
package mirror

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

// ID identifies a mirror.
type ID string

const (
	RCSB  ID = "rcsb"
	PDBj  ID = "pdbj"
	PDBe  ID = "pdbe"
	WWPDB ID = "wwpdb"
)

// Mirror describes one archive endpoint.
type Mirror struct {
	ID         ID
	Region     string
	RsyncHost  string
	RsyncPort  int // 0 means the rsync default (873)
	HTTPSBase  string
}

var registry = map[ID]Mirror{
	RCSB:  {ID: RCSB, Region: "us", RsyncHost: "rsync.rcsb.org", RsyncPort: 0, HTTPSBase: "https://files.rcsb.org"},
	PDBj:  {ID: PDBj, Region: "jp", RsyncHost: "rsync.pdbj.org", RsyncPort: 0, HTTPSBase: "https://pdbj.org"},
	PDBe:  {ID: PDBe, Region: "europe", RsyncHost: "rsync.ebi.ac.uk", RsyncPort: 0, HTTPSBase: "https://www.ebi.ac.uk/pdbe"},
	WWPDB: {ID: WWPDB, Region: "global", RsyncHost: "rsync.wwpdb.org", RsyncPort: 0, HTTPSBase: "https://files.wwpdb.org"},
}

var aliases = map[string]ID{
	"us":     RCSB,
	"rcsb":   RCSB,
	"jp":     PDBj,
	"pdbj":   PDBj,
	"uk":     PDBe,
	"eu":     PDBe,
	"europe": PDBe,
	"pdbe":   PDBe,
	"global": WWPDB,
	"wwpdb":  WWPDB,
}

// Resolve canonicalizes a mirror name or alias.
func Resolve(name string) (Mirror, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := aliases[key]; ok {
		return registry[id], nil
	}
	return Mirror{}, fmt.Errorf("mirror: unknown mirror %q", name)
}

// ByHost reverse-looks-up a Mirror by its rsync host, for recognizing
// which configured mirror a job's url targets.
func ByHost(host string) (Mirror, bool) {
	for _, m := range registry {
		if m.RsyncHost == host {
			return m, true
		}
	}
	return Mirror{}, false
}

// All returns every known mirror, optionally filtered to those matching
// region (case-insensitive); an empty region returns every mirror.
func All(region string) []Mirror {
	region = strings.ToLower(strings.TrimSpace(region))
	out := make([]Mirror, 0, len(registry))
	for _, m := range registry {
		if region == "" || strings.ToLower(m.Region) == region {
			out = append(out, m)
		}
	}
	return out
}

// RsyncAddr returns host:port suitable for dialing, applying the rsync
// default port (873) when Mirror.RsyncPort is unset.
func (m Mirror) RsyncAddr() string {
	port := m.RsyncPort
	if port == 0 {
		port = 873
	}
	return fmt.Sprintf("%s:%d", m.RsyncHost, port)
}

// Probe measures TCP connect latency to m's rsync port. It is the building
// block for mirror_selection.auto_select (SPEC_FULL.md §C); callers are
// expected to cache the result for mirror_selection.latency_cache_ttl.
func Probe(ctx context.Context, m Mirror, timeout time.Duration) (time.Duration, error) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	d := net.Dialer{Timeout: timeout}

	type result struct {
		dur time.Duration
		err error
	}
	resCh := make(chan result, 1)
	start := time.Now()
	go func() {
		conn, err := d.DialContext(ctx, "tcp", m.RsyncAddr())
		if err != nil {
			resCh <- result{err: err}
			return
		}
		_ = conn.Close()
		resCh <- result{dur: time.Since(start)}
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case r := <-resCh:
		return r.dur, r.err
	}
}

// Fastest probes every mirror in candidates concurrently and returns the
// one with the lowest latency. It is used by ConfigResolver when
// mirror_selection.auto_select is enabled.
func Fastest(ctx context.Context, candidates []Mirror, timeout time.Duration) (Mirror, error) {
	if len(candidates) == 0 {
		return Mirror{}, fmt.Errorf("mirror: no candidates to probe")
	}
	type probed struct {
		m   Mirror
		dur time.Duration
		err error
	}
	out := make(chan probed, len(candidates))
	for _, m := range candidates {
		m := m
		go func() {
			dur, err := Probe(ctx, m, timeout)
			out <- probed{m: m, dur: dur, err: err}
		}()
	}

	var best probed
	haveBest := false
	for range candidates {
		p := <-out
		if p.err != nil {
			continue
		}
		if !haveBest || p.dur < best.dur {
			best = p
			haveBest = true
		}
	}
	if !haveBest {
		return Mirror{}, fmt.Errorf("mirror: all candidates failed to respond")
	}
	return best.m, nil
}

// LatencyCache memoizes Fastest results for a TTL, so repeated resolutions
// within one process (e.g. one `sync --all` run across several jobs
// pointed at the same mirror set) don't re-probe every candidate per job.
type LatencyCache struct {
	mu      sync.Mutex
	entries map[string]cachedPick
}

type cachedPick struct {
	m         Mirror
	err       error
	expiresAt time.Time
}

// NewLatencyCache returns a ready-to-use cache.
func NewLatencyCache() *LatencyCache {
	return &LatencyCache{entries: make(map[string]cachedPick)}
}

// Fastest returns the fastest of candidates, probing at most once per ttl
// for a given candidate set; ttl <= 0 disables caching (always probes).
func (c *LatencyCache) Fastest(ctx context.Context, candidates []Mirror, timeout, ttl time.Duration) (Mirror, error) {
	key := cacheKey(candidates)

	c.mu.Lock()
	if ttl > 0 {
		if e, ok := c.entries[key]; ok && time.Now().Before(e.expiresAt) {
			c.mu.Unlock()
			return e.m, e.err
		}
	}
	c.mu.Unlock()

	m, err := Fastest(ctx, candidates, timeout)

	if ttl > 0 {
		c.mu.Lock()
		c.entries[key] = cachedPick{m: m, err: err, expiresAt: time.Now().Add(ttl)}
		c.mu.Unlock()
	}
	return m, err
}

func cacheKey(candidates []Mirror) string {
	ids := make([]string, len(candidates))
	for i, m := range candidates {
		ids[i] = string(m.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
