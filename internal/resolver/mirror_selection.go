package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/pdbsync/pdbsync/internal/config"
	"github.com/pdbsync/pdbsync/internal/mirror"
)

// probeTimeout bounds a single mirror latency probe; mirror_selection has
// no field for it, so a conservative constant is used instead.
const probeTimeout = 3 * time.Second

// latencyCache is shared across every Resolve call in the process, so a
// `sync --all` run only probes each mirror set once per
// mirror_selection.latency_cache_ttl window instead of once per job.
var latencyCache = mirror.NewLatencyCache()

// applyMirrorSelection rewrites url's host to the fastest responding PDB
// mirror when sel.AutoSelect is set and url's host is recognized as one of
// the known mirrors (SPEC_FULL.md's "bolted onto ConfigResolver as an
// optional pre-step"). urls whose host isn't a recognized mirror, or that
// fail to parse, pass through unchanged: auto-selection only ever
// substitutes among known PDB mirrors, never invents a host.
func applyMirrorSelection(ctx context.Context, sel config.MirrorSelection, url string) string {
	if !sel.AutoSelect {
		return url
	}
	host, rebuild, ok := splitMirrorHost(url)
	if !ok {
		return url
	}
	if _, known := mirror.ByHost(host); !known {
		return url
	}

	candidates := mirror.All(sel.PreferredRegion)
	if len(candidates) == 0 {
		candidates = mirror.All("")
	}

	ttl := time.Duration(sel.LatencyCacheTTL) * time.Second
	best, err := latencyCache.Fastest(ctx, candidates, probeTimeout, ttl)
	if err != nil {
		return url
	}
	return rebuild(best.RsyncHost)
}

// splitMirrorHost extracts url's host for both supported rsync url forms
// ("rsync://host/module..." and "host::module") and returns a closure that
// rebuilds the same url with a replacement host.
func splitMirrorHost(url string) (host string, rebuild func(string) string, ok bool) {
	switch {
	case strings.HasPrefix(url, "rsync://"):
		rest := strings.TrimPrefix(url, "rsync://")
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return "", nil, false
		}
		host, tail := rest[:slash], rest[slash:]
		return host, func(newHost string) string {
			return "rsync://" + newHost + tail
		}, true
	case strings.Contains(url, "::"):
		idx := strings.Index(url, "::")
		host, tail := url[:idx], url[idx:]
		return host, func(newHost string) string {
			return newHost + tail
		}, true
	default:
		return "", nil, false
	}
}
