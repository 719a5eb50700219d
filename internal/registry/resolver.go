package registry

import (
	"context"
	"regexp"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/redhat-openshift-ecosystem/junit-reporter/pkg/api"
)

var (
	locatorRegexp = regexp.MustCompile(`/project/([^/?#]+)/branch/([^/?#]+)/test/`)
	testIDRegexp  = regexp.MustCompile(`/test/([^/?#]+)`)
)

// Locator identifies a project branch in the registry.
type Locator struct {
	ProjectID string
	Branch    string
}

func (l Locator) key() string {
	return l.ProjectID + "_" + l.Branch
}

// ParseLocator extracts the project and branch from a registry URL embedded
// in a case output.
func ParseLocator(output string) (Locator, bool) {
	m := locatorRegexp.FindStringSubmatch(output)
	if m == nil {
		return Locator{}, false
	}
	return Locator{ProjectID: m[1], Branch: m[2]}, true
}

// TestID extracts the registry test ID from a case output, empty when absent.
func TestID(output string) string {
	m := testIDRegexp.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsRegistryCase reports whether the case output points at a registry entry.
func IsRegistryCase(c api.Case) bool {
	_, ok := ParseLocator(c.Output)
	return ok
}

// Statuses holds the lifecycle status per registry test ID.
type Statuses map[string]Status

// For returns the lifecycle status of a case, draft when it is unknown.
func (s Statuses) For(c api.Case) Status {
	id := TestID(c.Output)
	if id == "" {
		return StatusDraft
	}
	if st, ok := s[id]; ok && st != "" {
		return st
	}
	return StatusDraft
}

type cacheEntry struct {
	done  chan struct{}
	tests []TestRecord
	err   error
}

// Cache memoizes registry lookups per project branch for the lifetime of one
// run. Entries are never evicted; a failed lookup stays failed.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*cacheEntry)}
}

// Resolver finds the lifecycle status of the cases of a suite.
type Resolver struct {
	fetcher Fetcher
	tokens  ProjectTokenDictionary
	cache   *Cache
}

func NewResolver(fetcher Fetcher, tokens ProjectTokenDictionary, cache *Cache) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	return &Resolver{fetcher: fetcher, tokens: tokens, cache: cache}
}

// Resolve returns the statuses of the branch referenced by the cases. An empty
// result is returned when no case carries a locator or the project has no
// credential configured.
func (r *Resolver) Resolve(ctx context.Context, cases []api.Case) (Statuses, error) {
	var loc Locator
	found := false
	for _, c := range cases {
		if loc, found = ParseLocator(c.Output); found {
			break
		}
	}
	if !found {
		return Statuses{}, nil
	}
	token, ok := r.tokens.Token(loc.ProjectID)
	if !ok {
		log.Debugf("No registry credential for project %s, skipping status lookup", loc.ProjectID)
		return Statuses{}, nil
	}

	tests, err := r.lookup(ctx, loc, token)
	if err != nil {
		return nil, err
	}
	statuses := make(Statuses, len(tests))
	for _, t := range tests {
		statuses[t.ID] = t.TestStatus
	}
	return statuses, nil
}

func (r *Resolver) lookup(ctx context.Context, loc Locator, token string) ([]TestRecord, error) {
	r.cache.mu.Lock()
	entry, ok := r.cache.entries[loc.key()]
	if !ok {
		entry = &cacheEntry{done: make(chan struct{})}
		r.cache.entries[loc.key()] = entry
	}
	r.cache.mu.Unlock()

	if !ok {
		// The result is shared with every later caller, so the fetch must
		// not observe the cancellation of the caller that started it.
		fetchCtx := context.WithoutCancel(ctx)
		go func() {
			entry.tests, entry.err = r.fetcher.FetchTests(fetchCtx, loc.ProjectID, loc.Branch, token)
			close(entry.done)
		}()
	} else {
		log.Debugf("Joining registry lookup for %s", loc.key())
	}

	select {
	case <-entry.done:
		return entry.tests, entry.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
