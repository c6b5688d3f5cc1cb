// internal/search/fuzzy/index.go
package fuzzy

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"marketplace-search/internal/common/config"
	"marketplace-search/internal/common/logger"
	"marketplace-search/internal/common/metrics"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/sync/singleflight"
)

// Entry is one indexable listing identity: display name plus SKU code.
type Entry struct {
	SKU  string
	Name string
}

// SourceFunc supplies the currently active listing identities for a rebuild.
type SourceFunc func(ctx context.Context) ([]Entry, error)

// Match is a best-effort approximate match with a similarity score in [0,1].
type Match struct {
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// Index is a rebuildable approximate-match index over listing names and
// codes. It is used only after exact and prefix-relaxed matching both yield
// nothing; every failure mode degrades to an empty result list.
type Index struct {
	mu      sync.RWMutex
	entries []Entry
	builtAt time.Time

	cfg    config.FuzzyConfig
	source SourceFunc
	group  singleflight.Group
	logger logger.Logger
	dmp    *diffmatchpatch.DiffMatchPatch
}

// New creates a fuzzy index fed by source. The index is built lazily on
// first use and refreshed after the configured rebuild interval.
func New(cfg config.FuzzyConfig, source SourceFunc, log logger.Logger) *Index {
	return &Index{
		cfg:    cfg,
		source: source,
		logger: log.WithFields(map[string]interface{}{"component": "fuzzy-index"}),
		dmp:    diffmatchpatch.New(),
	}
}

// Search returns up to limit approximate matches for query, best first.
// Queries below the minimum length, a failed build, or an empty index all
// yield an empty list, never an error.
func (ix *Index) Search(ctx context.Context, query string, limit int) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if len([]rune(query)) < ix.cfg.MinQueryLength {
		return nil
	}
	if limit <= 0 || limit > ix.cfg.MaxResults {
		limit = ix.cfg.MaxResults
	}

	ix.ensureFresh(ctx)

	ix.mu.RLock()
	entries := ix.entries
	ix.mu.RUnlock()

	var matches []Match
	for _, entry := range entries {
		sim := ix.entrySimilarity(query, entry)
		if sim >= ix.cfg.MinSimilarity {
			matches = append(matches, Match{SKU: entry.SKU, Name: entry.Name, Similarity: sim})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].SKU < matches[j].SKU
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Rebuild forces an immediate rebuild from the source.
func (ix *Index) Rebuild(ctx context.Context) error {
	_, err, _ := ix.group.Do("rebuild", func() (interface{}, error) {
		return nil, ix.rebuild(ctx)
	})
	return err
}

// BuiltAt returns when the index was last successfully built.
func (ix *Index) BuiltAt() time.Time {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.builtAt
}

// Size returns the number of indexed entries.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// ensureFresh rebuilds when the index is stale. Concurrent callers share one
// rebuild via singleflight; a failed rebuild keeps the previous entries.
func (ix *Index) ensureFresh(ctx context.Context) {
	ix.mu.RLock()
	stale := ix.builtAt.IsZero() ||
		time.Since(ix.builtAt) > time.Duration(ix.cfg.RebuildInterval)*time.Second
	ix.mu.RUnlock()
	if !stale {
		return
	}

	// Build failures are swallowed: the fuzzy stage simply yields no matches.
	_, _, _ = ix.group.Do("rebuild", func() (interface{}, error) {
		return nil, ix.rebuild(ctx)
	})
}

func (ix *Index) rebuild(ctx context.Context) error {
	start := time.Now()
	entries, err := ix.source(ctx)
	if err != nil {
		metrics.FuzzyRebuilds.WithLabelValues("failure").Inc()
		ix.logger.Warn("fuzzy index rebuild failed", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	ix.mu.Lock()
	ix.entries = entries
	ix.builtAt = time.Now().UTC()
	ix.mu.Unlock()

	metrics.FuzzyRebuilds.WithLabelValues("success").Inc()
	ix.logger.Info("fuzzy index rebuilt", map[string]interface{}{
		"entries":    len(entries),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return nil
}

// entrySimilarity scores query against the entry's SKU and each name token,
// returning the best score.
func (ix *Index) entrySimilarity(query string, entry Entry) float64 {
	best := ix.similarity(query, strings.ToLower(entry.SKU))
	for _, token := range strings.Fields(strings.ToLower(entry.Name)) {
		if s := ix.similarity(query, token); s > best {
			best = s
		}
	}
	return best
}

// similarity maps Levenshtein distance over a character diff onto [0,1].
func (ix *Index) similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}

	diffs := ix.dmp.DiffMain(a, b, false)
	distance := ix.dmp.DiffLevenshtein(diffs)
	sim := 1 - float64(distance)/float64(longest)
	if sim < 0 {
		sim = 0
	}
	return sim
}
