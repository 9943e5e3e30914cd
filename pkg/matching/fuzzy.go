package matching

import (
	"math"
	"sync"

	"github.com/agnivade/levenshtein"
)

// PartialRatio scores how well the shorter string fits somewhere inside the
// longer one, 0..100. Each equal-length window of the longer string is scored
// by edit distance and the best window wins.
func PartialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	s := string(short)
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		dist := levenshtein.ComputeDistance(s, string(long[i:i+len(short)]))
		score := int(math.Round(100 * (1 - float64(dist)/float64(len(short)))))
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// CacheStats reports fuzzy cache effectiveness
type CacheStats struct {
	Hits   int `json:"cache_hits"`
	Misses int `json:"cache_misses"`
	Size   int `json:"cache_size"`
}

type pair struct{ a, b string }

// FuzzyCache memoizes PartialRatio on the ordered (a, b) pair.
// The zero value is not usable; call NewFuzzyCache.
type FuzzyCache struct {
	mu     sync.Mutex
	scores map[pair]int
	hits   int
	misses int
	scorer func(a, b string) int
}

// NewFuzzyCache returns an empty cache backed by PartialRatio
func NewFuzzyCache() *FuzzyCache {
	return &FuzzyCache{
		scores: make(map[pair]int),
		scorer: PartialRatio,
	}
}

// Score returns the cached similarity of a and b, computing it on a miss
func (c *FuzzyCache) Score(a, b string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := pair{a, b}
	if score, ok := c.scores[k]; ok {
		c.hits++
		return score
	}
	c.misses++
	score := c.scorer(a, b)
	c.scores[k] = score
	return score
}

// Clear drops every memoized score and resets the counters
func (c *FuzzyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores = make(map[pair]int)
	c.hits = 0
	c.misses = 0
}

// Stats returns a snapshot of the counters
func (c *FuzzyCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Size: len(c.scores)}
}
