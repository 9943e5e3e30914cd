package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
)

// DefaultFuzzyThreshold is the score a fuzzy match must strictly exceed
const DefaultFuzzyThreshold = 85

// addressWords is how many trailing words of a location are tried as a street address
const addressWords = 5

// PrecinctLookup maps uppercase precinct names to display strings and keeps
// roster order, which decides ties in the substring and word strategies.
type PrecinctLookup struct {
	names   []string
	display map[string]string
}

// NewPrecinctLookup returns an empty lookup
func NewPrecinctLookup() *PrecinctLookup {
	return &PrecinctLookup{display: make(map[string]string)}
}

// LookupFromRoster indexes every roster entry by its uppercase name
func LookupFromRoster(roster []models.PrecinctEntry) *PrecinctLookup {
	l := NewPrecinctLookup()
	for _, p := range roster {
		l.Add(p.Name, p.Display)
	}
	return l
}

// Add registers a precinct name. Re-adding a name replaces its display but
// keeps its original position.
func (l *PrecinctLookup) Add(name, display string) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if key == "" {
		return
	}
	if _, ok := l.display[key]; !ok {
		l.names = append(l.names, key)
	}
	l.display[key] = display
}

// Len returns the number of distinct precinct names
func (l *PrecinctLookup) Len() int {
	return len(l.names)
}

type addressRow struct {
	entry   models.PrecinctEntry
	polling string
	address string
}

// Resolver maps free-text locations onto the precinct roster. Strategies run
// in fixed precedence and the first success wins:
// alias, exact, substring, word match, polling place fuzzy, address fuzzy.
type Resolver struct {
	lookup    *PrecinctLookup
	addresses []addressRow
	aliases   map[string]string
	threshold int
	cache     *FuzzyCache
}

// NewResolver builds a resolver. addresses may be empty, which disables the
// fuzzy strategies. A nil cache gets a private one.
func NewResolver(lookup *PrecinctLookup, addresses []models.PrecinctEntry, aliases map[string]string, threshold int, cache *FuzzyCache) *Resolver {
	if lookup == nil {
		lookup = NewPrecinctLookup()
	}
	if cache == nil {
		cache = NewFuzzyCache()
	}
	rows := make([]addressRow, 0, len(addresses))
	for _, a := range addresses {
		rows = append(rows, addressRow{
			entry:   a,
			polling: Normalize(a.PollingPlace),
			address: Normalize(a.Address),
		})
	}
	return &Resolver{
		lookup:    lookup,
		addresses: rows,
		aliases:   aliases,
		threshold: threshold,
		cache:     cache,
	}
}

// Resolve finds the precinct for a location. It never fails: an unresolvable
// location yields (nil, models.MatchNone).
func (r *Resolver) Resolve(location string) (*models.PrecinctMatch, models.MatchType) {
	norm := Normalize(location)
	upper := strings.ToUpper(strings.TrimSpace(location))

	if display, ok := r.aliases[norm]; ok && norm != "" {
		return simple(display, models.MatchAlias)
	}

	if display, ok := r.lookup.display[upper]; ok {
		return simple(display, models.MatchExact)
	}

	for _, name := range r.lookup.names {
		if strings.Contains(upper, name) {
			return simple(r.lookup.display[name], models.MatchSubstring)
		}
	}

	locWords := make(map[string]struct{})
	for _, w := range strings.Fields(upper) {
		locWords[w] = struct{}{}
	}
	for _, name := range r.lookup.names {
		if significantSubset(name, locWords) {
			return simple(r.lookup.display[name], models.MatchWord)
		}
	}

	if len(r.addresses) == 0 {
		return nil, models.MatchNone
	}
	if m := r.fuzzy(norm); m != nil {
		return m, m.MatchType
	}
	return nil, models.MatchNone
}

func (r *Resolver) fuzzy(norm string) *models.PrecinctMatch {
	var best *addressRow
	bestScore := 0
	matchType := models.MatchNone

	for i := range r.addresses {
		row := &r.addresses[i]
		if !strings.Contains(norm, row.polling) && !strings.Contains(row.polling, norm) {
			continue
		}
		score := r.cache.Score(norm, row.polling)
		if score > bestScore && score > r.threshold {
			best, bestScore, matchType = row, score, models.MatchPollingFuzzy
		}
	}

	parts := strings.Fields(norm)
	if best == nil && len(parts) > addressWords {
		fragment := strings.Join(parts[len(parts)-addressWords:], " ")
		for i := range r.addresses {
			row := &r.addresses[i]
			if !strings.Contains(norm, row.address) && !strings.Contains(row.address, fragment) {
				continue
			}
			score := r.cache.Score(fragment, row.address)
			if score > bestScore && score > r.threshold {
				best, bestScore, matchType = row, score, models.MatchAddressFuzzy
			}
		}
	}

	if best == nil {
		return nil
	}
	return &models.PrecinctMatch{
		Display:      best.entry.Display,
		PollingPlace: best.entry.PollingPlace,
		Address:      best.entry.Address,
		MapsURL:      models.MapsURL(best.entry.Address),
		MatchType:    matchType,
		Score:        bestScore,
	}
}

// significantSubset reports whether every word of name longer than two
// characters appears in words, with at least one such word present.
func significantSubset(name string, words map[string]struct{}) bool {
	found := false
	for _, w := range strings.Fields(name) {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		if _, ok := words[w]; !ok {
			return false
		}
		found = true
	}
	return found
}

func simple(display string, t models.MatchType) (*models.PrecinctMatch, models.MatchType) {
	return &models.PrecinctMatch{Display: display, MatchType: t}, t
}
