package pipeline

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
	"github.com/arnavshah/precinct-staffing-go/pkg/store"
)

// LocationResult is how one distinct signup location resolved
type LocationResult struct {
	Location  string           `json:"location"`
	Signups   int              `json:"signups"`
	Precinct  string           `json:"precinct,omitempty"`
	MatchType models.MatchType `json:"match_type"`
	Score     int              `json:"match_score,omitempty"`
}

// ValidationResult is a dry run of location resolution over the input batch
type ValidationResult struct {
	Files     int                      `json:"files"`
	Signups   int                      `json:"signups"`
	Precincts int                      `json:"precincts"`
	Aliases   int                      `json:"aliases"`
	Locations []LocationResult         `json:"locations"`
	ByType    map[models.MatchType]int `json:"by_match_type"`
	Unmatched []models.LocationCount   `json:"unmatched"`
}

// Validate resolves every distinct signup location without writing anything
func (p *Pipeline) Validate(ctx context.Context) (*ValidationResult, error) {
	roster, _, err := store.LoadPrecinctRoster(p.Store.PrecinctRosterPath())
	if err != nil {
		return nil, err
	}
	files, err := store.SignupFiles(p.Store.InputDir())
	if err != nil {
		return nil, err
	}
	signups, err := store.LoadSignups(p.Store.InputDir())
	if err != nil {
		return nil, err
	}
	aliases, err := p.Aliases.Load()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	var order []string
	for _, s := range signups {
		if strings.TrimSpace(s.Location) == "" {
			continue
		}
		if counts[s.Location] == 0 {
			order = append(order, s.Location)
		}
		counts[s.Location]++
	}

	res := &ValidationResult{
		Files:     len(files),
		Signups:   len(signups),
		Precincts: len(roster),
		Aliases:   len(aliases),
		ByType:    make(map[models.MatchType]int),
	}
	resolver := p.NewResolver(roster, aliases)
	for _, loc := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, mt := resolver.Resolve(loc)
		lr := LocationResult{Location: loc, Signups: counts[loc], MatchType: mt}
		if m != nil {
			lr.Precinct = m.Display
			lr.Score = m.Score
		} else {
			res.Unmatched = append(res.Unmatched, models.LocationCount{Location: loc, Count: counts[loc]})
		}
		res.ByType[mt]++
		res.Locations = append(res.Locations, lr)
	}
	sort.SliceStable(res.Unmatched, func(i, j int) bool {
		return res.Unmatched[i].Count > res.Unmatched[j].Count
	})

	p.Log.Info("location validation",
		zap.Int("locations", len(order)),
		zap.Int("unmatched", len(res.Unmatched)),
		zap.Any("by_match_type", res.ByType))
	return res, nil
}

// Resolve maps a single location against the current roster and aliases
func (p *Pipeline) Resolve(location string) (*models.PrecinctMatch, models.MatchType, error) {
	roster, _, err := store.LoadPrecinctRoster(p.Store.PrecinctRosterPath())
	if err != nil {
		return nil, models.MatchNone, err
	}
	aliases, err := p.Aliases.Load()
	if err != nil {
		return nil, models.MatchNone, err
	}
	m, mt := p.NewResolver(roster, aliases).Resolve(location)
	return m, mt, nil
}

// KnownPrecinct reports whether display names a roster precinct
func (p *Pipeline) KnownPrecinct(display string) (bool, error) {
	roster, _, err := store.LoadPrecinctRoster(p.Store.PrecinctRosterPath())
	if err != nil {
		return false, err
	}
	display = strings.TrimSpace(display)
	for _, e := range roster {
		if e.Display == display {
			return true, nil
		}
	}
	return false, nil
}
