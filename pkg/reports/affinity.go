package reports

import (
	"sort"
	"strconv"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
	"github.com/arnavshah/precinct-staffing-go/pkg/store"
)

// DefaultAffinityThreshold is the signup count at which a volunteer's
// precinct becomes an automatic suggestion
const DefaultAffinityThreshold = 5

// AffinityEntry is one volunteer's tie to one precinct
type AffinityEntry struct {
	VolunteerKey string  `json:"volunteer_key"`
	Precinct     string  `json:"precinct"`
	SignupCount  int     `json:"signup_count"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	TotalSignups int     `json:"total_signups"`
	Score        float64 `json:"affinity_score"`
}

// Affinity counts assigned cells per (volunteer, precinct) and splits them
// into suggestions (count >= threshold) and entries that need review.
func Affinity(roster []models.VolunteerRecord, rows []models.AssignmentSlot, threshold int) (suggestions, review []AffinityEntry) {
	type pk struct{ key, precinct string }
	counts := make(map[pk]int)
	totals := make(map[string]int)
	for _, r := range rows {
		if !r.Filled() {
			continue
		}
		counts[pk{r.VolunteerKey, r.Precinct}]++
		totals[r.VolunteerKey]++
	}
	if len(counts) == 0 {
		return nil, nil
	}

	info := make(map[string]models.VolunteerRecord, len(roster))
	for _, v := range roster {
		info[v.Key] = v
	}

	for k, c := range counts {
		v := info[k.key]
		e := AffinityEntry{
			VolunteerKey: k.key,
			Precinct:     k.precinct,
			SignupCount:  c,
			FirstName:    v.FirstName,
			LastName:     v.LastName,
			Email:        v.Email,
			Phone:        v.Phone,
			TotalSignups: totals[k.key],
			Score:        round1(float64(c) / float64(totals[k.key]) * 100),
		}
		if c >= threshold {
			suggestions = append(suggestions, e)
		} else {
			review = append(review, e)
		}
	}
	sortAffinity(suggestions)
	sortAffinity(review)
	return suggestions, review
}

func sortAffinity(entries []AffinityEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.SignupCount != b.SignupCount {
			return a.SignupCount > b.SignupCount
		}
		if a.VolunteerKey != b.VolunteerKey {
			return a.VolunteerKey < b.VolunteerKey
		}
		return a.Precinct < b.Precinct
	})
}

// AffinityColumns is the schema of the suggestion and review files
var AffinityColumns = []string{
	"Volunteer_Key", "Precinct", "Signup_Count", "First_Name", "Last_Name",
	"Email", "Phone", "Total_Signups", "Affinity_Score",
}

// WriteAffinityCSV writes suggestion or review entries
func WriteAffinityCSV(path string, entries []AffinityEntry) error {
	out := make([][]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, []string{
			e.VolunteerKey, e.Precinct, strconv.Itoa(e.SignupCount), e.FirstName, e.LastName,
			e.Email, e.Phone, strconv.Itoa(e.TotalSignups), ftoa(e.Score),
		})
	}
	return store.WriteCSV(path, AffinityColumns, out)
}

// VolunteerHistory is everything the grid knows about one volunteer
type VolunteerHistory struct {
	Info             models.VolunteerRecord  `json:"info"`
	Assignments      []models.AssignmentSlot `json:"assignments"`
	TotalAssignments int                     `json:"total_assignments"`
	UniquePrecincts  int                     `json:"unique_precincts"`
}

// History looks up a volunteer and their grid assignments. ok is false when
// the key is not on the roster.
func History(key string, roster []models.VolunteerRecord, rows []models.AssignmentSlot) (VolunteerHistory, bool) {
	var h VolunteerHistory
	found := false
	for _, v := range roster {
		if v.Key == key {
			h.Info = v
			found = true
			break
		}
	}
	if !found {
		return h, false
	}

	precincts := make(map[string]bool)
	for _, r := range rows {
		if r.VolunteerKey != key {
			continue
		}
		h.Assignments = append(h.Assignments, r)
		precincts[r.Precinct] = true
	}
	h.TotalAssignments = len(h.Assignments)
	h.UniquePrecincts = len(precincts)
	return h, true
}
