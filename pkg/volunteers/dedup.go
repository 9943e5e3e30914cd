package volunteers

import (
	"sort"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
)

// DuplicateGroup is an identity key that appeared more than once in a batch
type DuplicateGroup struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// DedupReport summarizes a deduplication pass
type DedupReport struct {
	Removed int              `json:"duplicates_resolved"`
	Groups  []DuplicateGroup `json:"groups"`
}

// Deduplicate keeps one signup per identity key: the one with the latest
// SignupAt. Rows without a timestamp lose to rows with one, and exact ties
// keep the earlier row. Survivors stay in input order.
func Deduplicate(records []models.SignupRecord) ([]models.SignupRecord, DedupReport) {
	keep := make(map[string]int, len(records))
	counts := make(map[string]int, len(records))
	var order []string

	for i, r := range records {
		key := KeyOf(r)
		counts[key]++
		cur, seen := keep[key]
		if !seen {
			keep[key] = i
			order = append(order, key)
			continue
		}
		if newer(r, records[cur]) {
			keep[key] = i
		}
	}

	var report DedupReport
	for _, key := range order {
		if n := counts[key]; n > 1 {
			report.Groups = append(report.Groups, DuplicateGroup{Key: key, Count: n})
			report.Removed += n - 1
		}
	}
	sort.SliceStable(report.Groups, func(i, j int) bool {
		return report.Groups[i].Count > report.Groups[j].Count
	})

	if report.Removed == 0 {
		return records, report
	}
	survivors := make([]models.SignupRecord, 0, len(records)-report.Removed)
	for i, r := range records {
		if keep[KeyOf(r)] == i {
			survivors = append(survivors, r)
		}
	}
	return survivors, report
}

func newer(a, b models.SignupRecord) bool {
	switch {
	case a.SignupAt.IsZero():
		return false
	case b.SignupAt.IsZero():
		return true
	default:
		return a.SignupAt.After(b.SignupAt)
	}
}
