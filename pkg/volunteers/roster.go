package volunteers

import (
	"sort"
	"time"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
)

// FromBatch aggregates a deduplicated batch into roster records: one per key,
// counting the key's rows and spanning their signup timestamps. Records keep
// first-seen order.
func FromBatch(records []models.SignupRecord) []models.VolunteerRecord {
	index := make(map[string]int)
	var out []models.VolunteerRecord
	for _, r := range records {
		key := KeyOf(r)
		if !ValidKey(key) {
			continue
		}
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, models.VolunteerRecord{
				Key:         key,
				FirstName:   r.FirstName,
				LastName:    r.LastName,
				Email:       r.Email,
				Phone:       Digits(r.Phone),
				PastCount:   1,
				FirstSignup: r.SignupAt,
				LastSignup:  r.SignupAt,
			})
			continue
		}
		v := &out[i]
		v.PastCount++
		v.FirstSignup = earliest(v.FirstSignup, r.SignupAt)
		v.LastSignup = latest(v.LastSignup, r.SignupAt)
	}
	return out
}

// Reconcile merges a batch into the persisted roster: union, group by key,
// then take the maximum count, earliest first signup and latest last signup.
// Counts are not summed, so re-running the same batch leaves them unchanged.
// Contact fields prefer the batch when it has a value. The result is sorted by key.
func Reconcile(existing, batch []models.VolunteerRecord) []models.VolunteerRecord {
	merged := make(map[string]models.VolunteerRecord, len(existing)+len(batch))
	for _, group := range [][]models.VolunteerRecord{existing, batch} {
		for _, v := range group {
			cur, ok := merged[v.Key]
			if !ok {
				merged[v.Key] = v
				continue
			}
			merged[v.Key] = combine(cur, v)
		}
	}

	out := make([]models.VolunteerRecord, 0, len(merged))
	for _, v := range merged {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ByKey indexes a roster by volunteer key
func ByKey(roster []models.VolunteerRecord) map[string]*models.VolunteerRecord {
	m := make(map[string]*models.VolunteerRecord, len(roster))
	for i := range roster {
		m[roster[i].Key] = &roster[i]
	}
	return m
}

func combine(old, cur models.VolunteerRecord) models.VolunteerRecord {
	out := old
	if cur.PastCount > out.PastCount {
		out.PastCount = cur.PastCount
	}
	out.FirstSignup = earliest(old.FirstSignup, cur.FirstSignup)
	out.LastSignup = latest(old.LastSignup, cur.LastSignup)
	prefer(&out.FirstName, cur.FirstName)
	prefer(&out.LastName, cur.LastName)
	prefer(&out.Email, cur.Email)
	prefer(&out.Phone, cur.Phone)
	return out
}

func prefer(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func earliest(a, b time.Time) time.Time {
	if a.IsZero() || (!b.IsZero() && b.Before(a)) {
		return b
	}
	return a
}

func latest(a, b time.Time) time.Time {
	if a.IsZero() || b.After(a) {
		return b
	}
	return a
}
