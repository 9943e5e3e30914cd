// Package reports derives staffing health and volunteer affinity from a
// finished assignment grid.
package reports

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
	"github.com/arnavshah/precinct-staffing-go/pkg/store"
)

// Priority bands
const (
	PriorityCritical  = "Critical"
	PriorityAttention = "Needs Attention"
	PriorityGood      = "Good"
)

// Role weights
const (
	captainPoints  = 10
	equipPoints    = 5
	openerPoints   = 5
	closerPoints   = 5
	greeterPrimary = 2
	greeterBackup  = 1
)

// Health is the staffing score of one precinct
type Health struct {
	District        string  `json:"district"`
	Precinct        string  `json:"precinct"`
	Score           int     `json:"health_score"`
	MaxScore        int     `json:"max_score"`
	HealthPercent   float64 `json:"health_percent"`
	NeedScore       float64 `json:"need_score"`
	Priority        string  `json:"priority"`
	Captain         bool    `json:"captain"`
	EquipmentDrop   bool    `json:"equipment_drop"`
	EquipmentPickup bool    `json:"equipment_pickup"`
	Opener          bool    `json:"opener"`
	Closer          bool    `json:"closer"`
	SlotCoverage    float64 `json:"slot_coverage"`
}

// DistrictHealth aggregates precinct health per district
type DistrictHealth struct {
	District      string  `json:"district"`
	AvgHealth     float64 `json:"avg_health"`
	PrecinctCount int     `json:"precinct_count"`
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// PriorityFor classifies a health percentage
func PriorityFor(pct float64) string {
	switch {
	case pct < 50:
		return PriorityCritical
	case pct < 75:
		return PriorityAttention
	default:
		return PriorityGood
	}
}

type precinctKey struct {
	district string
	precinct string
}

// PrecinctHealth scores role coverage per (district, precinct), neediest first
func PrecinctHealth(rows []models.AssignmentSlot) []Health {
	groups := make(map[precinctKey][]models.AssignmentSlot)
	var order []precinctKey
	for _, r := range rows {
		k := precinctKey{r.District, r.Precinct}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	out := make([]Health, 0, len(order))
	for _, k := range order {
		out = append(out, score(k, groups[k]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NeedScore != out[j].NeedScore {
			return out[i].NeedScore > out[j].NeedScore
		}
		if out[i].District != out[j].District {
			return out[i].District < out[j].District
		}
		return out[i].Precinct < out[j].Precinct
	})
	return out
}

func score(k precinctKey, rows []models.AssignmentSlot) Health {
	h := Health{District: k.district, Precinct: k.precinct}

	has := func(role string, proposedOnly bool) bool {
		for _, r := range rows {
			if r.Role != role || !r.Filled() {
				continue
			}
			if proposedOnly && r.AssignmentType != models.Proposed {
				continue
			}
			return true
		}
		return false
	}
	award := func(ok bool, points int) {
		h.MaxScore += points
		if ok {
			h.Score += points
		}
	}

	h.Captain = has(models.RoleCaptain, false)
	award(h.Captain, captainPoints)
	h.EquipmentDrop = has(models.RoleEquipmentDrop, false)
	award(h.EquipmentDrop, equipPoints)
	h.EquipmentPickup = has(models.RoleEquipmentPick, false)
	award(h.EquipmentPickup, equipPoints)
	h.Opener = has(models.RoleOpener, true)
	award(h.Opener, openerPoints)
	h.Closer = has(models.RoleCloser, true)
	award(h.Closer, closerPoints)

	type coverage struct{ proposed, backup bool }
	slots := make(map[string]*coverage)
	for _, r := range rows {
		if !strings.HasPrefix(r.Role, "Ballot Greeter") || r.SlotTime == "" {
			continue
		}
		c, ok := slots[r.SlotTime]
		if !ok {
			c = &coverage{}
			slots[r.SlotTime] = c
		}
		if !r.Filled() {
			continue
		}
		switch r.AssignmentType {
		case models.Proposed:
			c.proposed = true
		case models.Backup:
			c.backup = true
		}
	}
	for _, c := range slots {
		h.MaxScore += greeterPrimary + greeterBackup
		if c.proposed {
			h.Score += greeterPrimary
			h.SlotCoverage++
		}
		if c.backup {
			h.Score += greeterBackup
			h.SlotCoverage += 0.5
		}
	}

	pct := 0.0
	if h.MaxScore > 0 {
		pct = float64(h.Score) / float64(h.MaxScore) * 100
	}
	h.HealthPercent = round1(pct)
	h.NeedScore = round1(100 - pct)
	h.Priority = PriorityFor(h.HealthPercent)
	return h
}

// DistrictSummary averages precinct health per district, sorted by district
func DistrictSummary(health []Health) []DistrictHealth {
	sums := make(map[string]*DistrictHealth)
	for _, h := range health {
		d, ok := sums[h.District]
		if !ok {
			d = &DistrictHealth{District: h.District}
			sums[h.District] = d
		}
		d.AvgHealth += h.HealthPercent
		d.PrecinctCount++
	}
	out := make([]DistrictHealth, 0, len(sums))
	for _, d := range sums {
		d.AvgHealth = round1(d.AvgHealth / float64(d.PrecinctCount))
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].District < out[j].District })
	return out
}

// NeedsColumns is the needs report schema
var NeedsColumns = []string{
	"District", "Precinct", "Health_Score", "Max_Score", "Health_Percent", "Need_Score",
	"Captain", "Equipment_Drop", "Equipment_Pickup", "Opener", "Closer", "Slot_Coverage", "Priority",
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func needsRecords(health []Health) [][]string {
	out := make([][]string, 0, len(health))
	for _, h := range health {
		out = append(out, []string{
			h.District, h.Precinct, strconv.Itoa(h.Score), strconv.Itoa(h.MaxScore),
			ftoa(h.HealthPercent), ftoa(h.NeedScore),
			mark(h.Captain), mark(h.EquipmentDrop), mark(h.EquipmentPickup), mark(h.Opener), mark(h.Closer),
			ftoa(h.SlotCoverage), h.Priority,
		})
	}
	return out
}

// WriteNeedsCSV writes the needs report as CSV
func WriteNeedsCSV(path string, health []Health) error {
	return store.WriteCSV(path, NeedsColumns, needsRecords(health))
}

// WriteNeedsMarkdown writes the needs report as a markdown table
func WriteNeedsMarkdown(path string, health []Health) error {
	return store.WriteAtomic(path, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "# Precinct Needs Report\n\n| %s |\n|%s\n",
			strings.Join(NeedsColumns, " | "), strings.Repeat(" --- |", len(NeedsColumns))); err != nil {
			return err
		}
		for _, rec := range needsRecords(health) {
			if _, err := fmt.Fprintf(w, "| %s |\n", strings.Join(rec, " | ")); err != nil {
				return err
			}
		}
		return nil
	})
}
