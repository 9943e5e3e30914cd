package scheduler

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
	"github.com/arnavshah/precinct-staffing-go/pkg/volunteers"
)

// Skip reasons reported by Populate
const (
	SkipNoDay        = "missing_day"
	SkipNoRange      = "no_time_range"
	SkipNoSlots      = "no_slots"
	SkipUnmatched    = "unmatched_location"
	SkipInvalidKey   = "invalid_volunteer_key"
	SkipNoGridCell   = "no_grid_cell"
	SkipDoubleBooked = "double_booked"
)

// manualRoles maps snapshot role names onto grid role names
var manualRoles = map[string]string{
	"captain":            models.RoleCaptain,
	"precinct captain":   models.RoleCaptain,
	"equipment_drop":     models.RoleEquipmentDrop,
	"equipment drop off": models.RoleEquipmentDrop,
	"equipment_pickup":   models.RoleEquipmentPick,
	"equipment pick up":  models.RoleEquipmentPick,
	"opener":             models.RoleOpener,
	"closer":             models.RoleCloser,
}

// Options controls grid generation
type Options struct {
	IncludeBackups bool
	ElectionDate   string
}

// Resolver maps a free-text location to a precinct
type Resolver interface {
	Resolve(location string) (*models.PrecinctMatch, models.MatchType)
}

// PopulateReport summarizes what Populate did with a batch
type PopulateReport struct {
	Records    int                      `json:"records"`
	Assigned   int                      `json:"assigned"`
	Skipped    map[string]int           `json:"skipped"`
	Unmatched  map[string]int           `json:"unmatched"`
	MatchTypes map[models.MatchType]int `json:"match_types"`
}

// TopUnmatched returns the n most frequent unresolved locations
func (r PopulateReport) TopUnmatched(n int) []models.LocationCount {
	out := make([]models.LocationCount, 0, len(r.Unmatched))
	for loc, c := range r.Unmatched {
		out = append(out, models.LocationCount{Location: loc, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Location < out[j].Location
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

type cellKey struct {
	assignType string
	district   string
	precinct   string
	slot       string
	role       string
}

type roleKey struct {
	district string
	precinct string
	role     string
}

// Scheduler builds the assignment grid for one election
type Scheduler struct {
	Precincts  []models.PrecinctEntry
	Volunteers map[string]*models.VolunteerRecord
	Conflicts  []models.ConflictReason

	opts       Options
	rows       []*models.AssignmentSlot
	cells      map[cellKey]*models.AssignmentSlot
	byRole     map[roleKey][]*models.AssignmentSlot
	byPrecinct map[string][]*models.AssignmentSlot
	districts  map[string]string
	busy       map[string]bool
}

// NewScheduler creates a scheduler with the full unfilled grid in place
func NewScheduler(precincts []models.PrecinctEntry, vols map[string]*models.VolunteerRecord, opts Options) *Scheduler {
	if opts.ElectionDate == "" {
		opts.ElectionDate = "TBD"
	}
	s := &Scheduler{
		Precincts:  precincts,
		Volunteers: vols,
		opts:       opts,
	}
	s.Scaffold()
	return s
}

func (s *Scheduler) assignTypes() []string {
	if s.opts.IncludeBackups {
		return []string{models.Proposed, models.Backup}
	}
	return []string{models.Proposed}
}

// Scaffold (re)generates every grid cell for every precinct, all unfilled
func (s *Scheduler) Scaffold() {
	s.rows = nil
	s.cells = make(map[cellKey]*models.AssignmentSlot)
	s.byRole = make(map[roleKey][]*models.AssignmentSlot)
	s.byPrecinct = make(map[string][]*models.AssignmentSlot)
	s.districts = make(map[string]string)
	s.busy = make(map[string]bool)
	s.Conflicts = nil

	greeters := GreeterSlots()
	for _, p := range s.Precincts {
		district := strings.ToUpper(strings.TrimSpace(p.District))
		s.districts[p.Display] = district

		add := func(assignType, slot, role string) {
			row := &models.AssignmentSlot{
				ElectionDate:   s.opts.ElectionDate,
				AssignmentType: assignType,
				District:       district,
				Precinct:       p.Display,
				PollingPlace:   p.PollingPlace,
				Address:        p.Address,
				MapsURL:        p.MapsURL(),
				SlotTime:       slot,
				Role:           role,
				VolunteerKey:   models.Unfilled,
				VolunteerName:  models.Unfilled,
			}
			s.rows = append(s.rows, row)
			s.cells[cellKey{assignType, district, p.Display, slot, role}] = row
			s.byPrecinct[p.Display] = append(s.byPrecinct[p.Display], row)
			if slot == "" || role == models.RoleOpener || role == models.RoleCloser {
				rk := roleKey{district, strings.ToUpper(p.Display), role}
				s.byRole[rk] = append(s.byRole[rk], row)
			}
		}

		for _, role := range []string{models.RoleCaptain, models.RoleEquipmentDrop, models.RoleEquipmentPick} {
			add(models.Proposed, "", role)
		}
		for _, t := range s.assignTypes() {
			add(t, OpenerTime.String(), models.RoleOpener)
		}
		for _, slot := range greeters {
			for _, role := range []string{models.RoleGreeter1, models.RoleGreeter2} {
				for _, t := range s.assignTypes() {
					add(t, slot, role)
				}
			}
		}
		for _, t := range s.assignTypes() {
			add(t, CloserTime.String(), models.RoleCloser)
		}
	}
}

// fill places a volunteer in a cell. Keys missing from the roster keep the
// key as the display name with the supplied count.
func (s *Scheduler) fill(row *models.AssignmentSlot, key string, fallbackCount int) {
	row.VolunteerKey = key
	if v, ok := s.Volunteers[key]; ok {
		row.VolunteerName = v.DisplayName()
		row.PastCount = v.PastCount
		row.LastSignupDate = ""
		if !v.LastSignup.IsZero() {
			row.LastSignupDate = v.LastSignup.Format("2006-01-02")
		}
		return
	}
	row.VolunteerName = key
	row.PastCount = fallbackCount
	row.LastSignupDate = ""
}

// Prefill records existing operator-curated assignments and returns how many
// cells it filled
func (s *Scheduler) Prefill(manual []models.ManualAssignment) int {
	filled := 0
	for _, m := range manual {
		if m.VolunteerKey == "" || m.VolunteerKey == models.Unfilled {
			continue
		}
		role, ok := manualRoles[strings.ToLower(strings.TrimSpace(m.Role))]
		if !ok {
			continue
		}
		rk := roleKey{
			strings.ToUpper(strings.TrimSpace(m.District)),
			strings.ToUpper(strings.TrimSpace(m.Precinct)),
			role,
		}
		for _, row := range s.byRole[rk] {
			if m.AssignmentType != "" && !strings.EqualFold(m.AssignmentType, row.AssignmentType) {
				continue
			}
			s.fill(row, m.VolunteerKey, 0)
			s.busy[m.VolunteerKey+"|"+row.SlotTime] = true
			filled++
		}
	}
	return filled
}

type signup struct {
	key   string
	at    time.Time
	order int
}

// groupKey merges signups for the same slot label across dates
type groupKey struct {
	district string
	precinct string
	slot     string
}

// Populate resolves each deduplicated signup to a precinct, explodes it into
// half-hour slots and fills the greeter cells by signup recency.
func (s *Scheduler) Populate(records []models.SignupRecord, resolver Resolver) PopulateReport {
	report := PopulateReport{
		Records:    len(records),
		Skipped:    make(map[string]int),
		Unmatched:  make(map[string]int),
		MatchTypes: make(map[models.MatchType]int),
	}

	groups := make(map[groupKey][]signup)
	order := 0
	for _, r := range records {
		if r.Start.IsZero() {
			report.Skipped[SkipNoDay]++
			continue
		}
		start, end, ok := ParseItemRange(r.Item)
		if !ok {
			if r.End.IsZero() {
				report.Skipped[SkipNoRange]++
				continue
			}
			start, end = ClockOf(r.Start), ClockOf(r.End)
		}
		slots := HalfHourSlots(r.Start, start, end)
		if len(slots) == 0 {
			report.Skipped[SkipNoSlots]++
			continue
		}

		match, mt := resolver.Resolve(r.Location)
		report.MatchTypes[mt]++
		if match == nil {
			report.Unmatched[r.Location]++
			report.Skipped[SkipUnmatched]++
			continue
		}
		key := volunteers.KeyOf(r)
		if !volunteers.ValidKey(key) {
			report.Skipped[SkipInvalidKey]++
			continue
		}
		s.annotate(match)

		district := s.districtFor(match.Display, r.EventGroup)
		for _, slot := range slots {
			gk := groupKey{district, match.Display, FormatSlot(slot)}
			groups[gk] = append(groups[gk], signup{key: key, at: r.SignupAt, order: order})
			order++
		}
	}

	rank := slotOrder()
	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.district != b.district {
			return a.district < b.district
		}
		if a.precinct != b.precinct {
			return a.precinct < b.precinct
		}
		return rank[a.slot] < rank[b.slot]
	})

	for _, gk := range keys {
		report.Assigned += s.assignGroup(gk, groups[gk], &report)
	}
	return report
}

// assignGroup fills the greeter cells of one (district, precinct, slot)
func (s *Scheduler) assignGroup(gk groupKey, signups []signup, report *PopulateReport) int {
	sort.SliceStable(signups, func(i, j int) bool {
		a, b := signups[i], signups[j]
		if a.at.IsZero() != b.at.IsZero() {
			return !a.at.IsZero()
		}
		if !a.at.Equal(b.at) {
			return a.at.After(b.at)
		}
		return a.order < b.order
	})

	seen := make(map[string]bool)
	var ranked []string
	for _, su := range signups {
		if seen[su.key] {
			continue
		}
		seen[su.key] = true
		ranked = append(ranked, su.key)
	}

	slot := gk.slot
	capacity := len(s.assignTypes()) * 2
	var dropped, reasons []string
	doubleBooked := 0

	assigned := 0
	pos := 0
	for _, key := range ranked {
		if pos >= capacity {
			dropped = append(dropped, key)
			continue
		}
		if s.busy[key+"|"+slot] {
			doubleBooked++
			dropped = append(dropped, key)
			report.Skipped[SkipDoubleBooked]++
			continue
		}
		assignType := models.Proposed
		idx := pos
		if pos >= 2 {
			assignType = models.Backup
			idx = pos - 2
		}
		role := models.RoleGreeter1
		if idx == 1 {
			role = models.RoleGreeter2
		}
		pos++

		row, ok := s.cells[cellKey{assignType, gk.district, gk.precinct, slot, role}]
		if !ok || row.Filled() {
			report.Skipped[SkipNoGridCell]++
			continue
		}
		s.fill(row, key, 1)
		s.busy[key+"|"+slot] = true
		assigned++
	}

	if extra := len(dropped) - doubleBooked; extra > 0 {
		reasons = append(reasons, fmt.Sprintf("%d volunteers signed up beyond the %d greeter positions", extra, capacity))
	}
	if doubleBooked > 0 {
		reasons = append(reasons, fmt.Sprintf("%d volunteers were already assigned elsewhere at %s", doubleBooked, slot))
	}
	if len(dropped) > 0 {
		s.Conflicts = append(s.Conflicts, models.ConflictReason{
			District: gk.district,
			Precinct: gk.precinct,
			SlotTime: slot,
			Dropped:  dropped,
			Reasons:  reasons,
		})
	}
	return assigned
}

// annotate copies fuzzy-match polling place metadata onto the precinct's
// cells when the roster left them blank
func (s *Scheduler) annotate(m *models.PrecinctMatch) {
	if m.Address == "" && m.PollingPlace == "" {
		return
	}
	for _, row := range s.byPrecinct[m.Display] {
		if row.Address != "" {
			continue
		}
		row.PollingPlace = m.PollingPlace
		row.Address = m.Address
		row.MapsURL = m.MapsURL
	}
}

var yearToken = regexp.MustCompile(`^\d{4}$`)

// districtFor returns the scaffold district of a roster precinct. A precinct
// with a blank roster district adopts one from the event group name, e.g.
// "Bloomington 2024 General" -> "BLOOMINGTON". Precincts missing from the
// roster have no cells and get "".
func (s *Scheduler) districtFor(display, eventGroup string) string {
	d, ok := s.districts[display]
	if !ok || d != "" {
		return d
	}
	if d = DistrictFromEvent(eventGroup); d != "" {
		s.adoptDistrict(display, d)
	}
	return d
}

// adoptDistrict relabels and rekeys every cell of a precinct scaffolded
// without a district
func (s *Scheduler) adoptDistrict(display, district string) {
	s.districts[display] = district
	upper := strings.ToUpper(display)
	moved := make(map[string]bool)
	for _, row := range s.byPrecinct[display] {
		delete(s.cells, cellKey{row.AssignmentType, row.District, display, row.SlotTime, row.Role})
		row.District = district
		s.cells[cellKey{row.AssignmentType, district, display, row.SlotTime, row.Role}] = row

		if moved[row.Role] {
			continue
		}
		old := roleKey{"", upper, row.Role}
		if rows, ok := s.byRole[old]; ok {
			delete(s.byRole, old)
			rk := roleKey{district, upper, row.Role}
			s.byRole[rk] = append(s.byRole[rk], rows...)
		}
		moved[row.Role] = true
	}
}

// DistrictFromEvent takes the words before the first four-digit token, or the
// first word when there is none
func DistrictFromEvent(eventGroup string) string {
	words := strings.Fields(eventGroup)
	if len(words) == 0 {
		return ""
	}
	for i, w := range words {
		if yearToken.MatchString(w) {
			if i == 0 {
				break
			}
			return strings.ToUpper(strings.Join(words[:i], " "))
		}
	}
	return strings.ToUpper(words[0])
}

// slotOrder ranks slot labels chronologically; singleton roles come first
func slotOrder() map[string]int {
	order := map[string]int{"": 0, OpenerTime.String(): 1}
	for i, slot := range GreeterSlots() {
		order[slot] = i + 2
	}
	order[CloserTime.String()] = len(order)
	return order
}

func typeOrder(t string) int {
	if t == models.Backup {
		return 2
	}
	return 1
}

// SortRows orders grid rows by assignment type, district, precinct, slot time
// and role
func SortRows(rows []models.AssignmentSlot) {
	order := slotOrder()
	rank := func(slot string) int {
		if r, ok := order[slot]; ok {
			return r
		}
		return len(order)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if ta, tb := typeOrder(a.AssignmentType), typeOrder(b.AssignmentType); ta != tb {
			return ta < tb
		}
		if a.District != b.District {
			return a.District < b.District
		}
		if a.Precinct != b.Precinct {
			return a.Precinct < b.Precinct
		}
		if ra, rb := rank(a.SlotTime), rank(b.SlotTime); ra != rb {
			return ra < rb
		}
		return a.Role < b.Role
	})
}

// Rows returns a sorted copy of the grid
func (s *Scheduler) Rows() []models.AssignmentSlot {
	out := make([]models.AssignmentSlot, len(s.rows))
	for i, r := range s.rows {
		out[i] = *r
	}
	SortRows(out)
	return out
}

// FillRate returns the percentage (0-100) of Proposed cells holding a
// volunteer
func (s *Scheduler) FillRate() float64 {
	total, filled := 0, 0
	for _, r := range s.rows {
		if r.AssignmentType != models.Proposed {
			continue
		}
		total++
		if r.Filled() {
			filled++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(filled) / float64(total) * 100.0
}
