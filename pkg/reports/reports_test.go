package reports

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
)

func cell(assignType, precinct, slot, role, key string) models.AssignmentSlot {
	return models.AssignmentSlot{
		AssignmentType: assignType,
		District:       "DULLES",
		Precinct:       precinct,
		SlotTime:       slot,
		Role:           role,
		VolunteerKey:   key,
	}
}

func stoneBridge() []models.AssignmentSlot {
	p := "808 - STONE BRIDGE"
	return []models.AssignmentSlot{
		cell(models.Proposed, p, "", models.RoleCaptain, "CAPTAIN_001"),
		cell(models.Proposed, p, "", models.RoleEquipmentDrop, models.Unfilled),
		cell(models.Proposed, p, "", models.RoleEquipmentPick, models.Unfilled),
		cell(models.Proposed, p, "5:30 AM", models.RoleOpener, "OPENER_001"),
		cell(models.Backup, p, "5:30 AM", models.RoleOpener, models.Unfilled),
		cell(models.Proposed, p, "6:00 AM", models.RoleGreeter1, "G1"),
		cell(models.Proposed, p, "6:00 AM", models.RoleGreeter2, models.Unfilled),
		cell(models.Backup, p, "6:00 AM", models.RoleGreeter1, "B1"),
		cell(models.Proposed, p, "6:30 AM", models.RoleGreeter1, models.Unfilled),
		cell(models.Backup, p, "6:30 AM", models.RoleGreeter1, models.Unfilled),
		cell(models.Proposed, p, "7:00 PM", models.RoleCloser, models.Unfilled),
		cell(models.Backup, p, "7:00 PM", models.RoleCloser, "CLOSER_001"),
	}
}

func TestPrecinctHealth(t *testing.T) {
	health := PrecinctHealth(stoneBridge())
	require.Len(t, health, 1)
	h := health[0]

	// captain 10 + opener 5 + greeter 6:00 (2+1); closer backup does not count
	assert.Equal(t, 18, h.Score)
	assert.Equal(t, 36, h.MaxScore)
	assert.Equal(t, 50.0, h.HealthPercent)
	assert.Equal(t, 50.0, h.NeedScore)
	assert.Equal(t, PriorityAttention, h.Priority)
	assert.True(t, h.Captain)
	assert.False(t, h.EquipmentDrop)
	assert.False(t, h.EquipmentPickup)
	assert.True(t, h.Opener)
	assert.False(t, h.Closer)
	assert.Equal(t, 1.5, h.SlotCoverage)
}

func TestPrecinctHealthOrdering(t *testing.T) {
	rows := stoneBridge()
	rows = append(rows,
		cell(models.Proposed, "101 - EMPTY", "", models.RoleCaptain, models.Unfilled),
		cell(models.Proposed, "102 - FULL", "", models.RoleCaptain, "X"),
	)
	health := PrecinctHealth(rows)
	require.Len(t, health, 3)
	assert.Equal(t, "101 - EMPTY", health[0].Precinct)
	assert.Equal(t, PriorityCritical, health[0].Priority)
	assert.Equal(t, "102 - FULL", health[1].Precinct)
	// captain only: 10 of 30
	assert.Equal(t, 33.3, health[1].HealthPercent)
	assert.Equal(t, 66.7, health[1].NeedScore)
	assert.Equal(t, "808 - STONE BRIDGE", health[2].Precinct)
	assert.Empty(t, PrecinctHealth(nil))
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, PriorityCritical, PriorityFor(49.9))
	assert.Equal(t, PriorityAttention, PriorityFor(50))
	assert.Equal(t, PriorityAttention, PriorityFor(74.9))
	assert.Equal(t, PriorityGood, PriorityFor(75))
}

func TestDistrictSummary(t *testing.T) {
	got := DistrictSummary([]Health{
		{District: "B", HealthPercent: 40},
		{District: "A", HealthPercent: 50},
		{District: "B", HealthPercent: 61},
	})
	assert.Equal(t, []DistrictHealth{
		{District: "A", AvgHealth: 50, PrecinctCount: 1},
		{District: "B", AvgHealth: 50.5, PrecinctCount: 2},
	}, got)
}

func TestAffinity(t *testing.T) {
	var rows []models.AssignmentSlot
	for i := 0; i < 5; i++ {
		rows = append(rows, cell(models.Proposed, "808 - STONE BRIDGE", "", models.RoleGreeter1, "JANE_DOE_1"))
	}
	rows = append(rows,
		cell(models.Proposed, "101 - NORTH", "", models.RoleGreeter1, "JANE_DOE_1"),
		cell(models.Proposed, "101 - NORTH", "", models.RoleGreeter2, "JANE_DOE_1"),
		cell(models.Proposed, "101 - NORTH", "", models.RoleGreeter2, "AL_B_2"),
		cell(models.Proposed, "101 - NORTH", "", models.RoleCaptain, models.Unfilled),
	)
	roster := []models.VolunteerRecord{{Key: "JANE_DOE_1", FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}}

	suggestions, review := Affinity(roster, rows, DefaultAffinityThreshold)
	require.Len(t, suggestions, 1)
	s := suggestions[0]
	assert.Equal(t, "JANE_DOE_1", s.VolunteerKey)
	assert.Equal(t, 5, s.SignupCount)
	assert.Equal(t, 7, s.TotalSignups)
	assert.Equal(t, 71.4, s.Score)
	assert.Equal(t, "jane@example.com", s.Email)

	require.Len(t, review, 2)
	assert.Equal(t, "JANE_DOE_1", review[0].VolunteerKey)
	assert.Equal(t, 2, review[0].SignupCount)
	assert.Equal(t, 28.6, review[0].Score)
	assert.Equal(t, "AL_B_2", review[1].VolunteerKey)
	assert.Equal(t, 100.0, review[1].Score)
	assert.Empty(t, review[1].FirstName)

	s2, r2 := Affinity(roster, []models.AssignmentSlot{cell(models.Proposed, "x", "", models.RoleCaptain, models.Unfilled)}, 5)
	assert.Nil(t, s2)
	assert.Nil(t, r2)
}

func TestHistory(t *testing.T) {
	roster := []models.VolunteerRecord{{Key: "CAPTAIN_001", FirstName: "Cap"}}
	rows := stoneBridge()
	rows = append(rows, cell(models.Proposed, "101 - NORTH", "", models.RoleCaptain, "CAPTAIN_001"))

	h, ok := History("CAPTAIN_001", roster, rows)
	require.True(t, ok)
	assert.Equal(t, "Cap", h.Info.FirstName)
	assert.Equal(t, 2, h.TotalAssignments)
	assert.Equal(t, 2, h.UniquePrecincts)

	_, ok = History("NOBODY", roster, rows)
	assert.False(t, ok)
}

func TestWriteNeedsReports(t *testing.T) {
	dir := t.TempDir()
	health := PrecinctHealth(stoneBridge())

	csvPath := filepath.Join(dir, "needs_report.csv")
	require.NoError(t, WriteNeedsCSV(csvPath, health))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "District,Precinct,Health_Score"))
	assert.Contains(t, lines[1], "808 - STONE BRIDGE,18,36,50,50,yes,no,no,yes,no,1.5,Needs Attention")

	mdPath := filepath.Join(dir, "needs_report.md")
	require.NoError(t, WriteNeedsMarkdown(mdPath, health))
	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "| DULLES | 808 - STONE BRIDGE | 18 | 36 |")
}
