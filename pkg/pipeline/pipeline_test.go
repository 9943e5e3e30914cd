package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
	"github.com/arnavshah/precinct-staffing-go/pkg/store"
)

const rosterCSV = `Number & Name,District,Polling Place,Address
101 - NORTH,Bloomington,North Elementary School,"100 Oak Street, Springfield VA 22150"
102 - SOUTH,Bloomington,South High School,200 Pine Ave Springfield VA 22150
`

const signupCSV = `Sign Up,Start Date/Time (mm/dd/yyyy),End Date/Time (mm/dd/yyyy),Location,Item,First Name,Last Name,Email,Phone,PhoneType,Sign Up Timestamp
Bloomington 2024 General,11/05/2024 06:00,11/05/2024 07:00,North,Greeter 6am-7am,Jane,Doe,jane@example.com,(555) 123-4567,Mobile,10/01/2024 09:00
Bloomington 2024 General,11/05/2024 06:00,11/05/2024 07:00,North,Greeter 6am-7am,Jane,Doe,jane@example.com,555-123-4567,Mobile,10/02/2024 09:00
Bloomington 2024 General,11/05/2024 06:00,11/05/2024 06:30,Gymnasium,,Sam,Lee,,555 000 1111,,10/03/2024 10:00
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newProject(t *testing.T) *Pipeline {
	t.Helper()
	st, err := store.InitStore(t.TempDir())
	require.NoError(t, err)
	writeFile(t, st.PrecinctRosterPath(), rosterCSV)
	writeFile(t, filepath.Join(st.InputDir(), "signups.csv"), signupCSV)

	p := New(st, Options{
		FuzzyThreshold:     85,
		AutoGuessThreshold: 5,
		IncludeBackups:     true,
		ElectionDate:       "2024-11-05",
	}, zaptest.NewLogger(t))
	clock := time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC)
	p.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return p
}

func findRow(rows []models.AssignmentSlot, assignType, precinct, slot, role string) models.AssignmentSlot {
	for _, r := range rows {
		if r.AssignmentType == assignType && r.Precinct == precinct && r.SlotTime == slot && r.Role == role {
			return r
		}
	}
	return models.AssignmentSlot{}
}

func TestProcess(t *testing.T) {
	p := newProject(t)
	writeFile(t, p.Store.ManualSnapshotPath(), "District,Precinct,Role,Volunteer_Key\nBLOOMINGTON,102 - SOUTH,Captain,SAM_LEE_5550001111\n")

	res, err := p.Process(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 3, res.SignupRecords)
	assert.Equal(t, 1, res.DuplicatesResolved)
	assert.Equal(t, 2, res.VolunteerCount)
	assert.Equal(t, 2*111, res.AssignmentRows)
	assert.Equal(t, 1, res.Prefilled)
	assert.Equal(t, []models.LocationCount{{Location: "Gymnasium", Count: 1}}, res.Unmatched)
	assert.Equal(t, 1, res.Populate.MatchTypes[models.MatchExact])
	assert.Empty(t, res.Archived)

	rows, err := store.ReadAssignments(p.Store.AssignmentsPath())
	require.NoError(t, err)
	require.Len(t, rows, 2*111)

	jane := findRow(rows, models.Proposed, "101 - NORTH", "6:30 AM", models.RoleGreeter1)
	assert.Equal(t, "JANE_DOE_5551234567", jane.VolunteerKey)
	assert.Equal(t, "Jane Doe", jane.VolunteerName)
	assert.Equal(t, 1, jane.PastCount)
	assert.Equal(t, "2024-10-02", jane.LastSignupDate)
	assert.Equal(t, "BLOOMINGTON", jane.District)
	assert.Equal(t, "North Elementary School", jane.PollingPlace)

	captain := findRow(rows, models.Proposed, "102 - SOUTH", "", models.RoleCaptain)
	assert.Equal(t, "Sam Lee", captain.VolunteerName)

	roster, err := store.ReadVolunteerRoster(p.Store.VolunteerMasterPath())
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "JANE_DOE_5551234567", roster[0].Key)
	assert.Equal(t, "5551234567", roster[0].Phone)

	require.NotNil(t, res.Reports)
	assert.FileExists(t, res.Reports.Files["needs_report"])
	assert.FileExists(t, res.Reports.Files["review_needed"])
	assert.Empty(t, res.Reports.Suggestions)
	require.Len(t, res.Reports.Review, 2)
	assert.Equal(t, "JANE_DOE_5551234567", res.Reports.Review[0].VolunteerKey)
	assert.Equal(t, 2, res.Reports.Review[0].SignupCount)

	snaps, err := filepath.Glob(filepath.Join(p.Store.OutputDir(), "upcoming_Assignments_*.csv"))
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestProcessTwiceKeepsCounts(t *testing.T) {
	p := newProject(t)
	_, err := p.Process(context.Background())
	require.NoError(t, err)

	res, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Archived, 2)

	roster, err := store.ReadVolunteerRoster(p.Store.VolunteerMasterPath())
	require.NoError(t, err)
	require.Len(t, roster, 2)
	for _, v := range roster {
		assert.Equal(t, 1, v.PastCount, v.Key)
	}
	assert.Equal(t, time.Date(2024, 10, 2, 9, 0, 0, 0, time.UTC), roster[0].LastSignup)
}

func TestProcessWithoutBackupsAndXLSX(t *testing.T) {
	p := newProject(t)
	p.Opts.IncludeBackups = false
	p.Opts.XLSXExport = true
	p.Opts.AutoGuessThreshold = 0

	res, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2*57, res.AssignmentRows)
	assert.FileExists(t, p.Store.OutputPath(store.AssignmentsXLSXFile))
	assert.NotContains(t, res.Reports.Files, "review_needed")
}

func TestProcessIntakeErrors(t *testing.T) {
	t.Run("no signup files", func(t *testing.T) {
		p := newProject(t)
		require.NoError(t, os.Remove(filepath.Join(p.Store.InputDir(), "signups.csv")))
		_, err := p.Process(context.Background())
		assert.ErrorIs(t, err, store.ErrNoSignupFiles)
		assert.NoFileExists(t, p.Store.VolunteerMasterPath())
	})
	t.Run("missing roster", func(t *testing.T) {
		p := newProject(t)
		require.NoError(t, os.Remove(p.Store.PrecinctRosterPath()))
		_, err := p.Process(context.Background())
		assert.ErrorIs(t, err, store.ErrPrecinctRosterMissing)
	})
	t.Run("missing columns", func(t *testing.T) {
		p := newProject(t)
		writeFile(t, filepath.Join(p.Store.InputDir(), "bad.csv"), "Location,First Name\nNorth,Jane\n")
		_, err := p.Process(context.Background())
		assert.ErrorIs(t, err, store.ErrMissingColumns)
		assert.NoFileExists(t, p.Store.AssignmentsPath())
	})
	t.Run("cancelled", func(t *testing.T) {
		p := newProject(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Process(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NoFileExists(t, p.Store.AssignmentsPath())
	})
}

func TestValidateAndAliases(t *testing.T) {
	p := newProject(t)

	res, err := p.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 3, res.Signups)
	assert.Equal(t, 2, res.Precincts)
	require.Len(t, res.Locations, 2)
	assert.Equal(t, "101 - NORTH", res.Locations[0].Precinct)
	assert.Equal(t, 2, res.Locations[0].Signups)
	assert.Equal(t, 1, res.ByType[models.MatchNone])
	assert.Equal(t, []models.LocationCount{{Location: "Gymnasium", Count: 1}}, res.Unmatched)

	require.NoError(t, p.Aliases.Add("Gymnasium", "102 - SOUTH"))
	m, mt, err := p.Resolve("  GYMNASIUM ")
	require.NoError(t, err)
	assert.Equal(t, models.MatchAlias, mt)
	assert.Equal(t, "102 - SOUTH", m.Display)

	res, err = p.Validate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Unmatched)
	assert.Equal(t, 1, res.ByType[models.MatchAlias])
}

func TestResolveFuzzyPollingPlace(t *testing.T) {
	p := newProject(t)
	m, mt, err := p.Resolve("South High School Gym")
	require.NoError(t, err)
	require.NotNil(t, m)
	// "SOUTH" is a roster name, so the substring strategy wins first
	assert.Equal(t, models.MatchSubstring, mt)

	m, mt, err = p.Resolve("Elementary School")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.MatchPollingFuzzy, mt)
	assert.Equal(t, "101 - NORTH", m.Display)
	assert.Equal(t, "North Elementary School", m.PollingPlace)
}

func TestReportRequiresGrid(t *testing.T) {
	p := newProject(t)
	_, err := p.Report(context.Background())
	assert.ErrorIs(t, err, ErrNoAssignments)
}
