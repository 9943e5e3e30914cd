package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := InitStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestInitStoreLayout(t *testing.T) {
	s := newTestStore(t)
	for _, dir := range []string{s.InputDir(), s.ReferenceDir(), s.OutputDir(), s.ArchiveDir()} {
		assert.DirExists(t, dir)
	}
	assert.Equal(t, filepath.Join(s.Root, "reference_data", "aliases.json"), s.AliasesPath())
	assert.Equal(t, filepath.Join(s.Root, "output", "precinct_info.csv"), s.ManualSnapshotPath())
}

func TestParseTimestamp(t *testing.T) {
	tests := map[string]time.Time{
		"11/05/2024 06:00":    time.Date(2024, 11, 5, 6, 0, 0, 0, time.UTC),
		"1/2/2024 3:30 PM":    time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC),
		"2024-10-02 09:00:00": time.Date(2024, 10, 2, 9, 0, 0, 0, time.UTC),
		"2024-10-02":          time.Date(2024, 10, 2, 0, 0, 0, 0, time.UTC),
		"":                    {},
		"next tuesday":        {},
	}
	for in, want := range tests {
		if got := ParseTimestamp(in); !got.Equal(want) {
			t.Errorf("ParseTimestamp(%q): expected %v, got %v", in, want, got)
		}
	}
	assert.Equal(t, "", FormatTimestamp(time.Time{}))
	assert.Equal(t, "2024-10-02 09:00:00", FormatTimestamp(time.Date(2024, 10, 2, 9, 0, 0, 0, time.UTC)))
}

func TestLoadPrecinctRoster(t *testing.T) {
	s := newTestStore(t)
	write(t, s.PrecinctRosterPath(), "\ufeffNumber & Name,district,Polling Place,Address\n"+
		"101 - NORTH,Bloomington,North Elementary,100 Oak St\n"+
		"Unnumbered,Bloomington,,\n"+
		"102-SOUTH ,bloomington,,\n")

	roster, skipped, err := LoadPrecinctRoster(s.PrecinctRosterPath())
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, roster, 2)
	assert.Equal(t, models.PrecinctEntry{
		Number: "101", Name: "NORTH", District: "BLOOMINGTON", Display: "101 - NORTH",
		PollingPlace: "North Elementary", Address: "100 Oak St",
	}, roster[0])
	assert.Equal(t, "102 - SOUTH", roster[1].Display)

	path := filepath.Join(t.TempDir(), "copy.csv")
	require.NoError(t, WritePrecinctRoster(path, roster))
	again, _, err := LoadPrecinctRoster(path)
	require.NoError(t, err)
	if diff := cmp.Diff(roster, again); diff != "" {
		t.Errorf("roster round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPrecinctRosterErrors(t *testing.T) {
	s := newTestStore(t)
	_, _, err := LoadPrecinctRoster(s.PrecinctRosterPath())
	assert.ErrorIs(t, err, ErrPrecinctRosterMissing)

	write(t, s.PrecinctRosterPath(), "Precinct,Address\n1,x\n")
	_, _, err = LoadPrecinctRoster(s.PrecinctRosterPath())
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "Number & Name")
}

const signupHeader = "Sign Up,Start Date/Time (mm/dd/yyyy),End Date/Time (mm/dd/yyyy),Location,Item,First Name,Last Name,Email,Phone,PhoneType,Sign Up Timestamp\n"

func TestLoadSignups(t *testing.T) {
	s := newTestStore(t)
	write(t, filepath.Join(s.InputDir(), "b.csv"), signupHeader+
		"Vienna 2024,11/05/2024 06:00,11/05/2024 07:00,North,Greeter,Jane,Doe,j@x.org,555-1234,Mobile,10/01/2024 09:00\n"+
		",,,,,,,,,,\n")
	write(t, filepath.Join(s.InputDir(), "a.csv"), strings.ToLower(signupHeader)+
		"Vienna 2024,11/05/2024 18:00,11/05/2024 19:00,South,Closer,Sam,Lee,,,,\n")
	write(t, filepath.Join(s.InputDir(), "notes.txt"), "ignored")
	write(t, filepath.Join(s.InputDir(), ".hidden.csv"), "ignored")

	files, err := SignupFiles(s.InputDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, []string{filepath.Base(files[0]), filepath.Base(files[1])})

	records, err := LoadSignups(s.InputDir())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Sam", records[0].FirstName)
	assert.Equal(t, "a.csv", records[0].SourceFile)
	assert.True(t, records[0].SignupAt.IsZero())

	jane := records[1]
	assert.Equal(t, "Vienna 2024", jane.EventGroup)
	assert.Equal(t, time.Date(2024, 11, 5, 6, 0, 0, 0, time.UTC), jane.Start)
	assert.Equal(t, time.Date(2024, 11, 5, 7, 0, 0, 0, time.UTC), jane.End)
	assert.Equal(t, "555-1234", jane.Phone)
	assert.Equal(t, time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC), jane.SignupAt)
}

func TestLoadSignupsErrors(t *testing.T) {
	s := newTestStore(t)
	_, err := LoadSignups(s.InputDir())
	assert.ErrorIs(t, err, ErrNoSignupFiles)

	_, err = LoadSignups(filepath.Join(s.Root, "missing"))
	assert.ErrorIs(t, err, ErrNoSignupFiles)

	write(t, filepath.Join(s.InputDir(), "bad.csv"), "Location,First Name\nNorth,Jane\n")
	_, err = LoadSignups(s.InputDir())
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "bad.csv")
}

func TestLoadSignupsXLSX(t *testing.T) {
	s := newTestStore(t)
	f := excelize.NewFile()
	header := strings.Split(strings.TrimSpace(signupHeader), ",")
	values := make([]interface{}, len(header))
	for i, h := range header {
		values[i] = h
	}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &values))
	row := []interface{}{"Vienna 2024", "11/05/2024 06:00", "11/05/2024 07:00", "North", "Greeter 6am-7am", "Jane", "Doe"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &row))
	path := filepath.Join(s.InputDir(), "export.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	records, err := LoadSignups(s.InputDir())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Greeter 6am-7am", records[0].Item)
	assert.Equal(t, "", records[0].Email)
	assert.Equal(t, "export.xlsx", records[0].SourceFile)
}

func TestVolunteerRosterRoundTrip(t *testing.T) {
	s := newTestStore(t)
	roster, err := ReadVolunteerRoster(s.VolunteerMasterPath())
	require.NoError(t, err)
	assert.Empty(t, roster)

	want := []models.VolunteerRecord{
		{Key: "JANE_DOE_1", FirstName: "Jane", LastName: "Doe", Email: "j@x.org", Phone: "1",
			PastCount: 3, FirstSignup: time.Date(2022, 10, 1, 9, 0, 0, 0, time.UTC), LastSignup: time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)},
		{Key: "SAM_LEE_", FirstName: "Sam", LastName: "Lee", PastCount: 1},
	}
	require.NoError(t, WriteVolunteerRoster(s.VolunteerMasterPath(), want))
	got, err := ReadVolunteerRoster(s.VolunteerMasterPath())
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("roster round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestAssignmentsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	rows := []models.AssignmentSlot{
		{ElectionDate: "2024-11-05", AssignmentType: models.Proposed, District: "VIENNA", Precinct: "101 - NORTH",
			PollingPlace: "North Elementary", Address: "100 Oak St", MapsURL: models.MapsURL("100 Oak St"),
			SlotTime: "6:00 AM", Role: models.RoleGreeter1, VolunteerKey: "JANE_DOE_1", VolunteerName: "Jane Doe",
			PastCount: 2, LastSignupDate: "2024-10-01"},
		{ElectionDate: "2024-11-05", AssignmentType: models.Backup, District: "VIENNA", Precinct: "101 - NORTH",
			Role: models.RoleCaptain, VolunteerKey: models.Unfilled},
	}
	require.NoError(t, WriteAssignments(s.AssignmentsPath(), rows))
	got, err := ReadAssignments(s.AssignmentsPath())
	require.NoError(t, err)
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("grid round trip mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(s.AssignmentsPath())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), strings.Join(AssignmentColumns, ",")+"\n"))

	xlsx := s.OutputPath(AssignmentsXLSXFile)
	require.NoError(t, WriteAssignmentsXLSX(xlsx, rows))
	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	sheetRows, err := f.GetRows("Assignments")
	require.NoError(t, err)
	require.Len(t, sheetRows, 3)
	assert.Equal(t, "Precinct_Number_Name", sheetRows[0][4])
	assert.Equal(t, "Jane Doe", sheetRows[1][11])
	assert.Equal(t, "2", sheetRows[1][12])
}

func TestReadManualAssignments(t *testing.T) {
	s := newTestStore(t)
	manual, err := ReadManualAssignments(s.ManualSnapshotPath())
	require.NoError(t, err)
	assert.Nil(t, manual)

	write(t, s.ManualSnapshotPath(), "District,Precinct,Role,Volunteer_Key,Assignment_Type\n"+
		"VIENNA,101 - NORTH,Captain,JANE_DOE_1,Proposed\n"+
		"VIENNA,101 - NORTH,Opener,,\n")
	manual, err = ReadManualAssignments(s.ManualSnapshotPath())
	require.NoError(t, err)
	require.Len(t, manual, 2)
	assert.Equal(t, "JANE_DOE_1", manual[0].VolunteerKey)
	assert.Equal(t, models.Proposed, manual[0].AssignmentType)
	assert.Equal(t, models.Unfilled, manual[1].VolunteerKey)

	write(t, s.ManualSnapshotPath(), "District,Role\nVIENNA,Captain\n")
	_, err = ReadManualAssignments(s.ManualSnapshotPath())
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestArchiveAndSnapshot(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC)
	assert.Equal(t, "upcoming_Assignments_20240305_101500.csv", StampedName(AssignmentsFile, now))

	archived, err := s.Archive(now, s.VolunteerMasterPath())
	require.NoError(t, err)
	assert.Empty(t, archived)

	write(t, s.VolunteerMasterPath(), "Volunteer_Key\nA\n")
	archived, err = s.Archive(now, s.VolunteerMasterPath(), s.AssignmentsPath())
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, filepath.Join(s.ArchiveDir(), "VolunteerMaster_20240305_101500.csv"), archived[0])
	assert.FileExists(t, s.VolunteerMasterPath())

	snap, err := s.Snapshot(now, s.VolunteerMasterPath())
	require.NoError(t, err)
	content, err := os.ReadFile(snap)
	require.NoError(t, err)
	assert.Equal(t, "Volunteer_Key\nA\n", string(content))

	leftovers, err := filepath.Glob(filepath.Join(s.OutputDir(), ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
