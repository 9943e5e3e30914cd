package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
	"github.com/xuri/excelize/v2"
)

// AssignmentColumns is the assignment grid schema
var AssignmentColumns = []string{
	"Election_Date", "Assignment_Type", "District", "Precinct", "Precinct_Number_Name",
	"Polling_Place", "Address", "Maps_URL", "Slot_Time", "Role",
	"Volunteer_Key", "Volunteer_Name", "Past_Count", "Last_Signup_Date",
}

const assignmentSheet = "Assignments"

func assignmentRecord(a models.AssignmentSlot) []string {
	return []string{
		a.ElectionDate, a.AssignmentType, a.District, a.Precinct, a.Precinct,
		a.PollingPlace, a.Address, a.MapsURL, a.SlotTime, a.Role,
		a.VolunteerKey, a.VolunteerName, strconv.Itoa(a.PastCount), a.LastSignupDate,
	}
}

// WriteAssignments atomically replaces the grid file
func WriteAssignments(path string, rows []models.AssignmentSlot) error {
	out := make([][]string, 0, len(rows))
	for _, a := range rows {
		out = append(out, assignmentRecord(a))
	}
	return WriteCSV(path, AssignmentColumns, out)
}

// WriteAssignmentsXLSX exports the grid as a single-sheet workbook
func WriteAssignmentsXLSX(path string, rows []models.AssignmentSlot) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", assignmentSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(AssignmentColumns))
	for i, c := range AssignmentColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(assignmentSheet, "A1", &header); err != nil {
		return err
	}
	for i, a := range rows {
		rec := assignmentRecord(a)
		values := make([]interface{}, len(rec))
		for j, v := range rec {
			values[j] = v
		}
		values[12] = a.PastCount
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(assignmentSheet, cell, &values); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}
	return WriteAtomic(path, func(w io.Writer) error {
		return f.Write(w)
	})
}

// ReadAssignments loads a grid written by WriteAssignments
func ReadAssignments(path string) ([]models.AssignmentSlot, error) {
	t, err := readCSVFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assignments: %w", err)
	}
	if missing := t.missing("Assignment_Type", "District", "Precinct", "Role", "Volunteer_Key"); len(missing) > 0 {
		return nil, missingErr(AssignmentsFile, missing)
	}

	out := make([]models.AssignmentSlot, 0, len(t.rows))
	for _, row := range t.rows {
		count, _ := strconv.Atoi(t.get(row, "Past_Count"))
		out = append(out, models.AssignmentSlot{
			ElectionDate:   t.get(row, "Election_Date"),
			AssignmentType: t.get(row, "Assignment_Type"),
			District:       t.get(row, "District"),
			Precinct:       t.get(row, "Precinct"),
			PollingPlace:   t.get(row, "Polling_Place"),
			Address:        t.get(row, "Address"),
			MapsURL:        t.get(row, "Maps_URL"),
			SlotTime:       t.get(row, "Slot_Time"),
			Role:           t.get(row, "Role"),
			VolunteerKey:   t.get(row, "Volunteer_Key"),
			VolunteerName:  t.get(row, "Volunteer_Name"),
			PastCount:      count,
			LastSignupDate: t.get(row, "Last_Signup_Date"),
		})
	}
	return out, nil
}

// ReadManualAssignments loads the operator-curated snapshot. A missing file
// means no manual assignments.
func ReadManualAssignments(path string) ([]models.ManualAssignment, error) {
	t, err := readCSVFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manual assignments: %w", err)
	}
	if missing := t.missing("District", "Precinct", "Role", "Volunteer_Key"); len(missing) > 0 {
		return nil, missingErr(ManualSnapshotFile, missing)
	}

	var out []models.ManualAssignment
	for _, row := range t.rows {
		key := t.get(row, "Volunteer_Key")
		if key == "" {
			key = models.Unfilled
		}
		out = append(out, models.ManualAssignment{
			District:       t.get(row, "District"),
			Precinct:       t.get(row, "Precinct"),
			Role:           t.get(row, "Role"),
			VolunteerKey:   key,
			AssignmentType: t.get(row, "Assignment_Type"),
		})
	}
	return out, nil
}
