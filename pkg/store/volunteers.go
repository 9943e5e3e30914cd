package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
)

// VolunteerColumns is the persisted roster schema
var VolunteerColumns = []string{
	"Volunteer_Key", "First_Name", "Last_Name", "Email", "Phone",
	"Past_Volunteer_Count", "First_Signup_Date", "Last_Signup_Date",
}

// ReadVolunteerRoster loads the persisted roster. A missing file is an empty roster.
func ReadVolunteerRoster(path string) ([]models.VolunteerRecord, error) {
	t, err := readCSVFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read volunteer roster: %w", err)
	}
	if missing := t.missing("Volunteer_Key"); len(missing) > 0 {
		return nil, missingErr(VolunteerMasterFile, missing)
	}

	var out []models.VolunteerRecord
	for _, row := range t.rows {
		key := t.get(row, "Volunteer_Key")
		if key == "" {
			continue
		}
		count, _ := strconv.Atoi(t.get(row, "Past_Volunteer_Count"))
		out = append(out, models.VolunteerRecord{
			Key:         key,
			FirstName:   t.get(row, "First_Name"),
			LastName:    t.get(row, "Last_Name"),
			Email:       t.get(row, "Email"),
			Phone:       t.get(row, "Phone"),
			PastCount:   count,
			FirstSignup: ParseTimestamp(t.get(row, "First_Signup_Date")),
			LastSignup:  ParseTimestamp(t.get(row, "Last_Signup_Date")),
		})
	}
	return out, nil
}

// WriteVolunteerRoster atomically replaces the roster file
func WriteVolunteerRoster(path string, roster []models.VolunteerRecord) error {
	rows := make([][]string, 0, len(roster))
	for _, v := range roster {
		rows = append(rows, []string{
			v.Key, v.FirstName, v.LastName, v.Email, v.Phone,
			strconv.Itoa(v.PastCount), FormatTimestamp(v.FirstSignup), FormatTimestamp(v.LastSignup),
		})
	}
	return WriteCSV(path, VolunteerColumns, rows)
}
