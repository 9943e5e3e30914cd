package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
	"github.com/xuri/excelize/v2"
)

// Signup export column headers, matched case-insensitively
const (
	ColSignUp    = "Sign Up"
	ColStart     = "Start Date/Time (mm/dd/yyyy)"
	ColEnd       = "End Date/Time (mm/dd/yyyy)"
	ColLocation  = "Location"
	ColItem      = "Item"
	ColFirstName = "First Name"
	ColLastName  = "Last Name"
	ColEmail     = "Email"
	ColPhone     = "Phone"
	ColPhoneType = "PhoneType"
	ColTimestamp = "Sign Up Timestamp"
)

// RequiredSignupColumns must be present in every signup file
var RequiredSignupColumns = []string{
	ColSignUp, ColStart, ColEnd, ColLocation, ColItem, ColFirstName, ColLastName,
}

// SignupFiles lists the ingestible files in dir, sorted by name
func SignupFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNoSignupFiles)
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".xlsx":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoSignupFiles)
	}
	return files, nil
}

// LoadSignups reads every signup file in dir into one batch, in file order
// then row order.
func LoadSignups(dir string) ([]models.SignupRecord, error) {
	files, err := SignupFiles(dir)
	if err != nil {
		return nil, err
	}
	var all []models.SignupRecord
	for _, path := range files {
		records, err := LoadSignupFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

// LoadSignupFile reads one CSV or XLSX export
func LoadSignupFile(path string) ([]models.SignupRecord, error) {
	var t *table
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		t, err = readXLSX(path)
	} else {
		t, err = readCSVFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	if missing := t.missing(RequiredSignupColumns...); len(missing) > 0 {
		return nil, missingErr(filepath.Base(path), missing)
	}

	source := filepath.Base(path)
	records := make([]models.SignupRecord, 0, len(t.rows))
	for _, row := range t.rows {
		if blank(row) {
			continue
		}
		records = append(records, models.SignupRecord{
			EventGroup: t.get(row, ColSignUp),
			Start:      ParseTimestamp(t.get(row, ColStart)),
			End:        ParseTimestamp(t.get(row, ColEnd)),
			Location:   t.get(row, ColLocation),
			Item:       t.get(row, ColItem),
			FirstName:  t.get(row, ColFirstName),
			LastName:   t.get(row, ColLastName),
			Email:      t.get(row, ColEmail),
			Phone:      t.get(row, ColPhone),
			SignupAt:   ParseTimestamp(t.get(row, ColTimestamp)),
			SourceFile: source,
		})
	}
	return records, nil
}

func readXLSX(path string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return newTable(nil), nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return newTable(rows), nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
