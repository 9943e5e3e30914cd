package store

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
)

// Precinct roster column headers
const (
	ColNumberName   = "Number & Name"
	ColDistrict     = "District"
	ColPollingPlace = "Polling Place"
	ColAddress      = "Address"
)

var numberName = regexp.MustCompile(`^(\d+)\s*-\s*(.+)$`)

// LoadPrecinctRoster reads the canonical precinct roster in file order.
// Rows whose "Number & Name" is not "{number} - {name}" are skipped and counted.
func LoadPrecinctRoster(path string) ([]models.PrecinctEntry, int, error) {
	t, err := readCSVFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, fmt.Errorf("%s: %w", path, ErrPrecinctRosterMissing)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load precinct roster: %w", err)
	}
	if missing := t.missing(ColNumberName, ColDistrict); len(missing) > 0 {
		return nil, 0, missingErr(PrecinctRosterFile, missing)
	}

	var roster []models.PrecinctEntry
	skipped := 0
	for _, row := range t.rows {
		m := numberName.FindStringSubmatch(t.get(row, ColNumberName))
		if m == nil {
			skipped++
			continue
		}
		number, name := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		roster = append(roster, models.PrecinctEntry{
			Number:       number,
			Name:         name,
			District:     strings.ToUpper(t.get(row, ColDistrict)),
			Display:      number + " - " + name,
			PollingPlace: t.get(row, ColPollingPlace),
			Address:      t.get(row, ColAddress),
		})
	}
	return roster, skipped, nil
}

// WritePrecinctRoster writes a roster in the reference file format
func WritePrecinctRoster(path string, roster []models.PrecinctEntry) error {
	rows := make([][]string, 0, len(roster))
	for _, p := range roster {
		rows = append(rows, []string{p.Display, p.District, p.PollingPlace, p.Address})
	}
	return WriteCSV(path, []string{ColNumberName, ColDistrict, ColPollingPlace, ColAddress}, rows)
}
