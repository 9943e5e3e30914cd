package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// table is a header-indexed set of rows read from CSV or a worksheet
type table struct {
	cols map[string]int
	rows [][]string
}

func newTable(records [][]string) *table {
	t := &table{cols: make(map[string]int)}
	if len(records) == 0 {
		return t
	}
	for i, h := range records[0] {
		h = strings.TrimPrefix(h, "\ufeff")
		t.cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	t.rows = records[1:]
	return t
}

// has reports whether the named column is present, ignoring case
func (t *table) has(name string) bool {
	_, ok := t.cols[strings.ToLower(name)]
	return ok
}

// get returns a trimmed cell, empty when the column or cell is absent
func (t *table) get(row []string, name string) string {
	i, ok := t.cols[strings.ToLower(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) missing(names ...string) []string {
	var out []string
	for _, n := range names {
		if !t.has(n) {
			out = append(out, n)
		}
	}
	return out
}

func readCSVFile(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readCSV(f)
}

func readCSV(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return newTable(records), nil
}

// WriteCSV atomically replaces path with the header and rows
func WriteCSV(path string, header []string, rows [][]string) error {
	return WriteAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	})
}

var timestampLayouts = []string{
	"01/02/2006 15:04",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/06 15:04",
	"1/2/06 3:04 PM",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06 15:04",
}

// ParseTimestamp reads the date/time formats seen in signup exports and the
// roster file. Unparseable or empty values give the zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatTimestamp is the inverse used when writing the roster
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func missingErr(file string, cols []string) error {
	return fmt.Errorf("%s: %w: %s", file, ErrMissingColumns, strings.Join(cols, ", "))
}
