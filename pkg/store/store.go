// Package store persists the flat tabular artifacts of a processing run.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fatal intake errors. A run stops on these before any output is written.
var (
	ErrNoSignupFiles         = errors.New("no signup files found")
	ErrMissingColumns        = errors.New("missing expected columns")
	ErrPrecinctRosterMissing = errors.New("precinct roster not found")
)

// File names inside the project root
const (
	VolunteerMasterFile = "VolunteerMaster.csv"
	AssignmentsFile     = "upcoming_Assignments.csv"
	AssignmentsXLSXFile = "upcoming_Assignments.xlsx"
	PrecinctRosterFile  = "precinct_address_information.csv"
	AliasesFile         = "aliases.json"
	ManualSnapshotFile  = "precinct_info.csv"
	NeedsReportFile     = "needs_report.csv"
	SuggestionsFile     = "VolunteerMaster_suggestions.csv"
	ReviewFile          = "review_needed.csv"
)

const stampLayout = "20060102_150405"

// Store is a project directory holding inputs, reference data and outputs
type Store struct {
	Root string
}

// InitStore prepares the project layout under root
func InitStore(root string) (*Store, error) {
	if root == "" {
		root = "."
	}
	s := &Store{Root: root}
	for _, dir := range []string{s.InputDir(), s.ReferenceDir(), s.OutputDir(), s.ArchiveDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
	}
	return s, nil
}

func (s *Store) InputDir() string     { return filepath.Join(s.Root, "input") }
func (s *Store) ReferenceDir() string { return filepath.Join(s.Root, "reference_data") }
func (s *Store) OutputDir() string    { return filepath.Join(s.Root, "output") }
func (s *Store) ArchiveDir() string   { return filepath.Join(s.Root, "archive") }

func (s *Store) VolunteerMasterPath() string { return filepath.Join(s.Root, VolunteerMasterFile) }
func (s *Store) AssignmentsPath() string     { return filepath.Join(s.Root, AssignmentsFile) }
func (s *Store) PrecinctRosterPath() string  { return filepath.Join(s.ReferenceDir(), PrecinctRosterFile) }
func (s *Store) AliasesPath() string         { return filepath.Join(s.ReferenceDir(), AliasesFile) }
func (s *Store) ManualSnapshotPath() string  { return filepath.Join(s.OutputDir(), ManualSnapshotFile) }

// OutputPath returns a file path under output/
func (s *Store) OutputPath(name string) string {
	return filepath.Join(s.OutputDir(), name)
}

// WriteAtomic writes through a temp file in the target directory and renames
// it over path, so readers never observe a partial file.
func WriteAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Archive copies each existing file into archive/ with a timestamp suffix and
// returns the archive paths. Missing files are skipped.
func (s *Store) Archive(now time.Time, paths ...string) ([]string, error) {
	var archived []string
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := os.MkdirAll(s.ArchiveDir(), 0o755); err != nil {
			return archived, fmt.Errorf("archive dir: %w", err)
		}
		dst := filepath.Join(s.ArchiveDir(), StampedName(filepath.Base(p), now))
		if err := copyFile(p, dst); err != nil {
			return archived, err
		}
		archived = append(archived, dst)
	}
	return archived, nil
}

// Snapshot copies path into output/ under a timestamped name
func (s *Store) Snapshot(now time.Time, path string) (string, error) {
	dst := s.OutputPath(StampedName(filepath.Base(path), now))
	if err := copyFile(path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// StampedName turns "name.csv" into "name_20240305_101500.csv"
func StampedName(name string, now time.Time) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + now.Format(stampLayout) + ext
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	return WriteAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}
