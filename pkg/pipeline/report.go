package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/arnavshah/precinct-staffing-go/pkg/models"
	"github.com/arnavshah/precinct-staffing-go/pkg/reports"
	"github.com/arnavshah/precinct-staffing-go/pkg/store"
)

// ErrNoAssignments means no grid has been produced yet
var ErrNoAssignments = errors.New("assignment grid not found; run process first")

// ReportResult lists what a report pass produced
type ReportResult struct {
	Health      []reports.Health         `json:"health"`
	Districts   []reports.DistrictHealth `json:"districts"`
	Suggestions []reports.AffinityEntry  `json:"suggestions,omitempty"`
	Review      []reports.AffinityEntry  `json:"review_needed,omitempty"`
	Files       map[string]string        `json:"files"`
}

// Grid reads the current assignment grid and volunteer roster
func (p *Pipeline) Grid() ([]models.AssignmentSlot, []models.VolunteerRecord, error) {
	rows, err := store.ReadAssignments(p.Store.AssignmentsPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrNoAssignments
	}
	if err != nil {
		return nil, nil, err
	}
	roster, err := store.ReadVolunteerRoster(p.Store.VolunteerMasterPath())
	if err != nil {
		return nil, nil, err
	}
	return rows, roster, nil
}

// Report writes the needs report and, when the auto-guess threshold is
// positive, the affinity suggestion and review files
func (p *Pipeline) Report(ctx context.Context) (*ReportResult, error) {
	rows, roster, err := p.Grid()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &ReportResult{Files: make(map[string]string)}
	res.Health = reports.PrecinctHealth(rows)
	res.Districts = reports.DistrictSummary(res.Health)

	switch p.Opts.ReportFormat {
	case "markdown":
		path := p.Store.OutputPath("needs_report.md")
		if err := reports.WriteNeedsMarkdown(path, res.Health); err != nil {
			return nil, err
		}
		res.Files["needs_report"] = path
	case "csv":
		path := p.Store.OutputPath(store.NeedsReportFile)
		if err := reports.WriteNeedsCSV(path, res.Health); err != nil {
			return nil, err
		}
		res.Files["needs_report"] = path
	default:
		return nil, fmt.Errorf("unknown report format %q", p.Opts.ReportFormat)
	}

	if p.Opts.AutoGuessThreshold > 0 {
		res.Suggestions, res.Review = reports.Affinity(roster, rows, p.Opts.AutoGuessThreshold)
		if len(res.Suggestions) > 0 {
			path := p.Store.OutputPath(store.SuggestionsFile)
			if err := reports.WriteAffinityCSV(path, res.Suggestions); err != nil {
				return nil, err
			}
			res.Files["suggestions"] = path
		}
		if len(res.Review) > 0 {
			path := p.Store.OutputPath(store.ReviewFile)
			if err := reports.WriteAffinityCSV(path, res.Review); err != nil {
				return nil, err
			}
			res.Files["review_needed"] = path
		}
		p.Log.Info("affinity computed",
			zap.Int("threshold", p.Opts.AutoGuessThreshold),
			zap.Int("suggestions", len(res.Suggestions)),
			zap.Int("review_needed", len(res.Review)))
	}
	return res, nil
}

// History returns one volunteer's roster entry and grid assignments
func (p *Pipeline) History(key string) (reports.VolunteerHistory, bool, error) {
	rows, roster, err := p.Grid()
	if err != nil {
		return reports.VolunteerHistory{}, false, err
	}
	h, ok := reports.History(key, roster, rows)
	return h, ok, nil
}
