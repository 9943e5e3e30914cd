// Package pipeline runs a full processing pass over a project directory:
// intake, deduplication, roster reconciliation, precinct resolution, grid
// building and persistence.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arnavshah/precinct-staffing-go/pkg/config"
	"github.com/arnavshah/precinct-staffing-go/pkg/matching"
	"github.com/arnavshah/precinct-staffing-go/pkg/models"
	"github.com/arnavshah/precinct-staffing-go/pkg/scheduler"
	"github.com/arnavshah/precinct-staffing-go/pkg/store"
	"github.com/arnavshah/precinct-staffing-go/pkg/volunteers"
)

const (
	topUnmatched  = 10
	topDuplicates = 10
)

// Options are the per-run knobs
type Options struct {
	FuzzyThreshold     int
	AutoGuessThreshold int
	IncludeBackups     bool
	ElectionDate       string
	XLSXExport         bool
	ReportFormat       string
}

// OptionsFrom copies the run settings out of a loaded config
func OptionsFrom(cfg config.Config) Options {
	return Options{
		FuzzyThreshold:     cfg.FuzzyThreshold,
		AutoGuessThreshold: cfg.AutoGuessThreshold,
		IncludeBackups:     cfg.IncludeBackups,
		ElectionDate:       cfg.ElectionDate,
		XLSXExport:         cfg.XLSXExport,
		ReportFormat:       cfg.ReportFormat,
	}
}

// Pipeline owns the shared fuzzy cache and alias store for one project
type Pipeline struct {
	Store   *store.Store
	Cache   *matching.FuzzyCache
	Aliases *matching.AliasStore
	Opts    Options
	Log     *zap.Logger
	Now     func() time.Time
}

// New wires a pipeline over st. A nil logger discards output.
func New(st *store.Store, opts Options, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ReportFormat == "" {
		opts.ReportFormat = "csv"
	}
	cache := matching.NewFuzzyCache()
	return &Pipeline{
		Store:   st,
		Cache:   cache,
		Aliases: matching.NewAliasStore(st.AliasesPath(), cache),
		Opts:    opts,
		Log:     log,
		Now:     time.Now,
	}
}

// Result is the end-of-run summary
type Result struct {
	RunID              string                      `json:"run_id"`
	StartedAt          time.Time                   `json:"started_at"`
	Duration           string                      `json:"duration"`
	SignupRecords      int                         `json:"signup_records"`
	VolunteerCount     int                         `json:"volunteer_count"`
	AssignmentRows     int                         `json:"assignment_rows"`
	DuplicatesResolved int                         `json:"duplicates_resolved"`
	Duplicates         []volunteers.DuplicateGroup `json:"duplicates,omitempty"`
	RosterSkipped      int                         `json:"roster_rows_skipped"`
	Prefilled          int                         `json:"prefilled"`
	Populate           scheduler.PopulateReport    `json:"populate"`
	Unmatched          []models.LocationCount      `json:"unmatched,omitempty"`
	Conflicts          []models.ConflictReason     `json:"conflicts,omitempty"`
	FillRate           float64                     `json:"fill_rate"`
	Cache              matching.CacheStats         `json:"cache"`
	Outputs            []string                    `json:"outputs"`
	Archived           []string                    `json:"archived,omitempty"`
	Reports            *ReportResult               `json:"reports,omitempty"`
}

// inputs is everything a run reads before it computes anything
type inputs struct {
	roster   []models.PrecinctEntry
	skipped  int
	aliases  map[string]string
	signups  []models.SignupRecord
	manual   []models.ManualAssignment
	existing []models.VolunteerRecord
}

func (p *Pipeline) load() (*inputs, error) {
	in := &inputs{}
	var err error
	if in.roster, in.skipped, err = store.LoadPrecinctRoster(p.Store.PrecinctRosterPath()); err != nil {
		return nil, err
	}
	if in.signups, err = store.LoadSignups(p.Store.InputDir()); err != nil {
		return nil, err
	}
	if in.aliases, err = p.Aliases.Load(); err != nil {
		return nil, err
	}
	if in.manual, err = store.ReadManualAssignments(p.Store.ManualSnapshotPath()); err != nil {
		return nil, err
	}
	if in.existing, err = store.ReadVolunteerRoster(p.Store.VolunteerMasterPath()); err != nil {
		return nil, err
	}
	return in, nil
}

// NewResolver builds a resolver over the roster that shares the pipeline cache
func (p *Pipeline) NewResolver(roster []models.PrecinctEntry, aliases map[string]string) *matching.Resolver {
	var addresses []models.PrecinctEntry
	for _, e := range roster {
		if e.PollingPlace != "" || e.Address != "" {
			addresses = append(addresses, e)
		}
	}
	return matching.NewResolver(matching.LookupFromRoster(roster), addresses, aliases, p.Opts.FuzzyThreshold, p.Cache)
}

// Process runs the whole pass. Intake problems are returned before any file
// is written; per-row problems are counted in the result.
func (p *Pipeline) Process(ctx context.Context) (*Result, error) {
	started := p.Now()
	res := &Result{RunID: uuid.NewString(), StartedAt: started}
	log := p.Log.With(zap.String("run_id", res.RunID))
	log.Info("processing signups", zap.String("root", p.Store.Root))

	in, err := p.load()
	if err != nil {
		return nil, fmt.Errorf("intake: %w", err)
	}
	if in.skipped > 0 {
		log.Warn("precinct roster rows skipped", zap.Int("count", in.skipped))
	}
	res.RosterSkipped = in.skipped
	res.SignupRecords = len(in.signups)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deduped, dedup := volunteers.Deduplicate(in.signups)
	res.DuplicatesResolved = dedup.Removed
	res.Duplicates = dedup.Groups
	for i, g := range dedup.Groups {
		if i == topDuplicates {
			break
		}
		log.Info("duplicate signups", zap.String("volunteer_key", g.Key), zap.Int("count", g.Count))
	}
	roster := volunteers.Reconcile(in.existing, volunteers.FromBatch(deduped))
	res.VolunteerCount = len(roster)
	log.Debug("volunteers reconciled",
		zap.Int("existing", len(in.existing)),
		zap.Int("batch", len(deduped)),
		zap.Int("merged", len(roster)))

	sched := scheduler.NewScheduler(in.roster, volunteers.ByKey(roster), scheduler.Options{
		IncludeBackups: p.Opts.IncludeBackups,
		ElectionDate:   p.Opts.ElectionDate,
	})
	res.Prefilled = sched.Prefill(in.manual)
	res.Populate = sched.Populate(deduped, p.NewResolver(in.roster, in.aliases))
	res.Unmatched = res.Populate.TopUnmatched(topUnmatched)
	res.Conflicts = sched.Conflicts
	res.FillRate = sched.FillRate()
	rows := sched.Rows()
	res.AssignmentRows = len(rows)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := p.persist(started, roster, rows, res); err != nil {
		return nil, err
	}

	for _, u := range res.Unmatched {
		log.Warn("unmatched location", zap.String("location", u.Location), zap.Int("count", u.Count))
	}
	if len(res.Conflicts) > 0 {
		log.Info("slot groups need review", zap.Int("count", len(res.Conflicts)))
	}

	reports, err := p.Report(ctx)
	if err != nil {
		return nil, fmt.Errorf("reports: %w", err)
	}
	res.Reports = reports
	res.Cache = p.Cache.Stats()
	res.Duration = p.Now().Sub(started).String()

	log.Info("processing complete",
		zap.Int("volunteers", res.VolunteerCount),
		zap.Int("assignment_rows", res.AssignmentRows),
		zap.Int("duplicates_resolved", res.DuplicatesResolved),
		zap.Int("unmatched_locations", len(res.Populate.Unmatched)),
		zap.Int("cache_hits", res.Cache.Hits),
		zap.Int("cache_misses", res.Cache.Misses))
	return res, nil
}

// persist archives the previous outputs, then replaces them and writes
// timestamped copies into output/
func (p *Pipeline) persist(now time.Time, roster []models.VolunteerRecord, rows []models.AssignmentSlot, res *Result) error {
	st := p.Store
	archived, err := st.Archive(now, st.VolunteerMasterPath(), st.AssignmentsPath())
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	res.Archived = archived

	if err := store.WriteVolunteerRoster(st.VolunteerMasterPath(), roster); err != nil {
		return err
	}
	if err := store.WriteAssignments(st.AssignmentsPath(), rows); err != nil {
		return err
	}
	res.Outputs = append(res.Outputs, st.VolunteerMasterPath(), st.AssignmentsPath())

	for _, path := range []string{st.VolunteerMasterPath(), st.AssignmentsPath()} {
		snap, err := st.Snapshot(now, path)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		res.Outputs = append(res.Outputs, snap)
	}

	if p.Opts.XLSXExport {
		path := st.OutputPath(store.AssignmentsXLSXFile)
		if err := store.WriteAssignmentsXLSX(path, rows); err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, path)
	}
	return nil
}
