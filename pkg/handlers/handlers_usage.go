package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/precinct-staffing-go/pkg/pipeline"
)

// RunSummary is the slice of a processing run kept for the stats route
type RunSummary struct {
	RunID          string    `json:"run_id,omitempty"`
	At             time.Time `json:"at"`
	SignupRecords  int       `json:"signup_records"`
	VolunteerCount int       `json:"volunteer_count"`
	Assigned       int       `json:"assigned"`
	Unmatched      int       `json:"unmatched"`
	FillRate       float64   `json:"fill_rate"`
	Error          string    `json:"error,omitempty"`
}

func summarize(res *pipeline.Result) RunSummary {
	unmatched := 0
	for _, n := range res.Populate.Unmatched {
		unmatched += n
	}
	return RunSummary{
		RunID:          res.RunID,
		At:             res.StartedAt,
		SignupRecords:  res.SignupRecords,
		VolunteerCount: res.VolunteerCount,
		Assigned:       res.Populate.Assigned,
		Unmatched:      unmatched,
		FillRate:       res.FillRate,
	}
}

// record keeps the newest runs first; callers hold h.mu
func (h *Handler) record(s RunSummary) {
	h.runs = append([]RunSummary{s}, h.runs...)
	if len(h.runs) > historyLimit {
		h.runs = h.runs[:historyLimit]
	}
}

// Stats returns the recent run history, its totals and the fuzzy cache counters
func (h *Handler) Stats(c *gin.Context) {
	h.mu.Lock()
	history := make([]RunSummary, len(h.runs))
	copy(history, h.runs)
	h.mu.Unlock()

	var totalRuns, failedRuns, totalSignups, totalAssigned int64
	for _, r := range history {
		totalRuns++
		if r.Error != "" {
			failedRuns++
			continue
		}
		totalSignups += int64(r.SignupRecords)
		totalAssigned += int64(r.Assigned)
	}

	c.JSON(http.StatusOK, gin.H{
		"run_history": history,
		"cache":       h.Pipeline.Cache.Stats(),
		"totals": gin.H{
			"runs":     totalRuns,
			"failed":   failedRuns,
			"signups":  totalSignups,
			"assigned": totalAssigned,
		},
	})
}
