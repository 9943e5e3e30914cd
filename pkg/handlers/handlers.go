package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/precinct-staffing-go/pkg/pipeline"
	"github.com/arnavshah/precinct-staffing-go/pkg/reports"
	"github.com/arnavshah/precinct-staffing-go/pkg/store"
)

const (
	serviceName    = "Precinct Staffing API"
	serviceVersion = "1.0.0"
	historyLimit   = 30
)

// Handler contains dependencies for the route handlers
type Handler struct {
	Pipeline *pipeline.Pipeline
	Log      *zap.Logger

	// mu serializes processing runs and alias edits
	mu   sync.Mutex
	runs []RunSummary
}

// New builds a handler over p. A nil logger discards output.
func New(p *pipeline.Pipeline, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Pipeline: p, Log: log}
}

// NewRouter registers every route on a fresh engine
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(h.RequestLogger(), gin.Recovery())

	r.GET("/", h.Index)

	api := r.Group("/api")
	{
		api.POST("/process", h.Process)
		api.POST("/validate", h.Validate)
		api.POST("/resolve", h.Resolve)
		api.GET("/aliases", h.ListAliases)
		api.POST("/aliases", h.AddAlias)
		api.DELETE("/aliases", h.RemoveAlias)
		api.GET("/needs", h.Needs)
		api.GET("/affinity", h.Affinity)
		api.GET("/volunteers/:key", h.VolunteerHistory)
		api.GET("/stats", h.Stats)
	}
	return r
}

// RequestLogger logs each request through zap
func (h *Handler) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.Log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Index reports the service name and version
func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": serviceName,
		"version": serviceVersion,
	})
}

// Process runs a full pass over the project directory
func (h *Handler) Process(c *gin.Context) {
	res, err := h.RunProcess(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RunProcess runs the pipeline under the handler lock and records the run.
// The scheduled job in the server shares it with the HTTP route.
func (h *Handler) RunProcess(ctx context.Context) (*pipeline.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	res, err := h.Pipeline.Process(ctx)
	if err != nil {
		h.record(RunSummary{At: h.Pipeline.Now(), Error: err.Error()})
		return nil, err
	}
	h.record(summarize(res))
	return res, nil
}

// Needs returns precinct health and the district rollup of the current grid.
// The optional district query narrows the precinct list.
func (h *Handler) Needs(c *gin.Context) {
	rows, _, err := h.Pipeline.Grid()
	if err != nil {
		h.fail(c, err)
		return
	}
	health := reports.PrecinctHealth(rows)
	districts := reports.DistrictSummary(health)

	if d := strings.TrimSpace(c.Query("district")); d != "" {
		filtered := health[:0:0]
		for _, p := range health {
			if strings.EqualFold(p.District, d) {
				filtered = append(filtered, p)
			}
		}
		health = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"precincts": health,
		"districts": districts,
	})
}

// Affinity returns volunteer-precinct suggestions for the current grid
func (h *Handler) Affinity(c *gin.Context) {
	threshold := h.Pipeline.Opts.AutoGuessThreshold
	if raw := c.Query("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be a positive integer"})
			return
		}
		threshold = n
	}
	if threshold < 1 {
		threshold = reports.DefaultAffinityThreshold
	}

	rows, roster, err := h.Pipeline.Grid()
	if err != nil {
		h.fail(c, err)
		return
	}
	suggestions, review := reports.Affinity(roster, rows, threshold)
	c.JSON(http.StatusOK, gin.H{
		"threshold":     threshold,
		"suggestions":   emptyIfNil(suggestions),
		"review_needed": emptyIfNil(review),
	})
}

// VolunteerHistory returns one volunteer's roster entry and assignments
func (h *Handler) VolunteerHistory(c *gin.Context) {
	key := strings.ToUpper(strings.TrimSpace(c.Param("key")))
	hist, ok, err := h.Pipeline.History(key)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "volunteer not found: " + key})
		return
	}
	c.JSON(http.StatusOK, hist)
}

// fail maps pipeline errors onto HTTP status codes
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNoSignupFiles),
		errors.Is(err, store.ErrMissingColumns),
		errors.Is(err, store.ErrPrecinctRosterMissing):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrNoAssignments):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func emptyIfNil(entries []reports.AffinityEntry) []reports.AffinityEntry {
	if entries == nil {
		return []reports.AffinityEntry{}
	}
	return entries
}
