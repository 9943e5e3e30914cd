package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/precinct-staffing-go/pkg/config"
	"github.com/arnavshah/precinct-staffing-go/pkg/handlers"
	"github.com/arnavshah/precinct-staffing-go/pkg/logging"
	"github.com/arnavshah/precinct-staffing-go/pkg/pipeline"
	"github.com/arnavshah/precinct-staffing-go/pkg/store"
)

var (
	once    sync.Once
	r       *gin.Engine
	initErr error
)

func setup() {
	// Load .env if it exists (for local testing with vercel dev)
	config.LoadDotEnv()

	cfg, err := config.Load("")
	if err != nil {
		initErr = err
		return
	}
	log, err := logging.New(logging.Options{Verbose: cfg.Verbose, Format: cfg.LogFormat})
	if err != nil {
		initErr = err
		return
	}
	st, err := store.InitStore(cfg.ProjectRoot)
	if err != nil {
		initErr = err
		return
	}

	gin.SetMode(gin.ReleaseMode)
	p := pipeline.New(st, pipeline.OptionsFrom(cfg), log)
	r = handlers.NewRouter(handlers.New(p, log))
	log.Info("serverless handler ready", zap.String("root", st.Root))
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	once.Do(setup)
	if initErr != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(gin.H{"error": initErr.Error()})
		return
	}
	r.ServeHTTP(w, req)
}
