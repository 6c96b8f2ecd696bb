package function

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/samvad-hq/rss-opinion/internal/config"
	"github.com/samvad-hq/rss-opinion/internal/domain"
	"github.com/samvad-hq/rss-opinion/internal/logger"
)

const (
	statusFinished = "FUNCTION FINISHED"
	statusFailed   = "FUNCTION FAILED"
)

// Invoker runs one full invocation. A returned error is invocation-fatal.
type Invoker func(ctx context.Context) (domain.InvocationReport, error)

type finishedResponse struct {
	Status     string `json:"status"`
	Processed  int    `json:"processed"`
	Failed     int    `json:"failed"`
	NewEntries int    `json:"new_entries"`
}

type failedResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// NewHandler adapts invoke to an HTTP function. The request body is ignored.
func NewHandler(invoke Invoker, log logger.Logger) http.Handler {
	log = logger.Ensure(log)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rep, err := invoke(r.Context())
		if err != nil {
			log.ErrorObj("invocation failed", "function_failed", map[string]any{"error": err.Error()})
			writeJSON(w, http.StatusInternalServerError, failedResponse{Status: statusFailed, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, finishedResponse{
			Status:     statusFinished,
			Processed:  rep.Processed(),
			Failed:     rep.Failed(),
			NewEntries: rep.NewEntries(),
		})
	})
}

// Invoke loads configuration from the environment, builds an App, runs every
// source and releases resources.
func Invoke(ctx context.Context) (domain.InvocationReport, error) {
	cfg, err := config.Load()
	if err != nil {
		return domain.InvocationReport{}, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return domain.InvocationReport{}, err
	}
	defer func() { _ = log.Sync() }()

	return InvokeWith(ctx, cfg, log)
}

// InvokeWith runs one invocation against an already loaded configuration.
func InvokeWith(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (domain.InvocationReport, error) {
	app, err := Build(ctx, cfg, log, opts...)
	if err != nil {
		return domain.InvocationReport{}, err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Ensure(log).WarnObj("release resources failed", "close_error", map[string]any{"error": err.Error()})
		}
	}()
	return app.Run(ctx), nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
