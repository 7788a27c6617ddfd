package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/planfill-cli/internal/driver"
	"github.com/sells-group/planfill-cli/internal/planxml"
	"github.com/sells-group/planfill-cli/internal/store"
)

var (
	servePort     int
	serveAssetDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP job server",
	Long:  "Accepts fill jobs over HTTP, runs them asynchronously, streams progress as server-sent events, and serves run history from the store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		app := &serverApp{
			store:    st,
			hub:      newJobHub(),
			assetDir: serveAssetDir,
			baseCtx:  ctx,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: app.routes(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background()) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveAssetDir, "asset-dir", ".", "directory holding the default map and data points workbooks")
	rootCmd.AddCommand(serveCmd)
}

type serverApp struct {
	store    store.Store
	hub      *jobHub
	assetDir string
	// baseCtx outlives individual requests so a submitted job survives the
	// submitter disconnecting.
	baseCtx context.Context
}

func (a *serverApp) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", a.handleHealth)
	r.Post("/jobs", a.handleSubmitJob)
	r.Get("/jobs", a.handleListJobs)
	r.Get("/jobs/{id}", a.handleGetJob)
	r.Get("/jobs/{id}/events", a.handleJobEvents)
	r.Post("/resolve", a.handleResolve)

	return r
}

func (a *serverApp) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *serverApp) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InputDir string `json:"input_dir"`
		Out      string `json:"out,omitempty"`
		Lenient  bool   `json:"lenient,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InputDir == "" {
		writeJSONError(w, http.StatusBadRequest, "input_dir is required")
		return
	}

	opts, err := prepareBatch(req.InputDir, cfg.Fill.Strict && !req.Lenient)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	outPath := req.Out
	if outPath == "" {
		outPath = filepath.Join(req.InputDir, cfg.Batch.OutputName)
	}

	run, err := a.store.CreateRun(r.Context(), store.RunInput{
		InputDir:     req.InputDir,
		MapPath:      opts.MapPath,
		TemplatePath: opts.TemplatePath,
		OverlayPath:  opts.OverlayPath,
		OutputPath:   outPath,
		Strict:       opts.Strict,
	})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	go a.runJob(run.ID, opts, req.InputDir, outPath)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     run.ID,
		"status": string(store.RunStatusQueued),
	})
}

// runJob executes a submitted batch on the server's base context and keeps
// the store and the event hub in sync with its progress.
func (a *serverApp) runJob(runID string, opts driver.Options, inputDir, outPath string) {
	ctx := a.baseCtx

	if err := a.store.UpdateRunStatus(ctx, runID, store.RunStatusRunning); err != nil {
		zap.L().Error("update run status", zap.String("run_id", runID), zap.Error(err))
	}

	opts.Progress = func(phase driver.Phase, current, total int) {
		a.hub.publish(jobEvent{RunID: runID, Phase: phase, Current: current, Total: total})
	}
	a.hub.publish(jobEvent{RunID: runID, Phase: driver.PhaseParsing})

	fail := func(err error) {
		zap.L().Error("job failed", zap.String("run_id", runID), zap.Error(err))
		_ = a.store.UpdateRunResult(ctx, runID, store.RunStatusFailed, &store.RunResult{Error: err.Error()})
		a.hub.publish(jobEvent{RunID: runID, Phase: driver.PhaseError})
		a.hub.closeRun(runID)
	}

	result, err := executeBatch(ctx, opts, inputDir)
	if err != nil {
		fail(err)
		return
	}
	if err := result.Table.WriteCSVFile(outPath); err != nil {
		fail(err)
		return
	}
	if err := a.store.UpdateRunResult(ctx, runID, store.RunStatusCompleted, runResult(result, outPath, nil)); err != nil {
		zap.L().Error("update run result", zap.String("run_id", runID), zap.Error(err))
	}

	zap.L().Info("job complete",
		zap.String("run_id", runID),
		zap.Int("plans", len(result.Plans)),
		zap.Int("hits", result.Hits),
		zap.Int("misses", result.Misses),
	)
	a.hub.publish(jobEvent{RunID: runID, Phase: driver.PhaseComplete})
	a.hub.closeRun(runID)
}

func (a *serverApp) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{Status: store.RunStatus(q.Get("status"))}
	if q.Get("limit") != "" {
		fmt.Sscanf(q.Get("limit"), "%d", &filter.Limit) //nolint:errcheck
	}

	runs, err := a.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *serverApp) handleGetJob(w http.ResponseWriter, r *http.Request) {
	run, err := a.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleJobEvents streams job progress as server-sent events, throttled so a
// fast resolver does not flood slow consumers.
func (a *serverApp) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	run, err := a.store.GetRun(r.Context(), runID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Terminal runs get a single synthetic event.
	if run.Status == store.RunStatusCompleted || run.Status == store.RunStatusFailed {
		phase := driver.PhaseComplete
		if run.Status == store.RunStatusFailed {
			phase = driver.PhaseError
		}
		writeSSE(w, jobEvent{RunID: runID, Phase: phase})
		flusher.Flush()
		return
	}

	events, cancel := a.hub.subscribe(runID)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(cfg.Server.EventsPerSecond), 1)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, open := <-events:
			if !open {
				return
			}
			terminal := evt.Phase == driver.PhaseComplete || evt.Phase == driver.PhaseError
			if !terminal && !limiter.Allow() {
				continue
			}
			writeSSE(w, evt)
			flusher.Flush()
			if terminal {
				return
			}
		}
	}
}

// handleResolve fills the questionnaire for plan documents posted inline,
// using the workbooks found in the server's asset directory.
func (a *serverApp) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plans []struct {
			Name    string `json:"name"`
			Content string `json:"content"`
		} `json:"plans"`
		Lenient bool `json:"lenient,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Plans) == 0 {
		writeJSONError(w, http.StatusBadRequest, "plans is required")
		return
	}

	opts, err := prepareBatch(a.assetDir, cfg.Fill.Strict && !req.Lenient)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var plans []driver.Plan
	var failed []driver.PlanError
	for i, p := range req.Plans {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("plan_%d.xml", i)
		}
		doc, err := planxml.Parse(strings.NewReader(p.Content))
		if err != nil {
			failed = append(failed, driver.PlanError{File: name, Err: err})
			continue
		}
		id := doc.ClientID()
		if id == "" {
			id = strings.TrimSuffix(name, filepath.Ext(name))
		}
		plans = append(plans, driver.Plan{
			File:  name,
			ID:    id,
			Label: doc.Label(id),
			Flags: doc.Flags,
		})
	}
	if len(plans) == 0 {
		writeJSONError(w, http.StatusBadRequest, "no plan document could be parsed")
		return
	}

	result, err := driver.Run(r.Context(), opts, plans, failed)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rows":   result.Table.Records(),
		"hits":   result.Hits,
		"misses": result.Misses,
	})
}

// -- event hub --

type jobEvent struct {
	RunID   string       `json:"run_id"`
	Phase   driver.Phase `json:"phase"`
	Current int          `json:"current,omitempty"`
	Total   int          `json:"total,omitempty"`
}

// jobHub fans job progress out to SSE subscribers. Slow subscribers drop
// intermediate events rather than stall the resolver.
type jobHub struct {
	mu   sync.Mutex
	subs map[string]map[chan jobEvent]struct{}
}

func newJobHub() *jobHub {
	return &jobHub{subs: make(map[string]map[chan jobEvent]struct{})}
}

func (h *jobHub) subscribe(runID string) (<-chan jobEvent, func()) {
	ch := make(chan jobEvent, 64)

	h.mu.Lock()
	if h.subs[runID] == nil {
		h.subs[runID] = make(map[chan jobEvent]struct{})
	}
	h.subs[runID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[runID]; ok {
			delete(set, ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *jobHub) publish(evt jobEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[evt.RunID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (h *jobHub) closeRun(runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[runID] {
		close(ch)
	}
	delete(h.subs, runID)
}

// -- response helpers --

func writeSSE(w http.ResponseWriter, evt jobEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
