// Package httpapi exposes the query pipeline, document upload and project
// data over a JSON REST interface.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"airrag/internal/analysis"
	"airrag/internal/domain"
	"airrag/internal/metrics"
	"airrag/internal/projectstore"
	"airrag/internal/report"
	"airrag/internal/service"
	"airrag/internal/textextract"
)

const maxUploadBytes = 32 << 20

// Processor answers a chat query.
type Processor interface {
	Process(ctx context.Context, input string) domain.SensorResponse
}

// Ingester indexes an uploaded document.
type Ingester interface {
	IngestText(ctx context.Context, name, text string) (service.Result, error)
}

type Reporter interface {
	Report(ctx context.Context, topic string) (string, error)
}

type Deps struct {
	Queries   Processor
	Ingest    Ingester
	Extractor domain.TextExtractor
	Projects  *projectstore.Store
	Stations  projectstore.StationFetcher
	Reports   Reporter
	Log       *zap.Logger
	Metrics   *metrics.Metrics
}

type Server struct {
	d Deps
}

func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Server{d: d}
}

// Handler returns the full route tree with access logging, panic
// recovery and CORS applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	// API routes sit on the root router: subrouter routes inherit the
	// prefix matcher, which clears a method mismatch and turns 405 into 404.
	s.handle(r, "/query", "query", s.query).Methods(http.MethodPost)
	s.handle(r, "/documents", "documents", s.upload).Methods(http.MethodPost)
	s.handle(r, "/project", "project_get", s.getProject).Methods(http.MethodGet)
	s.handle(r, "/project", "project_put", s.putProject).Methods(http.MethodPut)
	s.handle(r, "/project", "project_delete", s.deleteProject).Methods(http.MethodDelete)
	s.handle(r, "/project/anomalies", "anomalies", s.anomalies).Methods(http.MethodGet)
	s.handle(r, "/project/scenarios/{scenario}", "scenario", s.scenario).Methods(http.MethodPost)
	s.handle(r, "/report", "report", s.report).Methods(http.MethodPost)
	s.handle(r, "/stations", "stations", s.stations).Methods(http.MethodGet)
	s.handle(r, "/stations/refresh", "stations_refresh", s.refreshStations).Methods(http.MethodPost)

	r.HandleFunc("/health", health).Methods(http.MethodGet)
	r.Handle("/metrics", s.d.Metrics.Handler()).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	stdlog := zap.NewStdLog(s.d.Log)
	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(stdlog))(h)
	return handlers.LoggingHandler(stdlog.Writer(), h)
}

const apiPrefix = "/api/v1"

func (s *Server) handle(r *mux.Router, path, name string, fn http.HandlerFunc) *mux.Route {
	return r.Handle(apiPrefix+path, s.d.Metrics.WrapHandler(name, fn))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.d.Log.Info("http api listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	writeJSON(w, http.StatusOK, s.d.Queries.Process(r.Context(), req.Query))
}

// upload accepts a multipart "file" field, or a plain-text body named by
// the "name" query parameter.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	name, text, err := s.documentText(r)
	if err != nil {
		s.d.Log.Warn("upload rejected", zap.Error(err))
		status := http.StatusBadRequest
		if errors.Is(err, textextract.ErrUnsupported) {
			status = http.StatusUnsupportedMediaType
		}
		writeError(w, status, err.Error())
		return
	}
	res, err := s.d.Ingest.IngestText(r.Context(), name, text)
	if err != nil {
		s.d.Log.Error("ingest failed", zap.String("file", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) documentText(r *http.Request) (string, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", "", err
		}
		defer file.Close()
		text, err := s.d.Extractor.Extract(r.Context(), header.Filename, file, header.Size)
		return header.Filename, text, err
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return "", "", err
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "document.txt"
	}
	return name, string(b), nil
}

func (s *Server) getProject(w http.ResponseWriter, _ *http.Request) {
	p := s.d.Projects.Get()
	if p == nil {
		writeError(w, http.StatusNotFound, "no project loaded")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) putProject(w http.ResponseWriter, r *http.Request) {
	var p domain.ProjectData
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	s.d.Projects.Set(p)
	s.d.Log.Info("project replaced", zap.String("name", p.Name))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteProject(w http.ResponseWriter, _ *http.Request) {
	s.d.Projects.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) anomalies(w http.ResponseWriter, _ *http.Request) {
	p := s.d.Projects.Get()
	if p == nil {
		writeError(w, http.StatusNotFound, "no project loaded")
		return
	}
	anomalies := analysis.DetectAnomalies(*p)
	if anomalies == nil {
		anomalies = []domain.Anomaly{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"anomalies": anomalies})
}

func (s *Server) scenario(w http.ResponseWriter, r *http.Request) {
	sc, err := analysis.ParseScenario(mux.Vars(r)["scenario"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := s.d.Projects.Get()
	if p == nil {
		writeError(w, http.StatusNotFound, "no project loaded")
		return
	}
	sim := analysis.SimulateScenario(*p, sc)
	writeJSON(w, http.StatusOK, map[string]any{
		"scenario": sc,
		"project":  sim,
		"impact":   analysis.ScenarioImpact(*p, sim),
	})
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = report.DefaultTopic
	}
	text, err := s.d.Reports.Report(r.Context(), topic)
	if err != nil {
		s.d.Log.Error("report failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "report generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"report": text})
}

// stations serves the cache, filling it first when it is empty.
func (s *Server) stations(w http.ResponseWriter, r *http.Request) {
	stations := s.d.Projects.Stations()
	if len(stations) == 0 && s.d.Stations != nil {
		var err error
		stations, err = s.d.Projects.RefreshStations(r.Context(), s.d.Stations)
		if err != nil {
			s.d.Log.Warn("station refresh failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "stations unavailable")
			return
		}
	}
	if stations == nil {
		stations = []domain.StationRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stations": stations})
}

func (s *Server) refreshStations(w http.ResponseWriter, r *http.Request) {
	if s.d.Stations == nil {
		writeError(w, http.StatusServiceUnavailable, "no station provider configured")
		return
	}
	p, err := s.d.Projects.RefreshProjectAirQuality(r.Context(), s.d.Stations)
	if err != nil {
		s.d.Log.Warn("station refresh failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "stations unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stations": s.d.Projects.Stations(),
		"project":  p,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
