// Package httpapi exposes progress tracking over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"golang.org/x/text/language"

	"github.com/p-n-ai/pai-progress/internal/auth"
	"github.com/p-n-ai/pai-progress/internal/progress"
	"github.com/p-n-ai/pai-progress/internal/realtime"
	"github.com/p-n-ai/pai-progress/internal/report"
)

// DeviceHeader carries the client's device identifier.
const DeviceHeader = "X-Device-ID"

const (
	maxBodyBytes = 64 << 10
	readyTimeout = 2 * time.Second
)

var exportLanguages = language.NewMatcher([]language.Tag{
	language.English,
	language.Malay,
	language.German,
	language.French,
})

// Checker reports whether a dependency is reachable.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds dependencies for the HTTP handler.
type Config struct {
	Tracker *progress.Tracker
	Signer  *auth.Signer
	Hub     *realtime.Hub      // optional; nil disables /v1/ws
	Checks  map[string]Checker // consulted by /readyz
}

type server struct {
	tracker *progress.Tracker
	signer  *auth.Signer
	hub     *realtime.Hub
	checks  map[string]Checker
}

// NewHandler builds the HTTP router. Every route runs behind the signer's
// middleware so handlers can read the caller's identity from the context.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}

	s := &server{
		tracker: cfg.Tracker,
		signer:  cfg.Signer,
		hub:     cfg.Hub,
		checks:  cfg.Checks,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /v1/courses", s.handleCourses)
	mux.HandleFunc("GET /v1/progress", s.handleSummary)
	mux.HandleFunc("GET /v1/progress/export.xlsx", s.handleExport)
	mux.HandleFunc("GET /v1/progress/{course}", s.handleCourse)
	mux.HandleFunc("GET /v1/progress/{course}/{section}", s.handleSection)
	mux.HandleFunc("DELETE /v1/progress/{course}/{section}", s.handleReset)
	mux.HandleFunc("POST /v1/progress/{course}/migrate", s.handleMigrate)
	mux.HandleFunc("POST /v1/progress/{course}/{section}/{topic}/complete", s.handleComplete)
	mux.HandleFunc("POST /v1/progress/{course}/{section}/{topic}/quiz", s.handleQuiz)
	mux.HandleFunc("POST /v1/progress/{course}/{section}/{topic}/code", s.handleCode)
	if s.hub != nil {
		mux.HandleFunc("GET /v1/ws", s.handleWS)
	}

	return s.signer.Middleware(mux), nil
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	var failed []string
	for name, c := range s.checks {
		if err := c.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type courseSummary struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Sections []sectionSummary `json:"sections"`
}

type sectionSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Topics int    `json:"topics"`
}

func (s *server) handleCourses(w http.ResponseWriter, r *http.Request) {
	courses := s.tracker.Courses()
	out := make([]courseSummary, 0, len(courses))
	for _, c := range courses {
		cs := courseSummary{ID: c.ID, Name: c.Name, Sections: make([]sectionSummary, 0, len(c.Sections))}
		for _, sec := range c.Sections {
			cs.Sections = append(cs.Sections, sectionSummary{ID: sec.ID, Name: sec.Name, Topics: len(sec.Topics)})
		}
		out = append(out, cs)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.tracker.ProfileSummary(r.Context(), auth.FromContext(r.Context()), deviceID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	summary, err := s.tracker.ProfileSummary(r.Context(), auth.FromContext(r.Context()), deviceID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	tags, _, _ := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	tag, _, _ := exportLanguages.Match(tags...)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="progress.xlsx"`)
	if err := report.WriteWorkbook(w, summary, tag); err != nil {
		slog.Error("progress export failed", "error", err)
	}
}

func (s *server) handleCourse(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracker.CourseProgress(r.Context(), auth.FromContext(r.Context()), deviceID(r), r.PathValue("course"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) handleSection(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracker.SectionProgress(r.Context(), auth.FromContext(r.Context()), deviceID(r), r.PathValue("course"), r.PathValue("section"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracker.ResetSection(r.Context(), auth.FromContext(r.Context()), deviceID(r), r.PathValue("course"), r.PathValue("section"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracker.MigrateLocal(r.Context(), auth.FromContext(r.Context()), deviceID(r), r.PathValue("course"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) handleComplete(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracker.CompleteTopic(r.Context(), auth.FromContext(r.Context()), deviceID(r),
		r.PathValue("course"), r.PathValue("section"), r.PathValue("topic"), progress.Completion{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type quizRequest struct {
	Score *float64 `json:"score"`
}

func (s *server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Score == nil {
		writeError(w, badRequest("score is required"))
		return
	}

	res, err := s.tracker.SubmitQuiz(r.Context(), auth.FromContext(r.Context()), deviceID(r),
		r.PathValue("course"), r.PathValue("section"), r.PathValue("topic"), *req.Score)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type codeRequest struct {
	Source string `json:"source"`
}

func (s *server) handleCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Source == "" {
		writeError(w, badRequest("source is required"))
		return
	}

	res, err := s.tracker.SubmitCode(r.Context(), auth.FromContext(r.Context()), deviceID(r),
		r.PathValue("course"), r.PathValue("section"), r.PathValue("topic"), req.Source)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	owner, err := s.resolveOwner(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.hub.Serve(w, r, owner)
}

// resolveOwner identifies a WebSocket subscriber. Browsers cannot set headers
// on the upgrade request, so the token and device may also come from the query.
func (s *server) resolveOwner(r *http.Request) (string, error) {
	id := auth.FromContext(r.Context())
	if token := r.URL.Query().Get("token"); token != "" {
		verified, err := s.signer.Verify(token)
		if err != nil {
			return "", err
		}
		id = verified
	}

	device := deviceID(r)
	if device == "" {
		device = r.URL.Query().Get("device")
	}

	owner := id.Owner(device)
	if owner == "" {
		return "", progress.ErrNoProgressOwner
	}
	return owner, nil
}

func deviceID(r *http.Request) string {
	return r.Header.Get(DeviceHeader)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}
