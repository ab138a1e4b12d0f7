package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tourcal/internal/config"
	"tourcal/internal/depend"
	"tourcal/internal/layout"
	appLog "tourcal/internal/log"
	"tourcal/internal/model"
	"tourcal/internal/risk"
	"tourcal/internal/schedule"
	"tourcal/internal/source"
)

// conflictsMaxAge is how long a validation result is served before
// /api/conflicts recomputes it.
const conflictsMaxAge = 30 * time.Second

// Server exposes the layout and conflict engine over a JSON API.
type Server struct {
	cfg   *config.Config
	src   source.Source
	links depend.LinkRepository
	reval *schedule.Revalidator

	loc       *time.Location
	weekStart time.Weekday
	mux       *http.ServeMux
}

// NewServer constructs a new Server. reval may be nil, in which case one is
// created over src and links.
func NewServer(cfg *config.Config, src source.Source, links depend.LinkRepository, reval *schedule.Revalidator) *Server {
	if reval == nil {
		reval = schedule.NewRevalidator(src, links)
	}
	s := &Server{
		cfg:       cfg,
		src:       src,
		links:     links,
		reval:     reval,
		loc:       resolveLocation(cfg.Timezone),
		weekStart: layout.ParseWeekStart(cfg.WeekStart),
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="tourcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
	s.mux.HandleFunc("GET /api/spans", s.handleSpans)
	s.mux.HandleFunc("GET /api/month", s.handleMonth)
	s.mux.HandleFunc("GET /api/conflicts", s.handleConflicts)
	s.mux.HandleFunc("POST /api/check-move", s.handleCheckMove)
	s.mux.HandleFunc("GET /api/links", s.handleListLinks)
	s.mux.HandleFunc("POST /api/links", s.handleAddLink)
	s.mux.HandleFunc("DELETE /api/links", s.handleRemoveLink)
	s.mux.HandleFunc("GET /api/risk", s.handleRisk)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// events loads the current event set, writing a 502 on failure.
func (s *Server) events(w http.ResponseWriter, r *http.Request) ([]model.CalEvent, bool) {
	events, err := s.src.Events(r.Context())
	if err != nil {
		appLog.Error("load events failed", err, "path", r.URL.Path)
		writeError(w, http.StatusBadGateway, "failed to load events")
		return nil, false
	}
	return events, true
}

type eventsResponse struct {
	Events    []model.CalEvent     `json:"events"`
	Flags     map[string]risk.Flag `json:"flags"`
	Timezone  string               `json:"timezone"`
	WeekStart string               `json:"weekStart"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, ok := s.events(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Events:    events,
		Flags:     risk.ClassifyAll(events, s.cfg.RiskWindowDays),
		Timezone:  s.loc.String(),
		WeekStart: s.cfg.WeekStart,
	})
}

type layoutResponse struct {
	Date    model.Date       `json:"date"`
	Columns []layout.Column  `json:"columns"`
	Timed   []model.CalEvent `json:"timed"`
	AllDay  []model.CalEvent `json:"allDay"`
}

// handleLayout lays out one day: column positions for timed events and the
// list of all-day or multi-day events shown above them.
//
// GET /api/layout?date=YYYY-MM-DD
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	day, err := model.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, ok := s.events(w, r)
	if !ok {
		return
	}

	resp := layoutResponse{Date: day, Timed: []model.CalEvent{}, AllDay: []model.CalEvent{}}
	for _, ev := range model.OnDate(events, day) {
		if ev.IsTimed() && !ev.IsMultiDay() {
			resp.Timed = append(resp.Timed, ev)
		} else {
			resp.AllDay = append(resp.AllDay, ev)
		}
	}
	resp.Columns = layout.AssignColumns(model.TimedEvents(resp.Timed))
	writeJSON(w, http.StatusOK, resp)
}

type spansResponse struct {
	Start model.Date    `json:"start"`
	End   model.Date    `json:"end"`
	Rows  int           `json:"rows"`
	Spans []layout.Span `json:"spans"`
}

// handleSpans packs multi-day bars for a window.
//
// GET /api/spans?start=YYYY-MM-DD&end=YYYY-MM-DD
func (s *Server) handleSpans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := model.ParseDate(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start: "+err.Error())
		return
	}
	end, err := model.ParseDate(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end: "+err.Error())
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end is before start")
		return
	}
	events, ok := s.events(w, r)
	if !ok {
		return
	}

	spans := layout.CalculateSpans(events, start, end, nil)
	if spans == nil {
		spans = []layout.Span{}
	}
	writeJSON(w, http.StatusOK, spansResponse{Start: start, End: end, Rows: layout.MaxRow(spans), Spans: spans})
}

type monthWeek struct {
	Days  []model.Date  `json:"days"`
	Rows  int           `json:"rows"`
	Spans []layout.Span `json:"spans"`
}

type monthResponse struct {
	Year      int         `json:"year"`
	Month     int         `json:"month"`
	WeekStart string      `json:"weekStart"`
	Weeks     []monthWeek `json:"weeks"`
}

// handleMonth returns the 6x7 month grid with spans packed per week row.
//
// GET /api/month?year=2025&month=6 (defaults to the current month)
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(s.loc)
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), now.Year())
	month := parseIntDefault(q.Get("month"), int(now.Month()))
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be 1-12")
		return
	}
	events, ok := s.events(w, r)
	if !ok {
		return
	}

	grid := layout.MonthGrid(year, time.Month(month), s.weekStart)
	weeks := layout.Weeks(grid)
	spans := layout.WeekSpans(events, grid)

	resp := monthResponse{Year: year, Month: month, WeekStart: s.cfg.WeekStart}
	for i, days := range weeks {
		ws := spans[i]
		if ws == nil {
			ws = []layout.Span{}
		}
		resp.Weeks = append(resp.Weeks, monthWeek{Days: days, Rows: layout.MaxRow(ws), Spans: ws})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	res, err := s.reval.Latest(r.Context(), conflictsMaxAge)
	if err != nil {
		appLog.Error("validation failed", err)
		writeError(w, http.StatusBadGateway, "failed to validate")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type checkMoveRequest struct {
	EventID string     `json:"eventId"`
	Date    model.Date `json:"date"`
}

type checkMoveResponse struct {
	EventID   string            `json:"eventId"`
	Date      model.Date        `json:"date"`
	Blocking  bool              `json:"blocking"`
	Conflicts []depend.Conflict `json:"conflicts"`
}

// handleCheckMove reports what moving an event would break. Blocking is
// true when any conflict is an error; the caller decides whether to commit.
//
// POST /api/check-move {"eventId": "...", "date": "YYYY-MM-DD"}
func (s *Server) handleCheckMove(w http.ResponseWriter, r *http.Request) {
	var req checkMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.EventID == "" || req.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "eventId and date are required")
		return
	}
	events, ok := s.events(w, r)
	if !ok {
		return
	}
	if _, found := model.ByID(events)[req.EventID]; !found {
		writeError(w, http.StatusNotFound, "unknown event "+req.EventID)
		return
	}

	conflicts := depend.CheckMoveConflict(req.EventID, req.Date, events, s.links.List())
	writeJSON(w, http.StatusOK, checkMoveResponse{
		EventID:   req.EventID,
		Date:      req.Date,
		Blocking:  depend.HasBlocking(conflicts),
		Conflicts: conflicts,
	})
}

func (s *Server) handleListLinks(w http.ResponseWriter, _ *http.Request) {
	links := s.links.List()
	if links == nil {
		links = []depend.Link{}
	}
	writeJSON(w, http.StatusOK, links)
}

// handleAddLink stores a new link. Both events must exist.
func (s *Server) handleAddLink(w http.ResponseWriter, r *http.Request) {
	var l depend.Link
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if err := depend.ValidateLink(l); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, ok := s.events(w, r)
	if !ok {
		return
	}
	byID := model.ByID(events)
	for _, id := range []string{l.FromID, l.ToID} {
		if _, found := byID[id]; !found {
			writeError(w, http.StatusBadRequest, "unknown event "+id)
			return
		}
	}

	if err := s.links.Add(l); err != nil {
		if errors.Is(err, depend.ErrDuplicateLink) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		appLog.Error("add link failed", err, "from", l.FromID, "to", l.ToID)
		writeError(w, http.StatusInternalServerError, "failed to save link")
		return
	}
	s.reval.Invalidate()
	appLog.Info("link added", "from", l.FromID, "to", l.ToID, "type", string(l.Type))
	writeJSON(w, http.StatusCreated, l)
}

// handleRemoveLink deletes a link.
//
// DELETE /api/links?from=...&to=...
func (s *Server) handleRemoveLink(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	if err := s.links.Remove(from, to); err != nil {
		if errors.Is(err, depend.ErrLinkNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		appLog.Error("remove link failed", err, "from", from, "to", to)
		writeError(w, http.StatusInternalServerError, "failed to save links")
		return
	}
	s.reval.Invalidate()
	appLog.Info("link removed", "from", from, "to", to)
	w.WriteHeader(http.StatusNoContent)
}

type riskResponse struct {
	WindowDays int                  `json:"windowDays"`
	Flags      map[string]risk.Flag `json:"flags"`
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	events, ok := s.events(w, r)
	if !ok {
		return
	}
	days := parseIntDefault(r.URL.Query().Get("days"), s.cfg.RiskWindowDays)
	writeJSON(w, http.StatusOK, riskResponse{WindowDays: days, Flags: risk.ClassifyAll(events, days)})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "name", name)
		return time.UTC
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
