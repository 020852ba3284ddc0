package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourname/contest-matchmaker/internal/leaderboard"
	"github.com/yourname/contest-matchmaker/internal/match"
	"github.com/yourname/contest-matchmaker/internal/presence"
	"github.com/yourname/contest-matchmaker/internal/results"
	"github.com/yourname/contest-matchmaker/internal/ws"
	"github.com/yourname/contest-matchmaker/pkg/errs"
	"github.com/yourname/contest-matchmaker/pkg/types"
)

// Deps are the components the request layer forwards to.
type Deps struct {
	Matchmaker  *match.Matchmaker
	Leaderboard *leaderboard.Aggregator
	Presence    *presence.Tracker
	Results     *results.Recorder
	Hub         *ws.Hub
	Logger      *zap.Logger
}

type router struct {
	Deps
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r := &router{Deps: d}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.Post("/queue/join", r.handleJoin)
	mux.Post("/queue/leave", r.handleLeave)
	mux.Post("/status", r.handleStatus)
	mux.Get("/opponents", r.handleOpponents)
	mux.Get("/available", r.handleAvailable)
	mux.Get("/leaderboard", r.handleLeaderboard)
	mux.Get("/players/{key}/activity", r.handleActivity)
	mux.Post("/contests/results", r.handleResults)
	if d.Hub != nil {
		mux.Get("/ws", r.handleWS)
	}

	return mux
}

func (r *router) handleJoin(w http.ResponseWriter, req *http.Request) {
	var p types.JoinRequest
	if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := r.Matchmaker.JoinQueue(req.Context(), p.PlayerKey, p.Mode, p.Preferences)
	if err != nil {
		r.fail(w, err)
		return
	}
	writeJSON(w, res)
}

func (r *router) handleLeave(w http.ResponseWriter, req *http.Request) {
	var p struct {
		PlayerKey string `json:"player_key"`
	}
	if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := r.Matchmaker.LeaveQueue(req.Context(), p.PlayerKey); err != nil {
		r.fail(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (r *router) handleStatus(w http.ResponseWriter, req *http.Request) {
	var p struct {
		PlayerKey string `json:"player_key"`
		types.StatusUpdate
	}
	if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := r.Matchmaker.UpdateStatus(req.Context(), p.PlayerKey, p.StatusUpdate); err != nil {
		r.fail(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (r *router) handleOpponents(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	res, err := r.Matchmaker.FindOpponents(req.Context(), q.Get("player"), types.Mode(q.Get("mode")))
	if err != nil {
		r.fail(w, err)
		return
	}
	writeJSON(w, res)
}

func (r *router) handleAvailable(w http.ResponseWriter, req *http.Request) {
	users, err := r.Matchmaker.ListAvailable(req.Context(), req.URL.Query().Get("player"))
	if err != nil {
		r.fail(w, err)
		return
	}
	writeJSON(w, map[string]any{"users": users})
}

func (r *router) handleLeaderboard(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	tf := types.Timeframe(q.Get("timeframe"))
	if tf == "" {
		tf = types.TimeframeAll
	}
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		r.fail(w, err)
		return
	}
	offset, err := intParam(q.Get("offset"), "offset")
	if err != nil {
		r.fail(w, err)
		return
	}
	page, err := r.Leaderboard.GetLeaderboard(req.Context(), tf, limit, offset)
	if err != nil {
		r.fail(w, err)
		return
	}
	writeJSON(w, page)
}

func (r *router) handleActivity(w http.ResponseWriter, req *http.Request) {
	sum, err := r.Presence.Summary(req.Context(), chi.URLParam(req, "key"))
	if err != nil {
		r.fail(w, err)
		return
	}
	writeJSON(w, sum)
}

func (r *router) handleResults(w http.ResponseWriter, req *http.Request) {
	var p types.ContestResult
	if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entries, err := r.Results.Record(req.Context(), p)
	if err != nil {
		r.fail(w, err)
		return
	}
	writeJSON(w, map[string]any{"changes": entries})
}

func (r *router) handleWS(w http.ResponseWriter, req *http.Request) {
	ws.ServeWS(r.Hub, w, req)
}

// fail maps the error taxonomy onto status codes. Storage failures are retryable.
func (r *router) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, errs.ErrStorage):
		r.Logger.Error("storage failure", zap.Error(err))
		w.Header().Set("Retry-After", "1")
		http.Error(w, "storage temporarily unavailable", http.StatusServiceUnavailable)
	default:
		r.Logger.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.Invalid(name, "not an integer")
	}
	return n, nil
}
