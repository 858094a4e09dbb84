package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/me/zoorunner/internal/store"
	"github.com/me/zoorunner/pkg/model"
)

type runDetail struct {
	*store.Run
	Events []*store.StatusEvent `json:"events"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	q := r.URL.Query()

	opts := store.DefaultListOptions()
	opts.State = q.Get("state")
	opts.WorkflowID = q.Get("workflow_id")
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &opts.Limit}, {"offset", &opts.Offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid query parameter",
				model.FieldError{Field: p.name, Message: "expected integer"}))
			return
		}
		*p.dst = n
	}
	opts.Clamp()

	runs, total, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err))
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	respondList(w, reqID, runs, model.NewPagination(total, opts.Limit, opts.Offset))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err))
		return
	}
	if run == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("Run", id))
		return
	}
	events, err := s.store.ListStatus(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err))
		return
	}
	if events == nil {
		events = []*store.StatusEvent{}
	}
	respondOK(w, reqID, runDetail{Run: run, Events: events})
}

func (s *Server) handleListStatus(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err))
		return
	}
	if run == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("Run", id))
		return
	}
	events, err := s.store.ListStatus(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err))
		return
	}
	if events == nil {
		events = []*store.StatusEvent{}
	}
	respondOK(w, reqID, events)
}
