// Package api exposes the inbound turn API over HTTP for the transport
// layer: session start/continue/cancel, frozen snapshots, and lead CRUD.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	contractx "github.com/autopitch/callflow/agent/contract"
	nodex "github.com/autopitch/callflow/agent/nodes"
	orchestratorx "github.com/autopitch/callflow/agent/orchestrator"
	statex "github.com/autopitch/callflow/agent/state"
)

type Server struct {
	orch *orchestratorx.Orchestrator
	crm  contractx.CRM
}

func NewServer(orch *orchestratorx.Orchestrator, crm contractx.CRM) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	if crm == nil {
		return nil, errors.New("crm is required")
	}
	return &Server{orch: orch, crm: crm}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", s.startSession)
		r.Post("/sessions/{sessionID}/turns", s.continueSession)
		r.Get("/sessions/{sessionID}", s.snapshotSession)
		r.Delete("/sessions/{sessionID}", s.cancelSession)

		r.Get("/leads", s.listLeads)
		r.Post("/leads", s.upsertLead)
	})

	return r
}

type startSessionRequest struct {
	Lead statex.Lead `json:"lead"`
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID, reply, err := s.orch.StartSession(r.Context(), req.Lead)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, startSessionResponse{SessionID: sessionID, Reply: reply})
}

type turnRequest struct {
	Utterance string `json:"utterance"`
}

func (s *Server) continueSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.orch.ContinueSession(r.Context(), sessionID, req.Utterance)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) snapshotSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.orch.SnapshotSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) cancelSession(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.CancelSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeMappedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.crm.ListLeads(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (s *Server) upsertLead(w http.ResponseWriter, r *http.Request) {
	var lead statex.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	saved, err := s.crm.UpsertLead(r.Context(), lead)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contractx.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, contractx.ErrSessionBusy):
		writeError(w, http.StatusConflict, "a turn for this session is in flight, retry later")
	case errors.Is(err, contractx.ErrSessionEnded):
		writeError(w, http.StatusGone, "session already ended")
	case errors.Is(err, contractx.ErrValidation),
		errors.Is(err, nodex.ErrInvalidUtterance),
		errors.Is(err, nodex.ErrInvalidSession):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("turn failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
