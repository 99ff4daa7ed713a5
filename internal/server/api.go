package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/pipeline"
	"github.com/leonardotrapani/hyprlingo/internal/polish"
	"github.com/leonardotrapani/hyprlingo/internal/session"
	"github.com/leonardotrapani/hyprlingo/internal/store"
	"github.com/leonardotrapani/hyprlingo/internal/transcriber"
	"github.com/leonardotrapani/hyprlingo/internal/translation"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	multipartMemory  = 32 << 20
)

type sessionResponse struct {
	Session  store.Session   `json:"session"`
	Segments []store.Segment `json:"segments"`
	Warnings []string        `json:"warnings,omitempty"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = min(n, maxListLimit)
	}

	sessions, err := s.deps.Store.ListSessions(r.Context(), limit)
	if err != nil {
		s.log.Errorw("list sessions failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, segs, err := s.deps.Store.GetSessionWithSegments(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if segs == nil {
		segs = []store.Segment{}
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, Segments: segs})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if slices.Contains(s.deps.Registry.SessionIDs(), id) {
		writeError(w, http.StatusConflict, errors.New("session is still recording"))
		return
	}
	if err := s.deps.Store.DeleteSession(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.log.Infow("session deleted", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePolish(w http.ResponseWriter, r *http.Request) {
	if s.deps.Polisher == nil {
		writeError(w, http.StatusServiceUnavailable, translation.ErrPolishDisabled)
		return
	}

	id := r.PathValue("id")
	// a missing session would otherwise look like a held lock
	if _, _, err := s.deps.Store.GetSessionWithSegments(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	res := s.deps.Polisher.Polish(r.Context(), id, polish.Manual)
	status := http.StatusOK
	switch res.Status {
	case polish.StatusBusy:
		status = http.StatusConflict
	case polish.StatusError:
		switch {
		case errors.Is(res.Err, store.ErrSessionNotFound):
			status = http.StatusNotFound
		case errors.Is(res.Err, translation.ErrPolishDisabled):
			status = http.StatusServiceUnavailable
		default:
			status = http.StatusBadGateway
		}
	}
	writeJSON(w, status, session.PolishEvent(res).Data)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Uploads == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("uploads are not enabled"))
		return
	}
	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing file: %w", err))
		return
	}
	defer file.Close()
	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req, err := session.RequestFromQuery(r.Form)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg := req.Apply(s.deps.Defaults())
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	log := s.log.With("file", header.Filename, "bytes", len(audio))
	log.Infow("upload received", "mode", cfg.Mode, "polish", cfg.Polish)

	// The upload outlives a client that gives up waiting.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 10*time.Minute)
	defer cancel()

	res, err := s.deps.Uploads.Run(ctx, pipeline.Request{
		Audio:       audio,
		ContentType: header.Header.Get("Content-Type"),
		Config:      cfg,
		Progress: func(st pipeline.Status) {
			log.Debugw("upload progress", "status", st)
		},
	})
	if err != nil {
		log.Warnw("upload failed", "error", err)
		writeError(w, uploadStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Session: res.Session, Segments: res.Segments, Warnings: res.Warnings})
}

func uploadStatus(err error) int {
	var te *translation.Error
	switch {
	case errors.Is(err, pipeline.ErrEmptyAudio):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNoSpeech):
		return http.StatusUnprocessableEntity
	case transcriber.IsFatalTranscriptionError(err), errors.As(err, &te):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]any{
		"status":      "ok",
		"connections": s.ClientCount(),
	}
	if err := s.deps.Store.Ping(ctx); err != nil {
		body["status"] = "unavailable"
		body["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.log.Errorw("store request failed", "error", err)
	writeError(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
