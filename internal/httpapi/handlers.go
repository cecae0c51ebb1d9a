package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MimeLyc/wordsub/internal/config"
	"github.com/MimeLyc/wordsub/internal/service"
	"github.com/MimeLyc/wordsub/internal/tracks"
	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"
)

type pathRequest struct {
	Path string `json:"path"`
}

type selectTrackRequest struct {
	Index *int `json:"index"`
}

type activateWordRequest struct {
	Word     string `json:"word"`
	Sentence string `json:"sentence"`
}

type seekRequest struct {
	Delta    *float64 `json:"delta"`
	Position *float64 `json:"position"`
}

type rateRequest struct {
	Rate float64 `json:"rate"`
}

type languageRequest struct {
	Target string `json:"target"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.session.Snapshot()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleOpenMedia(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if err := s.session.OpenMedia(r.Context(), req.Path); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleLoadSubtitles(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if err := s.session.LoadSubtitles(req.Path); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleSelectTrack(w http.ResponseWriter, r *http.Request) {
	var req selectTrackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}
	if err := s.session.SelectTrack(r.Context(), *req.Index); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleCancelTrack(w http.ResponseWriter, r *http.Request) {
	if err := s.session.CancelTrackSelection(); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeState(w, http.StatusOK)
}

// handleActivateWord answers before the translation is known; the result
// arrives on the stream.
func (s *Server) handleActivateWord(w http.ResponseWriter, r *http.Request) {
	var req activateWordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	jobID, err := s.session.ActivateWord(req.Word, req.Sentence)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
	})
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	var err error
	switch action := chi.URLParam(r, "action"); action {
	case "play":
		err = s.session.Play()
	case "pause":
		err = s.session.Pause()
	case "stop":
		err = s.session.Stop()
	case "seek":
		var req seekRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		switch {
		case req.Position != nil:
			err = s.session.SetPosition(*req.Position)
		case req.Delta != nil:
			_, err = s.session.Seek(*req.Delta)
		default:
			writeError(w, http.StatusBadRequest, "delta or position is required")
			return
		}
	case "rate":
		var req rateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		err = s.session.SetRate(req.Rate)
	default:
		writeError(w, http.StatusNotFound, "unknown playback action "+action)
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleToggleTranslations(w http.ResponseWriter, r *http.Request) {
	visible, err := s.session.ToggleTranslations()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"translations_visible": visible,
	})
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tag, err := language.Parse(strings.TrimSpace(req.Target))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target language")
		return
	}
	if err := s.session.SetTargetLanguage(tag); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.exporter.Status())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}
	rows, err := s.exporter.Run(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":   rows,
		"status": s.exporter.Status(),
	})
}

// handleLibrary lists media under the configured directories. ?refresh=1
// skips the scan cache.
func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		writeError(w, http.StatusNotImplemented, "no media directories configured")
		return
	}
	if r.URL.Query().Get("refresh") != "" {
		s.library.Invalidate()
	}
	cat, err := s.library.Scan(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}
	settings, err := s.settings.GetRuntimeSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}
	var req config.RuntimeSettings
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := s.settings.UpdateRuntimeSettings(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.apply != nil {
		if err := s.apply(saved); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) writeState(w http.ResponseWriter, status int) {
	snap, err := s.session.Snapshot()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, status, snap)
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, tracks.ErrBusy), errors.Is(err, tracks.ErrNoSelection):
		return http.StatusConflict
	case errors.Is(err, tracks.ErrNoSuchTrack):
		return http.StatusBadRequest
	}
	switch service.Classify(err) {
	case service.ErrPlayback:
		return http.StatusConflict
	case service.ErrConfig:
		return http.StatusBadRequest
	case service.ErrDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
