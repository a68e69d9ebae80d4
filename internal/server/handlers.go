package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/theognis1002/linkmark/internal/cache"
	"github.com/theognis1002/linkmark/internal/page"
	"github.com/theognis1002/linkmark/internal/search"
	"github.com/theognis1002/linkmark/internal/settings"
	"github.com/theognis1002/linkmark/internal/slug"
)

type createDocumentRequest struct {
	URL     string `json:"url"`
	HTML    string `json:"html"`
	BaseURL string `json:"baseUrl"`
}

type createDocumentResponse struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Anchors int    `json:"anchors"`
}

type slugRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		p   *page.Page
		err error
	)
	switch {
	case req.HTML != "":
		p, err = page.Parse(strings.NewReader(req.HTML), req.BaseURL)
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	case page.IsRemote(req.URL):
		p, err = s.loader.Load(r.Context(), req.URL, "")
		if err != nil {
			s.logger.Warn("failed to load document", "url", req.URL, "error", err)
			s.respondWithError(w, fetchStatus(err), "error loading page")
			return
		}
	default:
		s.respondWithError(w, http.StatusBadRequest, "either html with baseUrl or an http(s) url is required")
		return
	}

	ctrl := search.New(p, s.defaults, s.logger)
	id, evicted := s.docs.add(ctrl)
	if len(evicted) > 0 {
		s.logger.Info("evicted documents", "ids", evicted)
	}

	s.respondWithJSON(w, http.StatusCreated, createDocumentResponse{
		ID:      id,
		URL:     p.URL,
		Anchors: p.Doc.Find("a[href]").Length(),
	})
}

// fetchStatus maps a load failure to a status: refused targets are 403,
// anything else went wrong upstream.
func fetchStatus(err error) int {
	if errors.Is(err, page.ErrDisallowed) || errors.Is(err, cache.ErrBlockedHost) {
		return http.StatusForbidden
	}
	return http.StatusBadGateway
}

func (s *Server) handleRenderDocument(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.document(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ctrl.Render(w); err != nil {
		s.logger.Error("failed to render document", "error", err)
	}
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.docs.remove(chi.URLParam(r, "id")); err != nil {
		s.respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearch takes the saved-settings shape of a search. An empty body
// searches with the stored settings.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.document(w, r)
	if !ok {
		return
	}

	form := settings.Defaults()
	err := s.decode(w, r, &form)
	switch {
	case errors.Is(err, io.EOF):
		form, err = s.settings.Load(r.Context())
		if err != nil {
			s.logger.Error("failed to load settings", "error", err)
			s.respondWithError(w, http.StatusInternalServerError, "error processing search")
			return
		}
	case err != nil:
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.runSearch(w, r, ctrl, form.Request())
}

// handleSearchRequest takes a search.Request as is, so callers can pick the
// match mode and style without going through the settings form.
func (s *Server) handleSearchRequest(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.document(w, r)
	if !ok {
		return
	}

	var req search.Request
	if err := s.decode(w, r, &req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.runSearch(w, r, ctrl, req)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, ctrl *search.Controller, req search.Request) {
	res, err := ctrl.Search(r.Context(), req)
	switch {
	case errors.Is(err, search.ErrEmptyPattern):
		s.respondWithError(w, http.StatusBadRequest, "please enter a url or text to search")
		return
	case err != nil:
		s.logger.Error("search failed", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "error processing search")
		return
	}

	s.respondWithJSON(w, http.StatusOK, res)
}

type linksResponse struct {
	Links []search.Link `json:"links"`
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.document(w, r)
	if !ok {
		return
	}
	resolveRelative, _ := strconv.ParseBool(r.URL.Query().Get("resolveRelative"))
	links := ctrl.Links(resolveRelative)
	if links == nil {
		links = []search.Link{}
	}
	s.respondWithJSON(w, http.StatusOK, linksResponse{Links: links})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.document(w, r)
	if !ok {
		return
	}
	s.respondWithJSON(w, http.StatusOK, ctrl.Clear())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.document(w, r)
	if !ok {
		return
	}
	if s.snapshots == nil {
		s.respondWithError(w, http.StatusServiceUnavailable, "snapshot storage is not configured")
		return
	}

	html, err := ctrl.HTML()
	if err != nil {
		s.logger.Error("failed to render snapshot", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "error rendering page")
		return
	}

	key, err := s.snapshots.PutSnapshot(r.Context(), ctrl.Page().URL, html)
	if err != nil {
		s.logger.Error("failed to store snapshot", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "error storing snapshot")
		return
	}

	s.respondWithJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.Load(r.Context())
	if err != nil {
		s.logger.Error("failed to load settings", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "error loading settings")
		return
	}
	s.respondWithJSON(w, http.StatusOK, st)
}

// handlePutSettings overlays the body on the stored settings, so a client
// can update a single field.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.Load(r.Context())
	if err != nil {
		s.logger.Error("failed to load settings", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "error loading settings")
		return
	}
	if err := s.decode(w, r, &st); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.settings.Save(r.Context(), st); err != nil {
		s.logger.Error("failed to save settings", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "error saving settings")
		return
	}
	s.respondWithJSON(w, http.StatusOK, st)
}

func (s *Server) handleSlug(w http.ResponseWriter, r *http.Request) {
	var req slugRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]string{"slug": slug.Clean(req.Text)})
}

func (s *Server) document(w http.ResponseWriter, r *http.Request) (*search.Controller, bool) {
	ctrl, err := s.docs.get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondWithError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return ctrl, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if s.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) respondWithError(w http.ResponseWriter, status int, message string) {
	s.respondWithJSON(w, status, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
