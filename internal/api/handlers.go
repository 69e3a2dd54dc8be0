// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	apperrors "github.com/valpere/recipevault/internal/errors"
	"github.com/valpere/recipevault/internal/monitoring"
	"github.com/valpere/recipevault/internal/scraper"
	"github.com/valpere/recipevault/pkg/types"
)

type scrapeRequest struct {
	URL string `json:"url"`
}

type saveRequest struct {
	Recipe *types.Recipe `json:"recipe"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status string                  `json:"status"`
	Health monitoring.SystemHealth `json:"health"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.observeScrape(monitoring.ResultInputError)
		s.writeError(w, r, err, apperrors.MsgFetchFailed)
		return
	}

	recipe, err := s.scrape(r.Context(), req.URL)
	if err != nil {
		s.observeScrape(scrapeResult(err))
		s.writeError(w, r, err, apperrors.MsgFetchFailed)
		return
	}

	saved, err := s.store.Upsert(r.Context(), *recipe)
	if err != nil {
		s.observeScrape(monitoring.ResultPersistError)
		s.writeError(w, r, err, apperrors.MsgSaveFailed)
		return
	}

	s.observeScrape(monitoring.ResultOK)
	s.logger.Info().
		Str("url", saved.URL).
		Int("ingredients", len(saved.Ingredients)).
		Int("instructions", len(saved.Instructions)).
		Msg("recipe scraped")
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err, apperrors.MsgFetchFailed)
		return
	}

	recipe, err := s.scrape(r.Context(), req.URL)
	if err != nil {
		s.observeScrape(scrapeResult(err))
		s.writeError(w, r, err, apperrors.MsgFetchFailed)
		return
	}
	s.observeScrape(monitoring.ResultOK)
	writeJSON(w, http.StatusOK, recipe)
}

func (s *Server) scrape(ctx context.Context, target string) (*types.Recipe, error) {
	if s.opts.ScrapeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ScrapeTimeout)
		defer cancel()
	}
	return s.engine.Scrape(ctx, target)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.store.ListAll(r.Context())
	if err != nil {
		s.writeError(w, r, err, apperrors.MsgListFailed)
		return
	}
	if recipes == nil {
		recipes = []types.Recipe{}
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err, apperrors.MsgSaveFailed)
		return
	}
	if req.Recipe == nil {
		writeMessage(w, http.StatusBadRequest, "Recipe is required")
		return
	}
	if err := req.Recipe.Validate(); err != nil {
		s.writeError(w, r, apperrors.Input("%v", err), apperrors.MsgSaveFailed)
		return
	}

	saved, err := s.store.Upsert(r.Context(), scraper.Normalize(*req.Recipe))
	if err != nil {
		s.writeError(w, r, err, apperrors.MsgSaveFailed)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	target, err := url.PathUnescape(mux.Vars(r)["id"])
	if err != nil || strings.TrimSpace(target) == "" {
		writeMessage(w, http.StatusBadRequest, "URL is required")
		return
	}

	deleted, err := s.store.DeleteByURL(r.Context(), target)
	if err != nil {
		s.writeError(w, r, err, apperrors.MsgDeleteFailed)
		return
	}
	if deleted == nil {
		writeMessage(w, http.StatusNotFound, apperrors.MsgNotFound)
		return
	}
	s.logger.Info().Str("url", target).Msg("recipe deleted")
	writeMessage(w, http.StatusOK, "Recipe deleted")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.health.Check(r.Context())
	status := http.StatusOK
	if health.Status == monitoring.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: "Server is running", Health: health})
}

// decode reads a JSON body no larger than MaxBodyBytes into dst.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return apperrors.Input("request body too large")
		case stderrors.Is(err, io.EOF):
			return apperrors.Input("request body is empty")
		default:
			return apperrors.Input("invalid JSON body")
		}
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := apperrors.HTTPStatus(err)
	event := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")
	writeMessage(w, status, apperrors.UserMessage(err, fallback))
}

func (s *Server) observeScrape(result string) {
	if s.metrics != nil {
		s.metrics.ObserveScrape(result)
	}
}

func scrapeResult(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidInput:
		return monitoring.ResultInputError
	case apperrors.CodePersistenceFailed:
		return monitoring.ResultPersistError
	default:
		return monitoring.ResultFetchError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}
