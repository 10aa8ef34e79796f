package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Simplici0/costestimator/internal/catalog"
	"github.com/Simplici0/costestimator/internal/estimator"
	"github.com/Simplici0/costestimator/internal/export"
	"github.com/Simplici0/costestimator/internal/importer"
	"github.com/Simplici0/costestimator/internal/pricing"
	"github.com/Simplici0/costestimator/internal/store"
)

const maxBodyBytes = 1 << 20

type server struct {
	auth *authService
	svc  *estimator.Service
}

type errorResponse struct {
	Error    string                `json:"error"`
	Problems []importer.FieldError `json:"problems,omitempty"`
	Retry    bool                  `json:"retry,omitempty"`
}

type catalogResponse struct {
	Materials    []catalog.Material `json:"materials"`
	Labor        []catalog.Labor    `json:"labor"`
	OverheadRate float64            `json:"overheadRate"`
}

type estimateResponse struct {
	Details   pricing.ProjectDetails `json:"details"`
	Breakdown pricing.Breakdown      `json:"breakdown"`
	Warnings  []importer.Warning     `json:"warnings,omitempty"`
	Saved     bool                   `json:"saved"`
	Project   *store.SavedProject    `json:"project,omitempty"`
	SaveError string                 `json:"saveError,omitempty"`
}

type projectResponse struct {
	Project   store.SavedProject `json:"project"`
	Breakdown pricing.Breakdown  `json:"breakdown"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ping(r.Context()); err != nil {
		log.Error().Err(err).Msg("health check")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	c := s.svc.Catalog()
	writeJSON(w, http.StatusOK, catalogResponse{
		Materials:    c.Materials(),
		Labor:        c.Labor(),
		OverheadRate: c.OverheadRate(),
	})
}

func (s *server) handleSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	owner, ok := s.auth.verifySessionValue(strings.TrimSpace(body.Token))
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	s.auth.setSessionCookie(w, strings.TrimSpace(body.Token))
	writeJSON(w, http.StatusOK, map[string]string{"owner": owner})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSubmitEstimate(w http.ResponseWriter, r *http.Request) {
	var candidate map[string]any
	if err := decodeJSON(w, r, &candidate); err != nil || candidate == nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	imported, err := s.svc.ImportForm(candidate)
	if err != nil {
		writeImportError(w, err)
		return
	}

	result := s.svc.Submit(r.Context(), ownerFrom(r), imported.Details)
	resp := estimateResponse{
		Details:   imported.Details,
		Breakdown: result.Breakdown,
		Warnings:  imported.Warnings,
		Saved:     result.Project != nil,
		Project:   result.Project,
	}
	if result.SaveErr != nil {
		resp.SaveError = "the estimate was computed but could not be saved"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleAIEstimate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Description string `json:"description"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	est, err := s.svc.EstimateFromDescription(r.Context(), body.Description)
	switch {
	case err == nil:
	case errors.Is(err, estimator.ErrEmptyDescription):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, estimator.ErrNoGenerator):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, estimator.ErrGeneration):
		log.Error().Err(err).Msg("generate estimate")
		writeError(w, http.StatusBadGateway, "the estimate could not be generated, please try again")
		return
	default:
		writeImportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, estimateResponse{
		Details:   est.Result.Details,
		Breakdown: est.Breakdown,
		Warnings:  est.Result.Warnings,
	})
}

func (s *server) handleProjectsList(w http.ResponseWriter, r *http.Request) {
	projects, err := s.svc.History(r.Context(), ownerFrom(r))
	if err != nil {
		log.Error().Err(err).Str("owner", ownerFrom(r)).Msg("list projects")
		writeError(w, http.StatusInternalServerError, "failed to load projects")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *server) handleProjectDetail(w http.ResponseWriter, r *http.Request) {
	project, breakdown, ok := s.reopen(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, projectResponse{Project: project, Breakdown: breakdown})
}

func (s *server) handleProjectText(w http.ResponseWriter, r *http.Request) {
	project, breakdown, ok := s.reopen(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Text(&buf, s.report(project, breakdown)); err != nil {
		log.Error().Err(err).Str("project", project.ID).Msg("render text")
		writeError(w, http.StatusInternalServerError, "failed to render project")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleProjectXLSX(w http.ResponseWriter, r *http.Request) {
	project, breakdown, ok := s.reopen(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.XLSX(&buf, s.report(project, breakdown)); err != nil {
		log.Error().Err(err).Str("project", project.ID).Msg("render xlsx")
		writeError(w, http.StatusInternalServerError, "failed to render project")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName(project.Name)+".xlsx"))
	_, _ = w.Write(buf.Bytes())
}

func (s *server) reopen(w http.ResponseWriter, r *http.Request) (store.SavedProject, pricing.Breakdown, bool) {
	id := chi.URLParam(r, "id")
	project, breakdown, err := s.svc.Reopen(r.Context(), ownerFrom(r), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return store.SavedProject{}, pricing.Breakdown{}, false
	}
	if err != nil {
		log.Error().Err(err).Str("project", id).Msg("load project")
		writeError(w, http.StatusInternalServerError, "failed to load project")
		return store.SavedProject{}, pricing.Breakdown{}, false
	}
	return project, breakdown, true
}

func (s *server) report(p store.SavedProject, b pricing.Breakdown) export.Report {
	return export.Report{Details: p.Details(), Breakdown: b, OverheadRate: s.svc.Catalog().OverheadRate()}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileName(name string) string {
	cleaned := strings.Trim(unsafeFileChars.ReplaceAllString(name, "-"), "-.")
	if cleaned == "" {
		return "estimate"
	}
	return cleaned
}

func writeImportError(w http.ResponseWriter, err error) {
	var verr *importer.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "the estimate is invalid", Problems: verr.Problems})
	case errors.Is(err, importer.ErrParse):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "the generated estimate could not be read", Retry: true})
	default:
		log.Error().Err(err).Msg("import estimate")
		writeError(w, http.StatusInternalServerError, "failed to import estimate")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
