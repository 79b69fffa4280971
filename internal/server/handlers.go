package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/songzhibin97/deepdive/internal/data/storage"
	"github.com/songzhibin97/deepdive/internal/models"
	"github.com/songzhibin97/deepdive/internal/pipeline"
	"github.com/songzhibin97/deepdive/internal/report"
	"github.com/songzhibin97/deepdive/internal/showcase"
)

type analysisRequest struct {
	Input     string           `json:"input"`
	InputType models.InputType `json:"input_type,omitempty"`
}

type comparisonRequest struct {
	Projects []string `json:"projects"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, errorResponse{Detail: detail})
}

func (s *Server) writePDF(w http.ResponseWriter, filename string, content []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		s.logger.Error("failed to write pdf", "filename", filename, "error", err)
	}
}

func decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Service: serviceName + " - Crypto Research Agent", Version: serviceVersion})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Service: serviceName, Version: serviceVersion})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "input is required")
		return
	}
	if req.InputType != "" && !req.InputType.Valid() {
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("unknown input_type %q", req.InputType))
		return
	}

	s.logger.Info("analyzing project", "input", req.Input)
	result, err := s.deps.Analyzer.Analyze(r.Context(), req.Input, req.InputType)
	if err != nil {
		s.logger.Error("analysis request failed", "input", req.Input, "error", err)
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err))
		return
	}

	// 已有报告或正在渲染的缓存结果不再重复渲染
	if result.ReportURL == nil && s.deps.Dispatcher != nil && s.claimRender(r, req) {
		s.deps.Dispatcher.SubmitAnalysis(*result, req.Input, req.InputType)
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) claimRender(r *http.Request, req analysisRequest) bool {
	if s.deps.Renders == nil {
		return true
	}
	return s.deps.Renders.ClaimRender(r.Context(), req.Input, req.InputType)
}

func (s *Server) handleShowcase(w http.ResponseWriter, r *http.Request) {
	if s.deps.Showcase == nil {
		s.writeJSON(w, http.StatusOK, showcase.Samples())
		return
	}
	s.writeJSON(w, http.StatusOK, s.deps.Showcase.Projects())
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req comparisonRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}
	if err := pipeline.ValidateComparison(req.Projects); err != nil {
		s.writeError(w, http.StatusBadRequest, "Please provide 2-3 projects for comparison")
		return
	}

	s.logger.Info("comparing projects", "projects", strings.Join(req.Projects, ", "))
	result, err := s.deps.Comparer.CompareUsing(r.Context(), s.deps.Analyzer, req.Projects)
	if err != nil {
		s.logger.Error("comparison request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Comparison failed: %v", err))
		return
	}

	if s.deps.Dispatcher != nil {
		s.deps.Dispatcher.SubmitComparison(*result)
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuickScore(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	result, err := s.deps.Analyzer.Analyze(r.Context(), name, "")
	if err != nil {
		s.logger.Error("quick score failed", "project", name, "error", err)
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Quick score failed: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, models.QuickScoreOf(result))
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var analysis models.AnalysisReport
	if err := decode(r, &analysis); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	filename, content, err := s.deps.Renderer.Render(&analysis)
	if err != nil {
		s.logger.Error("report generation failed", "error", err)
		s.deps.Metrics.ReportRendered(report.KindAnalysis, err)
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Report generation failed: %v", err))
		return
	}
	s.deps.Metrics.ReportRendered(report.KindAnalysis, nil)

	if err := s.deps.Storage.Save(r.Context(), filename, content); err != nil {
		s.logger.Warn("failed to store generated report", "filename", filename, "error", err)
	}
	s.writePDF(w, analysis.ProjectData.ProjectName+"_analysis.pdf", content)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	names, err := s.deps.Storage.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list reports", "error", err)
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	content, err := s.deps.Storage.Read(r.Context(), filename)
	if err != nil {
		s.writeStorageError(w, filename, err)
		return
	}
	s.writePDF(w, filename, content)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	if err := s.deps.Storage.Delete(r.Context(), filename); err != nil {
		s.writeStorageError(w, filename, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Report %s deleted", filename),
	})
}

func (s *Server) writeStorageError(w http.ResponseWriter, filename string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Report not found")
	case errors.Is(err, storage.ErrInvalidName):
		s.writeError(w, http.StatusBadRequest, "Invalid report name")
	default:
		s.logger.Error("report storage failed", "filename", filename, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
