package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/ZertGraf/changelog-builder/internal/export"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"github.com/go-chi/chi/v5"
	"io"
	"net/http"
	"strconv"
)

const maxRequestBody = 1 << 20

// ReportService is the report pipeline as used by the HTTP layer.
type ReportService interface {
	GenerateReport(ctx context.Context, req domain.BuildReportRequest) (*domain.Report, error)
	History(ctx context.Context, limit int) ([]domain.ArchivedReport, error)
	ArchivedReport(ctx context.Context, id int64) (*domain.Report, error)
}

type HistoryResponse struct {
	Reports []domain.ArchivedReport `json:"reports"`
}

type ReportHandler struct {
	reports ReportService
	logger  *logger.Logger
}

func NewReportHandler(reports ReportService, logger *logger.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger.Component("api/report"),
	}
}

func (h *ReportHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/build", h.BuildReport)
	r.Post("/export", h.ExportReport)
	r.Get("/history", h.ListHistory)
	r.Get("/history/{id}", h.GetArchived)
	return r
}

func (h *ReportHandler) BuildReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.build(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, report, h.logger)
}

// ExportReport builds a report and returns it rendered in the format given by
// the "format" query parameter.
func (h *ReportHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		WriteError(w, invalidBody(err.Error()), h.logger)
		return
	}

	report, ok := h.build(w, r)
	if !ok {
		return
	}

	h.render(w, report, format)
}

func (h *ReportHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			WriteError(w, invalidBody("limit must be a positive integer"), h.logger)
			return
		}
		limit = parsed
	}

	reports, err := h.reports.History(r.Context(), limit)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if reports == nil {
		reports = []domain.ArchivedReport{}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{Reports: reports}, h.logger)
}

func (h *ReportHandler) GetArchived(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		WriteError(w, invalidBody("report id must be a positive integer"), h.logger)
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		WriteError(w, invalidBody(err.Error()), h.logger)
		return
	}

	report, err := h.reports.ArchivedReport(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.render(w, report, format)
}

func (h *ReportHandler) build(w http.ResponseWriter, r *http.Request) (*domain.Report, bool) {
	req, err := decodeBuildRequest(w, r)
	if err != nil {
		WriteError(w, err, h.logger)
		return nil, false
	}

	h.logger.Info("received changelog build request",
		"release_branch", req.ReleaseBranch,
		"repos", len(req.Repos),
	)

	report, err := h.reports.GenerateReport(r.Context(), req)
	if err != nil {
		WriteError(w, err, h.logger)
		return nil, false
	}

	h.logger.Info("changelog generated", "stories", len(report.Stories))
	return report, true
}

func (h *ReportHandler) render(w http.ResponseWriter, report *domain.Report, format export.Format) {
	if format == export.FormatJSON {
		writeJSON(w, http.StatusOK, report, h.logger)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, report, format); err != nil {
		WriteError(w, fmt.Errorf("render %s report: %w", format, err), h.logger)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("failed to write rendered report", "error", err)
	}
}

func decodeBuildRequest(w http.ResponseWriter, r *http.Request) (domain.BuildReportRequest, error) {
	var req domain.BuildReportRequest

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&req); err != nil {
		var maxBytes *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return req, invalidBody("request body is empty")
		case errors.As(err, &maxBytes):
			return req, invalidBody(fmt.Sprintf("request body exceeds %d bytes", maxBytes.Limit))
		default:
			return req, invalidBody("invalid request body: " + err.Error())
		}
	}

	return req, nil
}
