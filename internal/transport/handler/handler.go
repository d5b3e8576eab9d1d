package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/DivEden/DGB/internal/cache"
	"github.com/DivEden/DGB/internal/config"
	"github.com/DivEden/DGB/internal/entities"
	"github.com/DivEden/DGB/internal/normalize"
)

type UseCase interface {
	CompressBatch(ctx context.Context, files []*multipart.FileHeader, params CompressBatchParams) (entities.BatchSummary, []byte, error)
	BatchStatus(ctx context.Context, batchID int64) (cache.BatchStatus, error)
	DownloadArchive(ctx context.Context, token string) ([]byte, string, error)
	CreateTicket(ctx context.Context, params TicketParams) (entities.Ticket, error)
	ListTickets(ctx context.Context, limit int) ([]entities.Ticket, error)
}

type Handler struct {
	useCase   UseCase
	cfg       *config.Config
	validator *validator.Validate
}

func New(useCase UseCase, cfg *config.Config) *Handler {
	return &Handler{
		useCase:   useCase,
		cfg:       cfg,
		validator: validator.New(),
	}
}

// CompressBatch accepts a multipart upload of images under the "images"
// field, compresses each to the requested size envelope and answers with a
// ZIP of the results. The batch summary travels in response headers; the
// full report is available under /api/batches/{id}.
func (h *Handler) CompressBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Upload.MaxRequestBodyMB<<20)

	if err := r.ParseMultipartForm(h.cfg.Upload.MaxMultipartMemoryMB << 20); err != nil {
		writeMultipartError(w, err)
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeJSONError(w, `missing images: form field key should be "images"`, http.StatusBadRequest)
		return
	}

	params := CompressBatchParams{
		TargetKB:    parseInt64Default(r.Form.Get("targetKB"), h.cfg.Compress.DefaultTargetKB),
		ToleranceKB: parseInt64Default(r.Form.Get("toleranceKB"), 0),
		Mode:        r.Form.Get("mode"),
		GroupLabel:  strings.TrimSpace(r.Form.Get("groupLabel")),
		Archive:     r.Form.Get("archive") == "1",
		CustomNames: splitNames(r.Form.Get("customNames")),
	}

	if err := h.validator.Struct(params); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(validationErrorsToMap(err))
		return
	}

	summary, zipData, err := h.useCase.CompressBatch(r.Context(), files, params)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, zipName(params.GroupLabel)))
	w.Header().Set("X-Batch-Id", fmt.Sprintf("%d", summary.Batch.ID))
	w.Header().Set("X-Download-Token", summary.DownloadToken)
	w.Header().Set("X-Items-Processed", fmt.Sprintf("%d", summary.Batch.ItemsProcessed))
	w.Header().Set("X-Items-Failed", fmt.Sprintf("%d", summary.Batch.ItemsFailed))
	if summary.Batch.Truncated {
		w.Header().Set("X-Batch-Truncated", "1")
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(zipData)
}

func zipName(groupLabel string) string {
	if groupLabel == "" {
		return "komprimeret.zip"
	}
	return groupLabel + ".zip"
}

// BatchStatus reports one batch's progress summary.
func (h *Handler) BatchStatus(w http.ResponseWriter, r *http.Request) {
	id := parseInt64Default(chi.URLParam(r, "id"), 0)
	if id <= 0 {
		writeJSONError(w, "invalid batch id", http.StatusBadRequest)
		return
	}

	st, err := h.useCase.BatchStatus(r.Context(), id)
	if err != nil {
		writeJSONError(w, "batch not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DownloadBatch serves a stored batch ZIP by its one-day download token.
func (h *Handler) DownloadBatch(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	data, contentType, err := h.useCase.DownloadArchive(r.Context(), token)
	if err == redis.Nil {
		writeJSONError(w, "download link expired or unknown", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if contentType == "" {
		contentType = "application/zip"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="komprimeret.zip"`)
	_, _ = w.Write(data)
}

// Normalize applies the archive-number rules to free-form input and returns
// the token pairs plus the ready-to-paste SARA query.
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	var params NormalizeParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validator.Struct(params); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(validationErrorsToMap(err))
		return
	}

	tokens := normalize.Split(params.Text)
	normalized := make([]string, len(tokens))
	pairs := make([]map[string]string, len(tokens))
	for i, t := range tokens {
		normalized[i] = normalize.Token(t)
		pairs[i] = map[string]string{"input": t, "normalized": normalized[i]}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pairs":      pairs,
		"sara_query": normalize.SARAQuery(normalized),
	})
}

// NormalizeExcel rewrites an uploaded spreadsheet: the archive-number column
// is guessed from the headers and a "{column}_normaliseret" column is
// appended, plus an optional before/after "Mapping" sheet. The rewritten
// workbook is served straight back as the download.
func (h *Handler) NormalizeExcel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Upload.MaxRequestBodyMB<<20)

	if err := r.ParseMultipartForm(h.cfg.Upload.MaxMultipartMemoryMB << 20); err != nil {
		writeMultipartError(w, err)
		return
	}

	file, _, err := r.FormFile("excel")
	if err != nil {
		writeJSONError(w, `missing spreadsheet: form field key should be "excel"`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	addMapping := r.Form.Get("mapping") != "no"

	wb, err := normalize.NormalizeWorkbook(file, addMapping)
	if errors.Is(err, normalize.ErrEmptyWorkbook) {
		writeJSONError(w, "the first sheet has no data rows", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeJSONError(w, fmt.Sprintf("could not read the workbook: %v", err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="arkivnummer_normaliseret.xlsx"`)
	w.Header().Set("X-Normalized-Column", wb.Column)
	_, _ = w.Write(wb.Data)
}

// CreateTicket stores one staff feedback ticket.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var params TicketParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validator.Struct(params); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(validationErrorsToMap(err))
		return
	}

	ticket, err := h.useCase.CreateTicket(r.Context(), params)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

// ListTickets returns the newest feedback tickets.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	limit := int(parseInt64Default(r.URL.Query().Get("limit"), 50))

	tickets, err := h.useCase.ListTickets(r.Context(), limit)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if tickets == nil {
		tickets = []entities.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}
