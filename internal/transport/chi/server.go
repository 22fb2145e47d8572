package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/docextract/internal/domain/batch"
	"github.com/kailas-cloud/docextract/internal/domain/extraction"
	dompipe "github.com/kailas-cloud/docextract/internal/domain/pipeline"
	logpkg "github.com/kailas-cloud/docextract/internal/logger"
	healthuc "github.com/kailas-cloud/docextract/internal/usecase/health"
)

const (
	filesField       = "files"
	multipartMemory  = 8 << 20
	defaultMaxUpload = 32 << 20
)

// Config holds upload handling settings.
type Config struct {
	UploadDir      string // "" = os.TempDir()
	MaxUploadBytes int64
}

// Server serves the document extraction API.
type Server struct {
	pipeline Pipeline
	health   HealthChecker
	cfg      Config
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(p Pipeline, health HealthChecker, cfg Config, logger *zap.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	return &Server{pipeline: p, health: health, cfg: cfg, logger: logger}
}

// ExtractionResult is one successfully processed document.
type ExtractionResult struct {
	Filename       string            `json:"filename"`
	DocumentType   string            `json:"document_type"`
	Confidence     float64           `json:"confidence"`
	Entities       extraction.Result `json:"entities"`
	ProcessingTime float64           `json:"processing_time"`
}

// ExtractResponse is the 200 body of POST /extract_entities.
type ExtractResponse struct {
	Results []ExtractionResult `json:"results"`
}

// PartialItem is one entry of a partial-mode response.
type PartialItem struct {
	Filename string            `json:"filename"`
	Status   string            `json:"status"`
	Result   *ExtractionResult `json:"result,omitempty"`
	Failure  *ErrorResponse    `json:"failure,omitempty"`
}

// PartialResponse is the 200 body of POST /extract_entities?partial=true.
type PartialResponse struct {
	Results   []PartialItem `json:"results"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// ExtractEntities handles POST /extract_entities.
//
// Without ?partial=true the first failing file, in upload order, decides the
// response. With it every file gets its own status and the response is 200.
func (s *Server) ExtractEntities(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	log := logpkg.FromContextOr(r.Context(), s.logger)

	partial, _ := strconv.ParseBool(r.URL.Query().Get("partial"))

	if r.ContentLength > s.cfg.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes), reqID)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), reqID)
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid multipart form: "+err.Error(), reqID)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[filesField]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "No files uploaded in field \""+filesField+"\"", reqID)
		return
	}
	if limit := s.pipeline.MaxBatch(); limit > 0 && len(headers) > limit {
		writeError(w, http.StatusBadRequest, codeBatchTooLarge,
			fmt.Sprintf("%d files uploaded, limit %d", len(headers), limit), reqID)
		return
	}

	if !partial {
		for _, h := range headers {
			if err := s.pipeline.CheckFormat(h.Filename); err != nil {
				writeError(w, http.StatusBadRequest, string(dompipe.KindUnsupportedFormat),
					"Unsupported file format: "+h.Filename, reqID)
				return
			}
		}
	}

	var paths []string
	defer func() {
		for _, p := range paths {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn("Failed to remove upload", zap.String("path", p), zap.Error(err))
			}
		}
	}()

	docs := make([]dompipe.Document, 0, len(headers))
	for _, h := range headers {
		path, err := s.stash(h)
		if err != nil {
			log.Error("Failed to store upload", zap.String("file", h.Filename), zap.Error(err))
			writeError(w, http.StatusInternalServerError, codeInternal, "failed to store upload", reqID)
			return
		}
		paths = append(paths, path)
		docs = append(docs, dompipe.Document{Filename: h.Filename, Path: path})
	}

	if partial {
		writeJSON(w, http.StatusOK, partialResponse(s.pipeline.RunBatch(r.Context(), docs), reqID))
		return
	}

	recs, err := s.pipeline.RunAll(r.Context(), docs)
	if err != nil {
		status, body := failureResponse(err, reqID)
		writeJSON(w, status, body)
		return
	}
	resp := ExtractResponse{Results: make([]ExtractionResult, 0, len(recs))}
	for _, rec := range recs {
		resp.Results = append(resp.Results, toResult(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    report.Status,
		"checks":    report.Checks,
		"documents": report.Documents,
	})
}

// stash copies an upload into UploadDir, keeping its extension for the recognizer.
func (s *Server) stash(h *multipart.FileHeader) (string, error) {
	src, err := h.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	ext := strings.ToLower(filepath.Ext(h.Filename))
	dst, err := os.CreateTemp(s.cfg.UploadDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return dst.Name(), nil
}

func partialResponse(results []dombatch.Result, reqID string) PartialResponse {
	resp := PartialResponse{Results: make([]PartialItem, len(results))}
	for i, res := range results {
		item := PartialItem{Filename: res.Filename(), Status: string(res.Status())}
		if res.Status() == dombatch.StatusOK {
			out := toResult(res.Record())
			item.Result = &out
			resp.Succeeded++
		} else {
			_, body := failureResponse(res.Err(), reqID)
			item.Failure = &body
			resp.Failed++
		}
		resp.Results[i] = item
	}
	return resp
}

func toResult(rec dompipe.Record) ExtractionResult {
	return ExtractionResult{
		Filename:       rec.Filename,
		DocumentType:   rec.DocumentType,
		Confidence:     rec.Confidence,
		Entities:       rec.Entities,
		ProcessingTime: math.Round(rec.ProcessingTime.Seconds()*1000) / 1000,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message, traceID string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
		TraceID: traceID,
	})
}
