package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/xhad/tidy/internal/models"
	"github.com/xhad/tidy/internal/types"
	"github.com/xhad/tidy/pkg/pipeline"
	"github.com/xhad/tidy/pkg/splitter"
)

type Config struct {
	Port         string
	Splitter     *splitter.Splitter
	Extractor    *pipeline.Extractor
	Orchestrator *pipeline.Orchestrator
	OutputsDir   string
	Recorder     types.RunRecorder
	Logger       *log.Logger
}

// Server exposes the document pipeline over a small JSON HTTP API. Each
// endpoint mirrors one CLI operation so remote callers and the command line
// share identical behavior.
type Server struct {
	config Config
}

func New(config Config) *Server {
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	return &Server{config: config}
}

func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/extract2markdown", s.handleExtractMarkdown)
	mux.HandleFunc("/filter2csv", s.handleFilterCSV)
	mux.HandleFunc("/transform2tidy", s.handleTransformTidy)
	mux.HandleFunc("/health", s.handleHealth)

	s.config.Logger.Printf("starting server on port %s", s.config.Port)
	return http.ListenAndServe(":"+s.config.Port, mux)
}

type extractMarkdownRequest struct {
	FilePath string `json:"file_path"`
}

type extractMarkdownResponse struct {
	Status     string `json:"status"`
	OutputPath string `json:"output_path"`
	NumPages   int    `json:"num_pages"`
}

func (s *Server) handleExtractMarkdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req extractMarkdownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}

	outPath, pages, err := s.config.Splitter.SplitAndConvert(r.Context(), req.FilePath, s.config.OutputsDir)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, extractMarkdownResponse{
		Status:     "success",
		OutputPath: outPath,
		NumPages:   pages,
	})
}

type filterCSVRequest struct {
	Document string `json:"document"`
}

func (s *Server) handleFilterCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req filterCSVRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Document == "" {
		writeError(w, http.StatusBadRequest, "document is required")
		return
	}

	result, err := s.config.Extractor.Extract(req.Document)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type transformTidyRequest struct {
	Document string `json:"document"`
	TableID  string `json:"table_id"`
}

func (s *Server) handleTransformTidy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req transformTidyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Document == "" || req.TableID == "" {
		writeError(w, http.StatusBadRequest, "document and table_id are required")
		return
	}

	started := time.Now()
	result, err := s.config.Orchestrator.Run(r.Context(), req.Document, req.TableID)
	s.record(r, req, result, started, err)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) record(r *http.Request, req transformTidyRequest, result *models.PipelineResult, started time.Time, runErr error) {
	if s.config.Recorder == nil {
		return
	}

	record := models.RunRecord{
		DocID:    req.Document,
		TableID:  req.TableID,
		Status:   "success",
		Duration: time.Since(started),
	}
	if runErr != nil {
		record.Status = "error"
		record.Error = runErr.Error()
		var perr *pipeline.ProcessingError
		if errors.As(runErr, &perr) {
			record.Stage = perr.Stage
		}
	} else {
		record.Stage = pipeline.StageExecute
		record.RowsOriginal = result.RowsOriginal
		record.RowsCleaned = result.RowsCleaned
	}

	if err := s.config.Recorder.Record(r.Context(), record); err != nil {
		s.config.Logger.Printf("failed to record run: %v", err)
	}
}

// writePipelineError maps pipeline error types onto HTTP statuses: missing
// resources are the caller's problem, stage failures are ours.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	var nfe *pipeline.NotFoundError
	if errors.As(err, &nfe) {
		writeError(w, http.StatusNotFound, nfe.Error())
		return
	}

	var perr *pipeline.ProcessingError
	if errors.As(err, &perr) {
		s.config.Logger.Printf("pipeline failure: %v", perr)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"stage":  perr.Stage,
			"detail": perr.Error(),
		})
		return
	}

	s.config.Logger.Printf("request failed: %v", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"status": "error", "detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
