// Package server exposes the ingestion and question-answering operations
// over a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hoaworks/guardian/internal/docstore"
	"github.com/hoaworks/guardian/internal/query"
)

// Ingestor starts asynchronous document ingestion.
type Ingestor interface {
	Start(ctx context.Context, tenantID, fileRef, fileName string) (string, error)
}

// DocumentReader reads document status.
type DocumentReader interface {
	Get(ctx context.Context, id string) (*docstore.Document, error)
}

// Answerer answers tenant questions.
type Answerer interface {
	Ask(ctx context.Context, tenantID, question string) *query.Response
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	ingestor Ingestor
	docs     DocumentReader
	answerer Answerer
	logger   *slog.Logger
}

// New creates a Server.
func New(ingestor Ingestor, docs DocumentReader, answerer Answerer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ingestor: ingestor, docs: docs, answerer: answerer, logger: logger}
}

// Register attaches the API routes to the given mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/documents", s.handleStartIngestion)
	mux.HandleFunc("GET /v1/documents/{id}", s.handleDocumentStatus)
	mux.HandleFunc("POST /v1/ask", s.handleAsk)
}

type startIngestionRequest struct {
	TenantID string `json:"tenantId"`
	FileRef  string `json:"fileRef"`
	FileName string `json:"fileName"`
}

type startIngestionResponse struct {
	DocumentID string `json:"documentId"`
}

func (s *Server) handleStartIngestion(w http.ResponseWriter, r *http.Request) {
	var req startIngestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TenantID == "" || req.FileRef == "" || req.FileName == "" {
		writeError(w, http.StatusBadRequest, "tenantId, fileRef and fileName are required")
		return
	}

	docID, err := s.ingestor.Start(r.Context(), req.TenantID, req.FileRef, req.FileName)
	if err != nil {
		s.logger.Error("start ingestion failed", "tenant_id", req.TenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not start ingestion")
		return
	}

	writeJSON(w, http.StatusAccepted, startIngestionResponse{DocumentID: docID})
}

type documentStatusResponse struct {
	ID           string  `json:"id"`
	FileName     string  `json:"fileName"`
	Status       string  `json:"status"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
	TotalChunks  *int    `json:"totalChunks,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	ProcessedAt  *string `json:"processedAt,omitempty"`
}

func (s *Server) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("document status lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not read document status")
		return
	}

	resp := documentStatusResponse{
		ID:           doc.ID,
		FileName:     doc.FileName,
		Status:       string(doc.Status),
		ErrorMessage: doc.ErrorMessage,
		CreatedAt:    doc.CreatedAt.UTC().Format(time.RFC3339),
	}
	if doc.Status == docstore.StatusReady {
		count := doc.ChunkCount
		resp.TotalChunks = &count
	}
	if doc.ProcessedAt != nil {
		processed := doc.ProcessedAt.UTC().Format(time.RFC3339)
		resp.ProcessedAt = &processed
	}

	writeJSON(w, http.StatusOK, resp)
}

type askRequest struct {
	TenantID string `json:"tenantId"`
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TenantID == "" || req.Question == "" {
		writeError(w, http.StatusBadRequest, "tenantId and question are required")
		return
	}

	// Ask maps every failure to a response; the HTTP status is always 200
	// and callers branch on the success flag.
	resp := s.answerer.Ask(r.Context(), req.TenantID, req.Question)
	writeJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
