package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/issuelens/issuelens/internal/embedding"
	"github.com/issuelens/issuelens/internal/issues"
	"github.com/issuelens/issuelens/internal/models"
	"github.com/issuelens/issuelens/internal/store"
)

const embeddingsPerPage = 10

// documentView is the API listing shape: a document without its vector.
type documentView struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Metadata models.Metadata `json:"metadata"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Error("count failed", zap.Error(err))
		s.renderError(w, err)
		return
	}
	docs, err := s.store.List(ctx, 0, s.config.Search.MaxLimit)
	if err != nil {
		s.logger.Error("list failed", zap.Error(err))
		s.renderError(w, err)
		return
	}
	s.renderIndex(w, indexData{
		Documents:  previewDocuments(docs, s.config.Search.PreviewChars),
		TotalCount: total,
	})
}

func (s *Server) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	query := r.PostFormValue("query")
	if query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	results, err := s.search.Search(r.Context(), query, s.config.Search.DefaultLimit)
	if err != nil {
		s.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		s.renderError(w, err)
		return
	}
	s.renderIndex(w, indexData{
		SearchResults: results,
		Query:         query,
	})
}

func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Error("count failed", zap.Error(err))
		s.renderError(w, err)
		return
	}
	totalPages := (total + embeddingsPerPage - 1) / embeddingsPerPage
	docs, err := s.store.List(ctx, (page-1)*embeddingsPerPage, embeddingsPerPage)
	if err != nil {
		s.logger.Error("list failed", zap.Error(err))
		s.renderError(w, err)
		return
	}
	views := make([]embeddingView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, embeddingView{
			ID:        doc.ID,
			Title:     doc.Title,
			Metadata:  metadataString(doc.Metadata),
			Embedding: embeddingString(doc.Embedding),
		})
	}
	data := embeddingsData{
		Documents:  views,
		Page:       page,
		TotalPages: totalPages,
		PrevPage:   page - 1,
		NextPage:   page + 1,
	}
	if err := s.templates.ExecuteTemplate(w, "embeddings.html", data); err != nil {
		s.logger.Error("template render failed", zap.Error(err))
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", s.config.Search.MaxLimit)
	if limit > s.config.Search.MaxLimit {
		limit = s.config.Search.MaxLimit
	}
	docs, err := s.store.List(r.Context(), skip, limit)
	if err != nil {
		s.logger.Error("list failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, documentView{
			ID:       doc.ID,
			Title:    doc.Title,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
	}
	s.respondJSON(w, http.StatusOK, views)
}

// handleSubmitDocument ingests one issue record submitted as JSON. It goes
// through the same record-to-document mapping as the file loader; records
// lacking both number and url get a generated id.
func (s *Server) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	var record issues.Issue
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if record.Number == nil && record.URL == "" {
		record.URL = uuid.New().String()
	}
	id, err := record.ID()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.ingest.Run(r.Context(), []issues.Issue{record}); err != nil {
		s.logger.Error("ingest failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": id, "status": "embedded"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	limit := queryInt(r, "limit", s.config.Search.DefaultLimit)
	if limit > s.config.Search.MaxLimit {
		limit = s.config.Search.MaxLimit
	}
	results, err := s.search.Search(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, results)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

// statusFor maps store and provider errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, issues.ErrValidation), errors.Is(err, issues.ErrFormat),
		errors.Is(err, store.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, embedding.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func metadataString(m models.Metadata) string {
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}

func embeddingString(vec []float32) string {
	if len(vec) == 0 {
		return "No embedding available"
	}
	return fmt.Sprint(vec)
}
