package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/issuelens/issuelens/internal/models"
)

// indexData feeds the combined listing/search template. When SearchResults is
// non-nil the template shows the results view, otherwise the listing.
type indexData struct {
	SearchResults []models.SearchResult
	Documents     []listedDocument
	TotalCount    int
	Query         string
}

// listedDocument is a document row on the listing page; Preview is the
// truncated content.
type listedDocument struct {
	ID      string
	Title   string
	Preview string
}

// embeddingsData feeds the vector inspection template.
type embeddingsData struct {
	Documents  []embeddingView
	Page       int
	TotalPages int
	PrevPage   int
	NextPage   int
}

type embeddingView struct {
	ID        string
	Title     string
	Metadata  string
	Embedding string
}

func (s *Server) renderIndex(w http.ResponseWriter, data indexData) {
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("template render failed", zap.Error(err))
	}
}

func previewDocuments(docs []*models.Document, previewChars int) []listedDocument {
	views := make([]listedDocument, 0, len(docs))
	for _, doc := range docs {
		views = append(views, listedDocument{
			ID:      doc.ID,
			Title:   doc.Title,
			Preview: models.Preview(doc.Content, previewChars),
		})
	}
	return views
}
