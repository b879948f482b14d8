// Package issues loads exported issue records and maps them to documents.
package issues

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/issuelens/issuelens/internal/models"
)

// ErrFormat indicates the input file is neither a JSON array of issues nor an
// object wrapping one.
var ErrFormat = errors.New("invalid issues format")

// ErrValidation indicates an issue record is missing a required field.
var ErrValidation = errors.New("invalid issue record")

// Author identifies who opened an issue.
type Author struct {
	ID    string `json:"id"`
	IsBot bool   `json:"is_bot"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Label is an issue label; only the name is carried into metadata.
type Label struct {
	Name string `json:"name"`
}

// Issue is one source record from an issues export. It lives only long enough
// to be turned into a models.Document.
type Issue struct {
	Author    *Author    `json:"author"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Number    *int       `json:"number"`
	URL       string     `json:"url"`
	State     string     `json:"state"`
	CreatedAt *time.Time `json:"createdAt"`
	ClosedAt  *time.Time `json:"closedAt"`
	Labels    []Label    `json:"labels"`
}

// Validate checks the required fields (author identity and title).
func (is *Issue) Validate() error {
	if is.Author == nil || is.Author.Login == "" {
		return fmt.Errorf("%w: missing author", ErrValidation)
	}
	if is.Title == "" {
		return fmt.Errorf("%w: missing title", ErrValidation)
	}
	return nil
}

// ID derives the stable document id: the decimal issue number when present,
// otherwise the trailing path segment of the URL. Re-deriving from the same
// record always yields the same id.
func (is *Issue) ID() (string, error) {
	if is.Number != nil {
		return strconv.Itoa(*is.Number), nil
	}
	if is.URL != "" {
		parts := strings.Split(strings.TrimRight(is.URL, "/"), "/")
		if segment := parts[len(parts)-1]; segment != "" {
			return segment, nil
		}
		return "", fmt.Errorf("%w: url %q has no trailing segment", ErrValidation, is.URL)
	}
	return "", fmt.Errorf("%w: neither number nor url present", ErrValidation)
}

// Document converts the issue to its canonical document shape. Every
// ingestion path goes through this mapping so that the document produced for
// a record is identical no matter how the record arrived.
func (is *Issue) Document() (*models.Document, error) {
	if err := is.Validate(); err != nil {
		return nil, err
	}
	id, err := is.ID()
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(is.Labels))
	for _, l := range is.Labels {
		labels = append(labels, l.Name)
	}
	return &models.Document{
		ID:      id,
		Title:   is.Title,
		Content: is.Title + "\n\n" + is.Body,
		Metadata: models.Metadata{
			Author:    is.Author.Login,
			CreatedAt: formatTime(is.CreatedAt),
			ClosedAt:  formatTime(is.ClosedAt),
			State:     is.State,
			Labels:    labels,
		},
	}, nil
}

// formatTime renders a timestamp as RFC3339, or nil when absent, so metadata
// carries one timestamp format on every path.
func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
