package issues

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const sampleIssue = `{
	"author": {"id": "1", "is_bot": false, "login": "amy", "name": "Amy"},
	"title": "Bug A",
	"body": "crashes",
	"number": 1,
	"state": "OPEN",
	"createdAt": "2024-03-01T12:00:00Z",
	"labels": [{"name": "bug"}]
}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "issues.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error: got %v, want fs.ErrNotExist", err)
	}
}

func TestLoadFileArray(t *testing.T) {
	path := writeFile(t, "["+sampleIssue+"]")
	issues, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 1 {
		t.Fatalf("issues: got %d, want 1", len(issues))
	}
	if issues[0].Title != "Bug A" {
		t.Errorf("title: got %q", issues[0].Title)
	}
	if issues[0].CreatedAt == nil || issues[0].CreatedAt.Hour() != 12 {
		t.Errorf("createdAt not parsed: %v", issues[0].CreatedAt)
	}
}

func TestLoadFileWrappedObject(t *testing.T) {
	path := writeFile(t, `{"issues": [`+sampleIssue+`]}`)
	issues, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 1 {
		t.Fatalf("issues: got %d, want 1", len(issues))
	}
}

func TestLoadFileBadFormat(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"scalar", `"hello"`},
		{"object without issues key", `{"records": []}`},
		{"not json", `title: Bug A`},
		{"record wrong type", `[{"title": 42}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, tt.content))
			if !errors.Is(err, ErrFormat) {
				t.Errorf("error: got %v, want ErrFormat", err)
			}
		})
	}
}

func TestLoadFileInvalidRecordAbortsWholeFile(t *testing.T) {
	content := `[` + sampleIssue + `, {"title": "no author"}]`
	_, err := LoadFile(writeFile(t, content))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("error: got %v, want ErrValidation", err)
	}
}

func TestLoadFileEmptyArray(t *testing.T) {
	issues, err := LoadFile(writeFile(t, `[]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 0 {
		t.Errorf("issues: got %d, want 0", len(issues))
	}
}

// End-to-end shape check for the canonical mapping.
func TestLoadFileEndToEnd(t *testing.T) {
	content := `[{"number": 1, "title": "Bug A", "body": "crashes",
		"author": {"id": "1", "is_bot": false, "login": "amy", "name": "Amy"}}]`
	issues, err := LoadFile(writeFile(t, content))
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 1 {
		t.Fatalf("issues: got %d, want 1", len(issues))
	}
	doc, err := issues[0].Document()
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != "1" {
		t.Errorf("id: got %q, want %q", doc.ID, "1")
	}
	if doc.Content != "Bug A\n\ncrashes" {
		t.Errorf("content: got %q", doc.Content)
	}
	if doc.Metadata.Author != "amy" {
		t.Errorf("metadata author: got %q", doc.Metadata.Author)
	}
}
