package issues

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// LoadFile reads and parses an issues export from path. A missing file
// returns an error wrapping fs.ErrNotExist. The whole file is rejected on the
// first invalid record; there is no partial load.
func LoadFile(path string) ([]Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read issues file: %w", err)
	}
	issues, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return issues, nil
}

// Parse decodes issues from raw JSON: either an array of records or an
// object with an "issues" field holding one.
func Parse(data []byte) ([]Issue, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	var raw []json.RawMessage
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	case len(trimmed) > 0 && trimmed[0] == '{':
		var wrapper struct {
			Issues []json.RawMessage `json:"issues"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		if wrapper.Issues == nil {
			return nil, fmt.Errorf("%w: expected an array of issues or an object with an \"issues\" key", ErrFormat)
		}
		raw = wrapper.Issues
	default:
		return nil, fmt.Errorf("%w: expected an array of issues or an object with an \"issues\" key", ErrFormat)
	}

	issues := make([]Issue, 0, len(raw))
	for i, msg := range raw {
		var is Issue
		if err := json.Unmarshal(msg, &is); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrFormat, i, err)
		}
		if err := is.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		issues = append(issues, is)
	}
	return issues, nil
}
