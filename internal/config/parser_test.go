package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `dataset:
  name: transactions
  path: /data/transactions.csv
  dayFirst: true
  fields:
    - name: area_name
      type: string
    - name: actual_worth
      type: number
      nullable: true
    - name: instance_date
      type: date
      nullable: true
query:
  predicates:
    - kind: eq
      field: area_name
      value: Dubai Marina
    - kind: range
      field: actual_worth
      min: 500000
  bucket:
    field: instance_date
    granularity: month
  aggregations:
    - groupBy: instance_date_month
      target: actual_worth
      reduce: mean
      limit: 10
`

const validJSON = `{
  "dataset": {
    "name": "transactions",
    "path": "/data/transactions.csv",
    "fields": [
      {"name": "area_name", "type": "string"},
      {"name": "actual_worth", "type": "number", "nullable": true}
    ]
  },
  "query": {
    "predicates": [
      {"kind": "in", "field": "area_name", "values": ["Deira", "JVC"]}
    ]
  }
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestParseQueryFile_ValidYAML(t *testing.T) {
	path := writeFile(t, "query.yaml", validYAML)
	result := ParseQueryFile(path)

	if !result.IsValid() {
		t.Fatalf("expected valid result, got parse=%v validation=%v",
			result.ParseErrors, result.ValidationErrors)
	}
	if result.Format != "yaml" {
		t.Errorf("expected format yaml, got %s", result.Format)
	}

	ds, ok := result.Data["dataset"].(map[string]interface{})
	if !ok {
		t.Fatal("expected dataset section")
	}
	if ds["name"] != "transactions" {
		t.Errorf("expected dataset.name transactions, got %v", ds["name"])
	}
}

func TestParseQueryFile_ValidJSON(t *testing.T) {
	path := writeFile(t, "query.json", validJSON)
	result := ParseQueryFile(path)

	if !result.IsValid() {
		t.Fatalf("expected valid result, got parse=%v validation=%v",
			result.ParseErrors, result.ValidationErrors)
	}
	if result.Format != "json" {
		t.Errorf("expected format json, got %s", result.Format)
	}
}

func TestParseQueryFile_SyntaxErrorHasLocation(t *testing.T) {
	path := writeFile(t, "broken.json", "{\n  \"dataset\": {\n")
	result := ParseQueryFile(path)

	if len(result.ParseErrors) == 0 {
		t.Fatal("expected parse errors")
	}
	perr := result.ParseErrors[0]
	if perr.Type != ErrorTypeSyntax {
		t.Errorf("expected syntax error type, got %s", perr.Type)
	}
	if perr.Line == 0 {
		t.Error("expected a line number on the syntax error")
	}
	if perr.Path != path {
		t.Errorf("expected path %s, got %s", path, perr.Path)
	}
}

func TestParseQueryFile_InvalidYAML(t *testing.T) {
	path := writeFile(t, "broken.yaml", "dataset:\n  name: [unclosed")
	result := ParseQueryFile(path)

	if len(result.ParseErrors) == 0 {
		t.Fatal("expected parse errors")
	}
	if result.ParseErrors[0].Type != ErrorTypeSyntax {
		t.Errorf("expected syntax error type, got %s", result.ParseErrors[0].Type)
	}
}

func TestParseQueryFile_MissingFile(t *testing.T) {
	result := ParseQueryFile(filepath.Join(t.TempDir(), "nope.yaml"))

	if len(result.ParseErrors) == 0 {
		t.Fatal("expected parse errors")
	}
	if result.ParseErrors[0].Type != ErrorTypeIO {
		t.Errorf("expected io error type, got %s", result.ParseErrors[0].Type)
	}
}

func TestParseQueryFile_NonObjectRejected(t *testing.T) {
	path := writeFile(t, "list.json", `[1, 2, 3]`)
	result := ParseQueryFile(path)

	if len(result.ParseErrors) == 0 {
		t.Fatal("expected parse errors")
	}
	if result.ParseErrors[0].Type != ErrorTypeFormat {
		t.Errorf("expected format error type, got %s", result.ParseErrors[0].Type)
	}
}

func TestParseQueryFile_ContentSniffing(t *testing.T) {
	// JSON content behind an unknown extension is still detected.
	path := writeFile(t, "query.conf", validJSON)
	result := ParseQueryFile(path)

	if result.Format != "json" {
		t.Errorf("expected sniffed format json, got %s", result.Format)
	}
	if !result.IsValid() {
		t.Errorf("expected valid result, got parse=%v validation=%v",
			result.ParseErrors, result.ValidationErrors)
	}
}

func TestParseQueryFile_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantIn  string
	}{
		{
			name:    "missing dataset section",
			content: `{"query": {}}`,
			wantIn:  "/",
		},
		{
			name: "bad field type",
			content: `{"dataset": {"name": "t", "path": "/t.csv",
				"fields": [{"name": "a", "type": "decimal"}]}}`,
			wantIn: "fields",
		},
		{
			name: "bad granularity",
			content: `{"dataset": {"name": "t", "path": "/t.csv",
				"fields": [{"name": "d", "type": "date"}]},
				"query": {"bucket": {"field": "d", "granularity": "decade"}}}`,
			wantIn: "granularity",
		},
		{
			name: "unknown top-level key",
			content: `{"dataset": {"name": "t", "path": "/t.csv",
				"fields": [{"name": "a", "type": "string"}]}, "extra": 1}`,
			wantIn: "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "query.json", tt.content)
			result := ParseQueryFile(path)

			if len(result.ParseErrors) > 0 {
				t.Fatalf("unexpected parse errors: %v", result.ParseErrors)
			}
			if len(result.ValidationErrors) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, verr := range result.ValidationErrors {
				if strings.Contains(verr.Path, tt.wantIn) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("no validation error mentions %q: %v", tt.wantIn, result.ValidationErrors)
			}
		})
	}
}

func TestOffsetToLineColumn(t *testing.T) {
	content := "line one\nline two\nline three"

	tests := []struct {
		offset   int64
		wantLine int
		wantCol  int
	}{
		{0, 1, 1},
		{4, 1, 5},
		{9, 2, 1},
		{13, 2, 5},
	}

	for _, tt := range tests {
		line, col := offsetToLineColumn(content, tt.offset)
		if line != tt.wantLine || col != tt.wantCol {
			t.Errorf("offset %d: expected %d:%d, got %d:%d",
				tt.offset, tt.wantLine, tt.wantCol, line, col)
		}
	}
}
