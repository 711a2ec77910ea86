package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseQueryFile parses and validates a query definition file.
// The format is auto-detected from the file extension (.json, .yaml, .yml)
// or, failing that, from the content. The returned Result carries parse
// and validation errors separately so the CLI can map them to exit codes.
func ParseQueryFile(path string) *Result {
	result := &Result{FilePath: path}

	content, err := os.ReadFile(path)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    path,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	format := detectFormat(path, content)
	result.Format = format

	var data map[string]interface{}
	var perr *ParseError
	switch format {
	case "yaml":
		data, perr = parseYAML(content)
	default:
		data, perr = parseJSON(content)
	}
	if perr != nil {
		perr.Path = path
		result.ParseErrors = append(result.ParseErrors, *perr)
		return result
	}
	result.Data = data

	result.ValidationErrors = validate(data)
	return result
}

// detectFormat picks json or yaml from the extension, falling back to a
// content sniff: JSON documents open with an object brace.
func detectFormat(path string, content []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	trimmed := strings.TrimSpace(string(content))
	if strings.HasPrefix(trimmed, "{") {
		return "json"
	}
	return "yaml"
}

// parseJSON parses JSON content, extracting line/column from syntax errors.
func parseJSON(content []byte) (map[string]interface{}, *ParseError) {
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return nil, &ParseError{Message: "empty content: expected JSON object", Type: ErrorTypeSyntax}
	}

	var data interface{}
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		perr := &ParseError{Message: err.Error(), Type: ErrorTypeSyntax}
		if syntaxErr, ok := err.(*json.SyntaxError); ok {
			perr.Offset = syntaxErr.Offset
			perr.Line, perr.Column = offsetToLineColumn(trimmed, syntaxErr.Offset)
			perr.Message = fmt.Sprintf("JSON syntax error: %s", syntaxErr.Error())
		}
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
			perr.Offset = typeErr.Offset
			perr.Line, perr.Column = offsetToLineColumn(trimmed, typeErr.Offset)
			perr.Message = fmt.Sprintf("type error at field %q: expected %s, got %s",
				typeErr.Field, typeErr.Type.String(), typeErr.Value)
		}
		return nil, perr
	}

	dataMap, ok := data.(map[string]interface{})
	if !ok {
		return nil, &ParseError{
			Message: fmt.Sprintf("invalid configuration: expected JSON object, got %T", data),
			Type:    ErrorTypeFormat,
		}
	}
	return dataMap, nil
}

// parseYAML parses YAML content, extracting line numbers from yaml errors.
func parseYAML(content []byte) (map[string]interface{}, *ParseError) {
	if strings.TrimSpace(string(content)) == "" {
		return nil, &ParseError{Message: "empty content: expected YAML mapping", Type: ErrorTypeSyntax}
	}

	var data interface{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		perr := &ParseError{Message: err.Error(), Type: ErrorTypeSyntax}
		if typeErr, ok := err.(*yaml.TypeError); ok && len(typeErr.Errors) > 0 {
			perr.Message = typeErr.Errors[0]
		}
		return nil, perr
	}

	dataMap, ok := data.(map[string]interface{})
	if !ok {
		return nil, &ParseError{
			Message: fmt.Sprintf("invalid configuration: expected YAML mapping, got %T", data),
			Type:    ErrorTypeFormat,
		}
	}
	return dataMap, nil
}

// offsetToLineColumn converts a byte offset to line and column numbers (1-based).
func offsetToLineColumn(content string, offset int64) (line, column int) {
	if offset <= 0 {
		return 1, 1
	}

	line = 1
	column = 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}
