package readers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gamma-omg/profile-mcp/jsonval"
)

// ParseError reports a file that was read but is not a single valid JSON value.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %s", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type JSONFileReader struct{}

func (r *JSONFileReader) CanRead(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func (r *JSONFileReader) Read(path string) (jsonval.Value, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return jsonval.Value{}, fmt.Errorf("reading json file: %w", err)
	}

	v, err := jsonval.Parse(buf)
	if err != nil {
		return jsonval.Value{}, &ParseError{File: filepath.Base(path), Err: err}
	}

	return v, nil
}
