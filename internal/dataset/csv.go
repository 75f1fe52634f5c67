package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const utf8BOM = "\ufeff"

// ReadFile loads a comma-separated file with a header row.
func ReadFile(path string) (*Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SourceNotFoundError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("stat source %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, &SourceNotFoundError{Path: path, Err: errors.New("is a directory")}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, path)
}

// Read parses comma-separated data with a header row from r. source names the
// input in error messages.
//
// Every record must have as many fields as the header, and header names must
// be unique and non-empty.
func Read(r io.Reader, source string) (*Dataset, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Source: source, Err: errors.New("missing header row")}
	}
	if err != nil {
		return nil, toParseError(source, err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	seen := make(map[string]struct{}, len(header))
	for i, name := range header {
		if name == "" {
			return nil, &ParseError{Source: source, Line: 1, Err: fmt.Errorf("column %d has an empty name", i+1)}
		}
		if _, dup := seen[name]; dup {
			return nil, &ParseError{Source: source, Line: 1, Err: fmt.Errorf("duplicate column %q", name)}
		}
		seen[name] = struct{}{}
	}

	var rows [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, toParseError(source, err)
		}
		rows = append(rows, rec)
	}

	return &Dataset{Columns: header, Rows: rows}, nil
}

func toParseError(source string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Source: source, Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Source: source, Err: err}
}

// Write encodes the dataset as comma-separated text with a header row.
// Fields are quoted only when their content requires it.
func (d *Dataset) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(d.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// Bytes returns the encoded form produced by Write.
func (d *Dataset) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes the dataset to path, creating missing parent directories
// and replacing any existing file.
func (d *Dataset) WriteFile(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // output is meant to be shared
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
