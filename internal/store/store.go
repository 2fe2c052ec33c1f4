// Package store reads the backing tables of the search engine. Tables are
// bgzip-compressed NDJSON files plus small JSON globals files, served from a
// local directory or an S3 bucket.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotExist is returned when a table or globals file is absent.
var ErrNotExist = errors.New("table does not exist")

// Source opens table files by slash-separated path relative to its root.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, name string) (bool, error)
	String() string
}

// FSSource serves tables from a local directory.
type FSSource struct {
	root string
}

// NewFS returns a Source rooted at dir.
func NewFS(dir string) *FSSource {
	return &FSSource{root: dir}
}

func (s *FSSource) resolve(name string) (string, error) {
	clean := path.Clean("/" + name)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid table path %q", name)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *FSSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotExist)
		}
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return f, nil
}

func (s *FSSource) Exists(_ context.Context, name string) (bool, error) {
	p, err := s.resolve(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FSSource) String() string { return "fs:" + s.root }

// ReadJSON decodes a whole JSON file into v.
func ReadJSON(ctx context.Context, src Source, name string, v any) error {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

// Table paths, relative to a source root.

func CatalogGlobalsPath(genome, dataType string) string {
	return path.Join(genome, dataType, "globals.json")
}

func AnnotationsPath(genome, dataType string) string {
	return path.Join(genome, dataType, "annotations.ndjson.bgz")
}

func ProjectTablePath(genome, dataType, sampleType, project string) string {
	return path.Join(genome, dataType, "projects", sampleType, project+".ndjson.bgz")
}

func FamilyTablePath(genome, dataType, sampleType, family string) string {
	return path.Join(genome, dataType, "families", sampleType, family+".ndjson.bgz")
}

// TableGlobalsPath returns the globals file sitting next to an entries table.
func TableGlobalsPath(tablePath string) string {
	return strings.TrimSuffix(tablePath, ".ndjson.bgz") + ".globals.json"
}
