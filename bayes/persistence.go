package bayes

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hickeroar/parahash/bayes/category"
)

const (
	// Version 2 records the analyzer signature next to the token counts.
	persistedModelVersion = 2
	defaultModelFilePath  = "/tmp/parahash-model.gob"
)

// ErrAnalyzerMismatch is returned when a persisted model was trained with a
// tokenizer other than the classifier's.
var ErrAnalyzerMismatch = errors.New("model was trained with a different analyzer")

type tempFile interface {
	io.Writer
	Sync() error
	Close() error
	Name() string
}

var (
	errNilWriter            = errors.New("writer is nil")
	errNilReader            = errors.New("reader is nil")
	errPathNotAbsolute      = errors.New("path must be absolute")
	errUnsupportedVersion   = errors.New("unsupported model version")
	errInvalidCategoryName  = errors.New("invalid category name in persisted model")
	errInvalidTokenCount    = errors.New("invalid token count in persisted model")
	errInvalidCategoryTally = errors.New("invalid category tally in persisted model")
	createTemp              = func(dir, pattern string) (tempFile, error) { return os.CreateTemp(dir, pattern) }
	renameFile              = os.Rename
	removeFile              = os.Remove
)

// modelState is the gob wire form of a trained classifier.
type modelState struct {
	Version    int
	Analyzer   string
	Categories map[string]category.PersistedCategory
}

func (s modelState) validate(analyzer string) error {
	if s.Version != persistedModelVersion {
		return fmt.Errorf("%w: %d", errUnsupportedVersion, s.Version)
	}
	if s.Analyzer != analyzer {
		return fmt.Errorf("%w: model %q, classifier %q", ErrAnalyzerMismatch, s.Analyzer, analyzer)
	}

	for name, cat := range s.Categories {
		if !ValidCategoryName(name) {
			return fmt.Errorf("%w: %q", errInvalidCategoryName, name)
		}
		if cat.Tally < 0 {
			return fmt.Errorf("%w for %q: %d", errInvalidCategoryTally, name, cat.Tally)
		}

		sum := 0
		for token, count := range cat.Tokens {
			if token == "" || count <= 0 {
				return fmt.Errorf("%w for %q token %q: %d", errInvalidTokenCount, name, token, count)
			}
			sum += count
		}
		if sum != cat.Tally {
			return fmt.Errorf("%w for %q: tally=%d sum=%d", errInvalidCategoryTally, name, cat.Tally, sum)
		}
	}
	return nil
}

// Save gob-encodes the trained model, tagged with the analyzer signature, to w.
func (c *Classifier) Save(w io.Writer) error {
	if w == nil {
		return errNilWriter
	}

	c.mu.RLock()
	state := modelState{
		Version:    persistedModelVersion,
		Analyzer:   c.analyzer,
		Categories: c.categories.ExportStates(),
	}
	c.mu.RUnlock()

	if err := gob.NewEncoder(w).Encode(state); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

// Load replaces the trained model with one read from a gob stream. Nothing
// changes unless the whole stream validates against this classifier.
func (c *Classifier) Load(r io.Reader) error {
	if r == nil {
		return errNilReader
	}

	var state modelState
	if err := gob.NewDecoder(r).Decode(&state); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	if err := state.validate(c.analyzer); err != nil {
		return err
	}

	cats := category.NewCategories()
	if err := cats.ReplaceStates(state.Categories); err != nil {
		return err
	}
	cats.EnsureCategoryProbabilities()

	c.mu.Lock()
	c.categories = *cats
	c.mu.Unlock()
	return nil
}

// SaveToFile writes the model to path. An empty path selects the default
// model location.
func (c *Classifier) SaveToFile(path string) error {
	path, err := modelPath(path)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, c.Save)
}

// LoadFromFile loads a model previously written by SaveToFile.
func (c *Classifier) LoadFromFile(path string) error {
	path, err := modelPath(path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()

	return c.Load(f)
}

func modelPath(path string) (string, error) {
	if path == "" {
		path = defaultModelFilePath
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %q", errPathNotAbsolute, path)
	}
	return path, nil
}

// writeFileAtomic fills a temp file next to path and renames it into place,
// so readers never see a partial model.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	f, err := createTemp(filepath.Dir(path), ".parahash-model-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := f.Name()
	defer removeFile(tempPath)

	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := renameFile(tempPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
