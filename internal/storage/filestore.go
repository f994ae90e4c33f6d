package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/model"
	"github.com/goccy/go-json"
)

// bundleVersion identifies the JSON layout written by FileStore.
const bundleVersion = 1

type bundle struct {
	Run     *model.TrainingRun `json:"run"`
	Version int                `json:"version"`
}

// FileStore keeps the latest training run as a single JSON document.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to path.
func NewFileStore(path string) (*FileStore, error) {
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}
	return &FileStore{path: path}, nil
}

// SaveRun replaces the stored run. The file is written atomically.
func (f *FileStore) SaveRun(ctx context.Context, run *model.TrainingRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	data, err := json.MarshalIndent(bundle{Version: bundleVersion, Run: run}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode training run: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".spectrum-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write training run: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to move training run into place: %w", err)
	}
	return nil
}

// LoadLatestRun reads the stored run.
func (f *FileStore) LoadLatestRun(ctx context.Context) (*model.TrainingRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no training run at %s", common.ErrNotFound, f.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read training run: %w", err)
	}

	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode training run: %w", err)
	}
	if b.Version != bundleVersion {
		return nil, fmt.Errorf("%w: unsupported bundle version %d", ErrInvalidRun, b.Version)
	}
	if err := validateRun(b.Run); err != nil {
		return nil, err
	}
	return b.Run, nil
}

// LoadRun reads the stored run if its id matches.
func (f *FileStore) LoadRun(ctx context.Context, id string) (*model.TrainingRun, error) {
	run, err := f.LoadLatestRun(ctx)
	if err != nil {
		return nil, err
	}
	if run.ID != id {
		return nil, fmt.Errorf("%w: training run %s", common.ErrNotFound, id)
	}
	return run, nil
}

// Close is a no-op; FileStore holds no open handles.
func (f *FileStore) Close() error {
	return nil
}
