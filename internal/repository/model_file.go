package repository

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ahmednasr/repo-recommender/server/internal/recommender"
)

// FileModelStore keeps the learner snapshot in a single JSON file.
type FileModelStore struct {
	path string
}

// NewFileModelStore returns a store writing to path.
func NewFileModelStore(path string) *FileModelStore {
	return &FileModelStore{path: path}
}

// Name identifies the backend in logs and /health.
func (s *FileModelStore) Name() string { return "file" }

// Path is the snapshot location.
func (s *FileModelStore) Path() string { return s.path }

// Save writes blob to a temporary file next to the target and renames it into
// place, so a crash never leaves a half-written snapshot.
func (s *FileModelStore) Save(_ context.Context, _ string, blob []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return goerr.Wrap(err, "create model directory", goerr.V("dir", dir))
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return goerr.Wrap(err, "create temp model file", goerr.V("dir", dir))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "write model file", goerr.V("path", tmp.Name()))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "sync model file", goerr.V("path", tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "close model file", goerr.V("path", tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return goerr.Wrap(err, "replace model file", goerr.V("path", s.path))
	}
	return nil
}

// Load reads the snapshot or returns recommender.ErrNotFound if none exists.
func (s *FileModelStore) Load(_ context.Context) ([]byte, error) {
	blob, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, goerr.Wrap(recommender.ErrNotFound, "no saved model", goerr.V("path", s.path))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "read model file", goerr.V("path", s.path))
	}
	return blob, nil
}

// Ping reports whether the snapshot directory is reachable.
func (s *FileModelStore) Ping(_ context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return goerr.Wrap(err, "stat model directory", goerr.V("dir", dir))
	}
	if !info.IsDir() {
		return goerr.New("model directory is not a directory", goerr.V("dir", dir))
	}
	return nil
}
