// Package cache persists small pieces of state between runs as JSON files:
// the metrics sparkline history and the log of applied tweaks.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store is a directory of JSON documents, one file per key:
//
//	%LOCALAPPDATA%\cloud-optimizer\
//	  sysmetrics.json
//	  tweaks.json
type Store struct {
	dir    string
	logger *slog.Logger
}

// DefaultDir returns the per-user cache directory for the optimizer.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cache: locate user cache dir: %w", err)
	}
	return filepath.Join(base, "cloud-optimizer"), nil
}

// NewStore opens (creating with 0700 if needed) a store at dir.
// If logger is nil, a no-op logger is used.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cache: create directory %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get returns the raw document for key and whether it was written less than
// ttl ago. A missing key yields nil, false, nil. A document that is not valid
// JSON is deleted and reported as missing.
func (s *Store) Get(key string, ttl time.Duration) (json.RawMessage, bool, error) {
	p := s.path(key)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: read %s: %w", key, err)
	}
	if !json.Valid(data) {
		s.logger.Warn("cache: removing corrupted entry", "key", key)
		_ = os.Remove(p)
		return nil, false, nil
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, false, fmt.Errorf("cache: stat %s: %w", key, err)
	}
	return json.RawMessage(data), time.Since(info.ModTime()) < ttl, nil
}

// Set encodes v and replaces the document for key. The file is written to a
// temporary name and renamed into place, so readers never see a partial write.
func (s *Store) Set(key string, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+key+"-*")
	if err != nil {
		return fmt.Errorf("cache: create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(encoded)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: write %s: %w", key, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		s.logger.Debug("cache: chmod temp file", "key", key, "error", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: replace %s: %w", key, err)
	}
	return nil
}

// GetTyped is Get followed by json.Unmarshal into T. A document that does not
// decode is deleted and reported as missing.
func GetTyped[T any](s *Store, key string, ttl time.Duration) (*T, bool, error) {
	raw, fresh, err := s.Get(key, ttl)
	if err != nil || raw == nil {
		return nil, false, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		s.logger.Warn("cache: removing undecodable entry", "key", key, "error", err)
		_ = os.Remove(s.path(key))
		return nil, false, nil
	}
	return &out, fresh, nil
}

// SetTyped stores v under key.
func SetTyped[T any](s *Store, key string, v *T) error {
	return s.Set(key, v)
}

// Clear deletes every document in the store, leaving the directory.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache: clear: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !(strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".tmp-")) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cache: clear %s: %w", e.Name(), err)
		}
	}
	return nil
}
