package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/arnavshah/precinct-staffing-go/pkg/store"
)

// AliasStore persists the manual location -> precinct overrides as a JSON
// object. Concurrent writers are not coordinated; the last Save wins.
type AliasStore struct {
	path  string
	cache *FuzzyCache
}

// NewAliasStore binds the store to a file and the cache it must invalidate
func NewAliasStore(path string, cache *FuzzyCache) *AliasStore {
	return &AliasStore{path: path, cache: cache}
}

// Path returns the backing file
func (s *AliasStore) Path() string {
	return s.path
}

// Load reads the alias document. A missing file is an empty mapping.
func (s *AliasStore) Load() (map[string]string, error) {
	aliases := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return aliases, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read aliases: %w", err)
	}
	if len(data) == 0 {
		return aliases, nil
	}
	if err := json.Unmarshal(data, &aliases); err != nil {
		return nil, fmt.Errorf("parse aliases %s: %w", s.path, err)
	}
	return aliases, nil
}

// Save replaces the alias document with the given mapping
func (s *AliasStore) Save(aliases map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create alias dir: %w", err)
	}
	return store.WriteAtomic(s.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(aliases)
	})
}

// Add maps the normalized location to a precinct display string, persists the
// whole document and clears the fuzzy cache.
func (s *AliasStore) Add(location, precinctDisplay string) error {
	key := Normalize(location)
	if key == "" {
		return errors.New("alias location is empty")
	}
	aliases, err := s.Load()
	if err != nil {
		return err
	}
	aliases[key] = precinctDisplay
	return s.commit(aliases)
}

// Remove deletes the alias for location. Removing an unknown alias is a no-op.
func (s *AliasStore) Remove(location string) error {
	aliases, err := s.Load()
	if err != nil {
		return err
	}
	key := Normalize(location)
	if _, ok := aliases[key]; !ok {
		return nil
	}
	delete(aliases, key)
	return s.commit(aliases)
}

func (s *AliasStore) commit(aliases map[string]string) error {
	if err := s.Save(aliases); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Clear()
	}
	return nil
}

// Watch clears the fuzzy cache whenever the alias file changes on disk, so
// hand edits take effect in a long-running process. It blocks until ctx is done.
func (s *AliasStore) Watch(ctx context.Context, log *zap.Logger) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create alias dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("alias watcher: %w", err)
	}
	defer w.Close()

	// The directory is watched because Save replaces the file by rename.
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) || ev.Op.Has(fsnotify.Remove) {
				if s.cache != nil {
					s.cache.Clear()
				}
				log.Info("alias file changed, fuzzy cache cleared", zap.String("path", s.path), zap.String("op", ev.Op.String()))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("alias watcher error", zap.Error(err))
		}
	}
}
