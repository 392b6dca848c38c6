package config

import (
	"context"
	"field-route-service/internal/monitoring"
	"field-route-service/internal/services"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/atomic"
)

// TuningStore serves the current tuning snapshot and swaps it when the
// backing file changes. Readers never see a partially applied file.
type TuningStore struct {
	path    string
	current atomic.Pointer[Tuning]
}

func NewTuningStore(path string) (*TuningStore, error) {
	t, err := LoadTuning(path)
	if err != nil {
		return nil, err
	}
	s := &TuningStore{path: path}
	s.current.Store(&t)
	return s, nil
}

func (s *TuningStore) Current() Tuning {
	return *s.current.Load()
}

func (s *TuningStore) Thresholds() monitoring.Thresholds {
	return s.Current().Thresholds
}

// Planner returns a planner for the current snapshot.
func (s *TuningStore) Planner() *services.RoutePlanner {
	return services.NewRoutePlanner(s.Current().Planner)
}

// Reload re-reads the file. On error the previous snapshot stays in place.
func (s *TuningStore) Reload() error {
	t, err := LoadTuning(s.path)
	if err != nil {
		return err
	}
	s.current.Store(&t)
	return nil
}

// Watch reloads the tuning file on change until ctx is done. The parent
// directory is watched so editors that replace the file are handled.
func (s *TuningStore) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch tuning: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch tuning: add %q: %w", filepath.Dir(s.path), err)
	}

	target := filepath.Clean(s.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target || evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := s.Reload(); err != nil {
					log.Printf("tuning reload failed (keeping previous): %v", err)
					continue
				}
				log.Printf("tuning reloaded path=%s", s.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("tuning watcher error: %v", err)
			}
		}
	}()
	return nil
}
