// Package store loads and persists the curated event collection.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"techevents/internal/model"
)

// Provider supplies the full event collection. Implementations must return
// either every record or an error, never a partial list.
type Provider interface {
	LoadAll(ctx context.Context) ([]model.Event, error)
}

// FileStore keeps events as a single pretty-printed JSON array on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// LoadAll reads and validates the events file. A missing file is reported as
// an error wrapping fs.ErrNotExist.
func (s *FileStore) LoadAll(ctx context.Context) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	return Decode(data)
}

// Decode parses a JSON array of events and validates the whole collection.
func Decode(data []byte) ([]model.Event, error) {
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	if err := ValidateEvents(events); err != nil {
		return nil, err
	}
	return events, nil
}

// Encode renders events the way they are stored on disk.
func Encode(events []model.Event) ([]byte, error) {
	out := make([]model.Event, len(events))
	for i, ev := range events {
		if ev.Tags == nil {
			ev.Tags = []string{}
		}
		out[i] = ev
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	return append(data, '\n'), nil
}

// Save validates events and replaces the file atomically.
func (s *FileStore) Save(ctx context.Context, events []model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.path == "" {
		return errors.New("events file path is empty")
	}
	if err := ValidateEvents(events); err != nil {
		return err
	}

	data, err := Encode(events)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".events-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
