package cooldown

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Store reads and writes the cooldown document. Load fails open: a missing or
// corrupt file yields an empty record so a storage problem can never suppress
// every future alert or crash a run. Save is the only operation allowed to
// fail, and a failure there is fatal for the run that triggered it.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a store backed by the document at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load returns the persisted record, or an empty record when the backing file
// is missing or unreadable.
func (s *Store) Load() Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cooldown file unreadable, starting empty", "path", s.path, "error", err)
		}
		return Record{}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("cooldown file malformed, starting empty", "path", s.path, "error", err)
		return Record{}
	}
	if rec == nil {
		return Record{}
	}
	return rec
}

// Save replaces the backing document. The record is written to a temporary
// file and renamed into place so a concurrent Load never observes a partial
// document.
func (s *Store) Save(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cooldown record: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create cooldown temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write cooldown record: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync cooldown record: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close cooldown temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace cooldown file: %w", err)
	}
	return nil
}
