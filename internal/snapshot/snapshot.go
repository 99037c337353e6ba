/*
Package snapshot persists the last-seen list of announcements between runs.
*/
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shanehull/annwatch/internal/errs"
	"github.com/shanehull/annwatch/internal/logger"
	"github.com/shanehull/annwatch/internal/types"
)

// Document is the on-disk shape. Titles mirrors Announcements for readers that
// only know the title-only format.
type Document struct {
	LastUpdate    time.Time            `json:"last_update"`
	Count         int                  `json:"count"`
	Titles        []string             `json:"titles"`
	Announcements []types.Announcement `json:"announcements,omitempty"`
}

type Store struct {
	path string
	now  func() time.Time
	log  *logger.Logger
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		now:  time.Now,
		log:  logger.For("snapshot"),
	}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the previously saved announcements. A missing or unreadable file
// yields an empty result, which callers treat as a first run.
func (s *Store) Load() []types.Announcement {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn().Str("path", s.path).Msg("Snapshot file not found, treating as first run")
			return nil
		}
		s.log.Error().Err(err).Str("path", s.path).Msg("Failed to read snapshot, treating as first run")
		return nil
	}

	anns, err := decode(data)
	if err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("Failed to parse snapshot, treating as first run")
		return nil
	}

	s.log.Info().Int("count", len(anns)).Str("path", s.path).Msg("Loaded previous snapshot")
	return anns
}

// decode accepts the current document, a title-only document and a bare list of titles.
func decode(data []byte) ([]types.Announcement, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var titles []string
		if err := json.Unmarshal(trimmed, &titles); err != nil {
			return nil, err
		}
		return fromTitles(titles), nil
	}

	// last_update is informational and older writers used naive timestamps, so it is not decoded.
	var doc struct {
		Titles        []string             `json:"titles"`
		Announcements []types.Announcement `json:"announcements"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	if len(doc.Announcements) > 0 {
		return doc.Announcements, nil
	}
	return fromTitles(doc.Titles), nil
}

func fromTitles(titles []string) []types.Announcement {
	if len(titles) == 0 {
		return nil
	}
	anns := make([]types.Announcement, 0, len(titles))
	for _, t := range titles {
		anns = append(anns, types.Announcement{Title: t})
	}
	return anns
}

// Save overwrites the snapshot with current. The write goes through a temporary
// file in the same directory so a crash never leaves a truncated snapshot.
func (s *Store) Save(current []types.Announcement) error {
	if current == nil {
		current = []types.Announcement{}
	}
	doc := Document{
		LastUpdate:    s.now(),
		Count:         len(current),
		Titles:        types.Titles(current),
		Announcements: current,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return s.fail(errs.Storage("save", "failed to encode snapshot", err))
	}

	if err := writeFileAtomic(s.path, buf.Bytes()); err != nil {
		return s.fail(errs.Storage("save", fmt.Sprintf("failed to write %s", s.path), err))
	}

	s.log.Info().Int("count", len(current)).Str("path", s.path).Msg("Snapshot saved")
	return nil
}

func (s *Store) fail(err error) error {
	s.log.Error().Err(err).Str("path", s.path).Msg("Failed to save snapshot")
	return err
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
