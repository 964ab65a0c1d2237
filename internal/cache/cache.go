package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"binday/internal/analyzer"
	"binday/internal/models"
)

var errCorrupt = errors.New("corrupt cache entry")

// Store keeps one JSON file per premises under dir.
type Store struct {
	fs  afero.Fs
	dir string
	loc *time.Location
	log *slog.Logger
}

// NewStore creates a cache store rooted at dir on fs.
func NewStore(fs afero.Fs, dir string, loc *time.Location, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Store{fs: fs, dir: dir, loc: loc, log: log}
}

// FilePath returns the cache file for a premises identifier
func (s *Store) FilePath(premisesID string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(premisesID)
	return filepath.Join(s.dir, name+".json")
}

// Load reads the cache entry for premisesID. Missing and corrupt files are
// both reported as absent.
func (s *Store) Load(premisesID string) (Entry, bool) {
	path := s.FilePath(premisesID)

	buf, err := afero.ReadFile(s.fs, path)
	if os.IsNotExist(err) {
		return Entry{}, false
	}
	if err != nil {
		s.log.Warn("cache unavailable", "premises_id", premisesID, "path", path, "err", err)
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(buf, &e); err != nil {
		s.log.Warn("cache corrupt", "premises_id", premisesID, "path", path, "err", err)
		return Entry{}, false
	}
	if err := s.validate(premisesID, e); err != nil {
		s.log.Warn("cache corrupt", "premises_id", premisesID, "path", path, "err", err)
		return Entry{}, false
	}
	return e, true
}

func (s *Store) validate(premisesID string, e Entry) error {
	if e.Version != formatVersion {
		return fmt.Errorf("%w: version %d", errCorrupt, e.Version)
	}
	if e.PremisesID != premisesID {
		return fmt.Errorf("%w: premises mismatch: got %s, expected %s", errCorrupt, e.PremisesID, premisesID)
	}
	for _, r := range e.Rows {
		if _, err := s.parseRow(premisesID, r); err != nil {
			return err
		}
	}
	return nil
}

// Save replaces the cache entry atomically (write to temp, then rename).
// A zero SavedAt is stamped with the current time.
func (s *Store) Save(premisesID string, e Entry) error {
	e.Version = formatVersion
	e.PremisesID = premisesID
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now()
	}

	buf, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	path := s.FilePath(premisesID)
	tmpPath := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, buf, 0o644); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("writing temp cache file: %w", err)
	}

	if err := s.fs.Rename(tmpPath, path); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

// Delete removes the cache file from disk
func (s *Store) Delete(premisesID string) error {
	err := s.fs.Remove(s.FilePath(premisesID))
	if os.IsNotExist(err) {
		return nil // Already deleted
	}
	return err
}

// EntryFromState converts a state into its on-disk form.
func EntryFromState(state models.CollectionState) Entry {
	e := Entry{
		PremisesID:   state.PremisesID,
		LastModified: state.LastModified,
		SavedAt:      state.UpdatedAt,
		Dates:        make(map[string]string, len(models.Categories)),
		Rows:         make([]Row, 0, len(state.Rows)),
	}
	for _, c := range models.Categories {
		v := state.Dates[c]
		switch v.Kind {
		case models.Resolved:
			e.Dates[string(c)] = analyzer.DateToKey(v.Date)
		case models.NoCollection:
			e.Dates[string(c)] = valueNoCollection
		default:
			e.Dates[string(c)] = valueAwaitingData
		}
	}
	for _, r := range state.Rows {
		e.Rows = append(e.Rows, Row{Category: string(r.Category), Date: analyzer.DateToKey(r.Date)})
	}
	return e
}

// State rebuilds a collection state from a cache entry, re-resolving the
// cached rows against now so dates that have since passed drop out.
func (s *Store) State(e Entry, now time.Time) models.CollectionState {
	rows := make([]models.ScheduleRow, 0, len(e.Rows))
	for _, r := range e.Rows {
		row, err := s.parseRow(e.PremisesID, r)
		if err != nil {
			continue
		}
		rows = append(rows, row)
	}

	return models.CollectionState{
		PremisesID:   e.PremisesID,
		Dates:        analyzer.Resolve(rows, now),
		Rows:         rows,
		LastModified: e.LastModified,
		UpdatedAt:    e.SavedAt,
	}
}

func (s *Store) parseRow(premisesID string, r Row) (models.ScheduleRow, error) {
	c := models.Category(r.Category)
	if c.Code() == "" {
		return models.ScheduleRow{}, fmt.Errorf("%w: unknown category %q", errCorrupt, r.Category)
	}
	d, err := analyzer.KeyToDate(r.Date, s.loc)
	if err != nil {
		return models.ScheduleRow{}, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return models.ScheduleRow{PremisesID: premisesID, Category: c, Date: d}, nil
}
