package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FileName is the history document inside the hubcap config directory
const FileName = "plugin_history.json"

// RunStats are the persisted counters for one plugin
type RunStats struct {
	Successes  uint64     `json:"successes"`
	Failures   uint64     `json:"failures"`
	LastRun    *time.Time `json:"last_run"`
	LastStatus *string    `json:"last_status"`
}

// TotalRuns returns successes plus failures
func (s RunStats) TotalRuns() uint64 {
	return s.Successes + s.Failures
}

// Store persists per-plugin run statistics as a single JSON document.
// Records are loaded lazily on first use and the whole document is rewritten
// after every recorded run.
type Store struct {
	path    string
	mu      sync.Mutex
	loaded  bool
	records map[string]RunStats
	now     func() time.Time
	log     *logrus.Logger
}

// NewStore creates a store backed by path. An empty path keeps history in
// memory only.
func NewStore(path string, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{
		path:    path,
		records: make(map[string]RunStats),
		now:     time.Now,
		log:     log,
	}
}

// Open creates a store at DefaultPath
func Open(log *logrus.Logger) *Store {
	path, err := DefaultPath()
	if err != nil {
		if log != nil {
			log.WithError(err).Warn("No user config directory, plugin history will not be saved")
		}
		path = ""
	}
	return NewStore(path, log)
}

// DefaultPath returns <user config dir>/hubcap/plugin_history.json
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "hubcap", FileName), nil
}

// Path returns the backing file, empty for in-memory stores
func (s *Store) Path() string {
	return s.path
}

// RecordSuccess counts a successful run and clears the last status
func (s *Store) RecordSuccess(name string) error {
	return s.record(name, true, nil)
}

// RecordFailure counts a failed run and stores message as the last status
func (s *Store) RecordFailure(name, message string) error {
	return s.record(name, false, &message)
}

func (s *Store) record(name string, success bool, status *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded()

	stats := s.records[name]
	if success {
		stats.Successes++
	} else {
		stats.Failures++
	}

	now := s.now().UTC()
	if stats.LastRun != nil && now.Before(*stats.LastRun) {
		now = *stats.LastRun
	}
	stats.LastRun = &now
	stats.LastStatus = status
	s.records[name] = stats

	return s.save()
}

// StatsFor returns a copy of one plugin's stats
func (s *Store) StatsFor(name string) (RunStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded()
	stats, ok := s.records[name]
	return stats, ok
}

// All returns a copy of every record
func (s *Store) All() map[string]RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded()
	result := make(map[string]RunStats, len(s.records))
	for name, stats := range s.records {
		result[name] = stats
	}
	return result
}

// Names returns recorded plugin names in sorted order
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded()
	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ensureLoaded reads the document once. A missing or unreadable file starts
// an empty history. Callers hold s.mu.
func (s *Store) ensureLoaded() {
	if s.loaded {
		return
	}
	s.loaded = true

	if s.path == "" {
		return
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.WithError(err).Warnf("Failed to read plugin history %s, starting empty", s.path)
		}
		return
	}

	var records map[string]RunStats
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.WithError(err).Warnf("Ignoring corrupt plugin history %s", s.path)
		return
	}
	if records != nil {
		s.records = records
	}
}

// save writes the document to a temp file and renames it over the target
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plugin history: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write plugin history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write plugin history: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace plugin history: %w", err)
	}
	return nil
}
