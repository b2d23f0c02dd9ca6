// Package settings is the runtime key-value store shared by the CLI and the
// daemon. Values live in a flat YAML map keyed by dotted names.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/grovetools/proctrack/pkg/paths"
	"gopkg.in/yaml.v3"
)

const (
	KeyInitialDelay     = "tracking.initial_delay"
	KeyRecurringDelay   = "tracking.recurring_delay"
	KeyRecording        = "tracking.recording"
	KeyLatestTitleCount = "statistics.latest_title_count"

	filterPrefix = "filters."
)

// Settings is one loaded copy of the store.
type Settings map[string]interface{}

// Store reads and writes the settings file and notifies subscribers of changes.
type Store struct {
	path string

	mu          sync.Mutex
	nextID      int
	subscribers map[int]func(Settings)
}

// Open returns a store backed by path, or by the default settings file when
// path is empty. The file is created lazily on the first write.
func Open(path string) *Store {
	if path == "" {
		path = paths.SettingsPath()
	}
	return &Store{path: path, subscribers: make(map[int]func(Settings))}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file. A missing file yields empty settings.
func (s *Store) Load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(Settings), nil
		}
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var st Settings
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	if st == nil {
		st = make(Settings)
	}
	return st, nil
}

// Save writes the settings atomically and notifies subscribers.
func (s *Store) Save(st Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.yml")
	if err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings file: %w", err)
	}

	s.notify(st)
	return nil
}

// Get retrieves a value by key.
func (s *Store) Get(key string) (interface{}, bool, error) {
	st, err := s.Load()
	if err != nil {
		return nil, false, err
	}
	val, ok := st[key]
	return val, ok, nil
}

// Set validates and stores a value.
func (s *Store) Set(key string, value interface{}) error {
	if err := Validate(key, value); err != nil {
		return err
	}
	st, err := s.Load()
	if err != nil {
		return err
	}
	st[key] = value
	return s.Save(st)
}

// Delete removes a key.
func (s *Store) Delete(key string) error {
	st, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := st[key]; !ok {
		return nil
	}
	delete(st, key)
	return s.Save(st)
}

// Subscribe registers fn for every saved or reloaded version of the settings
// and returns a function that removes it.
func (s *Store) Subscribe(fn func(Settings)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Reload re-reads the file, typically after another process changed it,
// and notifies subscribers.
func (s *Store) Reload() (Settings, error) {
	st, err := s.Load()
	if err != nil {
		return nil, err
	}
	s.notify(st)
	return st, nil
}

func (s *Store) notify(st Settings) {
	s.mu.Lock()
	fns := make([]func(Settings), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// Float returns a numeric value or def.
func (st Settings) Float(key string, def float64) float64 {
	switch v := st[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Int returns an integer value or def.
func (st Settings) Int(key string, def int) int {
	switch v := st[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// Bool returns a boolean value or def.
func (st Settings) Bool(key string, def bool) bool {
	switch v := st[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Seconds reads a value in (possibly fractional) seconds as a duration.
// Non-positive values fall back to def.
func (st Settings) Seconds(key string, def time.Duration) time.Duration {
	f := st.Float(key, -1)
	if f <= 0 {
		return def
	}
	return time.Duration(f * float64(time.Second))
}

// Filters returns the stored per-group statistics filters.
func (st Settings) Filters() map[int64]models.StatisticsFilter {
	out := make(map[int64]models.StatisticsFilter)
	for key := range st {
		if !strings.HasPrefix(key, filterPrefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(key, filterPrefix), ".", 2)
		if len(parts) != 2 {
			continue
		}
		groupID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			continue
		}
		f := out[groupID]
		switch parts[1] {
		case "query":
			if v := st[key]; v != nil {
				f.Query = fmt.Sprint(v)
			}
		case "from":
			f.From = int64(st.Float(key, 0))
		case "to":
			f.To = int64(st.Float(key, 0))
		default:
			continue
		}
		out[groupID] = f
	}
	return out
}

// FilterKey returns the settings key of one filter field of a group.
func FilterKey(groupID int64, field string) string {
	return fmt.Sprintf("%s%d.%s", filterPrefix, groupID, field)
}

// ParseValue converts a command-line string into a YAML scalar: booleans and
// numbers become typed values, anything else stays a string.
func ParseValue(raw string) interface{} {
	var v interface{}
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case bool, int, float64, string:
		return v
	default:
		return raw
	}
}

// Validate checks values for the keys the tracker understands.
func Validate(key string, value interface{}) error {
	st := Settings{key: value}
	switch {
	case key == KeyInitialDelay || key == KeyRecurringDelay:
		if st.Float(key, -1) <= 0 {
			return invalid(key, value, "must be a positive number of seconds")
		}
	case key == KeyRecording:
		if _, ok := value.(bool); !ok {
			return invalid(key, value, "must be true or false")
		}
	case key == KeyLatestTitleCount:
		if st.Int(key, -1) < 0 {
			return invalid(key, value, "must be a non-negative integer")
		}
	case strings.HasPrefix(key, filterPrefix):
		parts := strings.SplitN(strings.TrimPrefix(key, filterPrefix), ".", 2)
		if len(parts) != 2 {
			return invalid(key, value, "expected filters.<groupId>.<query|from|to>")
		}
		if _, err := strconv.ParseInt(parts[0], 10, 64); err != nil {
			return invalid(key, value, "group id must be numeric")
		}
		switch parts[1] {
		case "query":
		case "from", "to":
			if st.Float(key, -1) < 0 {
				return invalid(key, value, "must be epoch milliseconds")
			}
		default:
			return invalid(key, value, "expected filters.<groupId>.<query|from|to>")
		}
	}
	return nil
}

func invalid(key string, value interface{}, reason string) error {
	return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("invalid value for %s: %s", key, reason)).
		WithDetail("key", key).
		WithDetail("value", value)
}
