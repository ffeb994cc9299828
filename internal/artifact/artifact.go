// Package artifact persists crawl output as one JSON file per run under
// <base>/<site>/<timestamp>/<site>.json, so finished runs can be replayed
// to the broker without re-crawling.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// TimestampLayout names run directories.
const TimestampLayout = "20060102150405"

// Store reads and writes run artifacts below a base directory.
type Store struct {
	baseDir string
}

// NewStore creates a store rooted at baseDir, typically "build".
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Write persists records for one run and returns the file path.
func (s *Store) Write(site string, now time.Time, records interface{}) (string, error) {
	dir := filepath.Join(s.baseDir, site, now.Format(TimestampLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal records: %w", err)
	}

	path := filepath.Join(dir, site+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

// Read loads the records of one past run. The timestamp must match
// TimestampLayout.
func (s *Store) Read(site, timestamp string) ([]json.RawMessage, error) {
	if _, err := time.Parse(TimestampLayout, timestamp); err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
	}

	path := filepath.Join(s.baseDir, site, timestamp, site+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	return records, nil
}

// Runs lists the run timestamps available for a site, newest last.
func (s *Store) Runs(site string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, site))
	if err != nil {
		return nil, err
	}
	var runs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(TimestampLayout, e.Name()); err == nil {
			runs = append(runs, e.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// ItemType extracts the item_type tag from a raw record.
func ItemType(raw json.RawMessage) string {
	var probe struct {
		ItemType string `json:"item_type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.ItemType
}
