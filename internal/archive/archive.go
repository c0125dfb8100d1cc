// Package archive keeps the raw feed text in per-country, per-day
// files under the data directory.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const headerTimeLayout = "2006-01-02 15:04:05"

// Entry headers look like: --- @channel @ YYYY-MM-DD HH:MM:SS ---
var headerRE = regexp.MustCompile(`(?m)^---\s*(.+?)\s*@\s*(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\s*---\s*$`)

type block struct {
	title   string
	dt      time.Time
	content string
}

// parseBlocks splits archive text into the prefix before the first
// header (weather and exchange notes) and one block per entry header,
// each block running up to the next header.
func parseBlocks(text string) (string, []block, error) {
	locs := headerRE.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text, nil, nil
	}
	prefix := text[:locs[0][0]]
	blocks := make([]block, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		dt, err := time.Parse(headerTimeLayout, text[loc[4]:loc[5]])
		if err != nil {
			return "", nil, fmt.Errorf("failed to parse entry timestamp: %w", err)
		}
		blocks = append(blocks, block{
			title:   strings.TrimSpace(text[loc[2]:loc[3]]),
			dt:      dt,
			content: text[loc[0]:end],
		})
	}
	return prefix, blocks, nil
}

// Store is the TXT persistence layer, one file per country and day:
// data/<country>/YYYY-MM-DD.txt
type Store struct {
	base string
}

// NewStore creates the data directory if needed.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &Store{base: dataDir}, nil
}

func (s *Store) countryDir(country string) (string, error) {
	dir := filepath.Join(s.base, strings.ToLower(country))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create country dir: %w", err)
	}
	return dir, nil
}

// AppendEntry appends one entry to the day file and returns its path.
// The timestamp is written as given; the body is trimmed.
func (s *Store) AppendEntry(country, day, title, dt, text string) (string, error) {
	dir, err := s.countryDir(country)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, day+".txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open archive file: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "--- %s @ %s ---\n%s\n\n", title, dt, strings.TrimSpace(text)); err != nil {
		return "", fmt.Errorf("failed to append entry: %w", err)
	}
	return path, nil
}

// ReadDay returns the raw text of one day file, or "" when the country
// has no file for that day.
func (s *Store) ReadDay(country, day string) (string, error) {
	dir, err := s.countryDir(country)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(dir, day+".txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read archive file: %w", err)
	}
	return string(data), nil
}

// ReadRecent concatenates the files for the given days, each preceded
// by a banner line. Days without a file are skipped.
func (s *Store) ReadRecent(country string, days []string) (string, error) {
	dir, err := s.countryDir(country)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	for _, day := range days {
		data, err := os.ReadFile(filepath.Join(dir, day+".txt"))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("failed to read archive file: %w", err)
		}
		fmt.Fprintf(&buf, "\n===== %s :: %s =====\n", strings.ToUpper(country), day)
		buf.Write(data)
	}
	return buf.String(), nil
}

// LatestFile returns the path of the newest day file for the country,
// or "" when the country has no files yet.
func (s *Store) LatestFile(country string) (string, error) {
	dir, err := s.countryDir(country)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list country dir: %w", err)
	}
	var latest string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		if e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return "", nil
	}
	return filepath.Join(dir, latest), nil
}

// Reorder rewrites an archive file with its entries sorted by entry
// time, then by lowercased title, keeping the prefix text untouched.
// The sort is stable, so ties keep their append order.
func (s *Store) Reorder(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read archive file: %w", err)
	}
	prefix, blocks, err := parseBlocks(string(data))
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return nil
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		if !blocks[i].dt.Equal(blocks[j].dt) {
			return blocks[i].dt.Before(blocks[j].dt)
		}
		return strings.ToLower(blocks[i].title) < strings.ToLower(blocks[j].title)
	})
	var buf strings.Builder
	buf.WriteString(prefix)
	for _, b := range blocks {
		buf.WriteString(b.content)
	}
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("failed to rewrite archive file: %w", err)
	}
	return nil
}
