package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"opsintel/internal/parser"
	"opsintel/models"
)

// FileSource reads feed text dropped on disk, either a single file or
// every .txt file in a directory.
type FileSource struct {
	name string
	pais string
	path string
}

func NewFileSource(cfg SourceConfig) *FileSource {
	return &FileSource{name: cfg.Name, pais: cfg.Pais, path: cfg.Path}
}

func (s *FileSource) Name() string {
	return s.name
}

func (s *FileSource) Fetch(ctx context.Context) ([]models.RawFeed, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat feed path: %w", err)
	}

	paths := []string{s.path}
	if info.IsDir() {
		entries, err := os.ReadDir(s.path)
		if err != nil {
			return nil, fmt.Errorf("failed to list feed directory: %w", err)
		}
		paths = paths[:0]
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
				continue
			}
			paths = append(paths, filepath.Join(s.path, entry.Name()))
		}
	}

	var out []models.RawFeed
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return out, fmt.Errorf("failed to read feed file: %w", err)
		}
		out = append(out, s.split(p, string(data))...)
	}
	return out, nil
}

// split turns one dropped file into entries. Files already carrying
// channel headers keep them, headerless files become a single entry
// named after the file.
func (s *FileSource) split(path, text string) []models.RawFeed {
	entries := parser.ParseFeed(text)
	if len(entries) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []models.RawFeed{{
			Source:    s.name,
			Pais:      s.pais,
			Channel:   "TXT " + filepath.Base(path),
			FetchedAt: time.Now(),
			Text:      trimmed,
		}}
	}

	out := make([]models.RawFeed, 0, len(entries))
	for _, entry := range entries {
		body := strings.TrimSpace(entry.Body)
		if body == "" {
			continue
		}
		when := entry.Datetime
		if when.IsZero() {
			when = time.Now()
		}
		out = append(out, models.RawFeed{
			Source:    s.name,
			Pais:      s.pais,
			Channel:   entry.Channel,
			FetchedAt: when,
			Text:      body,
		})
	}
	return out
}
