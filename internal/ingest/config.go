package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultRatePerMinute = 30
	defaultMaxMessages   = 100
	defaultMaxPages      = 1
	defaultMinContentLen = 120
)

// SourcesConfig is the collector configuration loaded from YAML. The
// defaults block fills in whatever individual sources leave out.
type SourcesConfig struct {
	Defaults Defaults       `yaml:"defaults"`
	Sources  []SourceConfig `yaml:"sources"`
}

type Defaults struct {
	Pais          string  `yaml:"pais"`
	RatePerMinute float64 `yaml:"rate_per_minute"`
}

// SourceConfig describes one collector source. Which fields apply
// depends on the type: path for file, urls for rss, brokers and topic
// for kafka, pages for web.
type SourceConfig struct {
	Name        string       `yaml:"name"`
	Type        string       `yaml:"type"`
	Pais        string       `yaml:"pais"`
	Path        string       `yaml:"path"`
	URLs        []string     `yaml:"urls"`
	Brokers     []string     `yaml:"brokers"`
	Topic       string       `yaml:"topic"`
	Group       string       `yaml:"group"`
	MaxMessages int          `yaml:"max_messages"`
	Pages       []PageConfig `yaml:"pages"`
}

// PageConfig is one web start page. Render switches the scrape to a
// headless browser for script-heavy sites.
type PageConfig struct {
	URL           string `yaml:"url"`
	Render        bool   `yaml:"render"`
	MaxPages      int    `yaml:"max_pages"`
	MinContentLen int    `yaml:"min_content_len"`
}

// LoadSourcesConfig reads and validates the sources file at path.
func LoadSourcesConfig(path string) (*SourcesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources config: %w", err)
	}
	return ParseSourcesConfig(data)
}

// ParseSourcesConfig parses raw YAML, applies defaults and rejects
// incomplete source entries.
func ParseSourcesConfig(data []byte) (*SourcesConfig, error) {
	var cfg SourcesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse sources config: %w", err)
	}
	if cfg.Defaults.RatePerMinute <= 0 {
		cfg.Defaults.RatePerMinute = defaultRatePerMinute
	}
	for i := range cfg.Sources {
		sc := &cfg.Sources[i]
		if sc.Name == "" {
			return nil, fmt.Errorf("source %d has no name", i)
		}
		if sc.Pais == "" {
			sc.Pais = cfg.Defaults.Pais
		}
		if sc.Pais == "" {
			return nil, fmt.Errorf("source %q has no pais and no default is set", sc.Name)
		}
		switch sc.Type {
		case "file":
			if sc.Path == "" {
				return nil, fmt.Errorf("file source %q has no path", sc.Name)
			}
		case "rss":
			if len(sc.URLs) == 0 {
				return nil, fmt.Errorf("rss source %q has no urls", sc.Name)
			}
		case "kafka":
			if len(sc.Brokers) == 0 || sc.Topic == "" {
				return nil, fmt.Errorf("kafka source %q needs brokers and a topic", sc.Name)
			}
			if sc.MaxMessages <= 0 {
				sc.MaxMessages = defaultMaxMessages
			}
		case "web":
			if len(sc.Pages) == 0 {
				return nil, fmt.Errorf("web source %q has no pages", sc.Name)
			}
			for j := range sc.Pages {
				page := &sc.Pages[j]
				if page.URL == "" {
					return nil, fmt.Errorf("web source %q page %d has no url", sc.Name, j)
				}
				if page.MaxPages <= 0 {
					page.MaxPages = defaultMaxPages
				}
				if page.MinContentLen <= 0 {
					page.MinContentLen = defaultMinContentLen
				}
			}
		default:
			return nil, fmt.Errorf("source %q has unknown type %q", sc.Name, sc.Type)
		}
	}
	return &cfg, nil
}
