package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/symtree"
)

// DefaultPath is where the CLI looks for a config file when none is given.
const DefaultPath = "bloat-analyzer.toml"

// Config is the on-disk configuration. Every field has a usable default.
type Config struct {
	Analysis Analysis `toml:"analysis"`
	Server   Server   `toml:"server"`
	Watch    Watch    `toml:"watch"`
}

// Analysis holds report defaults shared by the CLI and the MCP tools.
type Analysis struct {
	TopN         int      `toml:"top_n"`
	OutputFormat string   `toml:"output_format"`
	MinSize      int64    `toml:"min_size"`
	Categories   []string `toml:"categories"`
	Search       string   `toml:"search"`
	PathPattern  string   `toml:"path_pattern"`
	MaxDepth     int      `toml:"max_depth"` // 0 means unlimited
}

type Server struct {
	Name             string `toml:"name"`
	Version          string `toml:"version"`
	PprofHTTPAddress string `toml:"pprof_http_address"`
}

type Watch struct {
	DebounceMS int `toml:"debounce_ms"`
}

var validFormats = []string{"text", "markdown", "json", "flamegraph-json"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Analysis: Analysis{
			TopN:         5,
			OutputFormat: "text",
		},
		Server: Server{
			Name:             "BloatAnalyzer",
			Version:          "0.1.0",
			PprofHTTPAddress: ":8081",
		},
		Watch: Watch{DebounceMS: 200},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Analysis.TopN <= 0 {
		errs = append(errs, fmt.Errorf("analysis.top_n must be positive, got %d", c.Analysis.TopN))
	}
	if !isValidFormat(c.Analysis.OutputFormat) {
		errs = append(errs, fmt.Errorf("analysis.output_format must be one of %s, got %q",
			strings.Join(validFormats, ", "), c.Analysis.OutputFormat))
	}
	if c.Analysis.MinSize < 0 {
		errs = append(errs, fmt.Errorf("analysis.min_size must not be negative"))
	}
	if c.Analysis.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("analysis.max_depth must not be negative"))
	}
	if _, err := c.FilterState(); err != nil {
		errs = append(errs, err)
	}
	if c.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce_ms must not be negative"))
	}
	return errors.Join(errs...)
}

// FilterState converts the analysis section into a symtree filter state.
func (c *Config) FilterState() (symtree.FilterState, error) {
	cats, err := ParseCategories(c.Analysis.Categories)
	if err != nil {
		return symtree.FilterState{}, err
	}
	return symtree.FilterState{
		MinSize:     c.Analysis.MinSize,
		Categories:  cats,
		Search:      c.Analysis.Search,
		PathPattern: c.Analysis.PathPattern,
	}, nil
}

// BuildOptions returns the tree build options.
func (c *Config) BuildOptions() symtree.Options {
	return symtree.Options{MaxDepth: c.Analysis.MaxDepth}
}

// Debounce is the watch debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// ParseCategories maps category names to values, skipping blanks.
func ParseCategories(names []string) ([]symtree.Category, error) {
	var cats []symtree.Category
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		c, ok := symtree.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

// SplitList splits a comma-separated flag or tool argument.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isValidFormat(f string) bool {
	for _, v := range validFormats {
		if v == f {
			return true
		}
	}
	return false
}
