package utils

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ruinedyourlife/gluematch/utils/graph"
)

// Config is the on-disk tool configuration. Command line flags override
// whatever the file sets.
type Config struct {
	Workers    int      `yaml:"workers"`
	LogLevel   string   `yaml:"log_level"`
	MaxRounds  int      `yaml:"max_rounds"`
	Steps      []string `yaml:"steps"`
	ServerSide string   `yaml:"server_side"`

	Namespaces NamespaceConfig `yaml:"namespaces"`
	UIDPrefix  PrefixConfig    `yaml:"uid_prefix"`
	Exclude    ExcludeConfig   `yaml:"exclude"`
	Mappings   MappingsConfig  `yaml:"mappings"`
}

type NamespaceConfig struct {
	Glue   string `yaml:"glue"`
	Server string `yaml:"server"`
	Client string `yaml:"client"`
}

type PrefixConfig struct {
	Class  string `yaml:"class"`
	Method string `yaml:"method"`
	Field  string `yaml:"field"`
}

// ExcludeConfig lists class name patterns per side that never get a UID.
type ExcludeConfig struct {
	A []string `yaml:"a"`
	B []string `yaml:"b"`
}

type MappingsConfig struct {
	Format     string `yaml:"format"`
	Compressed bool   `yaml:"compressed"`
}

func DefaultConfig() Config {
	return Config{
		Workers:    0,
		LogLevel:   "info",
		MaxRounds:  64,
		ServerSide: "a",
		Namespaces: NamespaceConfig{
			Glue:   "glue",
			Server: "server",
			Client: "client",
		},
		UIDPrefix: PrefixConfig{
			Class:  "class_",
			Method: "method_",
			Field:  "field_",
		},
		Mappings: MappingsConfig{
			Format: "v1",
		},
	}
}

// LoadConfig reads path over the defaults. An empty path or a missing file
// yields the defaults. GLUEMATCH_WORKERS and GLUEMATCH_LOG_LEVEL override
// the file.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return config, fmt.Errorf("load config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return config, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("GLUEMATCH_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Workers = i
		}
	}
	if v := os.Getenv("GLUEMATCH_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.MaxRounds < 1 {
		errs = append(errs, fmt.Errorf("max_rounds must be positive, got %d", c.MaxRounds))
	}
	if _, err := c.Server(); err != nil {
		errs = append(errs, err)
	}
	switch c.Mappings.Format {
	case "v1", "v2":
	default:
		errs = append(errs, fmt.Errorf("mappings.format must be v1 or v2, got %q", c.Mappings.Format))
	}

	ns := c.Namespaces
	if ns.Glue == "" || ns.Server == "" || ns.Client == "" {
		errs = append(errs, errors.New("namespaces must all be set"))
	} else if ns.Glue == ns.Server || ns.Glue == ns.Client || ns.Server == ns.Client {
		errs = append(errs, errors.New("namespaces must be distinct"))
	}
	if c.UIDPrefix.Class == "" || c.UIDPrefix.Method == "" || c.UIDPrefix.Field == "" {
		errs = append(errs, errors.New("uid_prefix entries must all be set"))
	}

	for _, pattern := range append(append([]string(nil), c.Exclude.A...), c.Exclude.B...) {
		if strings.HasPrefix(pattern, "@") {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("exclude pattern %q: %w", pattern, err))
		}
	}
	return errors.Join(errs...)
}

// Server returns the side holding the server compilation.
func (c Config) Server() (graph.Side, error) {
	var side graph.Side
	if err := side.UnmarshalText([]byte(c.ServerSide)); err != nil {
		return side, fmt.Errorf("server_side: %w", err)
	}
	return side, nil
}
