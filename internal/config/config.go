// Package config provides configuration loading for aurkonsult.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/logger"
	"github.com/blackwell-systems/aurkonsult/internal/pacman"
)

const (
	// FileName is the YAML config file inside Dir().
	FileName = "config.yaml"

	// DefaultMini is the record limit applied by --mini without a value.
	DefaultMini = 100

	schemaName = "aurkonsult-config.schema.json"
)

//go:embed config.schema.json
var schemaJSON []byte

// Config holds the user settings. Zero values for the path fields mean
// "derive from the environment".
type Config struct {
	Extended  bool `yaml:"extended" json:"extended"`     // use packages-meta-ext-v1
	Comments  bool `yaml:"comments" json:"comments"`     // fetch comment dates in info
	History   bool `yaml:"history" json:"history"`       // fetch git history in info
	Pamac     bool `yaml:"pamac" json:"pamac"`           // suggest pamac instead of makepkg
	HomeCache bool `yaml:"home_cache" json:"home_cache"` // keep the catalog in the cache dir instead of the temp dir

	CacheDir string `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
	PacmanDB string `yaml:"pacman_db" json:"pacman_db"`
	AURURL   string `yaml:"aur_url" json:"aur_url"`
	Lang     string `yaml:"lang,omitempty" json:"lang,omitempty"`

	LookupTimeout  string `yaml:"lookup_timeout" json:"lookup_timeout"`
	FetchTimeout   string `yaml:"fetch_timeout" json:"fetch_timeout"`
	NewWindowHours int    `yaml:"new_window_hours" json:"new_window_hours"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Mini limits how many catalog records are loaded. Set from --mini or
	// the MINI environment variable, never from the file.
	Mini int `yaml:"-" json:"-"`
}

// LoggingConfig controls logging behaviour.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		PacmanDB:       pacman.DefaultDBPath,
		AURURL:         aur.DefaultBaseURL,
		LookupTimeout:  aur.DefaultLookupTimeout.String(),
		FetchTimeout:   aur.DefaultFetchTimeout.String(),
		NewWindowHours: 48,
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Dir returns the aurkonsult config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/aurkonsult if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base, err := configBase()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "aurkonsult"), nil
}

// Path returns the default YAML config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// LegacyPath returns the path of the flat key = value config file.
func LegacyPath() (string, error) {
	base, err := configBase()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "aurkonsult.conf"), nil
}

func configBase() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return base, nil
}

// Load builds the configuration: defaults, then the legacy file, then the
// YAML file at path. An empty path means Path(). Missing files are not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	legacy, err := LegacyPath()
	if err == nil {
		if err := cfg.ApplyLegacy(legacy); err != nil {
			return nil, fmt.Errorf("failed to read legacy config: %w", err)
		}
	}

	if path == "" {
		if path, err = Path(); err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// The schema sees the file as written, so unknown keys are caught
	// before decoding into Config drops them.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if raw != nil {
		doc, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to convert config to JSON: %w", err)
		}
		if err := ValidateJSON(doc); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	logger.Logger().Debugw("loaded config", "path", path)
	return cfg, nil
}

func (c *Config) validateSchema() error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to convert config to JSON: %w", err)
	}
	return ValidateJSON(doc)
}

// ValidateJSON checks a JSON document against the embedded config schema.
func ValidateJSON(data []byte) error {
	comp := jsonschema.NewCompiler()
	if err := comp.AddResource(schemaName, bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("failed to load config schema: %w", err)
	}
	sch, err := comp.Compile(schemaName)
	if err != nil {
		return fmt.Errorf("failed to compile config schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid config JSON: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("config schema validation failed: %w", err)
	}
	return nil
}

// Validate checks values the schema cannot express.
func (c *Config) Validate() error {
	if _, err := c.LookupTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.FetchTimeoutDuration(); err != nil {
		return err
	}
	if c.NewWindowHours <= 0 {
		return fmt.Errorf("new_window_hours must be greater than 0, got %d", c.NewWindowHours)
	}
	if c.Mini < 0 {
		return fmt.Errorf("mini must not be negative, got %d", c.Mini)
	}
	if _, err := c.Language(); err != nil {
		return err
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}
	c.Logging.File = strings.TrimSpace(c.Logging.File)
	c.AURURL = strings.TrimRight(c.AURURL, "/")
	return nil
}

// LookupTimeoutDuration parses lookup_timeout.
func (c *Config) LookupTimeoutDuration() (time.Duration, error) {
	return parsePositive("lookup_timeout", c.LookupTimeout)
}

// FetchTimeoutDuration parses fetch_timeout.
func (c *Config) FetchTimeoutDuration() (time.Duration, error) {
	return parsePositive("fetch_timeout", c.FetchTimeout)
}

func parsePositive(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return d, nil
}

// NewWindow is the default "new since" window used when no sync sidecar
// exists yet.
func (c *Config) NewWindow() time.Duration {
	return time.Duration(c.NewWindowHours) * time.Hour
}

// Language returns the configured language tag, or language.Und when lang
// is unset. The LANG environment variable is not consulted.
func (c *Config) Language() (language.Tag, error) {
	if c.Lang == "" {
		return language.Und, nil
	}
	tag, err := language.Parse(c.Lang)
	if err != nil {
		return language.Und, fmt.Errorf("invalid lang %q: %w", c.Lang, err)
	}
	return tag, nil
}

// DBName returns the catalog name on the AUR server.
func (c *Config) DBName() string {
	if c.Extended {
		return "packages-meta-ext-v1"
	}
	return "packages-meta-v1"
}

// CatalogURL returns the compressed catalog URL.
func (c *Config) CatalogURL() string {
	return strings.TrimRight(c.AURURL, "/") + "/" + c.DBName() + ".json.gz"
}

// ResolveCacheDir returns cache_dir, or ~/.cache when unset.
func (c *Config) ResolveCacheDir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".cache"), nil
}

// CatalogFile returns the decompressed catalog path. It lives in the temp
// directory unless home_cache is set.
func (c *Config) CatalogFile() (string, error) {
	name := c.DBName() + ".json"
	if !c.HomeCache {
		return filepath.Join(os.TempDir(), name), nil
	}
	dir, err := c.ResolveCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// MetaFile returns the sync sidecar path. It always lives in the cache
// directory so the "new since" threshold survives a cleared temp dir.
func (c *Config) MetaFile() (string, error) {
	dir, err := c.ResolveCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.DBName()+".time"), nil
}

// Target returns the sync target for the configured catalog.
func (c *Config) Target() (aur.Target, error) {
	data, err := c.CatalogFile()
	if err != nil {
		return aur.Target{}, err
	}
	meta, err := c.MetaFile()
	if err != nil {
		return aur.Target{}, err
	}
	return aur.Target{URL: c.CatalogURL(), DataFile: data, MetaFile: meta}, nil
}

// Save writes the config as YAML after validating it against the schema.
func (c *Config) Save(path string) error {
	if err := c.validateSchema(); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
