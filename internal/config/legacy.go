package config

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/blackwell-systems/aurkonsult/internal/logger"
)

// legacyKeys maps keys of the flat config file onto Config fields.
var legacyKeys = map[string]func(*Config) *bool{
	"extended":  func(c *Config) *bool { return &c.Extended },
	"comment":   func(c *Config) *bool { return &c.Comments },
	"comments":  func(c *Config) *bool { return &c.Comments },
	"history":   func(c *Config) *bool { return &c.History },
	"pamac":     func(c *Config) *bool { return &c.Pamac },
	"homecache": func(c *Config) *bool { return &c.HomeCache },
}

// ParseLegacy reads a flat "key = value" file. Values 1 and True (any case)
// are true, 0 and False are false. Anything else is kept as a string and
// ignored by ApplyLegacy. Blank lines, comments and lines without "=" are
// skipped.
func ParseLegacy(r io.Reader) (map[string]string, error) {
	values := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip blank lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue // no "=" or "=" is first character
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}

		values[key] = value
	}

	if err := scanner.Err(); err != nil {
		return values, err
	}
	return values, nil
}

// legacyBool interprets a legacy value. ok is false for anything that is
// not one of the recognised spellings.
func legacyBool(value string) (b, ok bool) {
	switch strings.ToLower(value) {
	case "1", "true":
		return true, true
	case "0", "false":
		return false, true
	}
	return false, false
}

// ApplyLegacy overlays the flat config file at path onto c. A missing file
// is not an error.
func (c *Config) ApplyLegacy(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	values, err := ParseLegacy(f)
	if err != nil {
		return err
	}

	for key, value := range values {
		field, known := legacyKeys[key]
		if !known {
			logger.Logger().Debugw("ignoring unknown legacy config key", "key", key, "path", path)
			continue
		}
		b, ok := legacyBool(value)
		if !ok {
			logger.Logger().Warnw("ignoring non-boolean legacy config value", "key", key, "value", value)
			continue
		}
		*field(c) = b
	}
	return nil
}
