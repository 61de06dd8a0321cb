// Package config loads the optional vhdlfront.toml configuration file:
// tree/graph output indent width, reserved-word overrides, and the build
// cache path. A small, flat toml document decoded with
// github.com/BurntSushi/toml.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the decoded contents of a vhdlfront.toml file. Every field has a
// usable zero value, so a missing file (or a file that sets nothing) leaves
// every CLI flag's own default in effect.
type Config struct {
	// Indent is the tree/graph pretty-printer's indent width in spaces.
	// Zero means "use the flag default".
	Indent int `toml:"indent"`

	// CachePath is the build cache's sqlite file, used as a fallback when
	// --cache is not given on the command line.
	CachePath string `toml:"cache_path"`

	// ReservedWords lets a project extend or override the lexer's reserved
	// word table, keyed by the lowercase-folded lexeme and mapped to the
	// bare name of an existing keyword (e.g. "UNTIL") it should lex as.
	// Values that name no keyword are ignored.
	ReservedWords map[string]string `toml:"reserved_words"`
}

// Load decodes the toml file at path into a Config. A nonexistent path is
// not an error; Load returns a zero Config so callers can treat "--config"
// as always-safe to pass even when the file hasn't been created yet.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	_, err := toml.DecodeFile(path, &cfg)
	return cfg, err
}

// IndentOr returns cfg's configured indent, or fallback if none was set.
func (cfg Config) IndentOr(fallback int) int {
	if cfg.Indent > 0 {
		return cfg.Indent
	}
	return fallback
}

// CachePathOr returns cfg's configured cache path, or fallback if none was
// set.
func (cfg Config) CachePathOr(fallback string) string {
	if cfg.CachePath != "" {
		return cfg.CachePath
	}
	return fallback
}
