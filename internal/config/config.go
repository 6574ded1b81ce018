package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional finddupes configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
}

// DefaultsConfig holds persistent flag defaults. Every field is a pointer
// so an absent key leaves the built-in default alone.
type DefaultsConfig struct {
	Recurse      *bool    `toml:"recurse"`
	Symlinks     *bool    `toml:"symlinks"`
	Hardlinks    *bool    `toml:"hardlinks"`
	NoEmpty      *bool    `toml:"noempty"`
	Verify       *bool    `toml:"verify"`
	Workers      *int     `toml:"workers"`
	Separator    *string  `toml:"separator"`
	SetSeparator *string  `toml:"setseparator"`
	MinSize      *string  `toml:"min_size"`
	MaxSize      *string  `toml:"max_size"`
	BWLimit      *string  `toml:"bwlimit"`
	Exclude      []string `toml:"exclude"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "finddupes", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	cfg, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	return cfg, err
}

// LoadFile reads the config at path. Unknown keys are rejected so a typo
// does not silently fall back to a default.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}
