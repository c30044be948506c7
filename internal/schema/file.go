package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type schemaFile struct {
	Channels []ChannelDefinition `toml:"channel" yaml:"channels"`
}

// LoadFile reads a channel table from a .toml ([[channel]] tables) or
// .yaml/.yml (channels: list) file and validates it.
func LoadFile(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var f schemaFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(raw), &f); err != nil {
			return nil, fmt.Errorf("decode schema file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("decode schema file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("schema file %s: unsupported extension %q", path, ext)
	}

	if len(f.Channels) == 0 {
		return nil, fmt.Errorf("schema file %s: no channels defined", path)
	}
	return New(f.Channels)
}
