package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LocalConfig is the subset of config.yaml read straight from a data
// directory, bypassing the viper singleton. Used by init and by commands
// that open a data directory other than the discovered one.
type LocalConfig struct {
	Backend string       `yaml:"backend"`
	Prefix  string       `yaml:"prefix"`
	Dolt    LocalDolt    `yaml:"dolt"`
	List    LocalListing `yaml:"list"`
}

// LocalDolt holds dolt sql-server connection settings.
type LocalDolt struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Database   string `yaml:"database"`
	AutoCommit *bool  `yaml:"auto-commit"`
}

// LocalListing holds list command defaults.
type LocalListing struct {
	Sort string `yaml:"sort"`
}

// LoadLocalConfig reads config.yaml from dataDir.
// Returns an empty LocalConfig (not nil) if the file doesn't exist or can't be parsed.
func LoadLocalConfig(dataDir string) *LocalConfig {
	data, err := os.ReadFile(filepath.Join(dataDir, ConfigFileName)) // #nosec G304 - path from data dir
	if err != nil {
		return &LocalConfig{}
	}
	var cfg LocalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &LocalConfig{}
	}
	return &cfg
}

// SetLocalValue writes a dotted key into dataDir/config.yaml, creating the
// file if needed. Comments and unrelated keys are preserved.
func SetLocalValue(dataDir, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("config key is required")
	}
	path := filepath.Join(dataDir, ConfigFileName)

	var doc yaml.Node
	data, err := os.ReadFile(path) // #nosec G304 - path from data dir
	switch {
	case err == nil && len(strings.TrimSpace(string(data))) > 0:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case err != nil && !os.IsNotExist(err):
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: top level must be a mapping", path)
	}

	parts := strings.Split(key, ".")
	node := root
	for i, part := range parts {
		child := lookup(node, part)
		last := i == len(parts)-1
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode}
			if last {
				child = &yaml.Node{Kind: yaml.ScalarNode}
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: part}, child)
		}
		if last {
			child.Kind = yaml.ScalarNode
			child.Tag = ""
			child.Content = nil
			child.Value = value
			break
		}
		if child.Kind != yaml.MappingNode {
			return fmt.Errorf("config key %q: %q is not a section", key, part)
		}
		node = child
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dataDir, err)
	}
	return os.WriteFile(path, out, 0o600)
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}
