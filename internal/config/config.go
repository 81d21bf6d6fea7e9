// Package config defines the declarative rule source registry and the
// resolved directory layout shared by every pipeline command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zen-li/sing-box-rules/internal/rules"
)

// File names of the generated documents, relative to Paths.Reports.
const (
	BuildReportFile      = "build-report.json"
	ValidationReportFile = "validation-report.json"
	MetadataFile         = "metadata.json"
	VersionFile          = "version.json"
	ManifestFile         = "manifest.json"
)

// RuleSource binds one source file to a rule type and an output artifact.
type RuleSource struct {
	Source string     `yaml:"source" json:"source"`
	Type   rules.Type `yaml:"type" json:"type"`
	Output string     `yaml:"output" json:"output"`
}

// Name returns the artifact base name without extension.
func (r RuleSource) Name() string {
	return strings.TrimSuffix(r.Output, filepath.Ext(r.Output))
}

// Paths holds the directory layout, resolved once at startup and passed
// down so no component guesses at the working directory.
type Paths struct {
	Sources   string `yaml:"sources"`
	Templates string `yaml:"templates"`
	Output    string `yaml:"output"`
	Scratch   string `yaml:"scratch"`
	Reports   string `yaml:"reports"`
}

// Compiler names the external rule-set compiler binary.
type Compiler struct {
	Bin string `yaml:"bin"`
}

// Config is the full pipeline configuration.
type Config struct {
	Paths    Paths        `yaml:"paths"`
	Compiler Compiler     `yaml:"compiler"`
	Sources  []RuleSource `yaml:"sources"`
}

// Default returns the built-in configuration: the static seven-source
// registry and the conventional repository layout.
func Default() *Config {
	return &Config{
		Paths: Paths{
			Sources:   "sources",
			Templates: "templates",
			Output:    "rules",
			Scratch:   ".scratch",
			Reports:   ".",
		},
		Compiler: Compiler{Bin: "sing-box"},
		Sources: []RuleSource{
			{Source: "direct-domains.txt", Type: rules.TypeDomainSuffix, Output: "direct-domains.srs"},
			{Source: "proxy-domains.txt", Type: rules.TypeDomainSuffix, Output: "proxy-domains.srs"},
			{Source: "block-domains.txt", Type: rules.TypeDomainSuffix, Output: "block-domains.srs"},
			{Source: "direct-ip.txt", Type: rules.TypeIPCIDR, Output: "direct-ip.srs"},
			{Source: "proxy-ip.txt", Type: rules.TypeIPCIDR, Output: "proxy-ip.srs"},
			{Source: "direct-process.txt", Type: rules.TypeProcessName, Output: "direct-process.srs"},
			{Source: "proxy-process.txt", Type: rules.TypeProcessName, Output: "proxy-process.srs"},
		},
	}
}

// Load returns the default configuration overlaid with the YAML file at
// path. Absent keys keep their defaults; a present sources list replaces
// the registry wholesale.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for i, src := range c.Sources {
		if src.Source == "" || src.Type == "" || src.Output == "" {
			return fmt.Errorf("sources[%d]: source, type and output are all required", i)
		}
	}
	return nil
}

// SourcePath resolves the source file path for src.
func (c *Config) SourcePath(src RuleSource) string {
	return filepath.Join(c.Paths.Sources, src.Source)
}

// OutputPath resolves the binary artifact path for src.
func (c *Config) OutputPath(src RuleSource) string {
	return filepath.Join(c.Paths.Output, src.Output)
}

// FallbackPath resolves the JSON artifact path written when compilation
// fails for src.
func (c *Config) FallbackPath(src RuleSource) string {
	return filepath.Join(c.Paths.Output, src.Name()+".json")
}

// ReportPath resolves a generated document path by file name.
func (c *Config) ReportPath(name string) string {
	return filepath.Join(c.Paths.Reports, name)
}
