// Package metadata generates the metadata, version and manifest documents
// describing sources, build artifacts and repository state.
package metadata

import (
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zen-li/sing-box-rules/internal/config"
	"github.com/zen-li/sing-box-rules/internal/fsutil"
	"github.com/zen-li/sing-box-rules/internal/rules"
	"github.com/zen-li/sing-box-rules/internal/ruleset"
)

// Artifact forms recorded in output entries.
const (
	FormBinary = "binary"
	FormJSON   = "json-fallback"
)

// RuleStats summarizes validation counts for one source file.
type RuleStats struct {
	Total     int `json:"total"`
	Valid     int `json:"valid"`
	Invalid   int `json:"invalid"`
	Duplicate int `json:"duplicate"`
}

// SourceInfo describes one configured rule source file.
type SourceInfo struct {
	File     string     `json:"file"`
	Type     string     `json:"type"`
	Exists   bool       `json:"exists"`
	Size     int64      `json:"size,omitempty"`
	Modified string     `json:"modified,omitempty"`
	Checksum string     `json:"checksum,omitempty"`
	Stats    *RuleStats `json:"stats,omitempty"`
}

// OutputInfo describes one build artifact slot. When the binary artifact is
// absent the JSON fallback is reported in its place.
type OutputInfo struct {
	File     string `json:"file"`
	Exists   bool   `json:"exists"`
	Form     string `json:"form,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Checksum string `json:"checksum,omitempty"`
}

// Counts aggregates the snapshot totals.
type Counts struct {
	Sources    int `json:"sources"`
	Outputs    int `json:"outputs"`
	TotalRules int `json:"totalRules"`
	ValidRules int `json:"validRules"`
}

// Document is the full metadata snapshot. Sources and Outputs are aligned
// with the registry order.
type Document struct {
	GeneratedAt string       `json:"generatedAt"`
	Repository  RepoState    `json:"repository"`
	Sources     []SourceInfo `json:"sources"`
	Outputs     []OutputInfo `json:"outputs"`
	Counts      Counts       `json:"counts"`
}

// VersionDoc is the condensed per-build version document.
type VersionDoc struct {
	BuildTime string  `json:"buildTime"`
	Commit    *string `json:"commit"`
	Counts    Counts  `json:"counts"`
}

// ManifestEntry describes one published rule-set.
type ManifestEntry struct {
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	File        string     `json:"file"`
	Exists      bool       `json:"exists"`
	Size        int64      `json:"size,omitempty"`
	Checksum    string     `json:"checksum,omitempty"`
	Stats       *RuleStats `json:"stats,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Manifest lists every configured rule-set for downstream consumers.
type Manifest struct {
	GeneratedAt string          `json:"generatedAt"`
	Rulesets    []ManifestEntry `json:"rulesets"`
}

// Generator assembles metadata documents from the configured pipeline
// state. It only reads the file system, never writes into the output dir.
type Generator struct {
	cfg       *config.Config
	inspector RepositoryInspector
}

// New returns a Generator for cfg using inspector for repository state.
func New(cfg *config.Config, inspector RepositoryInspector) *Generator {
	return &Generator{cfg: cfg, inspector: inspector}
}

// Generate builds the full metadata snapshot.
func (g *Generator) Generate() *Document {
	doc := &Document{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Repository:  g.inspector.Inspect(),
		Sources:     []SourceInfo{},
		Outputs:     []OutputInfo{},
	}
	for _, src := range g.cfg.Sources {
		info := g.sourceInfo(src)
		doc.Sources = append(doc.Sources, info)
		if info.Stats != nil {
			doc.Counts.TotalRules += info.Stats.Total
			doc.Counts.ValidRules += info.Stats.Valid
		}

		out := g.outputInfo(src)
		doc.Outputs = append(doc.Outputs, out)
		if out.Exists {
			doc.Counts.Outputs++
		}
	}
	doc.Counts.Sources = len(g.cfg.Sources)
	return doc
}

func (g *Generator) sourceInfo(src config.RuleSource) SourceInfo {
	info := SourceInfo{File: src.Source, Type: string(src.Type)}

	path := g.cfg.SourcePath(src)
	st, err := os.Stat(path)
	if err != nil {
		log.Warnf("source file not found: %s", path)
		return info
	}
	info.Exists = true
	info.Size = st.Size()
	info.Modified = st.ModTime().UTC().Format(time.RFC3339)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("read %s: %v", path, err)
		return info
	}
	info.Checksum = Checksum(data)

	lines := rules.ParseLines(string(data))
	validated := rules.Validate(lines, src.Type)
	info.Stats = &RuleStats{
		Total:     len(lines),
		Valid:     len(validated.Rules),
		Invalid:   validated.Invalid,
		Duplicate: validated.Duplicate,
	}
	return info
}

func (g *Generator) outputInfo(src config.RuleSource) OutputInfo {
	if info, ok := statArtifact(g.cfg.OutputPath(src), FormBinary); ok {
		return info
	}
	if info, ok := statArtifact(g.cfg.FallbackPath(src), FormJSON); ok {
		return info
	}
	return OutputInfo{File: src.Output}
}

func statArtifact(path, form string) (OutputInfo, bool) {
	st, err := os.Stat(path)
	if err != nil {
		return OutputInfo{}, false
	}
	info := OutputInfo{
		File:   filepath.Base(path),
		Exists: true,
		Form:   form,
		Size:   st.Size(),
	}
	sum, err := FileChecksum(path)
	if err != nil {
		log.Warnf("checksum %s: %v", path, err)
	} else {
		info.Checksum = sum
	}
	return info, true
}

// VersionFrom condenses a snapshot into the version document.
func VersionFrom(doc *Document) *VersionDoc {
	return &VersionDoc{
		BuildTime: doc.GeneratedAt,
		Commit:    doc.Repository.Commit,
		Counts:    doc.Counts,
	}
}

// ManifestFrom derives the manifest from a snapshot, pulling descriptions
// from the resolved templates.
func (g *Generator) ManifestFrom(doc *Document) *Manifest {
	m := &Manifest{GeneratedAt: doc.GeneratedAt, Rulesets: []ManifestEntry{}}
	for i, src := range g.cfg.Sources {
		out := doc.Outputs[i]
		entry := ManifestEntry{
			Name:     src.Name(),
			Type:     string(src.Type),
			File:     out.File,
			Exists:   out.Exists,
			Size:     out.Size,
			Checksum: out.Checksum,
			Stats:    doc.Sources[i].Stats,
		}
		if tpl, err := ruleset.Resolve(g.cfg.Paths.Templates, src.Name(), src.Type); err == nil {
			entry.Description = tpl.Description
		}
		m.Rulesets = append(m.Rulesets, entry)
	}
	return m
}

// WriteAll generates one snapshot and writes all three documents from it.
func (g *Generator) WriteAll() error {
	doc := g.Generate()
	if err := g.write(config.MetadataFile, doc); err != nil {
		return err
	}
	if err := g.write(config.VersionFile, VersionFrom(doc)); err != nil {
		return err
	}
	return g.write(config.ManifestFile, g.ManifestFrom(doc))
}

// WriteMetadata regenerates and writes only metadata.json.
func (g *Generator) WriteMetadata() error {
	return g.write(config.MetadataFile, g.Generate())
}

// WriteVersion regenerates and writes only version.json.
func (g *Generator) WriteVersion() error {
	return g.write(config.VersionFile, VersionFrom(g.Generate()))
}

// WriteManifest regenerates and writes only manifest.json.
func (g *Generator) WriteManifest() error {
	return g.write(config.ManifestFile, g.ManifestFrom(g.Generate()))
}

func (g *Generator) write(name string, v any) error {
	path := g.cfg.ReportPath(name)
	if err := fsutil.WriteJSON(path, v); err != nil {
		return err
	}
	log.Infof("wrote %s", path)
	return nil
}
