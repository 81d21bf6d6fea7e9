package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-li/sing-box-rules/internal/config"
	"github.com/zen-li/sing-box-rules/internal/rules"
)

type stubInspector struct {
	state RepoState
}

func (s stubInspector) Inspect() RepoState { return s.state }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		Sources:   filepath.Join(root, "sources"),
		Templates: filepath.Join(root, "templates"),
		Output:    filepath.Join(root, "rules"),
		Scratch:   filepath.Join(root, ".scratch"),
		Reports:   root,
	}
	cfg.Sources = []config.RuleSource{
		{Source: "direct-domains.txt", Type: rules.TypeDomainSuffix, Output: "direct-domains.srs"},
		{Source: "proxy-domains.txt", Type: rules.TypeDomainSuffix, Output: "proxy-domains.srs"},
		{Source: "direct-ip.txt", Type: rules.TypeIPCIDR, Output: "direct-ip.srs"},
	}
	for _, dir := range []string{cfg.Paths.Sources, cfg.Paths.Templates, cfg.Paths.Output} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return cfg
}

func newTestGenerator(t *testing.T) (*Generator, *config.Config) {
	t.Helper()
	cfg := testConfig(t)

	// First source present with one duplicate and one invalid line, binary
	// artifact built. Second source absent, JSON fallback artifact present.
	// Third source and artifact both absent.
	require.NoError(t, os.WriteFile(
		filepath.Join(cfg.Paths.Sources, "direct-domains.txt"),
		[]byte("example.com\nexample.com\nbad_domain!\n"), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(cfg.Paths.Output, "direct-domains.srs"),
		[]byte("SRS\x01fake"), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(cfg.Paths.Output, "proxy-domains.json"),
		[]byte(`{"version":1,"rules":[{"domain_suffix":["a.com"]}]}`), 0o644))

	commit := "0123456789abcdef0123456789abcdef01234567"
	insp := stubInspector{state: RepoState{Commit: &commit}}
	return New(cfg, insp), cfg
}

func TestGenerateSources(t *testing.T) {
	g, _ := newTestGenerator(t)
	doc := g.Generate()

	require.Len(t, doc.Sources, 3)

	first := doc.Sources[0]
	assert.True(t, first.Exists)
	assert.NotEmpty(t, first.Checksum)
	assert.NotEmpty(t, first.Modified)
	require.NotNil(t, first.Stats)
	assert.Equal(t, RuleStats{Total: 3, Valid: 2, Invalid: 1, Duplicate: 1}, *first.Stats)

	second := doc.Sources[1]
	assert.False(t, second.Exists)
	assert.Nil(t, second.Stats)
}

func TestGenerateOutputs(t *testing.T) {
	g, _ := newTestGenerator(t)
	doc := g.Generate()

	require.Len(t, doc.Outputs, 3)

	assert.Equal(t, "direct-domains.srs", doc.Outputs[0].File)
	assert.True(t, doc.Outputs[0].Exists)
	assert.Equal(t, FormBinary, doc.Outputs[0].Form)
	assert.NotEmpty(t, doc.Outputs[0].Checksum)

	assert.Equal(t, "proxy-domains.json", doc.Outputs[1].File)
	assert.True(t, doc.Outputs[1].Exists)
	assert.Equal(t, FormJSON, doc.Outputs[1].Form)

	assert.Equal(t, "direct-ip.srs", doc.Outputs[2].File)
	assert.False(t, doc.Outputs[2].Exists)
	assert.Empty(t, doc.Outputs[2].Form)
}

func TestGenerateCounts(t *testing.T) {
	g, _ := newTestGenerator(t)
	doc := g.Generate()

	assert.Equal(t, Counts{Sources: 3, Outputs: 2, TotalRules: 3, ValidRules: 2}, doc.Counts)
}

func TestGenerateIsDeterministic(t *testing.T) {
	g, _ := newTestGenerator(t)
	first := g.Generate()
	second := g.Generate()

	diff := cmp.Diff(first, second, cmpopts.IgnoreFields(Document{}, "GeneratedAt"))
	assert.Empty(t, diff)
}

func TestVersionFrom(t *testing.T) {
	g, _ := newTestGenerator(t)
	doc := g.Generate()
	ver := VersionFrom(doc)

	assert.Equal(t, doc.GeneratedAt, ver.BuildTime)
	require.NotNil(t, ver.Commit)
	assert.Equal(t, *doc.Repository.Commit, *ver.Commit)
	assert.Equal(t, doc.Counts, ver.Counts)
}

func TestManifestFrom(t *testing.T) {
	g, cfg := newTestGenerator(t)
	tpl := `{"version":1,"type":"domain-suffix","rules":{"domain_suffix":[]},"description":"Domains routed directly"}`
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.Templates, "domain-suffix.json"), []byte(tpl), 0o644))

	doc := g.Generate()
	m := g.ManifestFrom(doc)

	require.Len(t, m.Rulesets, 3)
	assert.Equal(t, "direct-domains", m.Rulesets[0].Name)
	assert.Equal(t, "direct-domains.srs", m.Rulesets[0].File)
	assert.Equal(t, "Domains routed directly", m.Rulesets[0].Description)
	require.NotNil(t, m.Rulesets[0].Stats)

	// ip-cidr has no template, so no description.
	assert.Empty(t, m.Rulesets[2].Description)
	assert.False(t, m.Rulesets[2].Exists)
}

func TestWriteAll(t *testing.T) {
	g, cfg := newTestGenerator(t)
	require.NoError(t, g.WriteAll())

	for _, name := range []string{config.MetadataFile, config.VersionFile, config.ManifestFile} {
		data, err := os.ReadFile(cfg.ReportPath(name))
		require.NoError(t, err)
		assert.True(t, json.Valid(data), "%s must hold valid JSON", name)
	}
}

func TestWriteVersionNullFields(t *testing.T) {
	cfg := testConfig(t)
	g := New(cfg, stubInspector{})
	require.NoError(t, g.WriteVersion())

	data, err := os.ReadFile(cfg.ReportPath(config.VersionFile))
	require.NoError(t, err)

	var ver struct {
		Commit *string `json:"commit"`
	}
	require.NoError(t, json.Unmarshal(data, &ver))
	assert.Nil(t, ver.Commit)
	assert.Contains(t, string(data), `"commit": null`)
}
