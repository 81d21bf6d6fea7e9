// Package ruleset loads rule-set templates and assembles the source
// documents fed to the compiler.
package ruleset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zen-li/sing-box-rules/internal/fsutil"
	"github.com/zen-li/sing-box-rules/internal/rules"
)

// Version is the schema version every template is expected to declare.
const Version = 1

// ErrTemplateNotFound reports that no template file resolves for an output.
var ErrTemplateNotFound = errors.New("template not found")

// Template is the on-disk shape a rule-set document is assembled from. The
// rules mapping carries the compiler's key form ("domain_suffix") with the
// rule lists to merge into.
type Template struct {
	Version     int                 `json:"version"`
	Type        string              `json:"type"`
	Rules       map[string][]string `json:"rules"`
	Description string              `json:"description"`
}

// TypeKey converts a rule type to the key used inside rule-set documents
// ("domain-suffix" becomes "domain_suffix").
func TypeKey(t rules.Type) string {
	return strings.ReplaceAll(string(t), "-", "_")
}

// Load reads one template file.
func Load(path string) (*Template, error) {
	var tpl Template
	if err := fsutil.ReadJSON(path, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Resolve finds the template for an output artifact: an output-specific
// "<outputBase>.json" wins over the generic "<type>.json".
func Resolve(templatesDir, outputBase string, t rules.Type) (*Template, error) {
	candidates := []string{
		filepath.Join(templatesDir, outputBase+".json"),
		filepath.Join(templatesDir, string(t)+".json"),
	}
	for _, path := range candidates {
		if !fsutil.Exists(path) {
			continue
		}
		tpl, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("load template %s: %w", path, err)
		}
		return tpl, nil
	}
	return nil, fmt.Errorf("%w for %s (tried %s)", ErrTemplateNotFound, outputBase, strings.Join(candidates, ", "))
}
