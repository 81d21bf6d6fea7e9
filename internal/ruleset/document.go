package ruleset

import "github.com/zen-li/sing-box-rules/internal/rules"

// Document is the assembled rule-set source handed to the compiler and
// written verbatim as the JSON fallback artifact.
type Document struct {
	Version int                   `json:"version"`
	Rules   []map[string][]string `json:"rules"`
}

// Assemble merges valid rules into the template's rules mapping under the
// key derived from t. Keys the template pre-seeds are kept, and pre-seeded
// entries under the type key come before the merged ones.
func Assemble(tpl *Template, t rules.Type, valid []string) *Document {
	merged := make(map[string][]string, len(tpl.Rules)+1)
	for key, entries := range tpl.Rules {
		merged[key] = append([]string(nil), entries...)
	}
	key := TypeKey(t)
	merged[key] = append(merged[key], valid...)

	version := tpl.Version
	if version == 0 {
		version = Version
	}
	return &Document{
		Version: version,
		Rules:   []map[string][]string{merged},
	}
}
