// Package validator re-checks rule sources and templates without touching
// build outputs, and writes the validation report CI gates on.
package validator

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/zen-li/sing-box-rules/internal/config"
	"github.com/zen-li/sing-box-rules/internal/fsutil"
	"github.com/zen-li/sing-box-rules/internal/report"
	"github.com/zen-li/sing-box-rules/internal/rules"
	"github.com/zen-li/sing-box-rules/internal/ruleset"
)

// Outcome values recorded per checked file.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeSkipped = "skipped"
)

// templateFields are the keys every template must carry.
var templateFields = []string{"version", "type", "rules", "description"}

// Validator checks rule sources and templates against a configuration.
type Validator struct {
	cfg *config.Config
}

// New returns a Validator for cfg.
func New(cfg *config.Config) *Validator {
	return &Validator{cfg: cfg}
}

// CheckSource validates the rule lines of one source file against t. A
// missing file is skipped with a warning rather than failed, matching the
// builder's treatment of absent sources.
func (v *Validator) CheckSource(path string, t rules.Type) report.Entry {
	entry := report.Entry{Name: filepath.Base(path), Type: string(t)}

	if !fsutil.Exists(path) {
		log.Warnf("source file not found: %s", path)
		entry.Outcome = OutcomeSkipped
		entry.Reason = "file not found"
		return entry
	}

	lines := rules.ParseFile(path)
	validated := rules.Validate(lines, t)
	entry.Rules = len(validated.Rules)
	if validated.Invalid > 0 {
		entry.Outcome = OutcomeInvalid
		entry.Reason = fmt.Sprintf("%d invalid %s rules", validated.Invalid, t)
		return entry
	}
	entry.Outcome = OutcomeValid
	return entry
}

// CheckTemplate validates one template's shape: the four required fields
// must be present, type must be a non-empty string, and rules must be a
// mapping of sequences. A version other than the expected constant is only
// warned about.
func (v *Validator) CheckTemplate(path string) report.Entry {
	entry := report.Entry{Name: filepath.Base(path), Outcome: OutcomeValid}

	var raw map[string]any
	if err := fsutil.ReadJSON(path, &raw); err != nil {
		entry.Outcome = OutcomeInvalid
		entry.Reason = fmt.Sprintf("unreadable template: %v", err)
		return entry
	}

	var problems []string
	for _, field := range templateFields {
		if _, ok := raw[field]; !ok {
			problems = append(problems, "missing field "+field)
		}
	}

	switch typ := raw["type"].(type) {
	case nil:
		// A JSON null leaves the key present, so the required-field loop
		// above says nothing about it. Only a truly absent key is silent
		// here; it is already reported as missing.
		if _, present := raw["type"]; present {
			problems = append(problems, "type must be a non-empty string")
		}
	case string:
		entry.Type = typ
		if typ == "" {
			problems = append(problems, "type must be a non-empty string")
		}
	default:
		problems = append(problems, "type must be a string")
	}

	if rulesVal, ok := raw["rules"]; ok {
		if mapping, ok := rulesVal.(map[string]any); ok {
			keys := make([]string, 0, len(mapping))
			for key := range mapping {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				if _, ok := mapping[key].([]any); !ok {
					problems = append(problems, fmt.Sprintf("rules.%s must be a sequence", key))
				}
			}
		} else {
			problems = append(problems, "rules must be a mapping")
		}
	}

	if version, ok := raw["version"]; ok {
		if f, isNum := version.(float64); !isNum || f != float64(ruleset.Version) {
			log.Warnf("%s: template version %v, expected %d", entry.Name, version, ruleset.Version)
		}
	}

	if len(problems) > 0 {
		entry.Outcome = OutcomeInvalid
		entry.Reason = strings.Join(problems, "; ")
	}
	return entry
}

// ValidateAll checks every registry source and every template file in the
// templates directory, and reports whether everything passed.
func (v *Validator) ValidateAll() (*report.Report, bool) {
	rep := report.New()

	for _, src := range v.cfg.Sources {
		v.add(rep, v.CheckSource(v.cfg.SourcePath(src), src.Type))
	}

	templates, err := filepath.Glob(filepath.Join(v.cfg.Paths.Templates, "*.json"))
	if err != nil {
		log.Warnf("list templates: %v", err)
	}
	for _, path := range templates {
		v.add(rep, v.CheckTemplate(path))
	}

	return rep, rep.Counts.Failed == 0
}

// Run validates everything and writes the report unconditionally, so a
// failing run still leaves the full picture on disk.
func (v *Validator) Run() (*report.Report, bool, error) {
	rep, ok := v.ValidateAll()
	if err := rep.Write(v.cfg.ReportPath(config.ValidationReportFile)); err != nil {
		return rep, ok, fmt.Errorf("write validation report: %w", err)
	}
	return rep, ok, nil
}

func (v *Validator) add(rep *report.Report, entry report.Entry) {
	switch entry.Outcome {
	case OutcomeInvalid:
		rep.AddFailed(entry)
	case OutcomeSkipped:
		rep.AddSkipped(entry)
	default:
		rep.AddSuccess(entry)
	}
}
