// Package builder turns text rule sources into rule-set artifacts: parse,
// validate, merge into a template, compile, and aggregate a report.
package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zen-li/sing-box-rules/internal/config"
	"github.com/zen-li/sing-box-rules/internal/fsutil"
	"github.com/zen-li/sing-box-rules/internal/report"
	"github.com/zen-li/sing-box-rules/internal/rules"
	"github.com/zen-li/sing-box-rules/internal/ruleset"
)

// Outcome tags what a build attempt produced.
type Outcome string

const (
	// OutcomeCompiled means the external compiler wrote the binary artifact.
	OutcomeCompiled Outcome = "compiled"
	// OutcomeFallbackJSON means compilation failed and the assembled document
	// was written as a JSON artifact instead.
	OutcomeFallbackJSON Outcome = "fallback-json"
	// OutcomeSkipped means the source produced nothing to build.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means no artifact could be produced.
	OutcomeFailed Outcome = "failed"
)

// Result describes one build attempt.
type Result struct {
	Config  config.RuleSource
	Outcome Outcome
	Rules   []string
	Stats   rules.Stats
	Invalid int
	Reason  string
	BuiltAt time.Time
}

// Success reports whether the attempt produced an artifact, binary or
// fallback.
func (r *Result) Success() bool {
	return r.Outcome == OutcomeCompiled || r.Outcome == OutcomeFallbackJSON
}

// Summary aggregates one BuildAll pass.
type Summary struct {
	Success []*Result
	Failed  []*Result
	Skipped []*Result
}

// Builder runs rule-set builds against a fixed configuration.
type Builder struct {
	cfg      *config.Config
	compiler Compiler
}

// New returns a Builder using cfg and compiler.
func New(cfg *config.Config, compiler Compiler) *Builder {
	return &Builder{cfg: cfg, compiler: compiler}
}

// BuildRule builds a single source config. Every failure mode is captured
// in the result rather than returned, so callers decide what is fatal.
func (b *Builder) BuildRule(src config.RuleSource) *Result {
	res := &Result{Config: src, BuiltAt: time.Now().UTC()}

	fail := func(format string, args ...any) *Result {
		res.Outcome = OutcomeFailed
		res.Reason = fmt.Sprintf(format, args...)
		log.Errorf("build %s: %s", src.Output, res.Reason)
		return res
	}

	lines := rules.ParseFile(b.cfg.SourcePath(src))
	if len(lines) == 0 {
		res.Outcome = OutcomeSkipped
		res.Reason = "no rules in source"
		log.Warnf("skipping %s: %s", src.Output, res.Reason)
		return res
	}

	res.Stats = rules.Collect(lines)
	validated := rules.Validate(lines, src.Type)
	res.Invalid = validated.Invalid
	if validated.Invalid > 0 {
		log.Warnf("%s: dropped %d invalid %s rules", src.Source, validated.Invalid, src.Type)
	}
	if len(validated.Rules) == 0 {
		res.Outcome = OutcomeSkipped
		res.Reason = "no valid rules"
		log.Warnf("skipping %s: %s", src.Output, res.Reason)
		return res
	}
	res.Rules = validated.Rules

	tpl, err := ruleset.Resolve(b.cfg.Paths.Templates, src.Name(), src.Type)
	if err != nil {
		return fail("%v", err)
	}
	if tpl.Type != string(src.Type) {
		return fail("template type %q does not match configured type %q", tpl.Type, src.Type)
	}

	doc := ruleset.Assemble(tpl, src.Type, validated.Rules)
	if err := fsutil.EnsureDir(b.cfg.Paths.Output); err != nil {
		return fail("create output dir: %v", err)
	}

	if err := b.compile(src, doc); err != nil {
		log.Warnf("compiler failed for %s, writing JSON fallback: %v", src.Output, err)
		if werr := fsutil.WriteJSON(b.cfg.FallbackPath(src), doc); werr != nil {
			return fail("write fallback after compile error (%v): %v", err, werr)
		}
		res.Outcome = OutcomeFallbackJSON
		res.Reason = err.Error()
		return res
	}

	res.Outcome = OutcomeCompiled
	log.Infof("compiled %s (%d rules)", src.Output, len(res.Rules))
	return res
}

// compile stages the document in the scratch directory, invokes the
// compiler and checks the artifact. The scratch directory is removed again
// whatever the outcome.
func (b *Builder) compile(src config.RuleSource, doc *ruleset.Document) error {
	scratch := b.cfg.Paths.Scratch
	if err := fsutil.EnsureDir(scratch); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	inputPath := filepath.Join(scratch, src.Name()+".json")
	if err := fsutil.WriteJSON(inputPath, doc); err != nil {
		return fmt.Errorf("write compiler input: %w", err)
	}

	outputPath := b.cfg.OutputPath(src)
	if err := b.compiler.Compile(inputPath, outputPath); err != nil {
		removeIfEmpty(outputPath)
		return err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("compiler wrote no output: %w", err)
	}
	if info.Size() == 0 {
		removeIfEmpty(outputPath)
		return fmt.Errorf("compiler wrote empty output")
	}
	return nil
}

// removeIfEmpty deletes path when it exists with zero size, so a failed
// compile leaves no bogus artifact for metadata to pick up.
func removeIfEmpty(path string) {
	if info, err := os.Stat(path); err == nil && info.Size() == 0 {
		os.Remove(path)
	}
}

// BuildAll builds every config in the registry sequentially and writes the
// aggregate build report. Per-source failures do not stop the pass and do
// not make it an error; only a report write failure does.
func (b *Builder) BuildAll() (*Summary, error) {
	sum := &Summary{}
	for _, src := range b.cfg.Sources {
		log.Infof("building %s (%s)", src.Output, src.Type)
		res := b.BuildRule(src)
		switch {
		case res.Success():
			sum.Success = append(sum.Success, res)
		case res.Outcome == OutcomeSkipped:
			sum.Skipped = append(sum.Skipped, res)
		default:
			sum.Failed = append(sum.Failed, res)
		}
	}

	if err := sum.Report().Write(b.cfg.ReportPath(config.BuildReportFile)); err != nil {
		return sum, fmt.Errorf("write build report: %w", err)
	}
	log.Infof("build finished: %d built, %d failed, %d skipped",
		len(sum.Success), len(sum.Failed), len(sum.Skipped))
	return sum, nil
}

// Clean removes the files in the output directory without descending into
// subdirectories. A missing directory is a no-op, so clean-then-build and
// build-then-clean-then-build converge on the same state.
func (b *Builder) Clean() error {
	entries, err := os.ReadDir(b.cfg.Paths.Output)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(b.cfg.Paths.Output, e.Name())); err != nil {
			return err
		}
		removed++
	}
	log.Infof("cleaned %d files from %s", removed, b.cfg.Paths.Output)
	return nil
}

// Report converts the summary into the shared report document.
func (s *Summary) Report() *report.Report {
	rep := report.New()
	for _, res := range s.Success {
		rep.AddSuccess(entry(res))
	}
	for _, res := range s.Failed {
		rep.AddFailed(entry(res))
	}
	for _, res := range s.Skipped {
		rep.AddSkipped(entry(res))
	}
	return rep
}

func entry(res *Result) report.Entry {
	return report.Entry{
		Name:    res.Config.Name(),
		Type:    string(res.Config.Type),
		Source:  res.Config.Source,
		Output:  res.Config.Output,
		Outcome: string(res.Outcome),
		Rules:   len(res.Rules),
		BuiltAt: res.BuiltAt.Format(time.RFC3339),
		Reason:  res.Reason,
	}
}
