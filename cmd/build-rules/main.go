// Command build-rules compiles the text rule sources into sing-box
// rule-set artifacts.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zen-li/sing-box-rules/internal/builder"
	"github.com/zen-li/sing-box-rules/internal/config"
	"github.com/zen-li/sing-box-rules/internal/fsutil"
	"github.com/zen-li/sing-box-rules/internal/geoip"
	"github.com/zen-li/sing-box-rules/internal/rules"
)

var (
	cfgFile string
	debug   bool
	cfg     *config.Config
)

func main() {
	root := &cobra.Command{
		Use:           "build-rules",
		Short:         "Build sing-box rule-sets from text rule sources",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
			var err error
			cfg, err = loadConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild()
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML file overriding the registry and paths")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build every configured rule-set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild()
		},
	}

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove generated artifacts from the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newBuilder().Clean()
		},
	}

	singleCmd := &cobra.Command{
		Use:   "single <type> <source> <output>",
		Short: "Build one rule-set from an explicit source file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSingle(args[0], args[1], args[2])
		},
	}

	var (
		mmdbPath string
		mmdbURL  string
		outPath  string
		maxAge   time.Duration
	)
	geoipCmd := &cobra.Command{
		Use:   "geoip <code>",
		Short: "Regenerate an ip-cidr source from a GeoIP database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGeoIP(args[0], mmdbPath, mmdbURL, outPath, maxAge)
		},
	}
	geoipCmd.Flags().StringVar(&mmdbPath, "mmdb", "", "local MMDB file, skips the download")
	geoipCmd.Flags().StringVar(&mmdbURL, "url", geoip.DefaultURL, "MMDB download URL")
	geoipCmd.Flags().StringVar(&outPath, "out", "", "output source file (default sources/geoip-<code>.txt)")
	geoipCmd.Flags().DurationVar(&maxAge, "max-age", 24*time.Hour, "reuse a cached download younger than this")

	root.AddCommand(buildCmd, cleanCmd, singleCmd, geoipCmd)

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}

func newBuilder() *builder.Builder {
	return builder.New(cfg, builder.NewSingBoxCompiler(cfg.Compiler.Bin))
}

// runBuild builds everything. Per-source failures are captured in the
// report and never force a non-zero exit; only failing to write the report
// does.
func runBuild() error {
	_, err := newBuilder().BuildAll()
	return err
}

// runSingle builds one rule-set and, unlike runBuild, fails loudly when
// that one build fails.
func runSingle(ruleType, source, output string) error {
	src := config.RuleSource{Source: source, Type: rules.Type(ruleType), Output: output}
	res := newBuilder().BuildRule(src)
	switch res.Outcome {
	case builder.OutcomeCompiled:
		return nil
	case builder.OutcomeFallbackJSON:
		log.Warnf("compiled %s as JSON fallback: %s", output, res.Reason)
		return nil
	default:
		return fmt.Errorf("build %s: %s: %s", output, res.Outcome, res.Reason)
	}
}

func runGeoIP(code, mmdbPath, mmdbURL, outPath string, maxAge time.Duration) error {
	var (
		data   []byte
		origin string
		err    error
	)
	if mmdbPath != "" {
		data, err = os.ReadFile(mmdbPath)
		origin = mmdbPath
	} else {
		data, err = geoip.Fetch(mmdbURL, filepath.Join(".cache", "geoip.db"), maxAge)
		origin = mmdbURL
	}
	if err != nil {
		return fmt.Errorf("load geoip db: %w", err)
	}

	db, err := geoip.Load(data)
	if err != nil {
		return err
	}

	code = strings.ToUpper(code)
	cidrs, ok := db.CIDRs(code)
	if !ok {
		return fmt.Errorf("no CIDRs for %q (%d known codes)", code, len(db.Codes()))
	}

	if outPath == "" {
		outPath = filepath.Join(cfg.Paths.Sources, "geoip-"+strings.ToLower(code)+".txt")
	}
	if err := fsutil.WriteText(outPath, geoip.RenderSource(code, origin, cidrs)); err != nil {
		return err
	}
	log.Infof("wrote %d CIDRs for %s to %s", len(cidrs), code, outPath)
	return nil
}
