// Command validate-rules checks rule sources and templates and exits
// non-zero when anything is invalid, for use as a CI gate.
package main

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zen-li/sing-box-rules/internal/config"
	"github.com/zen-li/sing-box-rules/internal/rules"
	"github.com/zen-li/sing-box-rules/internal/validator"
)

var (
	cfgFile string
	debug   bool
	cfg     *config.Config
)

func main() {
	root := &cobra.Command{
		Use:           "validate-rules",
		Short:         "Validate rule sources and templates",
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
			return runAll()
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML file overriding the registry and paths")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Validate every configured source and template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAll()
		},
	}

	sourceCmd := &cobra.Command{
		Use:   "source <file> <type>",
		Short: "Validate one source file against a rule type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSource(args[0], args[1])
		},
	}

	templateCmd := &cobra.Command{
		Use:   "template <file>",
		Short: "Validate one template file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplate(args[0])
		},
	}

	root.AddCommand(allCmd, sourceCmd, templateCmd)

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

// runAll writes the validation report whether or not everything passed,
// then fails when anything was invalid.
func runAll() error {
	rep, ok, err := validator.New(cfg).Run()
	if err != nil {
		return err
	}
	log.Infof("validation: %d valid, %d invalid, %d skipped",
		rep.Counts.Success, rep.Counts.Failed, rep.Counts.Skipped)
	if !ok {
		return errors.New("validation failed")
	}
	return nil
}

func runSource(file, ruleType string) error {
	entry := validator.New(cfg).CheckSource(file, rules.Type(ruleType))
	if entry.Outcome == validator.OutcomeInvalid {
		return fmt.Errorf("%s: %s", file, entry.Reason)
	}
	log.Infof("%s: %s (%d rules)", file, entry.Outcome, entry.Rules)
	return nil
}

func runTemplate(file string) error {
	entry := validator.New(cfg).CheckTemplate(file)
	if entry.Outcome == validator.OutcomeInvalid {
		return fmt.Errorf("%s: %s", file, entry.Reason)
	}
	log.Infof("%s: %s", file, entry.Outcome)
	return nil
}
