// Command generate-metadata writes the metadata, version and manifest
// documents describing the current state of the repository.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zen-li/sing-box-rules/internal/config"
	"github.com/zen-li/sing-box-rules/internal/metadata"
)

var (
	cfgFile string
	repoDir string
	debug   bool
	gen     *metadata.Generator
)

func main() {
	root := &cobra.Command{
		Use:           "generate-metadata",
		Short:         "Generate metadata, version and manifest documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gen = metadata.New(cfg, metadata.NewGitInspector(repoDir))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return gen.WriteAll()
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML file overriding the registry and paths")
	root.PersistentFlags().StringVar(&repoDir, "repo", ".", "repository directory for git queries")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Write all three documents from one snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return gen.WriteAll()
		},
	}
	metadataCmd := &cobra.Command{
		Use:   "metadata",
		Short: "Write only metadata.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return gen.WriteMetadata()
		},
	}
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Write only version.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return gen.WriteVersion()
		},
	}
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Write only manifest.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return gen.WriteManifest()
		},
	}

	root.AddCommand(allCmd, metadataCmd, versionCmd, manifestCmd)

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
