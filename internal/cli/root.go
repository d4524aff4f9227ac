// Package cli implements riskctl, the command line front end to the assessment engine.
package cli

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/symptom-risk-server/internal/config"
	"github.com/symptom-risk-server/internal/domain"
	"github.com/symptom-risk-server/internal/schema"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// options are the persistent flags shared by every subcommand
type options struct {
	configFile string
	schemasDir string
	verbose    bool
}

// NewRootCommand creates and returns the root cobra command for riskctl
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "riskctl",
		Short: "Score symptom questionnaires against disease risk schemas",
		Long: `riskctl runs the symptom risk engine locally.

It lists the built-in disease questionnaires, prints a questionnaire's
fields and thresholds, scores a baseline profile plus answers read from
YAML or JSON files, and manages reviewer feedback on computed tiers.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file (default: search ./config.yaml, ./config/, /etc/symptom-risk-server/)")
	cmd.PersistentFlags().StringVar(&opts.schemasDir, "schemas-dir", "", "Directory of extra or overriding schema files")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine activity to stderr")

	cmd.AddCommand(newDiseasesCommand(opts))
	cmd.AddCommand(newSchemaCommand(opts))
	cmd.AddCommand(newAssessCommand(opts))
	cmd.AddCommand(newFeedbackCommand(opts))

	return cmd
}

// logger returns a logger that stays quiet unless --verbose was given
func (o *options) logger(errOut io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(errOut)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if o.verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}

// loadConfig reads configuration only when a file was named; the CLI otherwise
// runs on defaults plus SYMPTOM_RISK_* overrides.
func (o *options) loadConfig() (*domain.Config, error) {
	var managerOpts []config.Option
	if o.configFile != "" {
		managerOpts = append(managerOpts, config.WithConfigFile(o.configFile))
	}
	m, err := config.NewManager(managerOpts...)
	if err != nil {
		return nil, err
	}
	return m.GetConfig(), nil
}

// registry loads the embedded catalog plus any overlay directory
func (o *options) registry(logger *logrus.Logger) (*schema.Registry, error) {
	registry, err := schema.NewRegistry(schema.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("loading built-in schemas: %w", err)
	}

	dir := o.schemasDir
	if dir == "" && o.configFile != "" {
		cfg, err := o.loadConfig()
		if err != nil {
			return nil, err
		}
		dir = cfg.Schemas.Dir
	}
	if dir != "" {
		if err := registry.LoadDir(dir); err != nil {
			return nil, fmt.Errorf("loading schemas from %s: %w", dir, err)
		}
	}
	return registry, nil
}
