package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/goto/salt/config"
	"github.com/goto/sift/core/search"
	"github.com/goto/sift/core/validator"
	"github.com/goto/sift/internal/server"
	esStore "github.com/goto/sift/internal/store/elasticsearch"
	"github.com/goto/sift/internal/store/memory"
	"github.com/goto/sift/internal/store/postgres"
	"github.com/goto/sift/pkg/statsd"
	"github.com/goto/sift/pkg/telemetry"
	"github.com/mcuadros/go-defaults"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

const (
	configName   = "sift.yaml"
	envPrefix    = "SIFT"
	storePG      = "postgres"
	storeES      = "elasticsearch"
	storeMemory  = "memory"
	defaultStore = storePG
)

type Config struct {
	// Log
	LogLevel string `yaml:"log_level" mapstructure:"log_level" default:"info"`

	// Backend answering searches, one of postgres, elasticsearch or memory
	Store string `yaml:"store" mapstructure:"store" default:"postgres" validate:"oneof=postgres elasticsearch memory"`

	Search SearchConfig `yaml:"search" mapstructure:"search"`

	// StatsD
	StatsD statsd.Config `yaml:"statsd" mapstructure:"statsd"`

	// Telemetry
	Telemetry telemetry.Config `yaml:"telemetry" mapstructure:"telemetry"`

	// Elasticsearch
	Elasticsearch esStore.Config `yaml:"elasticsearch" mapstructure:"elasticsearch"`

	// Database
	DB postgres.Config `yaml:"db" mapstructure:"db"`

	Memory memory.Config `yaml:"memory" mapstructure:"memory"`

	// Service
	Service server.Config `yaml:"service" mapstructure:"service"`
}

type SearchConfig struct {
	Page            search.PageConfig `yaml:"page" mapstructure:"page"`
	CaseSensitive   bool              `yaml:"case_sensitive" mapstructure:"case_sensitive" default:"false"`
	SequentialReads bool              `yaml:"sequential_reads" mapstructure:"sequential_reads" default:"false"`
}

func (c SearchConfig) options() []search.SearcherOption {
	opts := []search.SearcherOption{
		search.WithPageConfig(c.Page),
		search.WithCaseSensitive(c.CaseSensitive),
	}
	if c.SequentialReads {
		opts = append(opts, search.WithSequentialReads())
	}
	return opts
}

func configCommand(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config <command>",
		Short: "Manage server and client configurations",
		Example: heredoc.Doc(`
			$ sift config init
			$ sift config list`),
	}

	cmd.AddCommand(configInitCommand())
	cmd.AddCommand(configListCommand(cfg))

	return cmd
}

func configInitCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new server and client configuration",
		Example: heredoc.Doc(`
			$ sift config init
			$ sift config init --path ./config/sift.yaml
		`),
		Annotations: map[string]string{
			"group": "core",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := writeDefaultConfig(path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "config created: %v\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "./"+configName, "Where to write the configuration")
	return cmd
}

func configListCommand(cfg *Config) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "list",
		Short: "List server and client configuration settings",
		Example: heredoc.Doc(`
			$ sift config list
		`),
		Annotations: map[string]string{
			"group": "core",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(*cfg)
		},
	}
	return cmd
}

// LoadConfig reads sift.yaml from the current directory, overridden by
// SIFT_ prefixed environment variables. Defaults are used when no file exists.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := config.NewLoader(
		config.WithPath("./"),
		config.WithName(configName),
		config.WithEnvKeyReplacer(".", "_"),
		config.WithEnvPrefix(envPrefix),
	)

	if err := loader.Load(&cfg); err != nil {
		if errors.As(err, &config.ConfigFileNotFoundError{}) {
			defaults.SetDefaults(&cfg)
			return &cfg, ErrConfigNotFound
		}
		return &cfg, err
	}
	return &cfg, cfg.Validate()
}

func LoadConfigFromFlag(cfgFile string, cfg *Config) error {
	if err := config.NewLoader(
		config.WithFile(cfgFile),
		config.WithEnvKeyReplacer(".", "_"),
		config.WithEnvPrefix(envPrefix),
	).Load(cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if err := validator.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	var cfg Config
	defaults.SetDefaults(&cfg)
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, b, 0o600)
}
