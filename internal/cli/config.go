package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/ppiankov/papercheck/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const hierarchyHelp = `Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (PAPERCHECK_*, e.g. PAPERCHECK_LLM_PROVIDER)
  3. Config file (~/.papercheck/config.yaml)
  4. Defaults

Credentials are also read from OPENAI_API_KEY, ANTHROPIC_API_KEY,
OLLAMA_BASE_URL, SEMANTIC_SCHOLAR_API_KEY, OPENALEX_EMAIL,
GOOGLE_FACT_CHECK_API_KEY and GOOGLE_APPLICATION_CREDENTIALS when not set above.
A .env file in the working directory is loaded first.`

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Papercheck configuration",
	Long:  "Manage Papercheck configuration files and settings.\n\n" + hierarchyHelp,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration with secrets masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(maskSecrets(*cfg))
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(yamlData))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.papercheck/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}
		configPath := filepath.Join(home, ".papercheck", "config.yaml")

		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the configuration:\n")
		fmt.Printf("  papercheck config show\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// writeDefaultConfig writes the commented default configuration to path.
// An existing file is never overwritten.
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'papercheck config show' to view it, or delete it first to recreate", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Papercheck configuration\n#\n")
	for _, line := range strings.Split(hierarchyHelp, "\n") {
		b.WriteString(strings.TrimRight("# "+line, " "))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.Write(yamlData)

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

// registerDefaults declares every config key with its default so that
// PAPERCHECK_* variables resolve even for keys absent from the config file
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	walkKeys(reflect.ValueOf(*cfg), "", func(key string, value any) {
		v.SetDefault(key, value)
	})
	return nil
}

func walkKeys(val reflect.Value, prefix string, set func(string, any)) {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := strings.Split(field.Tag.Get("mapstructure"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct {
			walkKeys(val.Field(i), key, set)
			continue
		}
		set(key, val.Field(i).Interface())
	}
}

func maskSecrets(cfg model.Config) model.Config {
	mask := func(s *string) {
		if *s != "" {
			*s = "****"
		}
	}
	mask(&cfg.LLM.APIKey)
	mask(&cfg.Citations.SemanticScholarAPIKey)
	mask(&cfg.FactCheck.APIKey)
	mask(&cfg.Cache.RedisPassword)
	return cfg
}
