package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ppiankov/papercheck/internal/logging"
	"github.com/ppiankov/papercheck/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const version = "papercheck v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "papercheck",
	Short: "Papercheck - research paper analysis",
	Long: `Papercheck analyzes a research paper and reports:

- a short summary
- citations found in the text, checked against scholarly metadata
- checkable claims, looked up in a fact-check service
- a plagiarism similarity score

External services are optional. Without credentials each check falls back
to a local heuristic or a placeholder result; a report is always produced.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.papercheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env, the config file and PAPERCHECK_* variables
func initConfig() {
	// A missing .env is normal
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		} else {
			viper.AddConfigPath(filepath.Join(home, ".papercheck"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering config defaults: %v\n", err)
	}

	// PAPERCHECK_LLM_PROVIDER sets llm.provider
	viper.SetEnvPrefix("PAPERCHECK")
	viper.SetEnvKeyReplacer(newEnvReplacer())
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	} else if err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", cfgFile, err)
	}
}

func newEnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// loadConfig returns the effective configuration: defaults, config file,
// PAPERCHECK_* variables and well-known credential variables, in rising priority
// except that credentials never override values set explicitly
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// newLogger builds the process logger; --verbose lowers the level to debug
func newLogger(cfg *model.Config) (*zap.Logger, error) {
	level := cfg.Output.LogLevel
	if cfg.Output.Verbose {
		level = "debug"
	}
	return logging.New(level, cfg.Output.LogFormat)
}
