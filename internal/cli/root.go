package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/kgframe/internal/logging"
	"github.com/ppiankov/kgframe/internal/model"
)

const version = "v0.1.0"

var (
	cfgFile string
	verbose bool

	// cfg is loaded once per invocation by initConfig
	cfg = model.DefaultConfig()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kgframe",
	Short: "kgframe - compare knowledge graph quality frameworks",
	Long: `kgframe catalogs knowledge graph quality frameworks, their criteria and
the definitions each framework gives, and compares any selection of them
side by side.

Comparisons are deterministic. An optional LLM pass rewrites descriptions,
summarizes criteria and groups related ones; its output is marked as
generated and never replaces the stored data.`,
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
		fmt.Println("kgframe " + version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.kgframe/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides storage.path)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("storage.path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		} else {
			viper.AddConfigPath(filepath.Join(home, ".kgframe"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// KGFRAME_LLM_PROVIDER overrides llm.provider and so on
	viper.SetEnvPrefix("KGFRAME")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	readErr := viper.ReadInConfig()

	loaded, err := loadConfig(viper.GetViper())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
	} else {
		cfg = loaded
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logging.Init(os.Stderr, level)

	if readErr == nil {
		logging.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

// loadConfig overlays v on the defaults, then applies the conventional
// provider environment variables where the config left a value empty
func loadConfig(v *viper.Viper) (model.Config, error) {
	c := model.DefaultConfig()
	registerDefaults(v, c)
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("unmarshal config: %w", err)
	}
	applyProviderEnv(&c)
	return c, nil
}

// registerDefaults makes every key known to viper so AutomaticEnv can
// override keys that appear in neither the file nor a flag
func registerDefaults(v *viper.Viper, c model.Config) {
	v.SetDefault("storage.path", c.Storage.Path)
	v.SetDefault("storage.busy_timeout_ms", c.Storage.BusyTimeoutMS)
	v.SetDefault("server.addr", c.Server.Addr)
	v.SetDefault("server.log_level", c.Server.LogLevel)
	v.SetDefault("llm.enabled", c.LLM.Enabled)
	v.SetDefault("llm.provider", c.LLM.Provider)
	v.SetDefault("llm.preference", c.LLM.Preference)
	v.SetDefault("llm.allow_paid", c.LLM.AllowPaid)
	v.SetDefault("llm.timeout", c.LLM.Timeout)
	v.SetDefault("llm.max_tokens", c.LLM.MaxTokens)
	v.SetDefault("embedding.provider", c.Embedding.Provider)
	v.SetDefault("embedding.model", c.Embedding.Model)
	v.SetDefault("embedding.base_url", c.Embedding.BaseURL)
	v.SetDefault("cache.enabled", c.Cache.Enabled)
	v.SetDefault("cache.dir", c.Cache.Dir)
	v.SetDefault("concurrency.llm_workers", c.Concurrency.LLMWorkers)
	v.SetDefault("concurrency.import_workers", c.Concurrency.ImportWorkers)
	v.SetDefault("rate_limiting.requests_per_second", c.RateLimiting.RequestsPerSecond)
	v.SetDefault("rate_limiting.burst_size", c.RateLimiting.BurstSize)
	v.SetDefault("import.respect_robots", c.Import.RespectRobots)
	v.SetDefault("log.level", c.Log.Level)
}

func applyProviderEnv(c *model.Config) {
	setIfEmpty := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	setIfEmpty(&c.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&c.LLM.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setIfEmpty(&c.LLM.HuggingFace.APIKey, "HUGGINGFACE_API_KEY")
	if c.Embedding.Provider == "openai" {
		setIfEmpty(&c.Embedding.APIKey, "OPENAI_API_KEY")
	}
	if base := os.Getenv("OLLAMA_BASE_URL"); base != "" {
		c.LLM.Ollama.BaseURL = base
		if c.Embedding.Provider == "ollama" {
			c.Embedding.BaseURL = base
		}
	}
}
