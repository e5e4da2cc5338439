package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "jobmatch"
)

type Config struct {
	CVFile string        `mapstructure:"cv-file"`
	Search *SearchConfig `mapstructure:"search"`
	Scrape *ScrapeConfig `mapstructure:"scrape"`
	AI     *AIConfig     `mapstructure:"ai"`
	Server *ServerConfig `mapstructure:"server"`
}

type SearchConfig struct {
	Keywords  string   `mapstructure:"keywords"`
	Location  string   `mapstructure:"location"`
	Platforms []string `mapstructure:"platforms"`
	// Results caps how many listings each platform contributes.
	Results int `mapstructure:"results"`
	// Evaluate caps how many of the collected listings run the full
	// fetch-extract-evaluate pipeline.
	Evaluate int `mapstructure:"evaluate"`
}

type ScrapeConfig struct {
	TimeoutSeconds  int `mapstructure:"timeout-seconds"`
	MinDelaySeconds int `mapstructure:"min-delay-seconds"`
	MaxDelaySeconds int `mapstructure:"max-delay-seconds"`
	MaxExtractChars int `mapstructure:"max-extract-chars"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobmatch is a cli for matching a CV against job board listings",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobmatch.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Local .env files carry the API key file path during development.
	_ = godotenv.Load()

	// Config needed only for run and serve commands. If there is no config,
	// we can skip initialization.
	if runCmd.CalledAs() == "" && serveCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
