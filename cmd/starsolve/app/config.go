package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from config files,
// environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Config file
	ConfigFile string

	// Where raw star catalogs (hip_main.dat and friends) are searched.
	CatalogDir string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (handled by cobra)
//  2. Environment variables
//  3. .env files
//  4. Config file (~/.starsolve.yaml)
//  5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".starsolve")
		}
	}

	// Config file is optional.
	_ = viper.ReadInConfig()

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),

		ConfigFile: viper.ConfigFileUsed(),

		CatalogDir: viper.GetString("catalog_dir"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if config.CatalogDir == "" {
		config.CatalogDir = "."
	}

	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags, so flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, logLevel, catalogDir string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if catalogDir != "" {
		c.CatalogDir = catalogDir
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
