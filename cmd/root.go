package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/spigell/affinity-suggest/internal/logger"
	"github.com/spigell/affinity-suggest/internal/secrets"
	"github.com/spigell/affinity-suggest/internal/suggestion"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app                = "affinity-suggest"
	configName         = "suggestion"
	defaultEnvironment = "production"
	defaultTimeout     = 10 * time.Second
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	URLs        map[string]string `mapstructure:"urls"`
	APIKey      string            `mapstructure:"api-key"`
	APIKeyFile  string            `mapstructure:"api-key-file"`
	UserAgent   string            `mapstructure:"user-agent"`
	Timeout     time.Duration     `mapstructure:"timeout"`
}

var (
	// Used for flags.
	cfgFile string

	// errFailed is returned when the service call produced a failure outcome.
	// The outcome itself is already printed.
	errFailed = errors.New("suggestion service call failed")

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "affinity-suggest fetches ranked candidate suggestions and records accept/discard decisions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errFailed) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}

	return err
}

func init() {
	for key, env := range map[string]string{
		"environment":  "SUGGESTION_ENVIRONMENT",
		"api-key":      "SUGGESTION_API_KEY",
		"api-key-file": "SUGGESTION_API_KEY_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("environment", defaultEnvironment)
	viper.SetDefault("timeout", defaultTimeout)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is suggestion.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("environment", "e", "", "service environment to use, a key of the urls section")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("environment", rootCmd.PersistentFlags().Lookup("environment"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		// An explicit config must be readable.
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(configName)

	// Without a config file everything can still come from the environment.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		return nil, errors.New("config is empty")
	}

	return config, nil
}

// BaseURL resolves the service URL for the selected environment.
func (c *Config) BaseURL() (string, error) {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	if env == "" {
		env = defaultEnvironment
	}

	raw := strings.TrimSpace(c.URLs[env])
	if raw == "" {
		known := make([]string, 0, len(c.URLs))
		for k := range c.URLs {
			known = append(known, k)
		}
		sort.Strings(known)

		return "", fmt.Errorf("no url configured for environment %q (known: %s)", env, strings.Join(known, ", "))
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing url for environment %q: %w", env, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("url for environment %q must be an absolute http(s) url, got %q", env, raw)
	}

	return raw, nil
}

// setup builds the logger and the suggestion client from flags and config.
func setup() (*zap.Logger, *suggestion.Client) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	baseURL, err := config.BaseURL()
	if err != nil {
		l.Fatal("resolving the suggestion service url", zap.Error(err))
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "suggestion api key",
		Value: config.APIKey,
		File:  config.APIKeyFile,
	})
	if err != nil {
		l.Fatal(
			"loading the api key",
			zap.Error(err),
			zap.String("hint", "set SUGGESTION_API_KEY_FILE or the 'api-key-file' key in the configuration file"),
		)
	}

	l = logger.WithServiceFields(l, config.Environment, baseURL)
	l.Debug("starting", zap.String("version", version), zap.Duration("timeout", config.Timeout))

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := suggestion.New(baseURL, apiKey, l,
		suggestion.WithHTTPClient(&http.Client{Timeout: timeout}),
		suggestion.WithUserAgent(config.UserAgent),
	)

	return l, client
}
