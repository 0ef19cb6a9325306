package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hickeroar/parahash/hashing"
)

// serviceConfig holds the runtime configuration of the prediction service.
// Every flag defaults to its PARAHASH_* environment variable.
type serviceConfig struct {
	Port            string
	AuthToken       string
	ModelPath       string
	FormField       string
	NFeatures       int
	NJobs           int
	Norm            string
	AlternateSign   bool
	Stemmer         string
	LogLevel        string
	ShutdownTimeout time.Duration
}

func parseConfig(fs *flag.FlagSet, args []string) (serviceConfig, error) {
	var cfg serviceConfig

	fs.StringVar(&cfg.Port, "port", getStringEnv("PARAHASH_PORT", "8000"), "The port the server should listen on.")
	fs.StringVar(&cfg.AuthToken, "auth-token", getStringEnv("PARAHASH_AUTH_TOKEN", ""), "Bearer token required on non-probe endpoints. Empty disables auth.")
	fs.StringVar(&cfg.ModelPath, "model", getStringEnv("PARAHASH_MODEL", ""), "Absolute path of the persisted classifier model.")
	fs.StringVar(&cfg.FormField, "form-field", getStringEnv("PARAHASH_FORM_FIELD", "text"), "Form field read by /predict when the request names none.")
	fs.IntVar(&cfg.NFeatures, "n-features", getIntEnv("PARAHASH_N_FEATURES", hashing.DefaultNFeatures), "Width of the hashed feature space.")
	fs.IntVar(&cfg.NJobs, "n-jobs", getIntEnv("PARAHASH_N_JOBS", 1), "Number of concurrent vectorizer workers.")
	fs.StringVar(&cfg.Norm, "norm", getStringEnv("PARAHASH_NORM", "l2"), "Row normalization: none, l1 or l2.")
	fs.BoolVar(&cfg.AlternateSign, "alternate-sign", getBoolEnv("PARAHASH_ALTERNATE_SIGN", true), "Alternate feature signs by hash sign.")
	fs.StringVar(&cfg.Stemmer, "stemmer", getStringEnv("PARAHASH_STEMMER", ""), "Snowball stemmer language. Empty disables stemming.")
	fs.StringVar(&cfg.LogLevel, "log-level", getStringEnv("PARAHASH_LOG_LEVEL", "info"), "Log level.")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", getDurationEnv("PARAHASH_SHUTDOWN_TIMEOUT", 10*time.Second), "Graceful shutdown timeout.")

	if err := fs.Parse(args); err != nil {
		return serviceConfig{}, err
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return serviceConfig{}, fmt.Errorf("log level: %w", err)
	}
	return cfg, nil
}

// vectorizerConfig builds the immutable vectorizer configuration.
func (c serviceConfig) vectorizerConfig() (hashing.Config, error) {
	norm, err := hashing.ParseNorm(c.Norm)
	if err != nil {
		return hashing.Config{}, err
	}
	return hashing.NewConfig(
		hashing.WithNFeatures(c.NFeatures),
		hashing.WithNJobs(c.NJobs),
		hashing.WithNorm(norm),
		hashing.WithAlternateSign(c.AlternateSign),
		hashing.WithStemmer(c.Stemmer),
		hashing.WithMaxDocumentBytes(maxRequestBodyBytes),
	)
}

func getStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
