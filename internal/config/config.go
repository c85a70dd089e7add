package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sheikh-saqib/installments-ledger/internal/installments"
	"github.com/sheikh-saqib/installments-ledger/internal/logger"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the process configuration, read from the environment
type Config struct {
	HTTPAddr     string
	StoreDriver  string
	DatabaseURL  string
	KafkaBrokers []string
	KafkaTopic   string
	LogLevel     string
	LogFormat    logger.Format
	Rounding     installments.RoundingPolicy
}

// Load reads an optional env file (".env" when path is empty) and then the
// process environment. Variables already set in the environment win.
func Load(path string) (Config, error) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		HTTPAddr:    withDefault(getenv("HTTP_ADDR"), ":8080"),
		StoreDriver: withDefault(getenv("STORE_DRIVER"), StoreMemory),
		DatabaseURL: getenv("DATABASE_URL"),
		KafkaTopic:  getenv("KAFKA_TOPIC"),
		LogLevel:    withDefault(getenv("LOG_LEVEL"), "info"),
		LogFormat:   logger.Format(withDefault(getenv("LOG_FORMAT"), string(logger.FormatConsole))),
	}

	for _, b := range strings.Split(getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}

	rounding, err := installments.ParseRoundingPolicy(getenv("INSTALLMENT_ROUNDING"))
	if err != nil {
		return Config{}, fmt.Errorf("INSTALLMENT_ROUNDING: %w", err)
	}
	cfg.Rounding = rounding

	switch cfg.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER: unknown driver %q", cfg.StoreDriver)
	}

	switch cfg.LogFormat {
	case logger.FormatConsole, logger.FormatJSON:
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT: unknown format %q", cfg.LogFormat)
	}
	return cfg, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
