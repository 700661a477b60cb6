// internal/config/config.go
//
// Process configuration parsed from the environment.
// A .env file, when present, is loaded first by main via godotenv.

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/robalobadob/wordduel/internal/words"
)

// Config holds every tunable of the server.
type Config struct {
	Port            string        `env:"PORT" envDefault:"5175"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty       bool          `env:"LOG_PRETTY" envDefault:"false"`
	ClientOrigins   []string      `env:"CLIENT_ORIGIN" envSeparator:"," envDefault:"http://localhost:5173"`
	JWTSecret       string        `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	DefaultLanguage string        `env:"DEFAULT_LANGUAGE" envDefault:"it"`
	WordsITFile     string        `env:"WORDS_IT_FILE"`
	WordsENFile     string        `env:"WORDS_EN_FILE"`
	HistoryDSN      string        `env:"HISTORY_DSN"`
	KafkaBrokers    []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic      string        `env:"KAFKA_TOPIC" envDefault:"wordduel.events"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, ok := words.ParseLanguage(c.DefaultLanguage); !ok {
		return Config{}, fmt.Errorf("DEFAULT_LANGUAGE %q: %w", c.DefaultLanguage, words.ErrUnknownLanguage)
	}
	if c.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	return c, nil
}

// Language returns the parsed default language.
func (c Config) Language() words.Language {
	lang, _ := words.ParseLanguage(c.DefaultLanguage)
	return lang
}

// Addr is the HTTP listen address.
func (c Config) Addr() string { return ":" + c.Port }

// WordFiles returns the word list overrides.
func (c Config) WordFiles() words.Files {
	return words.Files{Italian: c.WordsITFile, English: c.WordsENFile}
}
