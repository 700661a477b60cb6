package config

import (
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/robalobadob/wordduel/internal/words"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "CLIENT_ORIGIN", "DEFAULT_LANGUAGE", "TOKEN_TTL", "KAFKA_BROKERS", "HISTORY_DSN"} {
		t.Setenv(k, "") // restores the original value on cleanup
		os.Unsetenv(k)
	}
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Addr() != ":5175" {
		t.Errorf("Addr() = %q, want :5175", c.Addr())
	}
	if c.Language() != words.Italian {
		t.Errorf("Language() = %q, want it", c.Language())
	}
	if c.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %s, want 24h", c.TokenTTL)
	}
	if !reflect.DeepEqual(c.ClientOrigins, []string{"http://localhost:5173"}) {
		t.Errorf("ClientOrigins = %v", c.ClientOrigins)
	}
	if len(c.KafkaBrokers) != 0 || c.HistoryDSN != "" {
		t.Errorf("optional sinks enabled by default: brokers=%v dsn=%q", c.KafkaBrokers, c.HistoryDSN)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DEFAULT_LANGUAGE", "EN")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CLIENT_ORIGIN", "https://a.example,https://b.example")
	t.Setenv("WORDS_EN_FILE", "/tmp/en.txt")
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Addr() != ":9000" || c.Language() != words.English {
		t.Errorf("Addr()=%q Language()=%q", c.Addr(), c.Language())
	}
	if !reflect.DeepEqual(c.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("KafkaBrokers = %v", c.KafkaBrokers)
	}
	if len(c.ClientOrigins) != 2 {
		t.Errorf("ClientOrigins = %v", c.ClientOrigins)
	}
	if c.WordFiles().English != "/tmp/en.txt" {
		t.Errorf("WordFiles() = %+v", c.WordFiles())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("language", func(t *testing.T) {
		t.Setenv("DEFAULT_LANGUAGE", "fr")
		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error")
		}
	})
	t.Run("ttl", func(t *testing.T) {
		t.Setenv("TOKEN_TTL", "-1h")
		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error")
		}
	})
}
