package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host            string        `env:"HOST,default=127.0.0.1"`
	Port            int           `env:"PORT,default=5555"`
	HealthPort      int           `env:"HEALTH_PORT,default=5556"`
	DebugPort       int           `env:"DEBUG_PORT,default=8081"`
	MonitoringPort  int           `env:"MONITORING_PORT,default=8082"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	EncryptionKey   string        `env:"ENCRYPTION_KEY,required=true"`
	MaxConnections  int64         `env:"MAX_CONNECTIONS,default=1024"`
	MaxFrameSize    int           `env:"MAX_FRAME_SIZE,default=65536"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=256"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT,default=0s"`
	MaxHistoryLimit int           `env:"MAX_HISTORY_LIMIT,default=500"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	CensoredWords   string        `env:"CENSORED_WORDS"`
	CensoredDir     string        `env:"CENSORED_DIR"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
}

// Validate checks the values go-env cannot express as tags.
func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("PORT out of range: %d", c.Port)
	case c.HealthPort < 0 || c.HealthPort > 65535:
		return fmt.Errorf("HEALTH_PORT out of range: %d", c.HealthPort)
	case c.MonitoringPort < 0 || c.MonitoringPort > 65535:
		return fmt.Errorf("MONITORING_PORT out of range: %d", c.MonitoringPort)
	case c.MaxConnections <= 0:
		return fmt.Errorf("MAX_CONNECTIONS must be positive, got %d", c.MaxConnections)
	case c.MaxFrameSize <= 0:
		return fmt.Errorf("MAX_FRAME_SIZE must be positive, got %d", c.MaxFrameSize)
	case c.SendBufferSize <= 0:
		return fmt.Errorf("SEND_BUFFER_SIZE must be positive, got %d", c.SendBufferSize)
	case c.MaxHistoryLimit <= 0:
		return fmt.Errorf("MAX_HISTORY_LIMIT must be positive, got %d", c.MaxHistoryLimit)
	case c.MetricInterval <= 0:
		return fmt.Errorf("METRIC_INTERVAL must be positive, got %s", c.MetricInterval)
	}
	_, err := CharacterRune(c.CharReplacement)
	return err
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) HealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HealthPort)
}

func (c Config) MonitoringAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MonitoringPort)
}

// Words splits CENSORED_WORDS on commas, dropping blanks.
func (c Config) Words() []string {
	words := lo.Map(strings.Split(c.CensoredWords, ","), func(w string, _ int) string {
		return strings.TrimSpace(w)
	})
	return lo.Compact(words)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
