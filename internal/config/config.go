// Package config loads the daemon's configuration from environment
// variables.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds runtime settings.
type Config struct {
	OpenAIKey string // OPENAI_API_KEY, required

	DataDir      string // AIDE_DATA_DIR, memory collections live here
	Model        string // AIDE_MODEL, chat completion model
	Voice        string // AIDE_VOICE, TTS voice
	WakePhrase   string // AIDE_WAKE_PHRASE
	WhisperModel string // AIDE_WHISPER_MODEL, path to the ggml model file
	ChimePath    string // AIDE_CHIME, acknowledgment sound
	BusAddr      string // AIDE_BUS_ADDR, websocket bus listen address
	SocksProxy   string // AIDE_SOCKS_PROXY, optional socks5 host:port
	EmotionCmd   string // AIDE_EMOTION_CMD, optional emotion classifier command

	MaxHistory       int           // AIDE_MAX_HISTORY, conversation turns kept
	ReminderInterval time.Duration // AIDE_REMINDER_INTERVAL
	MonitorInterval  time.Duration // AIDE_MONITOR_INTERVAL, 0 disables
}

// Load reads env vars and applies defaults. The API key is the only
// required setting.
func Load() (Config, error) {
	cfg := Config{
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		DataDir:      os.Getenv("AIDE_DATA_DIR"),
		Model:        os.Getenv("AIDE_MODEL"),
		Voice:        os.Getenv("AIDE_VOICE"),
		WakePhrase:   os.Getenv("AIDE_WAKE_PHRASE"),
		WhisperModel: os.Getenv("AIDE_WHISPER_MODEL"),
		ChimePath:    os.Getenv("AIDE_CHIME"),
		BusAddr:      os.Getenv("AIDE_BUS_ADDR"),
		SocksProxy:   os.Getenv("AIDE_SOCKS_PROXY"),
		EmotionCmd:   os.Getenv("AIDE_EMOTION_CMD"),
	}

	cfg.MaxHistory = getEnvInt("AIDE_MAX_HISTORY", 10)
	cfg.ReminderInterval = getEnvDuration("AIDE_REMINDER_INTERVAL", 10*time.Second)
	cfg.MonitorInterval = getEnvDuration("AIDE_MONITOR_INTERVAL", 5*time.Second)

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.DataDir = filepath.Join(home, ".aide")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Voice == "" {
		cfg.Voice = "nova"
	}
	if cfg.WakePhrase == "" {
		cfg.WakePhrase = "hey aide"
	}
	if cfg.BusAddr == "" {
		cfg.BusAddr = "localhost:8765"
	}

	if cfg.OpenAIKey == "" {
		return cfg, errors.New("OPENAI_API_KEY environment variable is required")
	}
	return cfg, nil
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
