// Package config reads server settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is the resolved server configuration.
type Config struct {
	Port            string
	LogLevel        logrus.Level
	OriginAllowlist []string

	InitialHandSize        int
	MissedDeclarationDraws int
	TurnTimeout            time.Duration // 0 disables the idle-turn timer
	GameSeed               uint64        // 0 seeds from the clock

	JWTSecret   string
	TokenTTL    time.Duration
	DatabaseURL string // optional result archive
	RedisAddr   string // optional action historian
}

// Load reads .env (if any) and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Missing keys take defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(k, d string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return d
	}

	cfg := Config{
		Port:        get("PORT", "8080"),
		JWTSecret:   get("JWT_SECRET", ""),
		DatabaseURL: get("DATABASE_URL", ""),
		RedisAddr:   get("REDIS_ADDR", ""),
	}

	lvl, err := logrus.ParseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = lvl

	for _, o := range strings.Split(get("ORIGIN_ALLOWLIST", "http://localhost:"+cfg.Port+",http://127.0.0.1:"+cfg.Port), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.OriginAllowlist = append(cfg.OriginAllowlist, o)
		}
	}

	if cfg.InitialHandSize, err = atoiRange("INITIAL_HAND_SIZE", get("INITIAL_HAND_SIZE", "7"), 1, 30); err != nil {
		return Config{}, err
	}
	if cfg.MissedDeclarationDraws, err = atoiRange("MISSED_DECLARATION_DRAWS", get("MISSED_DECLARATION_DRAWS", "2"), 0, 10); err != nil {
		return Config{}, err
	}
	secs, err := atoiRange("TURN_TIMEOUT_SEC", get("TURN_TIMEOUT_SEC", "0"), 0, 3600)
	if err != nil {
		return Config{}, err
	}
	cfg.TurnTimeout = time.Duration(secs) * time.Second

	ttl, err := time.ParseDuration(get("TOKEN_TTL", "12h"))
	if err != nil {
		return Config{}, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	if cfg.GameSeed, err = strconv.ParseUint(get("GAME_SEED", "0"), 10, 64); err != nil {
		return Config{}, fmt.Errorf("GAME_SEED: %w", err)
	}
	return cfg, nil
}

func atoiRange(key, v string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s: %d out of range [%d, %d]", key, n, lo, hi)
	}
	return n, nil
}
