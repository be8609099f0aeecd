package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Addr             string
	DatabaseURL      string
	DBMaxConns       int32
	JWTSecret        string
	JWTTTL           time.Duration
	AuthorityAddress string
	StartupSeed      bool
}

type KeeperConfig struct {
	DatabaseURL      string
	DBMaxConns       int32
	AuthorityAddress string
	SweepEvery       time.Duration
	SweepBatch       int
}

type CLIConfig struct {
	APIBaseURL string
}

// LoadEnvFile reads .env if present. Missing files are not an error; real
// deployments set the environment directly.
func LoadEnvFile() {
	_ = godotenv.Load()
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("OMERTA_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:             addr,
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:       int32(envIntDefault("OMERTA_DB_MAX_CONNS", 0)),
		JWTSecret:        strings.TrimSpace(os.Getenv("OMERTA_JWT_SECRET")),
		JWTTTL:           envDurationDefault("OMERTA_JWT_TTL", 24*time.Hour),
		AuthorityAddress: strings.TrimSpace(os.Getenv("OMERTA_AUTHORITY_ADDRESS")),
		StartupSeed:      envBoolDefault("OMERTA_STARTUP_SEED", true),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("OMERTA_JWT_SECRET is required")
	}
	return cfg, nil
}

func LoadKeeperFromEnv() (KeeperConfig, error) {
	cfg := KeeperConfig{
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:       int32(envIntDefault("OMERTA_DB_MAX_CONNS", 0)),
		AuthorityAddress: strings.TrimSpace(os.Getenv("OMERTA_AUTHORITY_ADDRESS")),
		SweepEvery:       envDurationDefault("OMERTA_KEEPER_SWEEP_EVERY", time.Minute),
		SweepBatch:       envIntDefault("OMERTA_KEEPER_SWEEP_BATCH", 50),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("OMR_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
