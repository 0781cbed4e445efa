package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file into the process environment if present
// (missing file is not an error — production deployments set real env vars
// directly). Call before Load so applyEnvOverlay sees the loaded values.
func LoadDotEnv(path string) {
	_ = godotenv.Load(path)
}

// applyEnvOverlay lets deployments override individual config fields with
// PW_*-prefixed environment variables without touching the TOML file —
// the same override-by-env pattern the teacher's config layer leaves room
// for, made explicit here since this repo's ops surface is container-first.
func applyEnvOverlay(cfg *Config) {
	if v, ok := os.LookupEnv("PW_DATABASE_DSN"); ok {
		cfg.Database.DSN = v
	}
	if v, ok := lookupInt("PW_DATABASE_MAX_OPEN_CONNS"); ok {
		cfg.Database.MaxOpenConns = v
	}
	if v, ok := os.LookupEnv("PW_NETWORK_BIND_ADDRESS"); ok {
		cfg.Network.BindAddress = v
	}
	if v, ok := lookupDuration("PW_NETWORK_TICK_RATE"); ok {
		cfg.Network.TickRate = v
	}
	if v, ok := lookupFloat("PW_RATES_EXP_RATE"); ok {
		cfg.Rates.ExpRate = v
	}
	if v, ok := lookupFloat("PW_RATES_DROP_RATE"); ok {
		cfg.Rates.DropRate = v
	}
	if v, ok := lookupFloat("PW_THREAT_HEAL_MULT"); ok {
		cfg.Rates.HealThreatMult = v
	}
	if v, ok := os.LookupEnv("PW_LOGGING_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := os.LookupEnv("PW_ADMIN_BIND_ADDRESS"); ok {
		cfg.Admin.BindAddress = v
	}
}

func lookupInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func lookupFloat(key string) (float64, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

func lookupDuration(key string) (time.Duration, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	return d, err == nil
}
