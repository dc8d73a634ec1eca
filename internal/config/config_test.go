package config

import (
	"testing"
	"time"
)

func TestLoad_RateLimitSettings(t *testing.T) {
	t.Setenv("RATE_LIMIT_LIMIT", "20")
	t.Setenv("AUTH_RATE_LIMIT_LIMIT", "3")
	t.Setenv("RATE_LIMIT_PERIOD", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load вернул ошибку: %v", err)
	}
	if cfg.RateLimitLimit != 20 {
		t.Errorf("RateLimitLimit = %d, ожидали 20", cfg.RateLimitLimit)
	}
	if cfg.AuthRateLimitLimit != 3 {
		t.Errorf("AuthRateLimitLimit = %d, ожидали 3", cfg.AuthRateLimitLimit)
	}
	if cfg.RateLimitPeriod != 30*time.Second {
		t.Errorf("RateLimitPeriod = %v, ожидали 30s", cfg.RateLimitPeriod)
	}
}

func TestLoad_PoolDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load вернул ошибку: %v", err)
	}
	if cfg.DBMaxOpenConns != 100 {
		t.Errorf("DBMaxOpenConns = %d, ожидали 100", cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns != 25 {
		t.Errorf("DBMaxIdleConns = %d, ожидали 25", cfg.DBMaxIdleConns)
	}
	if cfg.DBConnMaxLifetime != 5*time.Minute {
		t.Errorf("DBConnMaxLifetime = %v, ожидали 5m", cfg.DBConnMaxLifetime)
	}
	if cfg.AuthRateLimitLimit != 5 {
		t.Errorf("AuthRateLimitLimit по умолчанию = %d, ожидали 5", cfg.AuthRateLimitLimit)
	}
}
