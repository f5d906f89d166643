package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	AppPort string `validate:"required,numeric"`
	AppEnv  string `validate:"required"`

	CameraIndex    int    `validate:"gte=0"`
	ModelPath      string `validate:"required"`
	DetectorURL    string `validate:"required,url"`
	WarmUpAttempts int    `validate:"gte=1"`
	WarmUpDelay    time.Duration
	StreamInterval time.Duration `validate:"gt=0"`
	StateInterval  time.Duration `validate:"gt=0"`
	JPEGQuality    int           `validate:"gte=1,lte=100"`
	AnnotateEyes   bool

	RedisAddress  string `validate:"omitempty,hostname_port"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"gte=1"`
}

// LoadConfig reads the process environment, falling back to defaults for
// unset variables, and validates the result.
func LoadConfig(v *validator.Validate) (*Config, error) {
	var (
		cfg = &Config{
			AppPort:       getString("APP_PORT", "8000"),
			AppEnv:        getString("APP_ENV", "development"),
			ModelPath:     getString("MODEL_PATH", "svm_model.json"),
			DetectorURL:   getString("DETECTOR_URL", "ws://localhost:8765/face_mesh"),
			RedisAddress:  os.Getenv("REDIS_ADDRESS"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
		}
		err error
	)

	if cfg.CameraIndex, err = getInt("CAMERA_INDEX", 0); err != nil {
		return nil, err
	}
	if cfg.WarmUpAttempts, err = getInt("WARMUP_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.WarmUpDelay, err = getMillis("WARMUP_DELAY_MS", 50); err != nil {
		return nil, err
	}
	if cfg.StreamInterval, err = getMillis("STREAM_INTERVAL_MS", 30); err != nil {
		return nil, err
	}
	if cfg.StateInterval, err = getMillis("STATE_INTERVAL_MS", 500); err != nil {
		return nil, err
	}
	if cfg.JPEGQuality, err = getInt("JPEG_QUALITY", 80); err != nil {
		return nil, err
	}
	if cfg.AnnotateEyes, err = getBool("ANNOTATE_EYES", false); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}

	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getMillis(key string, def int) (time.Duration, error) {
	n, err := getInt(key, def)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}
