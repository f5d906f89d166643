package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_PORT", "APP_ENV", "CAMERA_INDEX", "MODEL_PATH", "DETECTOR_URL",
	"WARMUP_ATTEMPTS", "WARMUP_DELAY_MS", "STREAM_INTERVAL_MS", "STATE_INTERVAL_MS",
	"JPEG_QUALITY", "ANNOTATE_EYES", "REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

func clearEnv(t *testing.T) {
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(NewValidator())
	require.NoError(t, err)

	assert.Equal(t, &Config{
		AppPort:        "8000",
		AppEnv:         "development",
		CameraIndex:    0,
		ModelPath:      "svm_model.json",
		DetectorURL:    "ws://localhost:8765/face_mesh",
		WarmUpAttempts: 5,
		WarmUpDelay:    50 * time.Millisecond,
		StreamInterval: 30 * time.Millisecond,
		StateInterval:  500 * time.Millisecond,
		JPEGQuality:    80,
		AnnotateEyes:   false,
		RateLimitRPS:   5,
		RateLimitBurst: 10,
	}, cfg)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("CAMERA_INDEX", "2")
	t.Setenv("STATE_INTERVAL_MS", "250")
	t.Setenv("ANNOTATE_EYES", "true")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadConfig(NewValidator())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, 2, cfg.CameraIndex)
	assert.Equal(t, 250*time.Millisecond, cfg.StateInterval)
	assert.True(t, cfg.AnnotateEyes)
	assert.Equal(t, "localhost:6379", cfg.RedisAddress)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"CAMERA_INDEX":       "front",
		"ANNOTATE_EYES":      "maybe",
		"JPEG_QUALITY":       "101",
		"WARMUP_ATTEMPTS":    "0",
		"STREAM_INTERVAL_MS": "0",
		"RATE_LIMIT_RPS":     "-1",
		"DETECTOR_URL":       "not a url",
		"REDIS_ADDRESS":      "no-port",
	}

	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)

			_, err := LoadConfig(NewValidator())
			assert.Error(t, err)
		})
	}
}
