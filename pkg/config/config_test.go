package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.Port != "8087" {
		t.Errorf("Expected Port to be 8087, got %s", cfg.Port)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.Scan.ModelVersion != "v8.4-intraday" {
		t.Errorf("Expected default model version v8.4-intraday, got %s", cfg.Scan.ModelVersion)
	}

	if cfg.Scan.TaskTimeout != 15*time.Second {
		t.Errorf("Expected task timeout 15s, got %v", cfg.Scan.TaskTimeout)
	}

	if cfg.Scan.Workers < 1 || cfg.Scan.Workers > 16 {
		t.Errorf("Expected worker count in [1,16], got %d", cfg.Scan.Workers)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("ENV", "production")
	os.Setenv("SCAN_WORKERS", "4")
	os.Setenv("SCAN_TASK_TIMEOUT", "20s")
	os.Setenv("SCAN_MODEL_VERSION", "v8.0")
	os.Setenv("LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("ENV")
		os.Unsetenv("SCAN_WORKERS")
		os.Unsetenv("SCAN_TASK_TIMEOUT")
		os.Unsetenv("SCAN_MODEL_VERSION")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected Port to be 9000, got %s", cfg.Port)
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be production, got %s", cfg.Env)
	}

	if cfg.Scan.Workers != 4 {
		t.Errorf("Expected Workers to be 4, got %d", cfg.Scan.Workers)
	}

	if cfg.Scan.TaskTimeout != 20*time.Second {
		t.Errorf("Expected TaskTimeout to be 20s, got %v", cfg.Scan.TaskTimeout)
	}

	if cfg.Scan.ModelVersion != "v8.0" {
		t.Errorf("Expected model version v8.0, got %s", cfg.Scan.ModelVersion)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Expected LogLevel to be debug, got %s", cfg.LogLevel)
	}
}

func TestValidateInvalidEnv(t *testing.T) {
	os.Setenv("ENV", "invalid")
	defer os.Unsetenv("ENV")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when ENV is invalid, got nil")
	}
}

func TestValidateWebhookRequiresSecret(t *testing.T) {
	os.Setenv("DINGTALK_WEBHOOK_URL", "https://oapi.dingtalk.com/robot/send?access_token=x")
	defer os.Unsetenv("DINGTALK_WEBHOOK_URL")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when webhook URL is set without secret, got nil")
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "2h")
	defer os.Unsetenv("TEST_DURATION")

	duration := getEnvAsDuration("TEST_DURATION", "1h")
	expected := 2 * time.Hour

	if duration != expected {
		t.Errorf("Expected duration to be %v, got %v", expected, duration)
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	os.Setenv("TEST_FLOAT", "2.5")
	defer os.Unsetenv("TEST_FLOAT")

	value := getEnvAsFloat("TEST_FLOAT", 1.0)
	if value != 2.5 {
		t.Errorf("Expected value to be 2.5, got %f", value)
	}
}
