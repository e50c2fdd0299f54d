package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Storage.Driver != "sqlite" || cfg.Storage.Name != "lottery-storage" {
		t.Errorf("Expected default server and storage settings, but got %+v / %+v", cfg.Server, cfg.Storage)
	}
	if cfg.Scene.ParticleCount != 7000 || cfg.API.Enabled {
		t.Errorf("Expected 7000 particles and no remote API, but got %+v / %+v", cfg.Scene, cfg.API)
	}
	if cfg.API.Timeout != 10*time.Second || cfg.API.UsersEndpoint != "/api/lottery/users" {
		t.Errorf("Expected default API settings, but got %+v", cfg.API)
	}
	if !cfg.LogVerbose || cfg.LogFile != "" {
		t.Errorf("Expected console logging by default, but got verbose=%v file=%q", cfg.LogVerbose, cfg.LogFile)
	}
	if cfg.Participants.PhotoDir != "" {
		t.Errorf("Expected bundled photos by default, but got photo dir %q", cfg.Participants.PhotoDir)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LUCKYDRAW_SERVER_PORT", "9090")
	t.Setenv("LUCKYDRAW_STORAGE_DRIVER", "file")
	t.Setenv("LUCKYDRAW_SCENE_PARTICLECOUNT", "1200")
	t.Setenv("LUCKYDRAW_API_TIMEOUT", "3s")
	t.Setenv("LUCKYDRAW_LOGVERBOSE", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Storage.Driver != "file" {
		t.Errorf("Expected env overrides, but got %+v / %+v", cfg.Server, cfg.Storage)
	}
	if cfg.Scene.ParticleCount != 1200 || cfg.API.Timeout != 3*time.Second || cfg.LogVerbose {
		t.Errorf("Expected env overrides, but got %+v / %+v / verbose=%v", cfg.Scene, cfg.API, cfg.LogVerbose)
	}
}

func TestLoadDotEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := "server:\n  port: \"7000\"\nlocale: zh\napi:\n  enabled: true\n  baseurl: http://backend\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LUCKYDRAW_STORAGE_NAME=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("LUCKYDRAW_STORAGE_NAME") })

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if cfg.Server.Port != "7000" || cfg.Locale != "zh" || !cfg.API.Enabled || cfg.API.BaseURL != "http://backend" {
		t.Errorf("Expected values from config.yaml, but got %+v", cfg)
	}
	if cfg.Storage.Name != "from-dotenv" {
		t.Errorf("Expected storage name from .env, but got %q", cfg.Storage.Name)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown driver":     {"LUCKYDRAW_STORAGE_DRIVER": "redis"},
		"api without base":   {"LUCKYDRAW_API_ENABLED": "true"},
		"non-positive count": {"LUCKYDRAW_SCENE_PARTICLECOUNT": "0"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatal("Expected a validation error, but got nil")
			}
		})
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("Expected a read config error, but got %v", err)
	}
}
