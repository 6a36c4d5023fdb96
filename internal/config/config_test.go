package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DirEnvVar, dir)

	got, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("GetConfigDir() = %v, want %v", got, dir)
	}
}

func TestGetConfigDir_Platform(t *testing.T) {
	t.Setenv(DirEnvVar, "")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "airscan") {
		t.Errorf("GetConfigDir() = %v, should contain 'airscan'", configDir)
	}

	switch runtime.GOOS {
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DirEnvVar, dir)

	cfgPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if cfgPath != filepath.Join(dir, "config.yaml") {
		t.Errorf("GetConfigPath() = %v", cfgPath)
	}

	devPath, err := GetDevicesPath()
	if err != nil {
		t.Fatalf("GetDevicesPath() error = %v", err)
	}
	if devPath != filepath.Join(dir, "devices.yaml") {
		t.Errorf("GetDevicesPath() = %v", devPath)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.ServiceType != "_ipp._tcp" {
		t.Errorf("ServiceType = %q, want _ipp._tcp", cfg.ServiceType)
	}
	if cfg.Wait.Strategy != WaitFixed {
		t.Errorf("Wait.Strategy = %q, want fixed", cfg.Wait.Strategy)
	}
	if cfg.Wait.Delay != 30*time.Second {
		t.Errorf("Wait.Delay = %v, want 30s", cfg.Wait.Delay)
	}
	if cfg.FetchRetries != 0 {
		t.Errorf("FetchRetries = %d, want 0", cfg.FetchRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v, want nil", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Wait.Strategy = WaitPoll
	cfg.Wait.PollInterval = 500 * time.Millisecond
	cfg.Wait.PollTimeout = 45 * time.Second
	cfg.FetchRetries = 2
	cfg.VerifyESCL = true
	cfg.OutputDir = "/tmp/scans"

	if err := cfg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after save")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if loaded.Wait != cfg.Wait {
		t.Errorf("Wait = %+v, want %+v", loaded.Wait, cfg.Wait)
	}
	if loaded.FetchRetries != 2 || !loaded.VerifyESCL || loaded.OutputDir != "/tmp/scans" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestLoadFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\nfetch_retries: 3\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.FetchRetries != 3 {
		t.Errorf("FetchRetries = %d, want 3", cfg.FetchRetries)
	}
	if cfg.Wait.Delay != DefaultWaitDelay {
		t.Errorf("Wait.Delay = %v, want default %v", cfg.Wait.Delay, DefaultWaitDelay)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "version: [", "failed to parse"},
		{"wrong version", "version: 2\n", "unsupported config version"},
		{"unknown strategy", "version: 1\nwait:\n  strategy: hope\n", "unknown wait.strategy"},
		{"negative retries", "version: 1\nfetch_retries: -1\n", "fetch_retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			_, err := LoadFile(path)
			if err == nil {
				t.Fatal("LoadFile() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFile() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Poll(t *testing.T) {
	cfg := Default()
	cfg.Wait.Strategy = WaitPoll
	cfg.Wait.PollInterval = 5 * time.Second
	cfg.Wait.PollTimeout = time.Second

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject poll timeout shorter than interval")
	}

	cfg.Wait.PollInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject zero poll interval")
	}
}
