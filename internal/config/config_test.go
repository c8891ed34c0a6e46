package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8080", cfg.Addr())
	}
	if err := cfg.CheckExposure(); err != nil {
		t.Errorf("CheckExposure() error = %v, want nil for loopback default", err)
	}
	for _, o := range cfg.Origins() {
		if o == "*" {
			t.Error("default CORS origins allow every origin")
		}
	}
	if cfg.Agents.PoolSize != 3 {
		t.Errorf("Agents.PoolSize = %d, want 3", cfg.Agents.PoolSize)
	}
	if cfg.Tools.BatchDelay != 100*time.Millisecond {
		t.Errorf("Tools.BatchDelay = %v, want 100ms", cfg.Tools.BatchDelay)
	}
	if cfg.Providers.SuiteDelay != time.Second {
		t.Errorf("Providers.SuiteDelay = %v, want 1s", cfg.Providers.SuiteDelay)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AGENTDESK_PORT", "9090")
	t.Setenv("AGENTDESK_AGENTS", "5")
	t.Setenv("AGENTDESK_SUITE_DELAY", "250ms")
	t.Setenv("AGENTDESK_GUARD_LEVEL", "strict")
	t.Setenv("OTEL_ENABLED", "true")

	cfg := Load()
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Agents.PoolSize != 5 {
		t.Errorf("Agents.PoolSize = %d, want 5", cfg.Agents.PoolSize)
	}
	if cfg.Providers.SuiteDelay != 250*time.Millisecond {
		t.Errorf("Providers.SuiteDelay = %v, want 250ms", cfg.Providers.SuiteDelay)
	}
	if cfg.Tools.GuardLevel != "strict" {
		t.Errorf("Tools.GuardLevel = %q, want strict", cfg.Tools.GuardLevel)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled = false, want true")
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("AGENTDESK_PORT", "not-a-port")
	t.Setenv("AGENTDESK_TOOL_BATCH_DELAY", "soon")

	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want fallback 8080", cfg.Port)
	}
	if cfg.Tools.BatchDelay != 100*time.Millisecond {
		t.Errorf("Tools.BatchDelay = %v, want fallback 100ms", cfg.Tools.BatchDelay)
	}
}

func TestBaseURLOverrides(t *testing.T) {
	t.Setenv("AGENTDESK_OLLAMA_BASE_URL", "http://gpu-box:11434")
	t.Setenv("AGENTDESK_X_AI_BASE_URL", "http://proxy/xai")

	got := BaseURLOverrides([]string{"ollama", "x-ai", "openai"})
	if len(got) != 2 {
		t.Fatalf("BaseURLOverrides() = %v, want 2 entries", got)
	}
	if got["ollama"] != "http://gpu-box:11434" {
		t.Errorf("ollama = %q", got["ollama"])
	}
	if got["x-ai"] != "http://proxy/xai" {
		t.Errorf("x-ai = %q", got["x-ai"])
	}
}

func TestCheckExposure(t *testing.T) {
	tests := []struct {
		host    string
		keys    string
		wantErr bool
	}{
		{"127.0.0.1", "", false},
		{"localhost", "", false},
		{"::1", "", false},
		{"[::1]", "", false},
		{"", "", true},
		{"0.0.0.0", "", true},
		{"192.168.1.10", "", true},
		{"0.0.0.0", " , ", true},
		{"0.0.0.0", "k1", false},
	}
	for _, tt := range tests {
		cfg := &Config{Host: tt.host, APIKeys: tt.keys}
		err := cfg.CheckExposure()
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckExposure(host=%q, keys=%q) error = %v, wantErr %v", tt.host, tt.keys, err, tt.wantErr)
		}
	}
}

func TestOrigins(t *testing.T) {
	cfg := &Config{CORSOrigins: " http://localhost:3000, ,https://app.example.com"}
	got := cfg.Origins()
	if len(got) != 2 || got[0] != "http://localhost:3000" || got[1] != "https://app.example.com" {
		t.Errorf("Origins() = %v", got)
	}

	empty := &Config{}
	if got := empty.Origins(); len(got) != 3 {
		t.Errorf("Origins() with empty list = %v, want the loopback defaults", got)
	}
}
