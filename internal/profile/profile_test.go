package profile

import (
	"testing"
	"time"
)

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AGRISENSE_AI_LLM_PROVIDER",
		"AGRISENSE_AI_LLM_API_KEY",
		"AGRISENSE_AI_LLM_BASE_URL",
		"AGRISENSE_AI_LLM_MODEL",
		"AGRISENSE_AI_LLM_TIMEOUT_SECONDS",
		"AGRISENSE_REDIS_URL",
		"AGRISENSE_SESSION_TTL_HOURS",
		"AGRISENSE_SESSION_MAX_HISTORY",
		"AGRISENSE_MAX_AGENTS",
		"AGRISENSE_AGENT_TIMEOUT_SECONDS",
		"AGRISENSE_MAX_PARALLEL_TASKS",
		"AGRISENSE_LOW_LLM_MODE",
		"OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnvVars(t)

	p := &Profile{}
	p.FromEnv()

	if p.AIEnabled {
		t.Error("AIEnabled should be false without an API key")
	}
	if p.LLMProvider != "openai" {
		t.Errorf("LLMProvider: expected openai, got %q", p.LLMProvider)
	}
	if p.LLMBaseURL != "https://api.openai.com/v1" {
		t.Errorf("LLMBaseURL default wrong: %q", p.LLMBaseURL)
	}
	if p.LLMModel == "" {
		t.Error("LLMModel should default per provider")
	}
	if p.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL: expected 24h, got %s", p.SessionTTL)
	}
	if p.AgentTimeout != 30*time.Second {
		t.Errorf("AgentTimeout: expected 30s, got %s", p.AgentTimeout)
	}
	if p.MaxAgents != 5 {
		t.Errorf("MaxAgents: expected 5, got %d", p.MaxAgents)
	}
}

func TestProfileFromEnv(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("AGRISENSE_AI_LLM_PROVIDER", "deepseek")
	t.Setenv("AGRISENSE_AI_LLM_API_KEY", "test-key")
	t.Setenv("AGRISENSE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AGRISENSE_LOW_LLM_MODE", "true")
	t.Setenv("AGRISENSE_MAX_AGENTS", "3")

	p := &Profile{}
	p.FromEnv()

	if !p.AIEnabled {
		t.Error("AIEnabled should be true with an API key")
	}
	if p.LLMProvider != "deepseek" {
		t.Errorf("LLMProvider: expected deepseek, got %q", p.LLMProvider)
	}
	if p.LLMBaseURL != "https://api.deepseek.com" {
		t.Errorf("LLMBaseURL should follow provider default: %q", p.LLMBaseURL)
	}
	if p.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL wrong: %q", p.RedisURL)
	}
	if !p.LowLLMMode {
		t.Error("LowLLMMode should be true")
	}
	if p.MaxAgents != 3 {
		t.Errorf("MaxAgents: expected 3, got %d", p.MaxAgents)
	}
}

func TestProfileUnknownProviderFallsBack(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("AGRISENSE_AI_LLM_PROVIDER", "nonsense")

	p := &Profile{}
	p.FromEnv()

	if p.LLMProvider != "openai" {
		t.Errorf("unknown provider should fall back to openai, got %q", p.LLMProvider)
	}
}

func TestProfileValidate(t *testing.T) {
	p := &Profile{Mode: "weird", Port: 8080, MaxAgents: 5, AgentTimeout: time.Second}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Mode != "demo" {
		t.Errorf("invalid mode should normalize to demo, got %q", p.Mode)
	}

	bad := &Profile{Mode: "dev", Port: 0, MaxAgents: 5, AgentTimeout: time.Second}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for invalid port")
	}
}
