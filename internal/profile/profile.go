package profile

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	LLMProvider string // Provider identifier: openai, deepseek, siliconflow, dashscope, openrouter, ollama
	LLMAPIKey   string
	LLMBaseURL  string // Optional, has a default per provider
	LLMModel    string
	LLMTimeout  int // LLM request timeout in seconds (default: 120)

	// Session storage
	RedisURL       string // Optional; empty means in-process sessions only
	SessionTTL     time.Duration
	SessionHistory int

	// Pipeline tuning
	MaxAgents        int
	AgentTimeout     time.Duration
	MaxParallelTasks int
	LowLLMMode       bool
	WorkflowsFile    string // Optional YAML overrides for workflow templates

	Mode    string
	Addr    string
	Port    int
	Version string

	AIEnabled bool
}

// Provider default configurations for the LLM, used when the base URL or
// model is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"dashscope": {
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:   "qwen-max-latest",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured. Ollama needs no
// key, so a non-empty base URL pointing at it also counts.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("AGRISENSE_AI_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("AGRISENSE_AI_LLM_API_KEY", os.Getenv("OPENAI_API_KEY"))
	p.LLMBaseURL = getEnvOrDefault("AGRISENSE_AI_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("AGRISENSE_AI_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("AGRISENSE_AI_LLM_TIMEOUT_SECONDS", 120)

	p.AIEnabled = p.IsAIEnabled()

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("profile: unknown LLM provider, using default: openai", "provider", p.LLMProvider)
		p.LLMProvider = "openai"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.RedisURL = getEnvOrDefault("AGRISENSE_REDIS_URL", "")
	p.SessionTTL = time.Duration(getEnvOrDefaultInt("AGRISENSE_SESSION_TTL_HOURS", 24)) * time.Hour
	p.SessionHistory = getEnvOrDefaultInt("AGRISENSE_SESSION_MAX_HISTORY", 50)

	p.MaxAgents = getEnvOrDefaultInt("AGRISENSE_MAX_AGENTS", 5)
	p.AgentTimeout = time.Duration(getEnvOrDefaultInt("AGRISENSE_AGENT_TIMEOUT_SECONDS", 30)) * time.Second
	p.MaxParallelTasks = getEnvOrDefaultInt("AGRISENSE_MAX_PARALLEL_TASKS", 4)
	p.LowLLMMode = getEnvOrDefault("AGRISENSE_LOW_LLM_MODE", "false") == "true"
	p.WorkflowsFile = getEnvOrDefault("AGRISENSE_WORKFLOWS_FILE", "")
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.MaxAgents <= 0 {
		return errors.New("max agents must be positive")
	}
	if p.AgentTimeout <= 0 {
		return errors.New("agent timeout must be positive")
	}
	return nil
}
