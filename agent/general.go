package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/agrisense/agrisense/core/llm"
)

// GeneralChatName is the pseudo-agent the orchestrator routes small talk to.
// It is not part of the advisory catalog and never appears in selection
// prompts.
const GeneralChatName = "__general_chat__"

var greetingRe = regexp.MustCompile(`^(hi+|hello|hey|hola|namaste|namaskar|good\s*(morning|afternoon|evening)|greetings).{0,20}$`)

var smallTalkPhrases = []string{
	"how are you", "how r u", "what's up", "whats up",
	"thank you", "thanks", "thank u", "dhanyavaad",
	"bye", "goodbye", "see you", "good night",
}

// GeneralChat answers greetings and small talk. Simple greetings get an
// instant canned reply; anything else goes to the LLM with a short persona
// prompt. With a nil service the canned fallback always answers, which keeps
// the chat path alive when no provider is configured.
type GeneralChat struct {
	llm    llm.Service
	logger *slog.Logger
}

// NewGeneralChat builds the small-talk agent. svc may be nil.
func NewGeneralChat(svc llm.Service, logger *slog.Logger) *GeneralChat {
	return &GeneralChat{llm: svc, logger: logger}
}

func (g *GeneralChat) Name() string { return GeneralChatName }

func (g *GeneralChat) Handle(ctx context.Context, input Input) (Output, error) {
	query := input.Query()

	if IsSimpleQuery(query) {
		return Output{"response": GreetingResponse(query)}, nil
	}
	if g.llm == nil {
		return Output{"response": GreetingResponse(query)}, nil
	}

	prompt := fmt.Sprintf(`You are AgriSense, a helpful agricultural AI assistant.
User Query: %q

Answer the user directly and politely. Keep it brief.
If they ask what you can do, explain that you orchestrate specialized agents for soil, weather, market, and crop analysis.`, query)

	reply, err := g.llm.Chat(ctx, []llm.Message{llm.UserMessage(prompt)})
	if err != nil {
		g.logger.Warn("general chat: llm failed, using canned reply", "error", err)
		return Output{"response": GreetingResponse(query)}, nil
	}
	return Output{"response": strings.TrimSpace(reply)}, nil
}

// IsSimpleQuery reports whether query is a greeting or small talk that can
// be answered without an LLM round-trip.
func IsSimpleQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if greetingRe.MatchString(q) {
		return true
	}
	for _, phrase := range smallTalkPhrases {
		if strings.Contains(q, phrase) {
			return true
		}
	}
	return false
}

// GreetingResponse returns a canned reply for greetings and small talk.
func GreetingResponse(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))

	if greetingRe.MatchString(q) {
		return "Hello! I'm AgriSense, your AI farming assistant. " +
			"I can help you with crop selection, pest management, irrigation planning, " +
			"weather forecasts, and much more. What would you like to know about your farm today?"
	}
	if containsAny(q, "how are you", "how r u", "what's up", "whats up") {
		return "I'm doing great, thank you for asking! I'm here and ready to help you with " +
			"all your farming needs. What can I assist you with today?"
	}
	if containsAny(q, "thank you", "thanks", "thank u", "dhanyavaad") {
		return "You're very welcome! I'm always here to help. Feel free to ask me anything " +
			"about farming, crops, weather, or agricultural best practices anytime!"
	}
	if containsAny(q, "bye", "goodbye", "see you", "good night") {
		return "Goodbye! Wishing you a bountiful harvest. Come back anytime you need farming advice."
	}
	return "Hello! I'm AgriSense. How can I help you with your farming activities today?"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
