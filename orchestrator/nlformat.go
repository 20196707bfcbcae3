package orchestrator

import (
	"fmt"
	"strings"
)

const missingDetailsFallback = "I'd be happy to help you with your farming questions! To give you the best advice, " +
	"could you share some details about:\n\n" +
	"- What crop you're growing\n" +
	"- Your location or region\n" +
	"- Any specific concerns or challenges you're facing\n\n" +
	"With this information, I can provide personalized recommendations for your farm."

// FormatNaturalLanguage renders the structured answer as conversational
// text: the prose answer followed by recommendation and warning sections.
// conversational softens the section headings.
func FormatNaturalLanguage(answer SynthesizedAnswer, conversational bool) string {
	var parts []string

	if answer.Answer != "" {
		parts = append(parts, answer.Answer)
	}

	if len(answer.Recommendations) > 0 {
		heading := "**Recommendations:**"
		if conversational {
			heading = "**Here's what I recommend:**"
		}
		parts = append(parts, "\n\n"+heading)
		for _, rec := range answer.Recommendations {
			if rec = strings.TrimSpace(rec); rec != "" {
				parts = append(parts, fmt.Sprintf("\n- %s", rec))
			}
		}
	}

	if len(answer.Warnings) > 0 {
		heading := "**Important Warnings:**"
		if conversational {
			heading = "**Important to keep in mind:**"
		}
		parts = append(parts, "\n\n"+heading)
		for _, warning := range answer.Warnings {
			if warning = strings.TrimSpace(warning); warning != "" {
				parts = append(parts, fmt.Sprintf("\n- %s", warning))
			}
		}
	}

	if len(parts) == 0 {
		return missingDetailsFallback
	}
	return strings.Join(parts, "")
}

// conversationalFromContext reads the "conversational" flag, defaulting to
// true.
func conversationalFromContext(reqContext map[string]any) bool {
	if reqContext == nil {
		return true
	}
	if v, ok := reqContext["conversational"].(bool); ok {
		return v
	}
	return true
}
