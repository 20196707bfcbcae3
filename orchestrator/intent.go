package orchestrator

import (
	"log/slog"
	"regexp"
	"strings"
)

// intentPatterns pairs an intent with its keyword regexes. Declaration order
// matters: on equal confidence the earlier intent wins, which is the
// documented tie-break rule.
type intentPatterns struct {
	intent   IntentType
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

var classifierPatterns = []intentPatterns{
	{IntentCropPlanning, compileAll(
		`what.*plant|what.*crop|which.*crop|plant.*next|sow.*what`,
		`crop.*planning|crop.*selection|best.*crop|recommend.*crop`,
		`what.*grow|growing.*season|planting.*season`,
	)},
	{IntentPestDiseaseDiag, compileAll(
		`pest|disease|bug|insect|fungus|mold|mildew|blight`,
		`yellow.*leaf|brown.*spot|white.*spot|rot|wilt`,
		`damage.*plant|plant.*sick|treatment.*pest|spray.*what`,
		`leaves.*yellow|spots.*white|spots.*brown`,
	)},
	{IntentYieldOptimization, compileAll(
		`yield|production|output|harvest.*more|increase.*yield`,
		`optimize.*production|maximize.*yield|better.*harvest`,
		`productivity|efficiency|improve.*crop`,
	)},
	{IntentTaskScheduling, compileAll(
		`schedule|plan.*work|task.*list|daily.*routine|weekly.*plan`,
		`when.*plant|when.*harvest|timing|calendar|schedule.*farm`,
		`work.*plan|operation.*plan|farm.*schedule`,
	)},
	{IntentMarketAnalysis, compileAll(
		`market|price|demand|supply|sell|profit|revenue|income`,
		`market.*trend|price.*forecast|best.*price|when.*sell`,
		`market.*analysis|economic|financial|cost.*benefit`,
	)},
	{IntentSoilHealth, compileAll(
		`soil|fertility|nutrient|ph|nitrogen|phosphorus|potassium`,
		`soil.*test|soil.*health|soil.*condition|soil.*quality`,
		`fertilizer|manure|compost|soil.*preparation`,
	)},
	{IntentWeatherQuery, compileAll(
		`weather|rain|temperature|humidity|forecast|climate`,
		`rainfall|drought|flood|storm|seasonal.*weather`,
		`weather.*condition|weather.*prediction`,
	)},
	{IntentFertilizerAdvice, compileAll(
		`fertilizer|npk|urea|dap|organic|inorganic|nutrient.*management`,
		`fertilizer.*application|fertilizer.*timing|fertilizer.*dose`,
		`nutrient.*deficiency|fertilizer.*recommendation`,
	)},
	{IntentIrrigationPlanning, compileAll(
		`irrigation|water|drip|sprinkler|flood|water.*management`,
		`irrigation.*schedule|water.*requirement|irrigation.*timing`,
		`drought.*resistant|water.*conservation`,
	)},
	{IntentHarvestPlanning, compileAll(
		`harvest|harvesting|maturity|ripening|harvest.*time`,
		`when.*harvest|harvest.*schedule|post.*harvest|storage`,
		`harvest.*method|harvest.*equipment`,
	)},
	{IntentRiskManagement, compileAll(
		`risk|insurance|protection|safety|prevention|mitigation`,
		`crop.*insurance|risk.*management|disaster.*preparation`,
		`weather.*risk|market.*risk|production.*risk`,
	)},
	{IntentFarmerSupport, compileAll(
		`help|support|advice|guidance|training|education|learning`,
		`certification|compliance|community|expert|consultant`,
		`farmer.*support|agricultural.*extension|best.*practice`,
	)},
}

// Classifier maps raw query text to an intent label, confidence score, and
// extracted entities. Classification is pure pattern matching over static
// tables; it never fails, at worst it returns a zero-confidence
// general_query result.
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier builds an intent classifier.
func NewClassifier(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify scores every intent's patterns against the lower-cased query and
// returns the best match with extracted entities. Entity extraction is
// independent of intent scoring.
func (c *Classifier) Classify(query string) IntentResult {
	lower := strings.ToLower(strings.TrimSpace(query))

	best := IntentGeneralQuery
	bestConfidence := 0.0
	for _, group := range classifierPatterns {
		confidence := patternConfidence(lower, group.patterns)
		if confidence > bestConfidence {
			bestConfidence = confidence
			best = group.intent
		}
	}

	result := IntentResult{
		Intent:     best,
		Confidence: bestConfidence,
		Entities:   ExtractEntities(lower),
		Query:      query,
		Language:   DetectLanguage(query),
	}

	c.logger.Info("classifier: intent classified",
		"intent", string(best),
		"confidence", bestConfidence,
		"language", result.Language)
	return result
}

// patternConfidence is the fraction of patterns matched, boosted by 1.2 when
// more than one matched, capped at 1.0.
func patternConfidence(query string, patterns []*regexp.Regexp) float64 {
	if len(patterns) == 0 {
		return 0
	}
	matches := 0
	for _, p := range patterns {
		if p.MatchString(query) {
			matches++
		}
	}
	confidence := float64(matches) / float64(len(patterns))
	if matches > 1 {
		confidence *= 1.2
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// Follow-up words that, with enough prior conversation, indicate an advisory
// continuation rather than small talk.
var followUpWords = map[string]struct{}{
	"why": {}, "why?": {}, "how": {}, "how?": {},
	"when": {}, "when?": {}, "explain": {}, "explain?": {},
}

var shortQueryKeywords = []string{
	"yield", "pest", "disease", "price", "market", "weather", "soil",
	"farm", "crop", "sowing", "seed", "irrigation", "fertilizer",
}

// IsGeneralConversation is the cheap pre-check that runs before pattern
// classification. It recognizes greetings, identity questions, and very
// short non-domain queries, so the pipeline can skip agent execution
// entirely. historyLen is the number of stored conversation turns; with
// enough history a bare follow-up word is treated as advisory.
func IsGeneralConversation(query string, historyLen int) bool {
	q := strings.ToLower(strings.TrimSpace(query))

	if historyLen >= 2 {
		if _, ok := followUpWords[q]; ok {
			return false
		}
	}

	if greetingPattern.MatchString(q) {
		return true
	}
	if strings.Contains(q, "who are you") || strings.Contains(q, "what can you do") {
		return true
	}
	if strings.Contains(q, "help") && len(q) < 20 {
		return true
	}

	if len(strings.Fields(q)) <= 2 {
		for _, k := range shortQueryKeywords {
			if strings.Contains(q, k) {
				return false
			}
		}
		return true
	}
	return false
}

var greetingPattern = regexp.MustCompile(`^(hi+|hello|hey|hola|namaste|good\s*(morning|afternoon|evening)|greetings).{0,20}$`)

var hindiPatterns = compileAll(
	`[अ-ह]`,
	`क्या|कैसे|कब|कहाँ|कौन|क्यों`,
	`में|का|की|के|है|हैं|था|थी`,
)

// DetectLanguage returns a BCP-47-ish tag for the query text. Detection is
// deliberately crude: Devanagari script or common Hindi particles mean "hi",
// everything else is "en".
func DetectLanguage(query string) string {
	for _, p := range hindiPatterns {
		if p.MatchString(query) {
			return "hi"
		}
	}
	return "en"
}
