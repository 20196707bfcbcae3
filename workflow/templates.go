package workflow

// templateStep declares one agent of an intent's workflow. DependsOn names
// agents within the same template, resolved to task ids at build time.
type templateStep struct {
	Agent     string
	Priority  Priority
	DependsOn []string
}

// templates maps intent labels to their workflow shapes. Absence of an
// intent here means the flat execution path handles it instead.
var templates = map[string][]templateStep{
	"crop_planning": {
		{Agent: "soil_health", Priority: PriorityHigh},
		{Agent: "weather_watcher", Priority: PriorityHigh},
		{Agent: "market_intelligence", Priority: PriorityNormal},
		{Agent: "crop_selector", Priority: PriorityCritical,
			DependsOn: []string{"soil_health", "weather_watcher", "market_intelligence"}},
		{Agent: "seed_selection", Priority: PriorityHigh,
			DependsOn: []string{"crop_selector"}},
		{Agent: "fertilizer_advisor", Priority: PriorityNormal,
			DependsOn: []string{"soil_health", "crop_selector"}},
		{Agent: "irrigation_planner", Priority: PriorityNormal,
			DependsOn: []string{"weather_watcher", "crop_selector"}},
	},
	"pest_disease_diagnosis": {
		{Agent: "pest_disease_diagnostic", Priority: PriorityCritical},
		{Agent: "fertilizer_advisor", Priority: PriorityNormal,
			DependsOn: []string{"pest_disease_diagnostic"}},
		{Agent: "irrigation_planner", Priority: PriorityLow,
			DependsOn: []string{"pest_disease_diagnostic"}},
	},
	"yield_optimization": {
		{Agent: "yield_predictor", Priority: PriorityHigh},
		{Agent: "soil_health", Priority: PriorityNormal},
		{Agent: "fertilizer_advisor", Priority: PriorityHigh,
			DependsOn: []string{"soil_health"}},
		{Agent: "irrigation_planner", Priority: PriorityNormal},
		{Agent: "profit_optimization", Priority: PriorityCritical,
			DependsOn: []string{"yield_predictor", "fertilizer_advisor"}},
	},
	"task_scheduling": {
		{Agent: "task_scheduler", Priority: PriorityCritical},
		{Agent: "machinery_equipment", Priority: PriorityNormal,
			DependsOn: []string{"task_scheduler"}},
		{Agent: "farm_layout_mapping", Priority: PriorityLow,
			DependsOn: []string{"task_scheduler"}},
	},
	"market_analysis": {
		{Agent: "market_intelligence", Priority: PriorityCritical},
		{Agent: "profit_optimization", Priority: PriorityHigh,
			DependsOn: []string{"market_intelligence"}},
		{Agent: "logistics_storage", Priority: PriorityNormal,
			DependsOn: []string{"market_intelligence"}},
	},
	"soil_health": {
		{Agent: "soil_health", Priority: PriorityCritical},
		{Agent: "fertilizer_advisor", Priority: PriorityHigh,
			DependsOn: []string{"soil_health"}},
	},
	"weather_query": {
		{Agent: "weather_watcher", Priority: PriorityCritical},
	},
	"fertilizer_advice": {
		{Agent: "soil_health", Priority: PriorityHigh},
		{Agent: "fertilizer_advisor", Priority: PriorityCritical,
			DependsOn: []string{"soil_health"}},
	},
	"irrigation_planning": {
		{Agent: "weather_watcher", Priority: PriorityHigh},
		{Agent: "irrigation_planner", Priority: PriorityCritical,
			DependsOn: []string{"weather_watcher"}},
	},
	"harvest_planning": {
		{Agent: "yield_predictor", Priority: PriorityHigh},
		{Agent: "market_intelligence", Priority: PriorityHigh},
		{Agent: "logistics_storage", Priority: PriorityNormal,
			DependsOn: []string{"yield_predictor", "market_intelligence"}},
	},
	"risk_management": {
		{Agent: "crop_insurance_risk", Priority: PriorityCritical},
		{Agent: "weather_watcher", Priority: PriorityNormal},
		{Agent: "pest_disease_diagnostic", Priority: PriorityNormal},
	},
	"farmer_support": {
		{Agent: "farmer_coach", Priority: PriorityCritical},
		{Agent: "compliance_certification", Priority: PriorityLow},
		{Agent: "community_engagement", Priority: PriorityLow},
	},
}

// HasTemplate reports whether the intent has a declared workflow shape.
func HasTemplate(intent string) bool {
	_, ok := templates[intent]
	return ok
}

// TemplateAgents returns the agents of an intent's template in declaration
// order, nil when the intent has no template.
func TemplateAgents(intent string) []string {
	steps, ok := templates[intent]
	if !ok {
		return nil
	}
	agents := make([]string, len(steps))
	for i, step := range steps {
		agents[i] = step.Agent
	}
	return agents
}
