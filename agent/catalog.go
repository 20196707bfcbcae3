package agent

// Spec describes one entry of the advisory agent catalog. Category and Tools
// are surfaced through the registry listing endpoint and used to build
// selection prompts; they do not affect execution.
type Spec struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category,omitempty"`
	Tools       []string `json:"tools,omitempty"`
}

// Catalog is the full set of domain agents the platform ships with, grouped
// by functional area. Order is stable and used wherever a deterministic
// listing is needed.
var Catalog = []Spec{
	// Crop planning.
	{
		Name:        "crop_selector",
		Description: "Helps select the best crops based on soil, weather, and market conditions",
		Category:    "crop_planning",
		Tools:       []string{"soil", "weather", "market", "crop", "web_scraping", "climate_prediction", "market_analysis"},
	},
	{
		Name:        "seed_selection",
		Description: "Recommends the best seeds and varieties for selected crops",
		Category:    "crop_planning",
		Tools:       []string{"market", "genetic_database", "soil_suitability", "yield_prediction"},
	},
	{
		Name:        "soil_health",
		Description: "Analyzes soil conditions and provides health recommendations",
		Category:    "crop_planning",
		Tools:       []string{"soil", "crop", "soil_sensor", "amendment_recommendation", "lab_test_analyzer"},
	},
	{
		Name:        "fertilizer_advisor",
		Description: "Provides fertilizer recommendations based on soil analysis",
		Category:    "crop_planning",
		Tools:       []string{"soil", "fertilizer", "crop", "fertilizer_database", "weather_forecast", "plant_growth_simulation"},
	},
	{
		Name:        "irrigation_planner",
		Description: "Plans irrigation schedules based on weather and crop needs",
		Category:    "crop_planning",
		Tools:       []string{"weather", "irrigation", "crop", "evapotranspiration_model", "iot_soil_moisture", "weather_api"},
	},
	{
		Name:        "pest_disease_diagnostic",
		Description: "Diagnoses pest and disease issues and provides treatment plans",
		Category:    "crop_planning",
		Tools:       []string{"pest_disease", "crop", "image_recognition", "voice_to_text", "disease_prediction"},
	},
	{
		Name:        "weather_watcher",
		Description: "Monitors weather conditions and provides forecasts",
		Category:    "crop_planning",
		Tools:       []string{"weather", "crop", "weather_monitoring", "alert_system"},
	},
	{
		Name:        "growth_stage_monitor",
		Description: "Tracks crop growth stages and provides care recommendations",
		Category:    "crop_planning",
		Tools:       []string{"crop", "satellite_image_processing", "drone_image_processing", "growth_stage_prediction"},
	},

	// Farm operations.
	{
		Name:        "task_scheduler",
		Description: "Schedules farm tasks and operations efficiently",
		Category:    "farm_operations",
		Tools:       []string{"task_prioritization", "real_time_tracking", "weather_api"},
	},
	{
		Name:        "machinery_equipment",
		Description: "Manages machinery and equipment recommendations",
		Category:    "farm_operations",
		Tools:       []string{"maintenance_tracker", "predictive_maintenance"},
	},
	{
		Name:        "farm_layout_mapping",
		Description: "Helps design and optimize farm layout",
		Category:    "farm_operations",
		Tools:       []string{"field_mapping"},
	},

	// Analytics.
	{
		Name:        "yield_predictor",
		Description: "Predicts crop yields based on various factors",
		Category:    "analytics",
		Tools:       []string{"yield_model", "weather", "crop", "soil"},
	},
	{
		Name:        "profit_optimization",
		Description: "Optimizes farm profitability through various strategies",
		Category:    "analytics",
		Tools:       []string{"profit_optimization", "market", "crop"},
	},
	{
		Name:        "carbon_sustainability",
		Description: "Helps with carbon footprint and sustainability practices",
		Category:    "analytics",
		Tools:       []string{"carbon_sustainability"},
	},

	// Supply chain.
	{
		Name:        "market_intelligence",
		Description: "Provides market insights and price trends",
		Category:    "supply_chain",
		Tools:       []string{"market", "crop", "market_intelligence"},
	},
	{
		Name:        "logistics_storage",
		Description: "Manages logistics and storage recommendations",
		Category:    "supply_chain",
		Tools:       []string{"logistics", "market", "weather"},
	},
	{
		Name:        "input_procurement",
		Description: "Helps with procurement of farm inputs",
		Category:    "supply_chain",
		Tools:       []string{"procurement", "market"},
	},
	{
		Name:        "crop_insurance_risk",
		Description: "Provides risk assessment and insurance recommendations",
		Category:    "supply_chain",
		Tools:       []string{"insurance_risk", "weather", "market"},
	},

	// Support.
	{
		Name:        "farmer_coach",
		Description: "Provides coaching and educational support to farmers",
		Category:    "support",
		Tools:       []string{"farmer_coach"},
	},
	{
		Name:        "compliance_certification",
		Description: "Helps with regulatory compliance and certifications",
		Category:    "support",
		Tools:       []string{"compliance_cert"},
	},
	{
		Name:        "community_engagement",
		Description: "Facilitates community engagement and knowledge sharing",
		Category:    "support",
		Tools:       []string{"community"},
	},
}

// CatalogSpec returns the catalog entry for name, if present.
func CatalogSpec(name string) (Spec, bool) {
	for _, s := range Catalog {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}
