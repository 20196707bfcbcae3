package orchestrator

import (
	"strconv"
	"strings"
)

// Entity extraction is regex and lookup-table based. Each extractor either
// finds its entity or yields nothing; a miss is not an error and absent
// entities never appear in the map.

var locationPatterns = compileAll(
	`in\s+([a-zA-Z\s]+?)(?:\s+state|\s+district|\s+area|$)`,
	`at\s+([a-zA-Z\s]+?)(?:\s+state|\s+district|\s+area|$)`,
	`from\s+([a-zA-Z\s]+?)(?:\s+state|\s+district|\s+area|$)`,
	`location\s+([a-zA-Z\s]+?)(?:\s+state|\s+district|\s+area|$)`,
)

var knownCrops = []string{
	"wheat", "rice", "maize", "cotton", "sugarcane", "potato", "tomato",
	"onion", "chilli", "pepper", "corn", "soybean", "pulses", "millets",
	"bajra", "jowar", "ragi", "tur", "moong", "urad", "chana", "masoor",
}

var timePeriodPatterns = compileAll(
	`next\s+(week|month|season|year)`,
	`this\s+(week|month|season|year)`,
	`in\s+(\d+)\s+(days|weeks|months)`,
	`(january|february|march|april|may|june|july|august|september|october|november|december)`,
)

var measurementPatterns = compileAll(
	`(\d+(?:\.\d+)?)\s*(acre|hectare|ha|kg|ton|quintal|litre|l)`,
	`(\d+(?:\.\d+)?)\s*(percent|%)`,
	`(\d+(?:\.\d+)?)\s*(degree|celsius|fahrenheit)`,
)

var knownSymptoms = []string{
	"yellow leaves", "brown spots", "white powder", "black spots",
	"wilting", "rotting", "holes in leaves", "curled leaves",
	"stunted growth", "leaf drop", "fruit drop", "root rot",
}

// ExtractEntities runs all extractors over the lower-cased query and
// collects the hits. Keys: location, crop, time_period,
// measurement{value,unit}, symptoms.
func ExtractEntities(query string) map[string]any {
	entities := make(map[string]any)

	if loc := extractLocation(query); loc != "" {
		entities["location"] = loc
	}
	if crop := extractCrop(query); crop != "" {
		entities["crop"] = crop
	}
	if period := extractTimePeriod(query); period != "" {
		entities["time_period"] = period
	}
	if m := extractMeasurement(query); m != nil {
		entities["measurement"] = m
	}
	if symptoms := extractSymptoms(query); len(symptoms) > 0 {
		entities["symptoms"] = symptoms
	}
	return entities
}

func extractLocation(query string) string {
	for _, p := range locationPatterns {
		if m := p.FindStringSubmatch(query); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func extractCrop(query string) string {
	for _, crop := range knownCrops {
		if strings.Contains(query, crop) {
			return crop
		}
	}
	return ""
}

func extractTimePeriod(query string) string {
	for _, p := range timePeriodPatterns {
		if m := p.FindString(query); m != "" {
			return m
		}
	}
	return ""
}

func extractMeasurement(query string) map[string]any {
	for _, p := range measurementPatterns {
		m := p.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return map[string]any{"value": value, "unit": m[2]}
	}
	return nil
}

func extractSymptoms(query string) []string {
	var found []string
	for _, s := range knownSymptoms {
		if strings.Contains(query, s) {
			found = append(found, s)
		}
	}
	return found
}
