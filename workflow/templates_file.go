package workflow

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// templateFile is the YAML shape for operator-supplied workflow overrides:
//
//	workflows:
//	  crop_planning:
//	    - agent: soil_health
//	      priority: high
//	    - agent: crop_selector
//	      priority: critical
//	      depends_on: [soil_health]
type templateFile struct {
	Workflows map[string][]struct {
		Agent     string   `yaml:"agent"`
		Priority  string   `yaml:"priority"`
		DependsOn []string `yaml:"depends_on"`
	} `yaml:"workflows"`
}

// LoadTemplates merges workflow shapes from a YAML file over the built-in
// set. Intents not present in the file keep their defaults. Must be called
// before any engine starts executing; the template table is read-only
// afterwards.
func LoadTemplates(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "workflow: read templates file")
	}
	return mergeTemplates(raw)
}

func mergeTemplates(raw []byte) error {
	var file templateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return errors.Wrap(err, "workflow: parse templates file")
	}

	for intent, steps := range file.Workflows {
		if len(steps) == 0 {
			return errors.Errorf("workflow: intent %q has no steps", intent)
		}
		declared := make(map[string]struct{}, len(steps))
		converted := make([]templateStep, 0, len(steps))
		for _, step := range steps {
			if step.Agent == "" {
				return errors.Errorf("workflow: intent %q has a step without an agent", intent)
			}
			priority, err := parsePriority(step.Priority)
			if err != nil {
				return errors.Wrapf(err, "workflow: intent %q agent %q", intent, step.Agent)
			}
			declared[step.Agent] = struct{}{}
			converted = append(converted, templateStep{
				Agent:     step.Agent,
				Priority:  priority,
				DependsOn: step.DependsOn,
			})
		}
		// Dependencies must name agents declared in the same workflow.
		for _, step := range converted {
			for _, dep := range step.DependsOn {
				if _, ok := declared[dep]; !ok {
					return errors.Errorf("workflow: intent %q agent %q depends on undeclared %q", intent, step.Agent, dep)
				}
			}
		}
		templates[intent] = converted
	}
	return nil
}

func parsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	}
	return PriorityNormal, errors.Errorf("unknown priority %q", s)
}
