package alerting

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openestate/watchtower/internal/models"
)

// RulesFile is the top-level YAML layout of an alert rules file.
type RulesFile struct {
	Rules []*models.AlertRule `yaml:"rules"`
}

// LoadRulesFromFile loads alert rules from a YAML file.
func LoadRulesFromFile(path string) ([]*models.AlertRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	return LoadRules(f)
}

// LoadRules loads alert rules from a reader.
func LoadRules(r io.Reader) ([]*models.AlertRule, error) {
	var file RulesFile
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
	}

	for i, rule := range file.Rules {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("invalid rule at index %d: %w", i, err)
		}
	}

	return file.Rules, nil
}

// LoadRulesFromBytes loads alert rules from YAML bytes.
func LoadRulesFromBytes(data []byte) ([]*models.AlertRule, error) {
	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
	}

	for i, rule := range file.Rules {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("invalid rule at index %d: %w", i, err)
		}
	}

	return file.Rules, nil
}
