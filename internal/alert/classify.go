package alert

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary is the condition-name vocabulary the classifier matches against.
// Matching is case-insensitive substring matching: a named condition that
// contains a vocabulary term triggers the corresponding upgrade.
type Vocabulary struct {
	Critical []string `yaml:"critical"`
	High     []string `yaml:"high"`
}

// DefaultVocabulary returns the built-in condition vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Critical: []string{
			"Severe Hypoxemia",
			"Hypertensive Crisis",
			"Hypothermia",
			"Multiple System Dysfunction",
		},
		High: []string{
			"Hypertension",
			"Moderate Hypoxemia",
			"High Fever",
			"Tachycardia Risk",
		},
	}
}

// LoadVocabulary reads a vocabulary from a YAML file. Missing sections fall
// back to the built-in defaults so a file can override just one list.
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is from trusted config, not user input
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary: %w", err)
	}

	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary: %w", err)
	}

	def := DefaultVocabulary()
	if len(v.Critical) == 0 {
		v.Critical = def.Critical
	}
	if len(v.High) == 0 {
		v.High = def.High
	}
	return v, nil
}

// Classifier maps a risk assessment to an alert tier. It is pure: no side
// effects, same tier for the same assessment.
type Classifier struct {
	vocab Vocabulary
}

// NewClassifier creates a classifier with the given vocabulary.
func NewClassifier(v Vocabulary) *Classifier {
	return &Classifier{vocab: v}
}

// Classify maps the assessment's stated risk level to a tier, then upgrades
// when any named condition matches the critical or high vocabulary.
func (c *Classifier) Classify(a RiskAssessment) Tier {
	tier := tierFromRiskLevel(a.OverallRisk)

	for _, cond := range a.Conditions {
		switch {
		case matchesAny(cond, c.vocab.Critical):
			return TierCritical
		case matchesAny(cond, c.vocab.High) && !tier.AtLeast(TierHigh):
			tier = TierHigh
		}
	}

	return tier
}

func tierFromRiskLevel(level string) Tier {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "critical":
		return TierCritical
	case "high":
		return TierHigh
	case "moderate":
		return TierModerate
	default:
		return TierNone
	}
}

func matchesAny(condition string, terms []string) bool {
	cond := strings.ToLower(condition)
	for _, term := range terms {
		if strings.Contains(cond, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
