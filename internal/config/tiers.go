package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// TierSeed is one plan tier definition used to seed exam products. These
// are the storefront's sellable levels; every knob here is data the back
// office can change later, never logic.
type TierSeed struct {
	Level              string  `json:"level"`
	Title              string  `json:"title"`
	DurationMinutes    int     `json:"duration_minutes"`
	QuestionCount      int     `json:"question_count"`
	MarkCorrect        int     `json:"mark_correct"`
	MarkWrong          int     `json:"mark_wrong"`
	MaxViolations      int     `json:"max_violations"`
	PassPercent        float64 `json:"pass_percent"`
	IdleTimeoutSeconds int     `json:"idle_timeout_seconds"`
}

// DefaultTiers returns the built-in plan catalog: a lightly proctored
// skills test and two negative-marking tiers, the top one with a
// highly-selective pass bar.
func DefaultTiers() []TierSeed {
	return []TierSeed{
		{
			Level:              "basic",
			Title:              "Skills Check",
			DurationMinutes:    20,
			QuestionCount:      20,
			MarkCorrect:        1,
			MarkWrong:          0,
			MaxViolations:      0,
			PassPercent:        55,
			IdleTimeoutSeconds: 180,
		},
		{
			Level:              "advanced",
			Title:              "Advanced Mock Test",
			DurationMinutes:    45,
			QuestionCount:      40,
			MarkCorrect:        4,
			MarkWrong:          1,
			MaxViolations:      8,
			PassPercent:        55,
			IdleTimeoutSeconds: 180,
		},
		{
			Level:              "pro",
			Title:              "Proctored Selection Exam",
			DurationMinutes:    60,
			QuestionCount:      50,
			MarkCorrect:        4,
			MarkWrong:          1,
			MaxViolations:      5,
			PassPercent:        88,
			IdleTimeoutSeconds: 180,
		},
	}
}

// LoadTiers returns the tier definitions, reading the override file when
// configured and falling back to the defaults otherwise.
func LoadTiers(path string) ([]TierSeed, error) {
	if path == "" {
		return DefaultTiers(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tiers file: %w", err)
	}

	var tiers []TierSeed
	if err := json.Unmarshal(raw, &tiers); err != nil {
		return nil, fmt.Errorf("parse tiers file: %w", err)
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tiers file %s defines no tiers", path)
	}
	return tiers, nil
}
