package config

import (
	_ "embed"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/excel-interviewer/internal/domain"
)

//go:embed interview.yaml
var interviewYAML []byte

// InterviewConfig carries the fixed interview tuning: the 7-entry skill
// catalog and the two scoring rubrics. It is loaded once at startup and
// read-only afterwards, so any number of sessions may share it.
type InterviewConfig struct {
	SkillAreas  []string      `yaml:"skill_areas"`
	TextRubric  domain.Rubric `yaml:"text_rubric"`
	ExcelRubric domain.Rubric `yaml:"excel_rubric"`
}

// LoadInterview parses and validates the embedded interview tuning.
func LoadInterview() (InterviewConfig, error) {
	var ic InterviewConfig
	if err := yaml.Unmarshal(interviewYAML, &ic); err != nil {
		return InterviewConfig{}, fmt.Errorf("op=config.LoadInterview: %w", err)
	}
	if err := ic.validate(); err != nil {
		return InterviewConfig{}, fmt.Errorf("op=config.LoadInterview: %w", err)
	}
	return ic, nil
}

func (ic InterviewConfig) validate() error {
	if len(ic.SkillAreas) == 0 {
		return fmt.Errorf("skill_areas empty")
	}
	for _, s := range ic.SkillAreas {
		if s == "" {
			return fmt.Errorf("skill_areas contains empty entry")
		}
	}
	for name, r := range map[string]domain.Rubric{"text_rubric": ic.TextRubric, "excel_rubric": ic.ExcelRubric} {
		if len(r) == 0 {
			return fmt.Errorf("%s empty", name)
		}
		var sum float64
		for dim, d := range r {
			if d.Weight <= 0 || d.Weight > 1 {
				return fmt.Errorf("%s: dimension %s has invalid weight %.2f", name, dim, d.Weight)
			}
			if d.Description == "" {
				return fmt.Errorf("%s: dimension %s missing description", name, dim)
			}
			sum += d.Weight
		}
		if math.Abs(sum-1.0) > 1e-6 {
			return fmt.Errorf("%s: weights sum to %.4f, want 1.0", name, sum)
		}
	}
	return nil
}
