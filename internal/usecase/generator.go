package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/excel-interviewer/internal/domain"
)

const (
	generatorSystemPrompt = "You are an expert Excel interviewer. You generate practical, " +
		"fair interview questions and always answer with a single valid JSON object."

	fallbackQuestionText = "Explain how to use basic Excel functions for data analysis. " +
		"Specifically, describe when and how you would use SUM, AVERAGE, and COUNT functions " +
		"in a real-world scenario."
	fallbackSkillArea = "Basic Functions (SUM, AVERAGE, COUNT)"

	defaultAnswerFormat       = "Detailed explanation"
	defaultEvaluationCriteria = "Knowledge accuracy and communication clarity"
)

// Generator produces the next interview question via the AI client, with a
// canned question as last resort. It owns skill rotation bookkeeping on the
// session state.
type Generator struct {
	ai        domain.AIClient
	catalog   []string
	attempts  int
	baseDelay time.Duration
	maxTokens int
	log       *slog.Logger
}

// NewGenerator constructs a Generator over the fixed skill catalog.
func NewGenerator(ai domain.AIClient, catalog []string, attempts int, baseDelay time.Duration, maxTokens int, log *slog.Logger) *Generator {
	return &Generator{ai: ai, catalog: catalog, attempts: attempts, baseDelay: baseDelay, maxTokens: maxTokens, log: log}
}

// generatedQuestion mirrors the JSON schema demanded from the model.
type generatedQuestion struct {
	QuestionText         string `json:"question_text"`
	QuestionType         string `json:"question_type"`
	DifficultyLevel      int    `json:"difficulty_level"`
	SkillArea            string `json:"skill_area"`
	ExpectedAnswerFormat string `json:"expected_answer_format"`
	EvaluationCriteria   string `json:"evaluation_criteria"`
}

// NextQuestion advances the question counter, generates the next question,
// and appends the validated record to the session history. The counter moves
// exactly once per call, so fallback questions consume a numbered slot too.
func (g *Generator) NextQuestion(ctx context.Context, st *domain.InterviewState) *domain.QuestionRecord {
	st.QuestionCount++

	available := g.availableSkills(st)
	userPrompt := g.buildPrompt(st, available)

	q := attemptWithFallback(ctx, g.log, "generate_question", g.attempts, g.baseDelay,
		func() (generatedQuestion, error) { return g.generateOnce(ctx, st, available, userPrompt) },
		func() generatedQuestion { return g.fallbackQuestion(st, available) },
	)

	rec := &domain.QuestionRecord{
		ID:              st.QuestionCount,
		Text:            q.QuestionText,
		Type:            domain.QuestionType(q.QuestionType),
		DifficultyLevel: q.DifficultyLevel,
		SkillArea:       q.SkillArea,
		Timestamp:       time.Now().UTC(),
	}
	st.QuestionHistory = append(st.QuestionHistory, rec)
	st.TestedSkills[rec.SkillArea] = struct{}{}

	g.log.Info("question generated",
		slog.Int("question_id", rec.ID),
		slog.String("skill_area", rec.SkillArea),
		slog.String("type", string(rec.Type)),
		slog.Int("difficulty", rec.DifficultyLevel))
	return rec
}

// availableSkills returns catalog entries not yet tested; once the whole
// catalog has been covered the full list is offered again.
func (g *Generator) availableSkills(st *domain.InterviewState) []string {
	out := make([]string, 0, len(g.catalog))
	for _, s := range g.catalog {
		if _, tested := st.TestedSkills[s]; !tested {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = append(out, g.catalog...)
	}
	return out
}

func (g *Generator) generateOnce(ctx context.Context, st *domain.InterviewState, available []string, userPrompt string) (generatedQuestion, error) {
	raw, err := g.ai.ChatJSON(ctx, generatorSystemPrompt, userPrompt, g.maxTokens)
	if err != nil {
		return generatedQuestion{}, err
	}
	var q generatedQuestion
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return generatedQuestion{}, fmt.Errorf("%w: question json: %v", domain.ErrSchemaInvalid, err)
	}
	if strings.TrimSpace(q.QuestionText) == "" || strings.TrimSpace(q.QuestionType) == "" || strings.TrimSpace(q.SkillArea) == "" {
		return generatedQuestion{}, fmt.Errorf("%w: missing required question fields", domain.ErrSchemaInvalid)
	}
	// Deterministic coercion keeps behavior reproducible: unknown types become
	// text, off-list skill areas become the first available entry.
	if !domain.QuestionType(q.QuestionType).Valid() {
		q.QuestionType = string(domain.QuestionTypeText)
	}
	if !contains(available, q.SkillArea) {
		q.SkillArea = available[0]
	}
	if q.DifficultyLevel < 1 || q.DifficultyLevel > 5 {
		q.DifficultyLevel = st.CurrentDifficulty
	}
	if q.ExpectedAnswerFormat == "" {
		q.ExpectedAnswerFormat = defaultAnswerFormat
	}
	if q.EvaluationCriteria == "" {
		q.EvaluationCriteria = defaultEvaluationCriteria
	}
	return q, nil
}

// fallbackQuestion is the canned basic question used after all generation
// attempts fail. It never fails itself.
func (g *Generator) fallbackQuestion(st *domain.InterviewState, available []string) generatedQuestion {
	skill := fallbackSkillArea
	if len(available) > 0 {
		skill = available[0]
	}
	diff := st.CurrentDifficulty
	if diff < 1 {
		diff = 1
	}
	if diff > 3 {
		diff = 3
	}
	g.log.Info("using canned question after generation failures", slog.Int("question_id", st.QuestionCount))
	return generatedQuestion{
		QuestionText:         fallbackQuestionText,
		QuestionType:         string(domain.QuestionTypeText),
		DifficultyLevel:      diff,
		SkillArea:            skill,
		ExpectedAnswerFormat: "Detailed explanation with examples",
		EvaluationCriteria:   "Understanding of basic functions and practical application",
	}
}

func (g *Generator) buildPrompt(st *domain.InterviewState, available []string) string {
	suggested := available
	if len(suggested) > 3 {
		suggested = suggested[:3]
	}
	var b strings.Builder
	b.WriteString("Generate the next interview question based on:\n\nCONTEXT:\n")
	b.WriteString(g.buildContext(st, available))
	b.WriteString("\n\nREQUIREMENTS:\n")
	fmt.Fprintf(&b, "- Current difficulty level: %d/5 (1=Beginner, 5=Expert)\n", st.CurrentDifficulty)
	fmt.Fprintf(&b, "- Question number: %d of %d\n", st.QuestionCount, st.MaxQuestions)
	b.WriteString("- Focus on practical Excel skills assessment\n")
	fmt.Fprintf(&b, "- Choose from available skill areas: %s\n", strings.Join(suggested, ", "))
	b.WriteString("- Question types: \"text\" (explanation), \"excel_upload\" (file required), \"scenario\" (case study)\n\n")
	b.WriteString("DIFFICULTY GUIDELINES:\n")
	b.WriteString("Level 1-2: Basic functions, simple formulas, cell references\n")
	b.WriteString("Level 3: Intermediate functions, pivot tables, basic charts\n")
	b.WriteString("Level 4-5: Advanced formulas, complex analysis, automation\n\n")
	b.WriteString("CRITICAL: You MUST return valid JSON with ALL required fields:\n")
	fmt.Fprintf(&b, `{
  "question_text": "The actual question to ask the candidate (required)",
  "question_type": "text|excel_upload|scenario (required)",
  "difficulty_level": %d,
  "skill_area": "Choose from the available skill areas above (required)",
  "expected_answer_format": "What kind of response is expected",
  "evaluation_criteria": "Key points to evaluate in the response"
}`, st.CurrentDifficulty)
	b.WriteString("\n\nMake the question challenging but fair for the difficulty level. Be specific and practical.\n")
	b.WriteString("ENSURE the JSON is valid and complete.")
	return b.String()
}

// buildContext summarizes interview progress for the model: candidate, the
// last two scored questions, and skill rotation state.
func (g *Generator) buildContext(st *domain.InterviewState, available []string) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Candidate: %s", st.CandidateName))
	parts = append(parts, fmt.Sprintf("Questions asked so far: %d", len(st.QuestionHistory)))

	scored := make([]*domain.QuestionRecord, 0, len(st.QuestionHistory))
	for _, q := range st.QuestionHistory {
		if q.Evaluated() {
			scored = append(scored, q)
		}
	}
	if len(scored) > 0 {
		parts = append(parts, "Recent performance:")
		start := len(scored) - 2
		if start < 0 {
			start = 0
		}
		for _, q := range scored[start:] {
			parts = append(parts, fmt.Sprintf("- Q%d: %s (Score: %.1f/10)", q.ID, q.SkillArea, *q.Score))
		}
	}

	tested := make([]string, 0, len(st.TestedSkills))
	for _, s := range g.catalog {
		if _, ok := st.TestedSkills[s]; ok {
			tested = append(tested, s)
		}
	}
	parts = append(parts, fmt.Sprintf("Skills already tested: %s", strings.Join(tested, ", ")))
	parts = append(parts, fmt.Sprintf("Available skill areas: %s", strings.Join(available, ", ")))
	return strings.Join(parts, "\n")
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
