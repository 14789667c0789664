package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fairyhunter13/excel-interviewer/internal/domain"
	"github.com/fairyhunter13/excel-interviewer/pkg/textx"
)

const (
	evaluatorSystemPrompt = "You are an expert Excel interviewer with 15+ years of experience " +
		"evaluating candidate responses. You always answer with a single valid JSON object."

	// minFeedbackLen rejects scorer responses whose feedback carries no substance.
	minFeedbackLen = 10
)

// heuristicKeywords is the fixed terminology list for the text fallback scorer.
var heuristicKeywords = []string{"excel", "formula", "function", "cell", "range", "worksheet", "data", "chart"}

// advancedFunctions earn a bonus in the analysis-based fallback.
var advancedFunctions = map[string]struct{}{
	"VLOOKUP": {}, "INDEX": {}, "MATCH": {}, "SUMIF": {}, "COUNTIF": {}, "PIVOT": {},
}

// Evaluator scores one answer against the matching rubric. It tries LLM
// scoring with retries and falls back to deterministic heuristics, so it
// always produces a usable EvaluationResult.
type Evaluator struct {
	ai          domain.AIClient
	analyzer    domain.SpreadsheetAnalyzer
	textRubric  domain.Rubric
	excelRubric domain.Rubric
	attempts    int
	baseDelay   time.Duration
	maxTokens   int
	log         *slog.Logger
}

// NewEvaluator constructs an Evaluator with both rubrics.
func NewEvaluator(ai domain.AIClient, analyzer domain.SpreadsheetAnalyzer, textRubric, excelRubric domain.Rubric, attempts int, baseDelay time.Duration, maxTokens int, log *slog.Logger) *Evaluator {
	return &Evaluator{
		ai:          ai,
		analyzer:    analyzer,
		textRubric:  textRubric,
		excelRubric: excelRubric,
		attempts:    attempts,
		baseDelay:   baseDelay,
		maxTokens:   maxTokens,
		log:         log,
	}
}

// llmEvaluation mirrors the JSON schema demanded from the scorer.
// OverallScore is a pointer so a missing field is distinguishable from 0.
type llmEvaluation struct {
	OverallScore     *float64           `json:"overall_score"`
	CategoryScores   map[string]float64 `json:"category_scores"`
	Strengths        []string           `json:"strengths"`
	Improvements     []string           `json:"improvements"`
	DetailedFeedback string             `json:"detailed_feedback"`
}

// Evaluate scores one answer. Presence of file bytes selects the upload path.
func (e *Evaluator) Evaluate(ctx context.Context, answer string, file []byte, q *domain.QuestionRecord) domain.EvaluationResult {
	if len(file) > 0 {
		return e.evaluateUpload(ctx, file, q)
	}
	return e.evaluateText(ctx, answer, q)
}

func (e *Evaluator) evaluateText(ctx context.Context, answer string, q *domain.QuestionRecord) domain.EvaluationResult {
	prompt := e.buildTextPrompt(answer, q)
	return attemptWithFallback(ctx, e.log, "evaluate_text", e.attempts, e.baseDelay,
		func() (domain.EvaluationResult, error) { return e.scoreOnce(ctx, prompt) },
		func() domain.EvaluationResult { return e.heuristicTextEvaluation(answer) },
	)
}

func (e *Evaluator) evaluateUpload(ctx context.Context, file []byte, q *domain.QuestionRecord) domain.EvaluationResult {
	analysis, err := e.analyzer.Analyze(ctx, file)
	if err != nil {
		// Container could not even be opened: fixed degraded result, no
		// LLM or heuristic scoring.
		e.log.Error("excel file unprocessable", slog.Any("error", err))
		return domain.EvaluationResult{
			Score: 2.0,
			Feedback: fmt.Sprintf("Unable to process Excel file: %v. Please ensure the file is a valid "+
				"Excel format (.xlsx or .xls) and try again.", err),
			Strengths: []string{},
			Improvements: []string{
				"Verify file format and structure",
				"Ensure file is not corrupted",
				"Try uploading the file again",
			},
		}
	}

	prompt := e.buildUploadPrompt(analysis, q)
	return attemptWithFallback(ctx, e.log, "evaluate_upload", e.attempts, e.baseDelay,
		func() (domain.EvaluationResult, error) { return e.scoreOnce(ctx, prompt) },
		func() domain.EvaluationResult { return e.analysisBasedEvaluation(analysis) },
	)
}

// scoreOnce performs a single LLM scoring attempt including schema validation.
// Validation failures count the same as transport failures for retries.
func (e *Evaluator) scoreOnce(ctx context.Context, prompt string) (domain.EvaluationResult, error) {
	raw, err := e.ai.ChatJSON(ctx, evaluatorSystemPrompt, prompt, e.maxTokens)
	if err != nil {
		return domain.EvaluationResult{}, err
	}
	var ev llmEvaluation
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return domain.EvaluationResult{}, fmt.Errorf("%w: evaluation json: %v", domain.ErrSchemaInvalid, err)
	}
	if ev.OverallScore == nil || *ev.OverallScore < 0 || *ev.OverallScore > 10 {
		return domain.EvaluationResult{}, fmt.Errorf("%w: overall_score missing or out of range", domain.ErrSchemaInvalid)
	}
	if len(strings.TrimSpace(ev.DetailedFeedback)) < minFeedbackLen {
		return domain.EvaluationResult{}, fmt.Errorf("%w: detailed_feedback too short or empty", domain.ErrSchemaInvalid)
	}
	strengths := ev.Strengths
	if len(strengths) == 0 {
		strengths = []string{"Shows understanding of the topic"}
	}
	improvements := ev.Improvements
	if len(improvements) == 0 {
		improvements = []string{"Consider providing more specific details"}
	}
	return domain.EvaluationResult{
		Score:          clamp(*ev.OverallScore, 0, 10),
		Feedback:       ev.DetailedFeedback,
		Strengths:      strengths,
		Improvements:   improvements,
		CategoryScores: ev.CategoryScores,
	}, nil
}

// heuristicTextEvaluation is the deterministic text scorer used when the LLM
// path is exhausted: base 5.0, adjusted by answer length and terminology.
func (e *Evaluator) heuristicTextEvaluation(answer string) domain.EvaluationResult {
	score := 5.0

	wordCount := textx.WordCount(answer)
	switch {
	case wordCount >= 50:
		score += 1.0
	case wordCount >= 25:
		score += 0.5
	case wordCount < 10:
		score -= 2.0
	}

	lower := strings.ToLower(answer)
	found := 0
	for _, term := range heuristicKeywords {
		if strings.Contains(lower, term) {
			found++
		}
	}
	score += math.Min(2.0, float64(found)*0.3)

	score = clamp(score, 1, 10)
	e.log.Info("heuristic text evaluation used", slog.Float64("score", score), slog.Int("word_count", wordCount))
	return domain.EvaluationResult{
		Score:        round1(score),
		Feedback:     "Basic evaluation completed. For detailed feedback, please ensure stable connection and try again.",
		Strengths:    []string{"Provided a response to the question"},
		Improvements: []string{"Consider providing more detailed explanations with specific Excel examples"},
	}
}

// analysisBasedEvaluation derives a score from the structural analysis alone.
func (e *Evaluator) analysisBasedEvaluation(a domain.SpreadsheetAnalysis) domain.EvaluationResult {
	score := 5.0
	var feedbackParts, strengths, improvements []string

	if !a.FileReadable {
		score = 2.0
		feedbackParts = append(feedbackParts, "File could not be read properly.")
		improvements = append(improvements, "Ensure file is in correct Excel format (.xlsx or .xls)")
	} else {
		strengths = append(strengths, "File is properly formatted and readable")
	}

	if a.DataPresent {
		score += 1.0
		strengths = append(strengths, "Contains data as expected")
	} else {
		score -= 1.0
		improvements = append(improvements, "Include relevant data in the spreadsheet")
	}

	if len(a.Formulas) > 0 {
		score += 1.5
		strengths = append(strengths, fmt.Sprintf("Uses %d formulas", len(a.Formulas)))

		usedAdvanced := make([]string, 0, len(a.FunctionsUsed))
		for _, fn := range a.FunctionsUsed {
			if _, ok := advancedFunctions[fn]; ok {
				usedAdvanced = append(usedAdvanced, fn)
			}
		}
		if len(usedAdvanced) > 0 {
			score += 1.0
			sort.Strings(usedAdvanced)
			strengths = append(strengths, fmt.Sprintf("Uses advanced functions: %s", strings.Join(usedAdvanced, ", ")))
		}
	} else {
		score -= 1.0
		improvements = append(improvements, "Include relevant formulas to solve the problem")
	}

	if a.ChartCount > 0 {
		score += 0.5
		strengths = append(strengths, fmt.Sprintf("Includes %d chart(s)", a.ChartCount))
	}

	if len(a.Errors) > 0 {
		score -= 0.5
		improvements = append(improvements, "Address file structure issues")
	}

	score = clamp(score, 1, 10)

	feedback := "Analysis-based evaluation: Basic Excel file analysis completed."
	if len(feedbackParts) > 0 {
		feedback = fmt.Sprintf("Analysis-based evaluation: %s", strings.Join(feedbackParts, " "))
	}
	e.log.Info("analysis-based evaluation used", slog.Float64("score", score), slog.Int("formulas", len(a.Formulas)))
	return domain.EvaluationResult{
		Score:        round1(score),
		Feedback:     feedback,
		Strengths:    strengths,
		Improvements: improvements,
	}
}

func (e *Evaluator) buildTextPrompt(answer string, q *domain.QuestionRecord) string {
	var b strings.Builder
	b.WriteString("QUESTION CONTEXT:\n")
	fmt.Fprintf(&b, "Question: %s\n", q.Text)
	fmt.Fprintf(&b, "Skill Area: %s\n", q.SkillArea)
	fmt.Fprintf(&b, "Difficulty Level: %d/5\n", q.DifficultyLevel)
	fmt.Fprintf(&b, "Question Type: %s\n\n", q.Type)
	fmt.Fprintf(&b, "CANDIDATE'S ANSWER:\n%s\n\n", answer)
	b.WriteString("EVALUATION CRITERIA:\nPlease evaluate based on these weighted criteria:\n")
	writeRubric(&b, e.textRubric)
	b.WriteString("\nSCORING SCALE:\n")
	b.WriteString("9-10: Exceptional - Expert-level knowledge with nuanced understanding\n")
	b.WriteString("7-8: Strong - Good grasp with minor gaps or improvements possible\n")
	b.WriteString("5-6: Adequate - Basic understanding but missing key elements\n")
	b.WriteString("3-4: Below Average - Significant gaps in knowledge or application\n")
	b.WriteString("1-2: Poor - Major misconceptions or very limited understanding\n\n")
	writeEvaluationSchema(&b, e.textRubric)
	return b.String()
}

func (e *Evaluator) buildUploadPrompt(a domain.SpreadsheetAnalysis, q *domain.QuestionRecord) string {
	functions := "None"
	if len(a.FunctionsUsed) > 0 {
		functions = strings.Join(a.FunctionsUsed, ", ")
	}
	firstFormulas := make([]string, 0, 5)
	for _, f := range a.Formulas {
		if len(firstFormulas) == 5 {
			break
		}
		firstFormulas = append(firstFormulas, f.Formula)
	}

	var b strings.Builder
	b.WriteString("You are evaluating a candidate's Excel file submission.\n\n")
	fmt.Fprintf(&b, "TASK DESCRIPTION:\n%s\n\n", q.Text)
	b.WriteString("FILE ANALYSIS RESULTS:\n")
	fmt.Fprintf(&b, "- File readable: %t\n", a.FileReadable)
	fmt.Fprintf(&b, "- Number of worksheets: %d\n", a.WorksheetCount)
	fmt.Fprintf(&b, "- Data present: %t\n", a.DataPresent)
	fmt.Fprintf(&b, "- Number of formulas: %d\n", len(a.Formulas))
	fmt.Fprintf(&b, "- Functions used: %s\n", functions)
	fmt.Fprintf(&b, "- Charts: %d\n", a.ChartCount)
	fmt.Fprintf(&b, "- Data summary: rows=%d columns=%d column_names=%v numeric_columns=%v\n",
		a.DataSummary.Rows, a.DataSummary.Columns, a.DataSummary.ColumnNames, a.DataSummary.NumericColumns)
	fmt.Fprintf(&b, "- Formulas found: %v\n", firstFormulas)
	fmt.Fprintf(&b, "- Errors: %v\n\n", a.Errors)
	b.WriteString("EVALUATION CRITERIA:\n")
	writeRubric(&b, e.excelRubric)
	b.WriteString("\nSCORING SCALE:\n")
	b.WriteString("9-10: Exceptional work, exceeds expectations\n")
	b.WriteString("7-8: Good work with minor issues\n")
	b.WriteString("5-6: Adequate but missing key elements\n")
	b.WriteString("3-4: Below average with significant issues\n")
	b.WriteString("1-2: Poor work with major problems\n\n")
	writeEvaluationSchema(&b, e.excelRubric)
	return b.String()
}

// writeRubric renders the weighted dimensions in a stable order.
func writeRubric(b *strings.Builder, r domain.Rubric) {
	for i, name := range sortedDimensions(r) {
		d := r[name]
		fmt.Fprintf(b, "%d. %s (%.0f%%): %s\n", i+1, name, d.Weight*100, d.Description)
	}
}

func writeEvaluationSchema(b *strings.Builder, r domain.Rubric) {
	b.WriteString("CRITICAL: Return ONLY valid JSON with ALL required fields:\n{\n")
	b.WriteString("  \"overall_score\": 0-10,\n  \"category_scores\": {\n")
	dims := sortedDimensions(r)
	for i, name := range dims {
		sep := ","
		if i == len(dims)-1 {
			sep = ""
		}
		fmt.Fprintf(b, "    %q: 0-10%s\n", name, sep)
	}
	b.WriteString("  },\n")
	b.WriteString("  \"strengths\": [\"specific strength 1\", \"specific strength 2\"],\n")
	b.WriteString("  \"improvements\": [\"specific improvement 1\", \"specific improvement 2\"],\n")
	b.WriteString("  \"detailed_feedback\": \"2-3 sentences of constructive feedback\"\n}\n")
	b.WriteString("\nEnsure the JSON is valid and complete.")
}

// sortedDimensions orders rubric dimensions by descending weight, then name,
// so prompts are reproducible across runs.
func sortedDimensions(r domain.Rubric) []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if r[names[i]].Weight != r[names[j]].Weight {
			return r[names[i]].Weight > r[names[j]].Weight
		}
		return names[i] < names[j]
	})
	return names
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
