package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/excel-interviewer/internal/domain"
	"github.com/fairyhunter13/excel-interviewer/internal/usecase"
)

var (
	testTextRubric = domain.Rubric{
		"technical_accuracy":    {Weight: 0.35, Description: "Correctness of Excel concepts"},
		"practical_application": {Weight: 0.25, Description: "Real-world usage"},
	}
	testExcelRubric = domain.Rubric{
		"formula_correctness": {Weight: 0.40, Description: "Formulas work as intended"},
		"data_structure":      {Weight: 0.25, Description: "Sensible layout"},
	}
)

// fakeAnalyzer scripts the spreadsheet analysis result.
type fakeAnalyzer struct {
	analysis domain.SpreadsheetAnalysis
	err      error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ []byte) (domain.SpreadsheetAnalysis, error) {
	return f.analysis, f.err
}

func newEvaluator(ai domain.AIClient, an domain.SpreadsheetAnalyzer, attempts int) *usecase.Evaluator {
	return usecase.NewEvaluator(ai, an, testTextRubric, testExcelRubric, attempts, time.Millisecond, 1500, quietLogger())
}

func textQuestion() *domain.QuestionRecord {
	return &domain.QuestionRecord{
		ID:              1,
		Text:            "Explain VLOOKUP.",
		Type:            domain.QuestionTypeText,
		DifficultyLevel: 2,
		SkillArea:       "Lookup Functions (VLOOKUP, INDEX/MATCH)",
	}
}

func TestEvaluator_Text_LLMSuccess(t *testing.T) {
	t.Parallel()
	ai := &fakeAI{responses: []string{`{
		"overall_score": 8.2,
		"category_scores": {"technical_accuracy": 8.5, "practical_application": 8.0},
		"strengths": ["Clear syntax explanation"],
		"improvements": ["Mention approximate match pitfalls"],
		"detailed_feedback": "Strong answer covering exact match lookups."
	}`}}
	ev := newEvaluator(ai, &fakeAnalyzer{}, 3)

	res := ev.Evaluate(context.Background(), "VLOOKUP searches the first column...", nil, textQuestion())

	assert.InDelta(t, 8.2, res.Score, 1e-9)
	assert.Equal(t, "Strong answer covering exact match lookups.", res.Feedback)
	assert.Equal(t, []string{"Clear syntax explanation"}, res.Strengths)
	assert.Equal(t, 1, ai.calls)
	require.Contains(t, res.CategoryScores, "technical_accuracy")
}

func TestEvaluator_Text_DefaultsEmptyStrengthsAndImprovements(t *testing.T) {
	t.Parallel()
	ai := &fakeAI{responses: []string{`{
		"overall_score": 6.0,
		"detailed_feedback": "Decent but shallow answer."
	}`}}
	ev := newEvaluator(ai, &fakeAnalyzer{}, 3)

	res := ev.Evaluate(context.Background(), "some answer", nil, textQuestion())

	assert.Equal(t, []string{"Shows understanding of the topic"}, res.Strengths)
	assert.Equal(t, []string{"Consider providing more specific details"}, res.Improvements)
}

func TestEvaluator_Text_InvalidSchemaRetriesThenHeuristic(t *testing.T) {
	t.Parallel()
	// Score out of range on every attempt forces the heuristic path.
	ai := &fakeAI{responses: []string{`{"overall_score": 42, "detailed_feedback": "long enough feedback"}`}}
	ev := newEvaluator(ai, &fakeAnalyzer{}, 3)

	answer := "I would use a formula with the SUMIF function over the data range in the worksheet " +
		"to aggregate matching cells into a result"
	res := ev.Evaluate(context.Background(), answer, nil, textQuestion())

	assert.Equal(t, 3, ai.calls)
	assert.Contains(t, res.Feedback, "Basic evaluation completed")
	assert.GreaterOrEqual(t, res.Score, 1.0)
	assert.LessOrEqual(t, res.Score, 10.0)
}

func TestEvaluator_HeuristicScoring(t *testing.T) {
	t.Parallel()
	ai := &fakeAI{err: errors.New("down")}
	ev := newEvaluator(ai, &fakeAnalyzer{}, 1)

	// Short answer with no terminology: 5.0 - 2.0 = 3.0.
	res := ev.Evaluate(context.Background(), "I do not know", nil, textQuestion())
	assert.InDelta(t, 3.0, res.Score, 1e-9)

	// Short answer with two keywords: 5.0 - 2.0 + 0.6 = 3.6.
	res = ev.Evaluate(context.Background(), "excel formula maybe", nil, textQuestion())
	assert.InDelta(t, 3.6, res.Score, 1e-9)

	// Long answer rich in terminology caps the keyword bonus at 2.0.
	long := strings.Repeat("I would apply the formula to the cell range in the worksheet data chart function excel ", 5)
	res = ev.Evaluate(context.Background(), long, nil, textQuestion())
	assert.InDelta(t, 8.0, res.Score, 1e-9)
}

func TestEvaluator_Upload_UnreadableContainerIsFixedScore(t *testing.T) {
	t.Parallel()
	ai := &fakeAI{responses: []string{`{"overall_score": 9.0, "detailed_feedback": "should never be used"}`}}
	an := &fakeAnalyzer{err: errors.New("zip: not a valid zip file")}
	ev := newEvaluator(ai, an, 3)

	res := ev.Evaluate(context.Background(), "", []byte{0x00, 0x01}, textQuestion())

	assert.InDelta(t, 2.0, res.Score, 1e-9)
	assert.Contains(t, res.Feedback, "Unable to process Excel file")
	assert.Empty(t, res.Strengths)
	assert.Equal(t, []string{
		"Verify file format and structure",
		"Ensure file is not corrupted",
		"Try uploading the file again",
	}, res.Improvements)
	// The LLM is bypassed entirely on a hard open failure.
	assert.Equal(t, 0, ai.calls)
}

func TestEvaluator_Upload_AnalysisFallbackArithmetic(t *testing.T) {
	t.Parallel()
	ai := &fakeAI{err: errors.New("down")}
	an := &fakeAnalyzer{analysis: domain.SpreadsheetAnalysis{
		FileReadable:   true,
		WorksheetCount: 1,
		DataPresent:    true,
		Formulas: []domain.FormulaCell{
			{Cell: "B2", Formula: "=VLOOKUP(A2,Sheet2!A:B,2,FALSE)"},
		},
		FunctionsUsed: []string{"VLOOKUP"},
		ChartCount:    1,
	}}
	ev := newEvaluator(ai, an, 1)

	res := ev.Evaluate(context.Background(), "", []byte("file"), textQuestion())

	// 5.0 +1 data +1.5 formulas +1 advanced +0.5 charts = 9.0.
	assert.InDelta(t, 9.0, res.Score, 1e-9)
	assert.Contains(t, res.Feedback, "Analysis-based evaluation")
	assert.Contains(t, res.Strengths, "Uses advanced functions: VLOOKUP")
}

func TestEvaluator_Upload_NoFormulasPenalized(t *testing.T) {
	t.Parallel()
	ai := &fakeAI{err: errors.New("down")}
	an := &fakeAnalyzer{analysis: domain.SpreadsheetAnalysis{
		FileReadable:   true,
		WorksheetCount: 1,
		DataPresent:    true,
	}}
	ev := newEvaluator(ai, an, 1)

	res := ev.Evaluate(context.Background(), "", []byte("file"), textQuestion())

	// 5.0 +1 data -1 no formulas = 5.0.
	assert.InDelta(t, 5.0, res.Score, 1e-9)
}
