package usecase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/excel-interviewer/internal/domain"
	"github.com/fairyhunter13/excel-interviewer/internal/usecase"
)

func scoredRecord(id int, skill string, score float64, strengths, improvements []string) *domain.QuestionRecord {
	answer := "an answer"
	feedback := "feedback text"
	return &domain.QuestionRecord{
		ID:              id,
		Text:            "question text",
		Type:            domain.QuestionTypeText,
		DifficultyLevel: 2,
		SkillArea:       skill,
		Answer:          &answer,
		Score:           &score,
		Feedback:        &feedback,
		Strengths:       strengths,
		Improvements:    improvements,
		Timestamp:       time.Now().UTC(),
	}
}

func reportState(records ...*domain.QuestionRecord) domain.InterviewState {
	return domain.InterviewState{
		SessionID:       "interview_rep",
		CandidateName:   "Ada",
		Phase:           domain.PhaseCompleted,
		QuestionHistory: records,
	}
}

func TestBuildReport_EmptyHistory(t *testing.T) {
	t.Parallel()
	_, err := usecase.BuildReport(domain.InterviewState{SessionID: "interview_x"})
	assert.ErrorIs(t, err, domain.ErrNoInterviewData)
}

func TestBuildReport_SkillBreakdownAndOverall(t *testing.T) {
	t.Parallel()
	st := reportState(
		scoredRecord(1, "Lookup Functions (VLOOKUP, INDEX/MATCH)", 8.0, []string{"Good syntax"}, nil),
		scoredRecord(2, "Lookup Functions (VLOOKUP, INDEX/MATCH)", 9.0, []string{"Good syntax"}, nil),
		scoredRecord(3, "Charts and Visualization", 4.0, nil, []string{"Needs work"}),
	)

	rep, err := usecase.BuildReport(st)
	require.NoError(t, err)

	assert.Equal(t, "Ada", rep.CandidateName)
	assert.Equal(t, "interview_rep", rep.SessionID)
	assert.Equal(t, 3, rep.TotalQuestions)
	assert.Equal(t, 3, rep.QuestionsCompleted)
	assert.InDelta(t, 7.0, rep.OverallScore, 1e-9)
	assert.Equal(t, "Advanced", rep.PerformanceLevel)

	require.Len(t, rep.SkillBreakdown, 2)
	lookup := rep.SkillBreakdown["Lookup Functions (VLOOKUP, INDEX/MATCH)"]
	assert.InDelta(t, 8.5, lookup.AverageScore, 1e-9)
	assert.Equal(t, 2, lookup.QuestionsAsked)
	assert.Equal(t, "Expert", lookup.PerformanceLevel)

	charts := rep.SkillBreakdown["Charts and Visualization"]
	assert.InDelta(t, 4.0, charts.AverageScore, 1e-9)
	assert.Equal(t, "Beginner", charts.PerformanceLevel)

	// Duplicate strengths collapse while first-seen order is preserved.
	assert.Equal(t, []string{"Good syntax"}, rep.Strengths)
	assert.Equal(t, []string{"Needs work"}, rep.Improvements)
	require.Len(t, rep.DetailedQuestions, 3)
	assert.Equal(t, 1, rep.DetailedQuestions[0].QuestionNumber)
}

func TestBuildReport_UnscoredQuestionsExcludedFromMean(t *testing.T) {
	t.Parallel()
	unscored := &domain.QuestionRecord{ID: 2, Text: "q", SkillArea: "Charts and Visualization"}
	st := reportState(
		scoredRecord(1, "Charts and Visualization", 6.0, nil, nil),
		unscored,
	)

	rep, err := usecase.BuildReport(st)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.TotalQuestions)
	assert.Equal(t, 1, rep.QuestionsCompleted)
	assert.InDelta(t, 6.0, rep.OverallScore, 1e-9)
	assert.Equal(t, 2, rep.SkillBreakdown["Charts and Visualization"].QuestionsAsked)
}

func TestBuildReport_RecommendationBands(t *testing.T) {
	t.Parallel()
	low, err := usecase.BuildReport(reportState(scoredRecord(1, "X", 3.0, nil, nil)))
	require.NoError(t, err)
	assert.Contains(t, low.Recommendations, "Start with Excel basics: cell references, simple formulas, and basic functions")

	mid, err := usecase.BuildReport(reportState(scoredRecord(1, "X", 6.0, nil, nil)))
	require.NoError(t, err)
	assert.Contains(t, mid.Recommendations, "Focus on intermediate Excel features like VLOOKUP and pivot tables")

	high, err := usecase.BuildReport(reportState(scoredRecord(1, "X", 9.0, nil, nil)))
	require.NoError(t, err)
	assert.Contains(t, high.Recommendations, "Explore advanced Excel features like Power Query and Power Pivot")
}

func TestBuildReport_WeakSkillRecommendations(t *testing.T) {
	t.Parallel()
	// Lookup average sits well below overall, so a targeted tip is added.
	st := reportState(
		scoredRecord(1, "Lookup Functions (VLOOKUP, INDEX/MATCH)", 4.0, nil, nil),
		scoredRecord(2, "Pivot Tables and Data Analysis", 9.0, nil, nil),
		scoredRecord(3, "Charts and Visualization", 9.0, nil, nil),
	)

	rep, err := usecase.BuildReport(st)
	require.NoError(t, err)
	assert.Contains(t, rep.Recommendations, "Practice VLOOKUP, INDEX/MATCH functions with different datasets")
	assert.NotContains(t, rep.Recommendations, "Create pivot tables with various data sources and analyze trends")
}

func TestBuildReport_RecurringImprovementRecommendations(t *testing.T) {
	t.Parallel()
	st := reportState(
		scoredRecord(1, "X", 6.0, nil, []string{"Give concrete examples"}),
		scoredRecord(2, "X", 6.0, nil, []string{"Give concrete examples"}),
		scoredRecord(3, "X", 6.0, nil, []string{"More detail please"}),
	)

	rep, err := usecase.BuildReport(st)
	require.NoError(t, err)
	// "examples" recurs, "detail" appears once only.
	assert.Contains(t, rep.Recommendations, "Practice explaining Excel concepts with real-world examples")
	assert.NotContains(t, rep.Recommendations, "Work on providing more comprehensive explanations")
}

func TestBuildReport_DeterministicApartFromDate(t *testing.T) {
	t.Parallel()
	st := reportState(
		scoredRecord(1, "Lookup Functions (VLOOKUP, INDEX/MATCH)", 8.0, []string{"s"}, []string{"i"}),
		scoredRecord(2, "Charts and Visualization", 5.0, []string{"s"}, []string{"i"}),
	)

	a, err := usecase.BuildReport(st)
	require.NoError(t, err)
	b, err := usecase.BuildReport(st)
	require.NoError(t, err)

	a.InterviewDate, b.InterviewDate = "", ""
	assert.Equal(t, a, b)
}
