// Package domain holds the interview data model, error taxonomy, and ports.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidPhase     = errors.New("invalid interview phase")
	ErrSessionNotFound  = errors.New("session not found")
	ErrNoInterviewData  = errors.New("no interview data available")
	ErrNotConfigured    = errors.New("capability not configured")
	ErrSchemaInvalid    = errors.New("schema invalid")
	ErrUpstreamTimeout  = errors.New("upstream timeout")
	ErrInternal         = errors.New("internal error")
)

// InterviewPhase enumerates the session lifecycle stages. Transitions are
// strictly forward: Introduction -> Questioning -> WrapUp -> Completed.
type InterviewPhase string

const (
	PhaseIntroduction InterviewPhase = "introduction"
	PhaseQuestioning  InterviewPhase = "questioning"
	PhaseWrapUp       InterviewPhase = "wrap_up"
	PhaseCompleted    InterviewPhase = "completed"
)

// QuestionType enumerates how a question expects to be answered.
type QuestionType string

const (
	QuestionTypeText        QuestionType = "text"
	QuestionTypeExcelUpload QuestionType = "excel_upload"
	QuestionTypeScenario    QuestionType = "scenario"
)

// Valid reports whether t is one of the allowed question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeText, QuestionTypeExcelUpload, QuestionTypeScenario:
		return true
	}
	return false
}

// QuestionRecord is one entry of the session's question history.
// Evaluation fields (Score, Feedback, Strengths, Improvements) stay unset
// until the record is evaluated and are applied together exactly once.
type QuestionRecord struct {
	ID              int
	Text            string
	Type            QuestionType
	DifficultyLevel int
	SkillArea       string
	Answer          *string
	FileUpload      []byte
	Score           *float64
	Feedback        *string
	Strengths       []string
	Improvements    []string
	Timestamp       time.Time
}

// Evaluated reports whether the record already carries an evaluation.
func (q *QuestionRecord) Evaluated() bool { return q.Score != nil }

// InterviewState is the complete mutable state of one interview.
// It is owned exclusively by the Session; nothing else mutates it.
type InterviewState struct {
	SessionID         string
	CandidateName     string
	Phase             InterviewPhase
	QuestionCount     int
	MaxQuestions      int
	CurrentDifficulty int
	QuestionHistory   []*QuestionRecord
	OverallScore      *float64
	TestedSkills      map[string]struct{}
	StartedAt         time.Time
}

// EvaluationResult is the scored outcome of one answer.
// Score is always clamped to [0,10] regardless of which path produced it.
type EvaluationResult struct {
	Score          float64
	Feedback       string
	Strengths      []string
	Improvements   []string
	CategoryScores map[string]float64
}

// RubricDimension is one weighted grading criterion.
type RubricDimension struct {
	Weight      float64 `yaml:"weight" json:"weight"`
	Description string  `yaml:"description" json:"description"`
}

// Rubric maps dimension name to its weight and description. Rubrics are
// read-only configuration: they describe grading criteria to the scorer,
// the core never recomputes an overall score from category scores.
type Rubric map[string]RubricDimension

// FormulaCell is one formula found in an uploaded workbook.
type FormulaCell struct {
	Cell    string `json:"cell"`
	Formula string `json:"formula"`
}

// DataSummary describes the tabular shape of the active worksheet.
type DataSummary struct {
	Rows           int      `json:"rows"`
	Columns        int      `json:"columns"`
	ColumnNames    []string `json:"column_names"`
	NumericColumns []string `json:"numeric_columns"`
	HasHeaders     bool     `json:"has_headers"`
}

// SpreadsheetAnalysis is the structural fact record for an uploaded file.
// Partial parse failures land in Errors; they are never propagated.
type SpreadsheetAnalysis struct {
	FileReadable   bool          `json:"file_readable"`
	WorksheetCount int           `json:"worksheets_count"`
	DataPresent    bool          `json:"data_present"`
	Formulas       []FormulaCell `json:"formulas"`
	FunctionsUsed  []string      `json:"functions_used"`
	ChartCount     int           `json:"charts_count"`
	DataSummary    DataSummary   `json:"data_summary"`
	Errors         []string      `json:"errors"`
}

// AIClient (port)
//
// ChatJSON sends a structured prompt and returns raw JSON text matching the
// schema demanded by the prompt. Implementations handle transport, auth, and
// response cleaning; retry policy is owned by the caller.
type AIClient interface {
	ChatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// SpreadsheetAnalyzer (port)
//
// Analyze turns raw workbook bytes into a structural analysis. A non-nil
// error means the container itself could not be opened; all lesser failures
// are recorded in-band on the returned analysis.
type SpreadsheetAnalyzer interface {
	Analyze(ctx context.Context, data []byte) (SpreadsheetAnalysis, error)
}
