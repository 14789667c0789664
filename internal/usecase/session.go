package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/excel-interviewer/internal/config"
	"github.com/fairyhunter13/excel-interviewer/internal/domain"
	"github.com/fairyhunter13/excel-interviewer/pkg/textx"
)

const introductionMessage = `Hello! I'm your AI Excel Interview Assistant.

I'll be conducting a comprehensive assessment of your Microsoft Excel skills today. This interview consists of several questions covering various Excel competencies, from basic functions to advanced data analysis.

Here's what to expect:
- Mix of theoretical questions and practical Excel tasks
- Some questions may require file uploads with your Excel solutions
- Difficulty will adapt based on your performance
- You'll receive constructive feedback after each response

Are you ready to begin? Please tell me your name and we'll get started!`

// NextAction hints the presentation layer what input to collect next.
type NextAction string

const (
	ActionAwaitName   NextAction = "await_name"
	ActionAwaitAnswer NextAction = "await_answer"
	ActionShowReport  NextAction = "show_report"
)

// QuestionPayload is the question as delivered to the presentation layer.
type QuestionPayload struct {
	ID              int    `json:"id"`
	Text            string `json:"text"`
	Type            string `json:"type"`
	DifficultyLevel int    `json:"difficulty_level"`
	SkillArea       string `json:"skill_area"`
}

// EvaluationSummary is the scored outcome delivered per turn.
type EvaluationSummary struct {
	Score          float64            `json:"score"`
	Feedback       string             `json:"feedback"`
	Strengths      []string           `json:"strengths"`
	Improvements   []string           `json:"improvements"`
	CategoryScores map[string]float64 `json:"category_scores,omitempty"`
}

// TurnResult is the outcome of one processed turn.
type TurnResult struct {
	Phase        domain.InterviewPhase `json:"phase"`
	Message      string                `json:"message,omitempty"`
	Evaluation   *EvaluationSummary    `json:"evaluation,omitempty"`
	Question     *QuestionPayload      `json:"question,omitempty"`
	QuestionID   int                   `json:"question_id,omitempty"`
	Progress     string                `json:"progress,omitempty"`
	OverallScore *float64              `json:"overall_score,omitempty"`
	NextAction   NextAction            `json:"next_action"`
}

// PhaseError tags a protocol-misuse failure with the phase it occurred in.
// The session state is left untouched when it is returned.
type PhaseError struct {
	Phase domain.InterviewPhase
	Err   error
}

func (e *PhaseError) Error() string { return fmt.Sprintf("phase %s: %v", e.Phase, e.Err) }
func (e *PhaseError) Unwrap() error { return e.Err }

// Session drives one interview: it owns the InterviewState exclusively and
// orchestrates the Generator and Evaluator per turn. Turns on the same
// session are serialized by an internal mutex since a turn mutates state
// across multiple steps.
type Session struct {
	mu    sync.Mutex
	log   *slog.Logger
	gen   *Generator
	eval  *Evaluator
	state domain.InterviewState
}

// NewSession creates a fresh session in the Introduction phase.
func NewSession(cfg config.Config, gen *Generator, eval *Evaluator, log *slog.Logger) *Session {
	id := "interview_" + uuid.NewString()
	return &Session{
		log:  log.With(slog.String("session_id", id)),
		gen:  gen,
		eval: eval,
		state: domain.InterviewState{
			SessionID:         id,
			Phase:             domain.PhaseIntroduction,
			MaxQuestions:      cfg.MaxQuestions,
			CurrentDifficulty: cfg.StartingDifficulty,
			TestedSkills:      make(map[string]struct{}),
			StartedAt:         time.Now().UTC(),
		},
	}
}

// ID returns the immutable session identifier.
func (s *Session) ID() string { return s.state.SessionID }

// Start returns the introduction payload. The phase does not advance until
// the candidate supplies a name.
func (s *Session) Start() TurnResult {
	return TurnResult{
		Phase:      domain.PhaseIntroduction,
		Message:    introductionMessage,
		NextAction: ActionAwaitName,
	}
}

// ProcessTurn handles one candidate submission: a name during Introduction,
// an answer (optionally with a file) during Questioning. Unexpected internal
// failures are caught here and surfaced tagged with the current phase; the
// state prior to the failing operation remains valid for retry.
func (s *Session) ProcessTurn(ctx context.Context, input string, file []byte) (res TurnResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("turn processing panicked", slog.Any("recover", rec), slog.String("phase", string(s.state.Phase)))
			err = &PhaseError{Phase: s.state.Phase, Err: fmt.Errorf("%w: %v", domain.ErrInternal, rec)}
		}
	}()

	switch s.state.Phase {
	case domain.PhaseIntroduction:
		return s.handleIntroduction(ctx, input)
	case domain.PhaseQuestioning:
		return s.handleQuestioning(ctx, input, file)
	case domain.PhaseWrapUp, domain.PhaseCompleted:
		// Terminal: further input is a no-op report request, not an error.
		return s.completedResult(), nil
	default:
		return TurnResult{}, &PhaseError{Phase: s.state.Phase, Err: domain.ErrInvalidPhase}
	}
}

func (s *Session) handleIntroduction(ctx context.Context, input string) (TurnResult, error) {
	name := textx.NormalizeName(input)
	if name == "" {
		return TurnResult{}, &PhaseError{Phase: s.state.Phase, Err: fmt.Errorf("%w: candidate name required", domain.ErrInvalidArgument)}
	}
	s.state.CandidateName = name
	s.state.Phase = domain.PhaseQuestioning

	first := s.gen.NextQuestion(ctx, &s.state)
	return TurnResult{
		Phase:      s.state.Phase,
		Message:    fmt.Sprintf("Great to meet you, %s! Let's begin with your first question.", name),
		Question:   questionPayload(first),
		QuestionID: first.ID,
		Progress:   s.progress(),
		NextAction: ActionAwaitAnswer,
	}, nil
}

func (s *Session) handleQuestioning(ctx context.Context, input string, file []byte) (TurnResult, error) {
	if s.eval == nil {
		return TurnResult{}, &PhaseError{Phase: s.state.Phase, Err: fmt.Errorf("%w: evaluator", domain.ErrNotConfigured)}
	}
	if len(s.state.QuestionHistory) == 0 {
		return TurnResult{}, &PhaseError{Phase: s.state.Phase, Err: fmt.Errorf("%w: no active question", domain.ErrInternal)}
	}
	current := s.state.QuestionHistory[len(s.state.QuestionHistory)-1]

	answer := textx.SanitizeText(input)
	eval := s.eval.Evaluate(ctx, answer, file, current)

	// Answer and evaluation fields are applied as a group so a record never
	// carries a score without feedback or vice versa.
	current.Answer = &answer
	current.FileUpload = file
	current.Score = &eval.Score
	current.Feedback = &eval.Feedback
	current.Strengths = eval.Strengths
	current.Improvements = eval.Improvements

	s.adaptDifficulty(eval.Score)

	if s.state.QuestionCount >= s.state.MaxQuestions {
		res := s.wrapUp()
		res.Evaluation = evaluationSummary(eval)
		return res, nil
	}

	next := s.gen.NextQuestion(ctx, &s.state)
	return TurnResult{
		Phase:      s.state.Phase,
		Evaluation: evaluationSummary(eval),
		Question:   questionPayload(next),
		QuestionID: next.ID,
		Progress:   s.progress(),
		NextAction: ActionAwaitAnswer,
	}, nil
}

// adaptDifficulty is the only place difficulty changes: up on >= 8.5, down
// on <= 4.0, always within [1,5].
func (s *Session) adaptDifficulty(score float64) {
	switch {
	case score >= 8.5:
		if s.state.CurrentDifficulty < 5 {
			s.state.CurrentDifficulty++
			s.log.Info("difficulty increased", slog.Int("difficulty", s.state.CurrentDifficulty))
		}
	case score <= 4.0:
		if s.state.CurrentDifficulty > 1 {
			s.state.CurrentDifficulty--
			s.log.Info("difficulty decreased", slog.Int("difficulty", s.state.CurrentDifficulty))
		}
	}
}

// wrapUp is entered automatically once maxQuestions answers are scored; it
// computes the overall score and moves the session to its terminal phase.
func (s *Session) wrapUp() TurnResult {
	s.state.Phase = domain.PhaseWrapUp

	var sum float64
	var n int
	for _, q := range s.state.QuestionHistory {
		if q.Score != nil {
			sum += *q.Score
			n++
		}
	}
	overall := 0.0
	if n > 0 {
		overall = sum / float64(n)
	}
	s.state.OverallScore = &overall
	s.state.Phase = domain.PhaseCompleted
	s.log.Info("interview completed", slog.Float64("overall_score", overall), slog.Int("questions", len(s.state.QuestionHistory)))

	return s.completedResult()
}

func (s *Session) completedResult() TurnResult {
	overall := 0.0
	if s.state.OverallScore != nil {
		overall = *s.state.OverallScore
	}
	msg := fmt.Sprintf(`Thank you for completing the Excel interview, %s!

Interview Summary:
- Questions completed: %d
- Overall score: %.1f/10
- Performance level: %s
- Session ID: %s

Your detailed performance report is ready for review.`,
		s.state.CandidateName, len(s.state.QuestionHistory), overall,
		sessionPerformanceLevel(overall), s.state.SessionID)

	return TurnResult{
		Phase:        domain.PhaseCompleted,
		Message:      msg,
		OverallScore: s.state.OverallScore,
		NextAction:   ActionShowReport,
	}
}

func (s *Session) progress() string {
	return fmt.Sprintf("Question %d of %d", s.state.QuestionCount, s.state.MaxQuestions)
}

// Snapshot returns a deep copy of the interview state for read-only
// consumers such as the report builder.
func (s *Session) Snapshot() domain.InterviewState {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := s.state
	cp.QuestionHistory = make([]*domain.QuestionRecord, len(s.state.QuestionHistory))
	for i, q := range s.state.QuestionHistory {
		qc := *q
		qc.Strengths = append([]string(nil), q.Strengths...)
		qc.Improvements = append([]string(nil), q.Improvements...)
		qc.FileUpload = append([]byte(nil), q.FileUpload...)
		cp.QuestionHistory[i] = &qc
	}
	cp.TestedSkills = make(map[string]struct{}, len(s.state.TestedSkills))
	for k := range s.state.TestedSkills {
		cp.TestedSkills[k] = struct{}{}
	}
	if s.state.OverallScore != nil {
		v := *s.state.OverallScore
		cp.OverallScore = &v
	}
	return cp
}

// sessionPerformanceLevel is the coarse label shown in wrap-up summaries.
// The report builder uses its own five-level scale.
func sessionPerformanceLevel(score float64) string {
	switch {
	case score >= 8.5:
		return "Excellent"
	case score >= 7.0:
		return "Good"
	case score >= 5.0:
		return "Average"
	default:
		return "Needs Improvement"
	}
}

func questionPayload(q *domain.QuestionRecord) *QuestionPayload {
	return &QuestionPayload{
		ID:              q.ID,
		Text:            q.Text,
		Type:            string(q.Type),
		DifficultyLevel: q.DifficultyLevel,
		SkillArea:       q.SkillArea,
	}
}

func evaluationSummary(e domain.EvaluationResult) *EvaluationSummary {
	return &EvaluationSummary{
		Score:          e.Score,
		Feedback:       e.Feedback,
		Strengths:      e.Strengths,
		Improvements:   e.Improvements,
		CategoryScores: e.CategoryScores,
	}
}
