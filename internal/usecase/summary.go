package usecase

import (
	"sort"
	"time"

	"github.com/fairyhunter13/excel-interviewer/internal/domain"
)

// QuestionSummary is one history row of the session summary.
type QuestionSummary struct {
	QuestionID      int      `json:"question_id"`
	QuestionText    string   `json:"question_text"`
	QuestionType    string   `json:"question_type"`
	DifficultyLevel int      `json:"difficulty_level"`
	SkillArea       string   `json:"skill_area"`
	Score           *float64 `json:"score"`
	Feedback        *string  `json:"feedback"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
}

// SessionSummary is the live view of a session, available in any phase.
type SessionSummary struct {
	SessionID          string                `json:"session_id"`
	CandidateName      string                `json:"candidate_name"`
	Phase              domain.InterviewPhase `json:"phase"`
	OverallScore       *float64              `json:"overall_score"`
	PerformanceLevel   string                `json:"performance_level"`
	QuestionsCompleted int                   `json:"questions_completed"`
	QuestionHistory    []QuestionSummary     `json:"question_history"`
	SkillsTested       []string              `json:"skills_tested"`
	Timestamp          time.Time             `json:"timestamp"`
}

// Summary returns a point-in-time view of the session.
func (s *Session) Summary() SessionSummary {
	st := s.Snapshot()

	history := make([]QuestionSummary, 0, len(st.QuestionHistory))
	for _, q := range st.QuestionHistory {
		history = append(history, QuestionSummary{
			QuestionID:      q.ID,
			QuestionText:    q.Text,
			QuestionType:    string(q.Type),
			DifficultyLevel: q.DifficultyLevel,
			SkillArea:       q.SkillArea,
			Score:           q.Score,
			Feedback:        q.Feedback,
			Strengths:       q.Strengths,
			Improvements:    q.Improvements,
		})
	}

	skills := make([]string, 0, len(st.TestedSkills))
	for skill := range st.TestedSkills {
		skills = append(skills, skill)
	}
	sort.Strings(skills)

	overall := 0.0
	if st.OverallScore != nil {
		overall = *st.OverallScore
	}
	return SessionSummary{
		SessionID:          st.SessionID,
		CandidateName:      st.CandidateName,
		Phase:              st.Phase,
		OverallScore:       st.OverallScore,
		PerformanceLevel:   sessionPerformanceLevel(overall),
		QuestionsCompleted: len(st.QuestionHistory),
		QuestionHistory:    history,
		SkillsTested:       skills,
		Timestamp:          time.Now().UTC(),
	}
}
