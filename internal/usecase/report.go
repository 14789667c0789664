package usecase

import (
	"strings"
	"time"

	"github.com/fairyhunter13/excel-interviewer/internal/domain"
)

// SkillSummary aggregates all questions asked in one skill area.
type SkillSummary struct {
	AverageScore     float64 `json:"average_score"`
	QuestionsAsked   int     `json:"questions_asked"`
	PerformanceLevel string  `json:"performance_level"`
}

// QuestionDetail is one history row in the report.
type QuestionDetail struct {
	QuestionNumber  int      `json:"question_number"`
	QuestionText    string   `json:"question_text"`
	SkillArea       string   `json:"skill_area"`
	DifficultyLevel int      `json:"difficulty_level"`
	Score           *float64 `json:"score"`
	Feedback        string   `json:"feedback"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
}

// Report is the final skill-segmented performance report.
type Report struct {
	CandidateName      string                  `json:"candidate_name"`
	SessionID          string                  `json:"session_id"`
	InterviewDate      string                  `json:"interview_date"`
	OverallScore       float64                 `json:"overall_score"`
	PerformanceLevel   string                  `json:"performance_level"`
	TotalQuestions     int                     `json:"total_questions"`
	QuestionsCompleted int                     `json:"questions_completed"`
	SkillBreakdown     map[string]SkillSummary `json:"skill_breakdown"`
	Strengths          []string                `json:"strengths"`
	Improvements       []string                `json:"improvements"`
	Recommendations    []string                `json:"recommendations"`
	DetailedQuestions  []QuestionDetail        `json:"detailed_questions"`
}

// BuildReport derives a report from an immutable history snapshot. It is a
// pure function of the snapshot apart from the interview date stamp: built
// twice from the same snapshot it yields identical content.
func BuildReport(st domain.InterviewState) (Report, error) {
	if len(st.QuestionHistory) == 0 {
		return Report{}, domain.ErrNoInterviewData
	}

	var sum float64
	var scored int
	for _, q := range st.QuestionHistory {
		if q.Score != nil {
			sum += *q.Score
			scored++
		}
	}
	overall := 0.0
	if scored > 0 {
		overall = sum / float64(scored)
	}

	// Group by skill area preserving first-seen order for determinism.
	type skillAgg struct {
		sum       float64
		scored    int
		questions int
	}
	var skillOrder []string
	skills := make(map[string]*skillAgg)
	for _, q := range st.QuestionHistory {
		agg, ok := skills[q.SkillArea]
		if !ok {
			agg = &skillAgg{}
			skills[q.SkillArea] = agg
			skillOrder = append(skillOrder, q.SkillArea)
		}
		agg.questions++
		if q.Score != nil {
			agg.sum += *q.Score
			agg.scored++
		}
	}
	breakdown := make(map[string]SkillSummary, len(skills))
	for name, agg := range skills {
		avg := 0.0
		if agg.scored > 0 {
			avg = agg.sum / float64(agg.scored)
		}
		breakdown[name] = SkillSummary{
			AverageScore:     round1(avg),
			QuestionsAsked:   agg.questions,
			PerformanceLevel: reportPerformanceLevel(avg),
		}
	}

	var allStrengths, allImprovements []string
	details := make([]QuestionDetail, 0, len(st.QuestionHistory))
	for i, q := range st.QuestionHistory {
		allStrengths = append(allStrengths, q.Strengths...)
		allImprovements = append(allImprovements, q.Improvements...)
		feedback := ""
		if q.Feedback != nil {
			feedback = *q.Feedback
		}
		details = append(details, QuestionDetail{
			QuestionNumber:  i + 1,
			QuestionText:    q.Text,
			SkillArea:       q.SkillArea,
			DifficultyLevel: q.DifficultyLevel,
			Score:           q.Score,
			Feedback:        feedback,
			Strengths:       q.Strengths,
			Improvements:    q.Improvements,
		})
	}

	return Report{
		CandidateName:      st.CandidateName,
		SessionID:          st.SessionID,
		InterviewDate:      time.Now().UTC().Format("2006-01-02 15:04:05"),
		OverallScore:       round1(overall),
		PerformanceLevel:   reportPerformanceLevel(overall),
		TotalQuestions:     len(st.QuestionHistory),
		QuestionsCompleted: scored,
		SkillBreakdown:     breakdown,
		Strengths:          dedupe(allStrengths),
		Improvements:       dedupe(allImprovements),
		Recommendations:    buildRecommendations(overall, skillOrder, breakdown, allImprovements),
		DetailedQuestions:  details,
	}, nil
}

// buildRecommendations produces learning tips: a pair by overall-score band,
// one per notably weak skill area, and up to three from recurring
// improvement phrases.
func buildRecommendations(overall float64, skillOrder []string, breakdown map[string]SkillSummary, improvements []string) []string {
	var recs []string

	switch {
	case overall < 5.0:
		recs = append(recs,
			"Start with Excel basics: cell references, simple formulas, and basic functions",
			"Practice using SUM, AVERAGE, COUNT functions regularly")
	case overall < 7.0:
		recs = append(recs,
			"Focus on intermediate Excel features like VLOOKUP and pivot tables",
			"Learn conditional formatting and data validation")
	default:
		recs = append(recs,
			"Explore advanced Excel features like Power Query and Power Pivot",
			"Consider learning VBA for automation")
	}

	for _, skill := range skillOrder {
		if breakdown[skill].AverageScore >= overall-1.0 {
			continue
		}
		lower := strings.ToLower(skill)
		switch {
		case strings.Contains(lower, "lookup"):
			recs = append(recs, "Practice VLOOKUP, INDEX/MATCH functions with different datasets")
		case strings.Contains(lower, "pivot"):
			recs = append(recs, "Create pivot tables with various data sources and analyze trends")
		case strings.Contains(lower, "chart"):
			recs = append(recs, "Learn different chart types and when to use each effectively")
		case strings.Contains(lower, "formula"):
			recs = append(recs, "Study array formulas and nested function combinations")
		}
	}

	counts := make(map[string]int)
	for _, imp := range improvements {
		counts[imp]++
	}
	added := 0
	for _, imp := range improvements {
		if added == 3 {
			break
		}
		if counts[imp] <= 1 {
			continue
		}
		counts[imp] = 0 // consume so each phrase contributes once
		lower := strings.ToLower(imp)
		switch {
		case strings.Contains(lower, "example"):
			recs = append(recs, "Practice explaining Excel concepts with real-world examples")
			added++
		case strings.Contains(lower, "detail"):
			recs = append(recs, "Work on providing more comprehensive explanations")
			added++
		}
	}

	return dedupe(recs)
}

// reportPerformanceLevel is the five-level scale used in reports; the
// session wrap-up message uses a separate coarser scale.
func reportPerformanceLevel(score float64) string {
	switch {
	case score >= 8.5:
		return "Expert"
	case score >= 7.0:
		return "Advanced"
	case score >= 5.0:
		return "Intermediate"
	case score >= 3.0:
		return "Beginner"
	default:
		return "Needs Improvement"
	}
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
