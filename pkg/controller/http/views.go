package http

import (
	"time"

	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
)

type profileView struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toProfileView(p *model.UserProfile) *profileView {
	if p == nil {
		return nil
	}
	return &profileView{
		ID:        p.ID.String(),
		Role:      p.Role.String(),
		Name:      p.Name,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
	}
}

type meView struct {
	AccountID string       `json:"account_id"`
	Email     string       `json:"email,omitempty"`
	Name      string       `json:"name,omitempty"`
	NoAuthn   bool         `json:"no_authn"`
	Profile   *profileView `json:"profile"`
}

type questionSetView struct {
	ID          string     `json:"id"`
	HRID        string     `json:"hr_id"`
	EmployeeID  string     `json:"employee_id"`
	Prompt      string     `json:"prompt"`
	Status      string     `json:"status"`
	RiskLevel   string     `json:"risk_level,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toQuestionSetView(s *model.QuestionSet) *questionSetView {
	return &questionSetView{
		ID:          s.ID.String(),
		HRID:        s.HRID.String(),
		EmployeeID:  s.EmployeeID.String(),
		Prompt:      s.Prompt,
		Status:      s.Status.String(),
		RiskLevel:   string(s.RiskLevel),
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

type questionView struct {
	ID         string     `json:"id"`
	Position   int        `json:"position"`
	Text       string     `json:"question_text"`
	AnswerText string     `json:"answer_text,omitempty"`
	Status     string     `json:"status"`
	RiskLevel  string     `json:"risk_level,omitempty"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

type questionSetDetailView struct {
	*questionSetView
	Questions []*questionView `json:"questions"`
}

func toQuestionSetDetailView(d *model.QuestionSetDetail) *questionSetDetailView {
	questions := make([]*questionView, len(d.Questions))
	for i, q := range d.Questions {
		questions[i] = &questionView{
			ID:         q.ID.String(),
			Position:   q.Position,
			Text:       q.Text,
			AnswerText: q.AnswerText,
			Status:     string(q.Status),
			RiskLevel:  string(q.RiskLevel),
			AnsweredAt: q.AnsweredAt,
		}
	}
	return &questionSetDetailView{
		questionSetView: toQuestionSetView(d.QuestionSet),
		Questions:       questions,
	}
}

type historyView struct {
	ID               string    `json:"id"`
	QuestionSetID    string    `json:"question_set_id"`
	EmployeeID       string    `json:"employee_id"`
	HRID             string    `json:"hr_id"`
	OverallRiskLevel string    `json:"overall_risk_level,omitempty"`
	CompletedAt      time.Time `json:"completed_at"`
}

func toHistoryViews(records []*model.QuestionHistory) []*historyView {
	views := make([]*historyView, len(records))
	for i, h := range records {
		views[i] = &historyView{
			ID:               string(h.ID),
			QuestionSetID:    h.QuestionSetID.String(),
			EmployeeID:       h.EmployeeID.String(),
			HRID:             h.HRID.String(),
			OverallRiskLevel: string(h.OverallRiskLevel),
			CompletedAt:      h.CompletedAt,
		}
	}
	return views
}

type itemResultView struct {
	QuestionID  string  `json:"question_id"`
	RiskLevel   string  `json:"risk_level"`
	Probability float64 `json:"probability"`
	Reasoning   string  `json:"reasoning,omitempty"`
}

// classificationView is the wire shape of a classifier verdict
type classificationView struct {
	Status           string           `json:"status"`
	Results          []itemResultView `json:"results"`
	OverallRiskLevel string           `json:"overall_risk_level"`
	Explanation      string           `json:"explanation,omitempty"`
}

func toClassificationView(c *model.Classification) *classificationView {
	results := make([]itemResultView, len(c.Results))
	for i, r := range c.Results {
		results[i] = itemResultView{
			QuestionID:  r.QuestionID.String(),
			RiskLevel:   string(r.RiskLevel),
			Probability: r.Probability,
			Reasoning:   r.Reasoning,
		}
	}
	return &classificationView{
		Status:           "success",
		Results:          results,
		OverallRiskLevel: string(c.OverallRisk),
		Explanation:      c.Explanation,
	}
}

type dashboardView struct {
	TotalSets     int            `json:"total_sets"`
	ByStatus      map[string]int `json:"by_status"`
	ByRisk        map[string]int `json:"by_risk,omitempty"`
	RecentHistory []*historyView `json:"recent_history"`
}

func toDashboardView(s *model.DashboardSummary) *dashboardView {
	v := &dashboardView{
		TotalSets:     s.TotalSets,
		ByStatus:      make(map[string]int, len(s.ByStatus)),
		RecentHistory: toHistoryViews(s.RecentHistory),
	}
	for k, n := range s.ByStatus {
		v.ByStatus[k.String()] = n
	}
	if s.ByRisk != nil {
		v.ByRisk = make(map[string]int, len(s.ByRisk))
		for k, n := range s.ByRisk {
			v.ByRisk[string(k)] = n
		}
	}
	return v
}
