package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"golang.org/x/sync/errgroup"
)

const recentHistoryLimit = 5

type DashboardUseCase struct {
	repo interfaces.Repository
}

func NewDashboardUseCase(repo interfaces.Repository) *DashboardUseCase {
	return &DashboardUseCase{repo: repo}
}

// Summary counts the caller's question sets by status and, for HR, by risk
func (uc *DashboardUseCase) Summary(ctx context.Context, session *model.Session) (*model.DashboardSummary, error) {
	profile, err := requireProfile(session)
	if err != nil {
		return nil, err
	}

	var setScope interfaces.ListQuestionSetOption
	if profile.IsHR() {
		setScope = interfaces.WithHRID(profile.ID)
	} else {
		setScope = interfaces.WithEmployeeID(profile.ID)
	}

	var (
		sets    []*model.QuestionSet
		history []*model.QuestionHistory
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		sets, err = uc.repo.QuestionSet().List(egCtx, setScope)
		if err != nil {
			return goerr.Wrap(err, "failed to list question sets")
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		history, err = uc.repo.History().List(egCtx, historyScope(profile))
		if err != nil {
			return goerr.Wrap(err, "failed to list history")
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	summary := &model.DashboardSummary{
		TotalSets: len(sets),
		ByStatus:  make(map[types.QuestionSetStatus]int, len(types.AllQuestionSetStatuses())),
	}
	for _, status := range types.AllQuestionSetStatuses() {
		summary.ByStatus[status] = 0
	}
	for _, s := range sets {
		summary.ByStatus[s.Status]++
	}

	if profile.IsHR() {
		summary.ByRisk = make(map[types.RiskLevel]int, len(types.AllRiskLevels()))
		for _, level := range types.AllRiskLevels() {
			summary.ByRisk[level] = 0
		}
		for _, s := range sets {
			if s.RiskLevel.IsSet() {
				summary.ByRisk[s.RiskLevel]++
			}
		}
	} else {
		for _, h := range history {
			h.OverallRiskLevel = types.RiskLevelUnset
		}
	}

	if len(history) > recentHistoryLimit {
		history = history[:recentHistoryLimit]
	}
	summary.RecentHistory = history

	return summary, nil
}
