// Package seed loads the starter curriculum.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/KinuGra/tosho-2509-back/internal/domain"
	"github.com/KinuGra/tosho-2509-back/internal/repository"
)

// Curriculum is a topic together with its ordered steps.
type Curriculum struct {
	Topic domain.Topic
	Steps []domain.Step
}

// Default is the first lesson: edit a page, stage, commit, push.
var Default = []Curriculum{
	{
		Topic: domain.Topic{
			Title:       "自分の編集をpushしてみよう",
			Description: "HTMLの見出し色変更→add→commit→push",
		},
		Steps: []domain.Step{
			{OrderNo: 1, Title: "見出しの色を変える（エディタ編集）", XPReward: 10},
			{OrderNo: 2, Title: "変更をステージングに追加（git add）", XPReward: 15},
			{OrderNo: 3, Title: "コミット（git commit）", XPReward: 20},
			{OrderNo: 4, Title: "プッシュ（git push）", XPReward: 25},
		},
	},
}

// Summary counts rows created by a run.
type Summary struct {
	Topics int
	Steps  int
}

// Run inserts every missing topic and step. Existing rows are left untouched, so
// running it twice is a no-op.
func Run(ctx context.Context, repo repository.ProgressRepository, curricula []Curriculum, logger *zap.Logger) (Summary, error) {
	var summary Summary
	for _, c := range curricula {
		topic := c.Topic
		created, err := repo.EnsureTopic(ctx, &topic)
		if err != nil {
			return summary, fmt.Errorf("seed topic %q: %w", topic.Title, err)
		}
		if created {
			summary.Topics++
			logger.Info("topic created", zap.Int("topic_id", topic.ID), zap.String("title", topic.Title))
		}

		for _, s := range c.Steps {
			step := s
			step.TopicID = topic.ID
			created, err := repo.EnsureStep(ctx, &step)
			if err != nil {
				return summary, fmt.Errorf("seed step %d of %q: %w", step.OrderNo, topic.Title, err)
			}
			if created {
				summary.Steps++
				logger.Debug("step created", zap.Int("step_id", step.ID), zap.Int("order", step.OrderNo))
			}
		}
	}
	return summary, nil
}
