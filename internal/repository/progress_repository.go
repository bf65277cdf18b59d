package repository

import (
	"errors"
	"exam_prep_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) ListByUserSystem(userID, systemID uint) ([]model.Progress, error) {
	var rows []model.Progress
	err := r.DB.Where("user_id = ? AND system_id = ?", userID, systemID).Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) ListByUser(userID uint) ([]model.Progress, error) {
	var rows []model.Progress
	err := r.DB.Where("user_id = ?", userID).Find(&rows).Error
	return rows, err
}

// WeakAreas 选出成功率低于阈值且样本量达标的进度行，最弱优先。
// minAttempts 门槛避免单次作答噪声。
func (r *ProgressRepository) WeakAreas(userID uint, rateBelow float64, minAttempts, limit int) ([]model.Progress, error) {
	var rows []model.Progress
	err := r.DB.
		Where("user_id = ? AND success_rate < ? AND total_questions_attempted >= ?", userID, rateBelow, minAttempts).
		Order("success_rate ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// RecordAnswer 滚动更新 (user, system, topic) 的进度行，不存在则建行。
// 与题目指标不同，这里同步写：自适应选择器依赖它的新鲜度。
func (r *ProgressRepository) RecordAnswer(userID, systemID, topicID uint, isCorrect bool) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var row model.Progress
		err := tx.Where("user_id = ? AND system_id = ? AND topic_id = ?", userID, systemID, topicID).
			First(&row).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			rate := 0.0
			if isCorrect {
				rate = 100.0
			}
			return tx.Create(&model.Progress{
				UserID:                  userID,
				SystemID:                systemID,
				TopicID:                 topicID,
				SuccessRate:             rate,
				TotalQuestionsAttempted: 1,
			}).Error
		}
		if err != nil {
			return err
		}

		correct := row.SuccessRate * float64(row.TotalQuestionsAttempted) / 100
		if isCorrect {
			correct++
		}
		newTotal := row.TotalQuestionsAttempted + 1
		return tx.Model(&row).Updates(map[string]interface{}{
			"success_rate":              100 * correct / float64(newTotal),
			"total_questions_attempted": newTotal,
		}).Error
	})
}

// TopPerformers 排行榜底层查询：按加权成功率聚合用户
func (r *ProgressRepository) TopPerformers(limit int) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	err := r.DB.Model(&model.Progress{}).
		Select("progress.user_id AS user_id, users.name AS name, "+
			"SUM(progress.success_rate * progress.total_questions_attempted) / SUM(progress.total_questions_attempted) AS success_rate, "+
			"SUM(progress.total_questions_attempted) AS attempted").
		Joins("JOIN users ON users.id = progress.user_id").
		Where("progress.total_questions_attempted > 0").
		Group("progress.user_id, users.name").
		Order("success_rate DESC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}
