package repository

import (
	"exam_prep_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// FindByFilters 按可选条件取题，最多 limit 条。不做随机排序，
// 打乱由调用方用均匀洗牌完成。
func (r *QuestionRepository) FindByFilters(filters model.QuestionFilters, limit int) ([]model.Question, error) {
	query := r.DB.Model(&model.Question{}).Preload("Options")

	if filters.SystemID != nil {
		query = query.Where("system_id = ?", *filters.SystemID)
	}
	if filters.TopicID != nil {
		query = query.Where("topic_id = ?", *filters.TopicID)
	}
	if filters.SubjectID != nil {
		query = query.Where("subject_id = ?", *filters.SubjectID)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var questions []model.Question
	err := query.Find(&questions).Error
	return questions, err
}

// IDsByTriple 取 (system, topic, difficulty) 组合下的全部题号
func (r *QuestionRepository) IDsByTriple(systemID, topicID uint, difficulty model.Difficulty) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Question{}).
		Where("system_id = ? AND topic_id = ? AND difficulty = ?", systemID, topicID, difficulty).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *QuestionRepository) FindByIDs(ids []uint) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var questions []model.Question
	err := r.DB.Preload("Options").Where("id IN ?", ids).Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var question model.Question
	err := r.DB.Preload("Options").First(&question, id).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// MetricsSnapshot 只取滚动指标列，供异步更新任务读改写
func (r *QuestionRepository) MetricsSnapshot(id uint) (*model.Question, error) {
	var question model.Question
	err := r.DB.Select("id", "total_attempts", "correct_attempts", "success_rate", "avg_time_spent").
		First(&question, id).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// UpdateMetrics 单条UPDATE原子落盘四个滚动指标字段。
// 并发提交同题会发生读改写竞争，按设计接受（尽力统计，非账本）。
func (r *QuestionRepository) UpdateMetrics(id uint, totalAttempts, correctAttempts int, successRate float64, avgTimeSpent int) error {
	return r.DB.Model(&model.Question{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_attempts":   totalAttempts,
		"correct_attempts": correctAttempts,
		"success_rate":     successRate,
		"avg_time_spent":   avgTimeSpent,
	}).Error
}

func (r *QuestionRepository) Create(question *model.Question) error {
	return r.DB.Create(question).Error
}

func (r *QuestionRepository) OptionBelongsToQuestion(questionID, optionID uint) (*model.AnswerOption, error) {
	var option model.AnswerOption
	err := r.DB.Where("id = ? AND question_id = ?", optionID, questionID).First(&option).Error
	if err != nil {
		return nil, err
	}
	return &option, nil
}
