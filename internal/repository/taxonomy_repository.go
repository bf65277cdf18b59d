package repository

import (
	"exam_prep_backend/internal/model"

	"gorm.io/gorm"
)

type TaxonomyRepository struct {
	DB *gorm.DB
}

func NewTaxonomyRepository(db *gorm.DB) *TaxonomyRepository {
	return &TaxonomyRepository{DB: db}
}

func (r *TaxonomyRepository) ListSubjects() ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.DB.Order("name ASC").Find(&subjects).Error
	return subjects, err
}

func (r *TaxonomyRepository) ListSystems() ([]model.System, error) {
	var systems []model.System
	err := r.DB.Preload("Topics").Order("name ASC").Find(&systems).Error
	return systems, err
}

func (r *TaxonomyRepository) ListTopicsBySystem(systemID uint) ([]model.Topic, error) {
	var topics []model.Topic
	err := r.DB.Where("system_id = ?", systemID).Order("name ASC").Find(&topics).Error
	return topics, err
}

// AllTopics 题池预生成时遍历 (system, topic) 全组合用
func (r *TaxonomyRepository) AllTopics() ([]model.Topic, error) {
	var topics []model.Topic
	err := r.DB.Find(&topics).Error
	return topics, err
}

func (r *TaxonomyRepository) SystemExists(id uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.System{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *TaxonomyRepository) TopicExists(id uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Topic{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *TaxonomyRepository) SubjectExists(id uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Subject{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// RecountQuestionCounts 批量导入后重算反范式的 questionCount。
// 不用触发器，显式调用保持不变量。
func (r *TaxonomyRepository) RecountQuestionCounts() error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"UPDATE subjects SET question_count = (SELECT COUNT(*) FROM questions WHERE questions.subject_id = subjects.id AND questions.deleted_at IS NULL)",
		).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			"UPDATE systems SET question_count = (SELECT COUNT(*) FROM questions WHERE questions.system_id = systems.id AND questions.deleted_at IS NULL)",
		).Error; err != nil {
			return err
		}
		return tx.Exec(
			"UPDATE topics SET question_count = (SELECT COUNT(*) FROM questions WHERE questions.topic_id = topics.id AND questions.deleted_at IS NULL)",
		).Error
	})
}
