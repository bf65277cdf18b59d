package repository

import (
	"exam_prep_backend/internal/model"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

// CreateWithQuestions 在一个事务里写入 Test 与有序的关联行。
// displayOrder 即传入切片的下标，之后集合不再变更。
func (r *TestRepository) CreateWithQuestions(test *model.Test, questionIDs []uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		test.QuestionCount = len(questionIDs)
		if err := tx.Create(test).Error; err != nil {
			return err
		}

		rows := make([]model.TestQuestion, 0, len(questionIDs))
		for i, qid := range questionIDs {
			rows = append(rows, model.TestQuestion{
				TestID:       test.ID,
				QuestionID:   qid,
				DisplayOrder: i,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// FindForUser 查找属于该用户的测验；属主不符与不存在同样返回 ErrRecordNotFound
func (r *TestRepository) FindForUser(testID, userID uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.Where("id = ? AND user_id = ?", testID, userID).First(&test).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// LatestUnsubmitted 返回该用户最近一份未交卷的测验；
// 没有则返回 ErrRecordNotFound
func (r *TestRepository) LatestUnsubmitted(userID uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.Where("user_id = ? AND submitted = ?", userID, false).
		Order("id DESC").First(&test).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// OrderedQuestionIDs 返回测验的题号序列，按 displayOrder 升序
func (r *TestRepository) OrderedQuestionIDs(testID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.TestQuestion{}).
		Where("test_id = ?", testID).
		Order("display_order ASC").
		Pluck("question_id", &ids).Error
	return ids, err
}

func (r *TestRepository) MarkSubmitted(testID uint) error {
	return r.DB.Model(&model.Test{}).Where("id = ?", testID).Update("submitted", true).Error
}

func (r *TestRepository) SaveAnswer(answer *model.TestAnswer) error {
	return r.DB.Create(answer).Error
}
