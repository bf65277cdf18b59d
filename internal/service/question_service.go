package service

import (
	"context"
	"errors"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/cache"
	"exam_prep_backend/pkg/logger"
	"fmt"
	"mime/multipart"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuestionInput 单题录入/导入载荷
type QuestionInput struct {
	Text        string             `json:"text" binding:"required"`
	Explanation string             `json:"explanation"`
	Difficulty  model.Difficulty   `json:"difficulty" binding:"required"`
	SubjectID   *uint              `json:"subjectId,omitempty"`
	SystemID    *uint              `json:"systemId,omitempty"`
	TopicID     *uint              `json:"topicId,omitempty"`
	Options     []QuestionOptionIn `json:"options" binding:"required"`
}

type QuestionOptionIn struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

// ImportReport 批量导入结果：坏记录跳过并计数，不中断整批
type ImportReport struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Reasons  []string `json:"reasons,omitempty"`
}

// QuestionService 题目录入与查询（管理侧）
type QuestionService struct {
	Questions *repository.QuestionRepository
	Taxonomy  *repository.TaxonomyRepository
	Storage   *StorageService
	Pool      *QuestionPoolService
	Cache     cache.Store
	Quiz      config.QuizConfig
}

func NewQuestionService(
	questions *repository.QuestionRepository,
	taxonomy *repository.TaxonomyRepository,
	storage *StorageService,
	pool *QuestionPoolService,
	store cache.Store,
	quiz config.QuizConfig,
) *QuestionService {
	return &QuestionService{
		Questions: questions,
		Taxonomy:  taxonomy,
		Storage:   storage,
		Pool:      pool,
		Cache:     store,
		Quiz:      quiz,
	}
}

func (s *QuestionService) validate(input QuestionInput) error {
	if !input.Difficulty.Valid() {
		return util.ErrInvalidDifficulty
	}
	if len(input.Options) < 2 {
		return errors.New("question needs at least 2 options")
	}
	hasCorrect := false
	for _, o := range input.Options {
		if o.IsCorrect {
			hasCorrect = true
			break
		}
	}
	if !hasCorrect {
		return errors.New("question needs at least 1 correct option")
	}
	return nil
}

// checkRefs 校验分类引用是否存在；引用不存在的记录由调用方跳过
func (s *QuestionService) checkRefs(input QuestionInput) error {
	if input.SystemID != nil {
		ok, err := s.Taxonomy.SystemExists(*input.SystemID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown system %d", *input.SystemID)
		}
	}
	if input.TopicID != nil {
		ok, err := s.Taxonomy.TopicExists(*input.TopicID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown topic %d", *input.TopicID)
		}
	}
	if input.SubjectID != nil {
		ok, err := s.Taxonomy.SubjectExists(*input.SubjectID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown subject %d", *input.SubjectID)
		}
	}
	return nil
}

func (s *QuestionService) build(input QuestionInput) *model.Question {
	question := &model.Question{
		Text:        input.Text,
		Explanation: input.Explanation,
		Difficulty:  input.Difficulty,
		SubjectID:   input.SubjectID,
		SystemID:    input.SystemID,
		TopicID:     input.TopicID,
	}
	for i, o := range input.Options {
		question.Options = append(question.Options, model.AnswerOption{
			Text:         o.Text,
			IsCorrect:    o.IsCorrect,
			DisplayOrder: i,
		})
	}
	return question
}

func (s *QuestionService) Create(input QuestionInput) (*model.Question, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	if err := s.checkRefs(input); err != nil {
		return nil, err
	}

	question := s.build(input)
	if err := s.Questions.Create(question); err != nil {
		return nil, err
	}
	return question, nil
}

// Import 批量导入。坏记录（校验失败、分类引用不存在）跳过并计数，
// 绝不让单条坏数据中断整批。
func (s *QuestionService) Import(ctx context.Context, inputs []QuestionInput) (*ImportReport, error) {
	report := &ImportReport{}
	for i, input := range inputs {
		if err := s.validate(input); err != nil {
			report.Skipped++
			report.Reasons = append(report.Reasons, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		if err := s.checkRefs(input); err != nil {
			report.Skipped++
			report.Reasons = append(report.Reasons, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		if err := s.Questions.Create(s.build(input)); err != nil {
			report.Skipped++
			report.Reasons = append(report.Reasons, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		report.Imported++
	}

	// 导入后重算反范式计数，维持 questionCount 不变量；
	// 系统维度缓存一并失效
	if report.Imported > 0 {
		if err := s.Taxonomy.RecountQuestionCounts(); err != nil {
			logger.Log.Error("question import: recount failed", zap.Error(err))
		}
		s.Cache.DeleteByPattern(ctx, cache.PrefixSystem)
	}
	return report, nil
}

func (s *QuestionService) GetByID(ctx context.Context, id uint) (*model.Question, error) {
	questions, err := s.Pool.GetQuestionsByIDs(ctx, []uint{id})
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrQuestionNotFound
	}
	return &questions[0], nil
}

// UploadImage 上传题目配图并记录URL，随后失效该题缓存
func (s *QuestionService) UploadImage(ctx context.Context, questionID uint, file *multipart.FileHeader) (string, error) {
	question, err := s.Questions.FindByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", util.ErrQuestionNotFound
		}
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := filepath.Ext(file.Filename)
	filename := fmt.Sprintf("questions/%d_%s%s", questionID, model.GenerateUUID(), ext)

	url, err := s.Storage.Upload(ctx, filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}

	if err := s.Questions.DB.Model(question).Update("image_url", url).Error; err != nil {
		return "", err
	}
	s.Pool.InvalidateQuestion(ctx, questionID)
	return url, nil
}
