package service

import (
	"context"
	"encoding/json"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/pkg/cache"
	"exam_prep_backend/pkg/logger"
	"exam_prep_backend/pkg/monitoring"
	"math/rand"

	"go.uber.org/zap"
)

// questionStore 题目持久层读取面，便于测试注入替身
type questionStore interface {
	FindByFilters(filters model.QuestionFilters, limit int) ([]model.Question, error)
	IDsByTriple(systemID, topicID uint, difficulty model.Difficulty) ([]uint, error)
	FindByIDs(ids []uint) ([]model.Question, error)
}

type topicLister interface {
	AllTopics() ([]model.Topic, error)
}

// QuestionPoolService 负责出题：题池走缓存旁路，命中则按预打乱的
// 题号列表水合，未命中则 2N 超量取数后均匀洗牌。
type QuestionPoolService struct {
	Questions questionStore
	Topics    topicLister
	Cache     cache.Store
	Quiz      config.QuizConfig
}

func NewQuestionPoolService(questions questionStore, topics topicLister, store cache.Store, quiz config.QuizConfig) *QuestionPoolService {
	return &QuestionPoolService{
		Questions: questions,
		Topics:    topics,
		Cache:     store,
		Quiz:      quiz,
	}
}

var allDifficulties = []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard}

// GetQuestionsForTest 按筛选条件取最多 limit 道题。
// (system, topic, difficulty) 三元组齐备时走题池缓存；
// 匹配题目不足时返回全部可用题，不凑数不报错。
func (s *QuestionPoolService) GetQuestionsForTest(ctx context.Context, filters model.QuestionFilters) ([]model.Question, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = s.Quiz.DefaultLimit
	}

	if filters.PoolCacheable() {
		return s.fromPool(ctx, filters, limit)
	}

	// 无完整三元组：直接取数（含完全无筛选的全库抽样）
	questions, err := s.Questions.FindByFilters(filters, limit*s.Quiz.OverfetchFactor)
	if err != nil {
		return nil, err
	}
	shuffleQuestions(questions)
	if len(questions) > limit {
		questions = questions[:limit]
	}
	return questions, nil
}

func (s *QuestionPoolService) fromPool(ctx context.Context, filters model.QuestionFilters, limit int) ([]model.Question, error) {
	key := cache.PoolKey(*filters.SystemID, *filters.TopicID, string(*filters.Difficulty))

	hit := true
	ids, err := cache.CachedQuery(ctx, s.Cache, key, s.Quiz.ColdTTL(), func() ([]uint, error) {
		hit = false
		monitoring.CacheMisses.WithLabelValues(cache.PrefixQuestionPool).Inc()
		// 2倍超量取数给洗牌留余量；入缓存前已打乱
		overfetch := model.QuestionFilters{
			SystemID:   filters.SystemID,
			TopicID:    filters.TopicID,
			Difficulty: filters.Difficulty,
		}
		questions, err := s.Questions.FindByFilters(overfetch, limit*s.Quiz.OverfetchFactor)
		if err != nil {
			return nil, err
		}
		ids := make([]uint, len(questions))
		for i, q := range questions {
			ids[i] = q.ID
		}
		shuffleIDs(ids)
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	if hit {
		monitoring.CacheHits.WithLabelValues(cache.PrefixQuestionPool).Inc()
	}

	if len(ids) > limit {
		ids = ids[:limit]
	}

	questions, err := s.GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return sortByIDList(questions, ids), nil
}

// GetQuestionsByIDs 批量水合：温缓存直接取，其余一次批量查库并回填。
// 返回顺序不作保证，需要顺序的调用方按原题号列表重排。
func (s *QuestionPoolService) GetQuestionsByIDs(ctx context.Context, ids []uint) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	questions := make([]model.Question, 0, len(ids))
	missing := make([]uint, 0, len(ids))

	for _, id := range ids {
		raw, ok := s.Cache.Get(ctx, cache.QuestionKey(id))
		if !ok {
			missing = append(missing, id)
			continue
		}
		var q model.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			missing = append(missing, id)
			continue
		}
		monitoring.CacheHits.WithLabelValues(cache.PrefixQuestion).Inc()
		questions = append(questions, q)
	}

	if len(missing) == 0 {
		return questions, nil
	}
	monitoring.CacheMisses.WithLabelValues(cache.PrefixQuestion).Add(float64(len(missing)))

	fetched, err := s.Questions.FindByIDs(missing)
	if err != nil {
		return nil, err
	}
	for i := range fetched {
		if raw, err := json.Marshal(&fetched[i]); err == nil {
			s.Cache.Set(ctx, cache.QuestionKey(fetched[i].ID), string(raw), s.Quiz.ColdTTL())
		}
	}

	return append(questions, fetched...), nil
}

// GeneratePools 维护操作：为每个 (system, topic, difficulty) 组合预生成
// 打乱后的题号列表。幂等，可重复执行。返回写入的题池数。
func (s *QuestionPoolService) GeneratePools(ctx context.Context) (int, error) {
	topics, err := s.Topics.AllTopics()
	if err != nil {
		return 0, err
	}

	// 先清掉存量题池，已删除的组合不会留下幽灵键
	s.Cache.DeleteByPattern(ctx, cache.PrefixQuestionPool)

	generated := 0
	for _, topic := range topics {
		for _, difficulty := range allDifficulties {
			ids, err := s.Questions.IDsByTriple(topic.SystemID, topic.ID, difficulty)
			if err != nil {
				logger.Log.Warn("pool generation: query failed",
					zap.Uint("systemId", topic.SystemID),
					zap.Uint("topicId", topic.ID),
					zap.String("difficulty", string(difficulty)),
					zap.Error(err))
				continue
			}
			if len(ids) == 0 {
				continue
			}

			shuffleIDs(ids)
			raw, err := json.Marshal(ids)
			if err != nil {
				continue
			}
			key := cache.PoolKey(topic.SystemID, topic.ID, string(difficulty))
			if s.Cache.Set(ctx, key, string(raw), s.Quiz.ColdTTL()) {
				generated++
			}
		}
	}

	logger.Log.Info("question pools generated", zap.Int("pools", generated))
	return generated, nil
}

// InvalidateQuestion 剔除单题缓存，下次读取重新水合
func (s *QuestionPoolService) InvalidateQuestion(ctx context.Context, questionID uint) {
	s.Cache.Delete(ctx, cache.QuestionKey(questionID))
}

// Fisher-Yates 均匀洗牌；不可用“随机比较器排序”替代
func shuffleIDs(ids []uint) {
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}

func shuffleQuestions(questions []model.Question) {
	rand.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
}

func sortByIDList(questions []model.Question, ids []uint) []model.Question {
	byID := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]model.Question, 0, len(questions))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered
}
