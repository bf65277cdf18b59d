package service

import (
	"context"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/pkg/cache"
	"exam_prep_backend/pkg/logger"
	"exam_prep_backend/pkg/monitoring"
	"math"
	"sync"

	"go.uber.org/zap"
)

type questionMetricsStore interface {
	MetricsSnapshot(id uint) (*model.Question, error)
	UpdateMetrics(id uint, totalAttempts, correctAttempts int, successRate float64, avgTimeSpent int) error
}

// MetricsJob 一次作答产生的指标更新任务
type MetricsJob struct {
	QuestionID uint
	IsCorrect  bool
	TimeSpent  int // 秒
}

// MetricsUpdater 异步更新题目滚动统计。提交路径只入队，绝不等待；
// 队列有界，满了丢任务并记日志——统计是尽力而为，不是账本。
type MetricsUpdater struct {
	Questions questionMetricsStore
	Cache     cache.Store

	queue chan MetricsJob
	wg    sync.WaitGroup
	once  sync.Once
}

func NewMetricsUpdater(questions questionMetricsStore, store cache.Store, queueSize int) *MetricsUpdater {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &MetricsUpdater{
		Questions: questions,
		Cache:     store,
		queue:     make(chan MetricsJob, queueSize),
	}
}

// Start 启动唯一消费者。重复调用无效果。
func (u *MetricsUpdater) Start() {
	u.once.Do(func() {
		u.wg.Add(1)
		go u.run()
	})
}

func (u *MetricsUpdater) run() {
	defer u.wg.Done()
	for job := range u.queue {
		monitoring.MetricsQueueDepth.Set(float64(len(u.queue)))
		u.process(job)
	}
}

// Enqueue 非阻塞入队。队列满时丢弃任务：宁可丢统计也不拖慢答题路径。
func (u *MetricsUpdater) Enqueue(job MetricsJob) {
	select {
	case u.queue <- job:
		monitoring.MetricsQueueDepth.Set(float64(len(u.queue)))
	default:
		monitoring.MetricsJobsDropped.Inc()
		logger.Log.Warn("metrics queue full, job dropped", zap.Uint("questionId", job.QuestionID))
	}
}

// Stop 关闭队列并等待存量任务处理完（优雅停机时排空）
func (u *MetricsUpdater) Stop() {
	close(u.queue)
	u.wg.Wait()
}

// process 读改写滚动计数。任何错误只记日志，绝不影响进行中的测验。
func (u *MetricsUpdater) process(job MetricsJob) {
	question, err := u.Questions.MetricsSnapshot(job.QuestionID)
	if err != nil {
		logger.Log.Error("metrics update: snapshot failed",
			zap.Uint("questionId", job.QuestionID), zap.Error(err))
		return
	}

	newTotal := question.TotalAttempts + 1
	newCorrect := question.CorrectAttempts
	if job.IsCorrect {
		newCorrect++
	}
	newSuccessRate := 100 * float64(newCorrect) / float64(newTotal)
	newAvgTime := int(math.Round(
		(float64(question.AvgTimeSpent)*float64(question.TotalAttempts) + float64(job.TimeSpent)) / float64(newTotal)))

	if err := u.Questions.UpdateMetrics(job.QuestionID, newTotal, newCorrect, newSuccessRate, newAvgTime); err != nil {
		logger.Log.Error("metrics update: persist failed",
			zap.Uint("questionId", job.QuestionID), zap.Error(err))
		return
	}

	// 剔除（而非刷新）单题缓存，下次读取带上新指标
	u.Cache.Delete(context.Background(), cache.QuestionKey(job.QuestionID))
}

// QueueDepth 当前积压任务数（测试与监控用）
func (u *MetricsUpdater) QueueDepth() int {
	return len(u.queue)
}
