package cache

import "fmt"

// 键命名空间（冒号分隔）。TTL 分层见 config.QuizConfig：
// hot=300s, warm=3600s, cold=86400s。
const (
	PrefixUserPerf       = "user:perf:"        // 学习者表现快照（hot）
	PrefixUserActiveTest = "user:active-test:" // 进行中的测验指针（hot）
	PrefixUserProgress   = "user:progress:"    // 用户进度汇总（warm）
	PrefixQuestionPool   = "questions:pool:"   // 打乱后的题号列表（cold）
	PrefixQuestion       = "question:"         // 完整题目（cold）
	PrefixSystem         = "system:"           // 系统维度聚合（warm）
	PrefixLeaderboard    = "leaderboard:"      // 排行榜快照（hot）
	PrefixTestQuestions  = "test:questions:"   // 物化的测验题目集（warm）
)

func UserPerfKey(userID uint) string {
	return fmt.Sprintf("%s%d", PrefixUserPerf, userID)
}

func UserActiveTestKey(userID uint) string {
	return fmt.Sprintf("%s%d", PrefixUserActiveTest, userID)
}

func UserProgressKey(userID uint) string {
	return fmt.Sprintf("%s%d", PrefixUserProgress, userID)
}

// PoolKey 以 (system, topic, difficulty) 三元组定位一个题池
func PoolKey(systemID, topicID uint, difficulty string) string {
	return fmt.Sprintf("%s%d:%d:%s", PrefixQuestionPool, systemID, topicID, difficulty)
}

func QuestionKey(questionID uint) string {
	return fmt.Sprintf("%s%d", PrefixQuestion, questionID)
}

func SystemKey(systemID uint) string {
	return fmt.Sprintf("%s%d", PrefixSystem, systemID)
}

func LeaderboardKey(scope string) string {
	return PrefixLeaderboard + scope
}

func TestQuestionsKey(testID uint) string {
	return fmt.Sprintf("%s%d", PrefixTestQuestions, testID)
}
