package app

import (
	"exam_prep_backend/docs"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/middleware"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 学习者接口（需要登录）
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/profile", c.auth.GetProfile)

		// 分类浏览
		authGroup.GET("/subjects", c.taxonomy.ListSubjects)
		authGroup.GET("/systems", c.taxonomy.ListSystems)
		authGroup.GET("/systems/:systemId/topics", c.taxonomy.ListTopics)

		// 测验生命周期
		authGroup.POST("/tests", c.test.CreateTest)
		authGroup.GET("/tests/active", c.test.GetActiveTest)
		authGroup.GET("/tests/:id/questions", c.test.GetTestQuestions)
		authGroup.POST("/tests/:id/answers", c.test.SubmitAnswer)
		authGroup.POST("/tests/:id/pause", c.test.PauseTest)
		authGroup.POST("/tests/:id/resume", c.test.ResumeTest)
		authGroup.POST("/tests/:id/disconnect", c.test.ReportDisconnect)
		authGroup.POST("/tests/:id/end", c.test.EndTest)
		authGroup.GET("/tests/:id/recovery", c.test.GetRecovery)

		// 练习出题
		authGroup.GET("/practice/weak-areas", c.practice.GetWeakAreaQuestions)
		authGroup.GET("/practice/adaptive/:systemId", c.practice.GetAdaptiveQuestions)

		// 单题查询与表现
		authGroup.GET("/questions/:id", c.question.GetQuestion)
		authGroup.GET("/performance", c.performance.GetPerformance)
		authGroup.GET("/leaderboard", c.performance.GetLeaderboard)
	}

	// 3. 管理员接口
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		adminGroup.POST("/questions", c.question.CreateQuestion)
		adminGroup.POST("/questions/import", c.question.ImportQuestions)
		adminGroup.POST("/questions/:id/image", c.question.UploadQuestionImage)
		adminGroup.POST("/questions/pools/regenerate", c.question.RegeneratePools)
		adminGroup.POST("/taxonomy/recount", c.taxonomy.RecountQuestions)
	}
}
