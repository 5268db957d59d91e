package api

import (
	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/api/middleware"
)

// Handlers 聚合全部路由处理器。
type Handlers struct {
	Auth     *AuthHandler
	Resumes  *ResumeHandler
	PDF      *PDFHandler
	Exports  *ExportHandler
	Insights *InsightsHandler
	Ws       *WsHandler
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, h Handlers, tokens accessTokenValidator) {
	authMiddleware := middleware.AuthMiddleware(tokens)

	if h.Ws != nil {
		router.GET("/ws", h.Ws.HandleConnection)
	}

	if h.Auth != nil {
		authGroup := router.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
			authGroup.POST("/refresh", h.Auth.Refresh)
			authGroup.POST("/logout", authMiddleware, h.Auth.Logout)
		}
	}

	resumeGroup := router.Group("/resumes")
	resumeGroup.Use(authMiddleware)
	{
		resumeGroup.POST("", h.Resumes.CreateResume)
		resumeGroup.POST("/generate-pdf", h.PDF.GeneratePDF)
		resumeGroup.GET("/single/:id", h.Resumes.GetResume)
		resumeGroup.GET("/:ownerId", h.Resumes.ListResumes)
		resumeGroup.PUT("/:id", h.Resumes.UpdateResume)
		resumeGroup.DELETE("/:id", h.Resumes.DeleteResume)
	}

	router.GET("/pdf/download/:resumeId", authMiddleware, h.PDF.DownloadPDF)

	if h.Exports != nil {
		exportGroup := router.Group("/exports")
		exportGroup.Use(authMiddleware)
		{
			exportGroup.POST("", h.Exports.CreateExport)
			exportGroup.GET("/:id", h.Exports.GetExport)
		}
	}

	if h.Insights != nil {
		router.POST("/ai/analyze-resume", authMiddleware, h.Insights.AnalyzeResume)
		router.POST("/jobs/recommendations", authMiddleware, h.Insights.Recommendations)
		router.POST("/profiles/enhance", authMiddleware, h.Insights.EnhanceProfile)
	}
}
