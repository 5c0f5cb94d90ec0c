package router

import (
	"github.com/gin-gonic/gin"

	"studyarchive/internal/handlers"
	"studyarchive/internal/middleware"
	"studyarchive/internal/services"
)

// Deps are the services the routes are built on.
type Deps struct {
	Accounts       *services.AccountService
	Admin          *services.AdminService
	Documents      *services.DocumentService
	Comments       *services.CommentService
	Notifications  *services.NotificationService
	CaptchaEnabled bool
	MaxUploadBytes int64
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Handlers
	authHandler := handlers.NewAuthHandler(d.Accounts, d.CaptchaEnabled)
	documentHandler := handlers.NewDocumentHandler(d.Documents, d.MaxUploadBytes)
	commentHandler := handlers.NewCommentHandler(d.Comments)
	notificationHandler := handlers.NewNotificationHandler(d.Notifications)
	adminHandler := handlers.NewAdminHandler(d.Admin, d.Documents, d.Comments)

	r.GET("/healthz", handlers.Health) // 健康检查

	api := r.Group("/api")
	api.Use(middleware.LoadUser(d.Accounts))

	// 公共路由 (Public Routes)，读权限由 public 角色决定
	api.GET("/auth/captcha", authHandler.Captcha)    // 获取验证码
	api.POST("/auth/register", authHandler.Register) // 注册
	api.POST("/auth/login", authHandler.Login)       // 登录
	api.POST("/auth/logout", authHandler.Logout)     // 退出登录
	api.GET("/auth/me", authHandler.Me)              // 当前身份

	api.GET("/documents", documentHandler.List)                  // 文档列表
	api.GET("/documents/search", documentHandler.Search)         // 搜索文档
	api.GET("/documents/:id", documentHandler.Get)               // 文档详情
	api.GET("/documents/:id/download", documentHandler.Download) // 下载链接
	api.GET("/documents/:id/comments", commentHandler.List)      // 评论树
	api.GET("/comments/:id", commentHandler.Get)                 // 单条评论

	// 受保护路由 (Protected Routes)
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/documents", documentHandler.Upload)             // 上传 PDF
		authorized.PATCH("/documents/:id", documentHandler.Update)        // 修改标题/简介
		authorized.DELETE("/documents/:id", documentHandler.Delete)       // 删除文档
		authorized.POST("/documents/:id/comments", commentHandler.Create) // 发表评论/回复
		authorized.PATCH("/comments/:id", commentHandler.Edit)            // 编辑评论
		authorized.DELETE("/comments/:id", commentHandler.Delete)         // 删除评论

		authorized.GET("/notifications", notificationHandler.List)              // 我的通知
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll) // 全部标记为已读
		authorized.POST("/notifications/:id/read", notificationHandler.Read)    // 标记单条已读
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)     // 删除单条通知
	}

	// 管理后台 (Admin Routes)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/users", adminHandler.ListUsers)              // 用户列表
		admin.POST("/users/:id/role", adminHandler.SetUserRole)  // 修改角色
		admin.POST("/users/:id/punish", adminHandler.PunishUser) // 禁言/封禁
		admin.DELETE("/users/:id", adminHandler.DeleteUser)      // 删除用户

		admin.GET("/roles", adminHandler.ListRoles)         // 角色列表
		admin.POST("/roles", adminHandler.CreateRole)       // 新建角色
		admin.PUT("/roles/:id", adminHandler.UpdateRole)    // 修改角色权限
		admin.DELETE("/roles/:id", adminHandler.DeleteRole) // 删除角色

		admin.GET("/documents", adminHandler.ListDocuments)         // 全部文档
		admin.DELETE("/documents/:id", adminHandler.DeleteDocument) // 删除文档
		admin.GET("/comments", adminHandler.ListComments)           // 最新评论
		admin.DELETE("/comments/:id", adminHandler.DeleteComment)   // 删除评论
	}
}
