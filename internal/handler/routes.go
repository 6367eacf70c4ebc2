package handler

import (
	"github.com/gofiber/fiber/v2"

	"workforce-license-engine/internal/license"
	"workforce-license-engine/internal/middleware"
)

// SetupRoutes 注册 /api/v1 下的全部路由
func SetupRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// 认证路由
	auth := api.Group("/auth")
	auth.Post("/validate-token", HandleValidateToken)
	auth.Post("/change-password", middleware.Auth(), HandleChangePassword)

	// 用户路由
	users := api.Group("/users")
	users.Post("/login", HandleUserLogin)
	users.Post("/register", middleware.Auth(), middleware.AdminOnly(), HandleUserRegister)
	users.Get("/info", middleware.Auth(), HandleUserInfo)
	users.Get("/login-logs", middleware.Auth(), HandleGetLoginLogs)

	// 功能权限表
	api.Get("/features", HandleFeatureMatrix)

	// 组织与许可证
	orgs := api.Group("/organizations")
	orgs.Post("/", HandleTrialSignup)
	orgs.Get("/", middleware.Auth(), middleware.AdminOnly(), HandleListOrganizations)

	org := orgs.Group("/:id", middleware.Auth(), middleware.LoadOrganization())
	org.Get("/", HandleGetOrganization)
	org.Post("/upgrade", middleware.AdminOnly(), HandleUpgradeOrganization)
	org.Get("/status", HandleLicenseStatus)
	org.Get("/features", HandleOrganizationFeatures)
	org.Get("/features/:feature", HandleCheckFeature)
	org.Get("/checks", HandleFeatureChecks)
	org.Get("/report", middleware.RequireFeature(license.FeatureReportingView), HandleOrganizationReport)
	org.Get("/report/export", middleware.RequireFeature(license.FeatureReportingExport), HandleExportReport)

	// 管理员统计与日志
	api.Get("/statistics", middleware.Auth(), middleware.AdminOnly(), HandleLicenseStatistics)
	api.Get("/logs", middleware.Auth(), middleware.AdminOnly(), HandleGetLogs)
	api.Get("/logs/mine", middleware.Auth(), HandleGetUserLogs)
}
