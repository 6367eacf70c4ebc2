package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"workforce-license-engine/internal/license"
	"workforce-license-engine/internal/model"
	"workforce-license-engine/internal/service"
)

const organizationKey = "organization"

// LoadOrganization 按路由参数 :id 加载组织
func LoadOrganization() fiber.Handler {
	return func(c *fiber.Ctx) error {
		org, err := service.GetOrganization(c.Params("id"))
		if errors.Is(err, service.ErrOrganizationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "organization not found",
			})
		}
		if err != nil {
			return err
		}
		c.Locals(organizationKey, org)
		return c.Next()
	}
}

// GetOrganization 取 LoadOrganization 放入的组织
func GetOrganization(c *fiber.Ctx) *model.Organization {
	org, _ := c.Locals(organizationKey).(*model.Organization)
	return org
}

// RequireFeature 组织当前状态不允许使用 feature 时返回 *license.AccessDeniedError,
// 由 ErrorHandler 转为 403. 必须在 LoadOrganization 之后使用
func RequireFeature(feature license.Feature) fiber.Handler {
	return func(c *fiber.Ctx) error {
		org := GetOrganization(c)
		if org == nil {
			return fiber.NewError(fiber.StatusInternalServerError, "organization not loaded")
		}

		decision, err := service.CheckFeature(org, feature, service.RequestMeta{
			IP:        c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		})
		if err != nil {
			// 记录失败不影响判定
			zap.L().Warn("record feature check failed", zap.Error(err))
		}

		if err := license.RequireFeatureAccess(feature, decision.State); err != nil {
			return err
		}
		return c.Next()
	}
}
