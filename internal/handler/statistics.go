package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"workforce-license-engine/internal/service"
)

// HandleLicenseStatistics 处理许可证统计信息请求
func HandleLicenseStatistics(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "30"))
	if err != nil || days < 1 || days > 90 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    400,
			"message": "days must be between 1 and 90",
		})
	}

	stats, err := service.LicenseStatistics(days)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"code":    200,
		"message": "success",
		"data":    stats,
	})
}
